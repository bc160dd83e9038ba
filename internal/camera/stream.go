package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/google/uuid"
)

// ErrNoFrame はまだフレームが届いていないことを表す
var ErrNoFrame = errors.New("フレームがまだ取得されていません")

// streamSession はJPEGフレームのストリームを保持するSession実装
type streamSession struct {
	id     string
	facing FacingMode

	cancel context.CancelFunc
	done   chan struct{}
	out    chan []byte

	// 最新フレーム
	// ストリームが終了した後は ended が立ち、フレームは返さない
	mu     sync.RWMutex
	latest []byte
	width  int
	height int
	ended  bool

	releaseOnce sync.Once
}

func newStreamSession(facing FacingMode, cancel context.CancelFunc) *streamSession {
	return &streamSession{
		id:     uuid.New().String(),
		facing: facing,
		cancel: cancel,
		done:   make(chan struct{}),
		out:    make(chan []byte, 10),
	}
}

// ID はセッションIDを返す
func (s *streamSession) ID() string {
	return s.id
}

// Facing はセッションの向きを返す
func (s *streamSession) Facing() FacingMode {
	return s.facing
}

// FrameSize は最新フレームのサイズを返す
func (s *streamSession) FrameSize() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ended {
		return 0, 0
	}
	return s.width, s.height
}

// Frame は最新フレームをデコードして返す
func (s *streamSession) Frame(_ context.Context) (image.Image, error) {
	s.mu.RLock()
	data, ended := s.latest, s.ended
	s.mu.RUnlock()

	if ended || data == nil {
		return nil, ErrNoFrame
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("JPEG画像のデコードに失敗: %w", err)
	}
	return img, nil
}

// Frames はプレビュー用フレームのチャンネルを返す
func (s *streamSession) Frames() <-chan []byte {
	return s.out
}

// Release はストリームを停止し、転送ゴルーチンの終了を待つ
func (s *streamSession) Release(ctx context.Context) error {
	s.releaseOnce.Do(s.cancel)

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("セッション %s の停止待ちが中断されました: %w", s.id, ctx.Err())
	}
}

// store は最新フレームを保存する
func (s *streamSession) store(frame []byte) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		// 壊れたフレームは捨てる
		return
	}

	s.mu.Lock()
	s.latest = frame
	s.width = cfg.Width
	s.height = cfg.Height
	s.mu.Unlock()
}

// publish は最新フレームを保存し、プレビューへ送る
// プレビューが詰まっている場合は古いフレームを破棄する
func (s *streamSession) publish(frame []byte) {
	s.store(frame)

	select {
	case s.out <- frame:
	default:
		select {
		case <-s.out:
		default:
		}
		select {
		case s.out <- frame:
		default:
		}
	}
}

// forward は入力がクローズされるまでフレームを publish する
// 終了時は最新フレームを無効にしてから出力をクローズする
func (s *streamSession) forward(in <-chan []byte) {
	defer close(s.done)
	defer close(s.out)

	for frame := range in {
		s.publish(frame)
	}

	s.mu.Lock()
	s.ended = true
	s.latest = nil
	s.mu.Unlock()
}
