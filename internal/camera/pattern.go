package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"
)

// PatternAcquirer はテストパターンを生成する仮想カメラ
// 実機がない開発環境や、各種失敗のシミュレーションに使う
type PatternAcquirer struct {
	Width  int
	Height int
	FPS    int

	mu       sync.Mutex
	failures map[FacingMode]ErrorKind
	acquired int
}

// NewPatternAcquirer は新しいPatternAcquirerを作成する
func NewPatternAcquirer(width, height, fps int) *PatternAcquirer {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	if fps <= 0 {
		fps = 15
	}
	return &PatternAcquirer{
		Width:    width,
		Height:   height,
		FPS:      fps,
		failures: make(map[FacingMode]ErrorKind),
	}
}

// SetFailure は指定した向きの取得を失敗させる
// 空のkindを渡すと解除する
func (p *PatternAcquirer) SetFailure(facing FacingMode, kind ErrorKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if kind == "" {
		delete(p.failures, facing)
		return
	}
	p.failures[facing] = kind
}

// Acquired はこれまでに取得に成功した回数を返す
func (p *PatternAcquirer) Acquired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired
}

// Acquire はテストパターンのセッションを返す
func (p *PatternAcquirer) Acquire(ctx context.Context, constraints Constraints) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewAccessError(KindOther, err)
	}

	p.mu.Lock()
	kind, fail := p.failures[constraints.Facing]
	if !fail {
		p.acquired++
	}
	p.mu.Unlock()

	if fail {
		return nil, NewAccessError(kind, fmt.Errorf("テストパターン: %s の取得を拒否", constraints.Facing))
	}

	first, err := encodePattern(p.Width, p.Height, constraints.Facing, 0)
	if err != nil {
		return nil, NewAccessError(KindOther, err)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	session := newStreamSession(constraints.Facing, cancel)
	session.publish(first)

	in := make(chan []byte, 1)
	go p.generate(streamCtx, constraints.Facing, in)
	go session.forward(in)

	return session, nil
}

// generate はFPSに合わせてフレームを生成する
func (p *PatternAcquirer) generate(ctx context.Context, facing FacingMode, out chan<- []byte) {
	defer close(out)

	ticker := time.NewTicker(time.Second / time.Duration(p.FPS))
	defer ticker.Stop()

	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := encodePattern(p.Width, p.Height, facing, tick)
			if err != nil {
				continue
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}
	}
}

// PatternImage はテストパターンの画像を生成する
// 左端から右端へ赤が増えるグラデーションで、左右反転が判別できる
func PatternImage(width, height int, facing FacingMode, tick int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	var blue uint8 = 0x40
	if facing.IsFront() {
		blue = 0xC0
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			red := uint8(0)
			if width > 1 {
				red = uint8(x * 255 / (width - 1))
			}
			green := uint8((y + tick*4) % 256)
			img.SetRGBA(x, y, color.RGBA{R: red, G: green, B: blue, A: 0xFF})
		}
	}

	return img
}

func encodePattern(width, height int, facing FacingMode, tick int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, PatternImage(width, height, facing, tick), &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("テストパターンのエンコードに失敗: %w", err)
	}
	return buf.Bytes(), nil
}
