// Package controller はカメラ画面の全ての振る舞いを担う
//
// # 責務
// - カメラセッションの取得・解放（同時に生きているセッションは最大1つ）
// - 静止画の撮影と、前面カメラ時の左右反転
// - 新しい順の写真ギャラリーの管理
// - ローディング/エラー/ギャラリー表示の状態遷移
//
// # 仕様
// - 取得要求には単調増加するトークンを振り、新しい要求に追い越された古い結果は破棄する
// - 新しい要求は取得中の古い要求をキャンセルし、その終了を待ってから取得を始める
// - 取得の失敗は再送出せず、ユーザー向けメッセージに変換してエラーパネルに表示する
// - セッションなしでの撮影は ErrNoActiveSession を返し、状態を変更しない
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"snapcam/internal/camera"
	"snapcam/internal/gallery"
	"snapcam/internal/imaging"
	"snapcam/internal/metrics"
	"snapcam/internal/ui"
)

var (
	// ErrNoActiveSession はアクティブなセッションがない（またはフレームサイズが0）ことを表す
	ErrNoActiveSession = errors.New("アクティブなセッションがありません")

	// ErrSuperseded は取得要求が新しい要求に追い越されたことを表す
	ErrSuperseded = errors.New("新しい取得要求に置き換えられました")
)

// DefaultFlashDuration は撮影アニメーションの長さ
const DefaultFlashDuration = 200 * time.Millisecond

// PreviewSink はセッションを受け取り、ライブプレビューを描画し続ける
type PreviewSink interface {
	Attach(session camera.Session)
}

// Options はControllerの設定
type Options struct {
	InitialFacing camera.FacingMode
	IdealWidth    int
	IdealHeight   int
	Encoder       *imaging.Encoder
	FlashDuration time.Duration
	Preview       PreviewSink
	Metrics       *metrics.Metrics
}

// Controller はカメラ画面の状態と操作を保持する
type Controller struct {
	acquirer camera.Acquirer
	surface  ui.Surface
	gallery  *gallery.Gallery
	encoder  *imaging.Encoder
	preview  PreviewSink
	metrics  *metrics.Metrics

	idealWidth    int
	idealHeight   int
	flashDuration time.Duration

	mu       sync.Mutex
	facing   camera.FacingMode
	session  camera.Session
	token    uint64
	inflight *acquisition
	flashGen uint64
}

// acquisition は実行中の取得要求
type acquisition struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop は取得をキャンセルし、呼び出し元が戻るまで待つ
func (a *acquisition) stop() {
	if a == nil {
		return
	}
	a.cancel()
	<-a.done
}

// New は新しいControllerを作成する
func New(acquirer camera.Acquirer, surface ui.Surface, photos *gallery.Gallery, opts Options) (*Controller, error) {
	if acquirer == nil {
		return nil, errors.New("acquirer が指定されていません")
	}
	if surface == nil {
		return nil, errors.New("surface が指定されていません")
	}
	if photos == nil {
		photos = gallery.New()
	}

	encoder := opts.Encoder
	if encoder == nil {
		var err error
		encoder, err = imaging.NewEncoder(imaging.FormatWebP, 92)
		if err != nil {
			return nil, fmt.Errorf("エンコーダーの作成に失敗: %w", err)
		}
	}

	facing := opts.InitialFacing
	if facing == "" {
		facing = camera.FacingBack
	}

	c := &Controller{
		acquirer:      acquirer,
		surface:       surface,
		gallery:       photos,
		encoder:       encoder,
		preview:       opts.Preview,
		metrics:       opts.Metrics,
		idealWidth:    opts.IdealWidth,
		idealHeight:   opts.IdealHeight,
		flashDuration: opts.FlashDuration,
		facing:        facing,
	}
	if c.idealWidth <= 0 || c.idealHeight <= 0 {
		c.idealWidth, c.idealHeight = camera.DefaultIdealWidth, camera.DefaultIdealHeight
	}
	if c.flashDuration <= 0 {
		c.flashDuration = DefaultFlashDuration
	}

	surface.SetToggleLabel(toggleLabel(facing))
	return c, nil
}

// toggleLabel は切り替えボタンに表示する、もう一方の向きの名前を返す
func toggleLabel(active camera.FacingMode) string {
	return active.Toggle().Label()
}

// Facing は現在の向きを返す
func (c *Controller) Facing() camera.FacingMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facing
}

// Session は現在のセッションを返す。ない場合は nil
func (c *Controller) Session() camera.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Gallery は写真ギャラリーを返す
func (c *Controller) Gallery() *gallery.Gallery {
	return c.gallery
}

// StartCapture は現在のセッションを解放してから新しいセッションを取得する
// 取得の結果（失敗した場合はAccessError、追い越された場合はErrSuperseded）を返すが、
// 失敗は既に表示状態へ反映済みで、呼び出し側が処理する必要はない
func (c *Controller) StartCapture(ctx context.Context) error {
	acquireCtx, cancel := context.WithCancel(ctx)
	current := &acquisition{cancel: cancel, done: make(chan struct{})}
	defer close(current.done)
	defer cancel()

	c.mu.Lock()
	c.token++
	token := c.token
	facing := c.facing
	pending := c.inflight
	c.inflight = current
	c.surface.SetLoading(true)
	c.surface.HideError()
	c.mu.Unlock()

	// 古い要求が取得したセッションを解放し終えるまで次の取得は始めない
	pending.stop()

	c.mu.Lock()
	previous := c.session
	c.session = nil
	c.mu.Unlock()

	if previous != nil {
		if err := previous.Release(ctx); err != nil {
			log.Warn().Err(err).Str("session", previous.ID()).Msg("セッションの解放に失敗")
		}
	}

	// 待っている間にさらに新しい要求が来ていれば取得しない
	c.mu.Lock()
	superseded := token != c.token
	c.mu.Unlock()
	if superseded {
		c.metrics.RecordAcquisition("superseded")
		log.Debug().Uint64("token", token).Msg("取得を始める前に追い越されました")
		return ErrSuperseded
	}

	constraints := camera.Constraints{
		Facing:      facing,
		IdealWidth:  c.idealWidth,
		IdealHeight: c.idealHeight,
		Audio:       false,
	}
	session, err := c.acquirer.Acquire(acquireCtx, constraints)

	c.mu.Lock()
	if c.inflight == current {
		c.inflight = nil
	}
	if token != c.token {
		c.mu.Unlock()
		// 追い越された結果は状態に反映しない
		if session != nil {
			if releaseErr := session.Release(context.Background()); releaseErr != nil {
				log.Warn().Err(releaseErr).Str("session", session.ID()).Msg("古いセッションの解放に失敗")
			}
		}
		c.metrics.RecordAcquisition("superseded")
		log.Debug().Uint64("token", token).Msg("古い取得要求の結果を破棄しました")
		return ErrSuperseded
	}

	if err != nil {
		// ShowError はローディング表示も消す
		c.surface.ShowError(camera.UserMessage(err))
		c.mu.Unlock()

		c.metrics.RecordAcquisition(string(camera.KindOf(err)))
		log.Error().Err(err).Str("facing", string(facing)).Msg("カメラへのアクセスに失敗")
		return err
	}

	c.session = session
	if c.preview != nil {
		c.preview.Attach(session)
	}
	c.surface.SetLoading(false)
	c.surface.ShowGalleryButton()
	c.mu.Unlock()

	c.metrics.RecordAcquisition("success")
	log.Info().Str("session", session.ID()).Str("facing", string(facing)).Msg("カメラを開始しました")
	return nil
}

// Retry は StartCapture と同じ
func (c *Controller) Retry(ctx context.Context) error {
	return c.StartCapture(ctx)
}

// ToggleFacing は向きを切り替え、ラベルを即座に更新してからカメラを再起動する
func (c *Controller) ToggleFacing(ctx context.Context) error {
	c.mu.Lock()
	c.facing = c.facing.Toggle()
	c.surface.SetToggleLabel(toggleLabel(c.facing))
	c.mu.Unlock()

	return c.StartCapture(ctx)
}

// CapturePhoto は現在のフレームを静止画として撮影し、ギャラリーの先頭に追加する
func (c *Controller) CapturePhoto(ctx context.Context) (gallery.Photo, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return gallery.Photo{}, ErrNoActiveSession
	}
	if width, height := session.FrameSize(); width <= 0 || height <= 0 {
		return gallery.Photo{}, ErrNoActiveSession
	}

	frame, err := session.Frame(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrNoFrame) {
			return gallery.Photo{}, ErrNoActiveSession
		}
		return gallery.Photo{}, fmt.Errorf("フレームの取得に失敗: %w", err)
	}
	if frame.Bounds().Empty() {
		return gallery.Photo{}, ErrNoActiveSession
	}

	start := time.Now()
	mirrored := session.Facing().IsFront()
	still := imaging.Render(frame, mirrored)

	data, mimeType, err := c.encoder.Encode(still)
	if err != nil {
		return gallery.Photo{}, fmt.Errorf("静止画のエンコードに失敗: %w", err)
	}

	photo := gallery.Photo{
		ID:         uuid.New().String(),
		Data:       data,
		MIMEType:   mimeType,
		Width:      still.Bounds().Dx(),
		Height:     still.Bounds().Dy(),
		Facing:     session.Facing(),
		Mirrored:   mirrored,
		CapturedAt: time.Now(),
	}

	c.gallery.Prepend(photo)
	c.surface.ShowPhoto(photo)
	c.surface.RenderGallery(c.gallery.List())
	c.flash()

	c.metrics.RecordCapture(time.Since(start), c.gallery.Len())
	log.Info().
		Str("photo", photo.ID).
		Int("width", photo.Width).
		Int("height", photo.Height).
		Bool("mirrored", mirrored).
		Int("size", photo.Size()).
		Msg("写真を撮影しました")

	return photo, nil
}

// flash は撮影ボタンのアニメーションを一定時間だけ有効にする
func (c *Controller) flash() {
	c.mu.Lock()
	c.flashGen++
	gen := c.flashGen
	c.surface.SetCaptureFlash(true)
	c.mu.Unlock()

	time.AfterFunc(c.flashDuration, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// 後続の撮影で延長された場合はそちらに任せる
		if c.flashGen == gen {
			c.surface.SetCaptureFlash(false)
		}
	})
}

// OpenGallery はギャラリーを描画し直してから表示する
func (c *Controller) OpenGallery() {
	c.surface.RenderGallery(c.gallery.List())
	c.surface.SetGalleryVisible(true)
}

// CloseGallery はギャラリーを隠す
func (c *Controller) CloseGallery() {
	c.surface.SetGalleryVisible(false)
}

// Close は取得中の要求を無効化し、現在のセッションを解放する
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	c.token++
	pending := c.inflight
	c.inflight = nil
	c.mu.Unlock()

	pending.stop()

	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := session.Release(ctx); err != nil {
		return fmt.Errorf("セッション %s の解放に失敗: %w", session.ID(), err)
	}
	return nil
}
