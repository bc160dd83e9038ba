package camera

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// V4L2Config はV4L2Acquirerの設定
type V4L2Config struct {
	FrontDevice string // 前面カメラのデバイスパス（空なら自動検出）
	BackDevice  string // 背面カメラのデバイスパス（空なら自動検出）
	FPS         int
}

// V4L2Acquirer はV4L2デバイスからセッションを取得する
type V4L2Acquirer struct {
	config    V4L2Config
	discovery Discovery
}

// NewV4L2Acquirer は新しいV4L2Acquirerを作成する
func NewV4L2Acquirer(config V4L2Config, discovery Discovery) *V4L2Acquirer {
	if config.FPS <= 0 {
		config.FPS = 15
	}
	return &V4L2Acquirer{
		config:    config,
		discovery: discovery,
	}
}

// resolveDevice は向きに対応するデバイスパスを決める
func (a *V4L2Acquirer) resolveDevice(ctx context.Context, facing FacingMode) (string, error) {
	device := a.config.BackDevice
	if facing.IsFront() {
		device = a.config.FrontDevice
	}
	if device != "" {
		return device, nil
	}

	if a.discovery == nil {
		return "", NewAccessError(KindNotFound, errors.New("デバイスが設定されていません"))
	}

	devices, err := a.discovery.ScanDevices(ctx)
	if err != nil {
		return "", NewAccessError(KindOther, err)
	}

	back, front := AssignDevices(devices)
	if facing.IsFront() {
		device = front
	} else {
		device = back
	}
	if device == "" {
		return "", NewAccessError(KindNotFound, errors.New("カメラデバイスが見つかりません"))
	}

	return device, nil
}

// Acquire はデバイスを開き、最初のフレームが届いた時点でセッションを返す
// タイムアウトは設けず、ctxのキャンセルかデバイス側の失敗まで待つ
func (a *V4L2Acquirer) Acquire(ctx context.Context, constraints Constraints) (Session, error) {
	device, err := a.resolveDevice(ctx, constraints.Facing)
	if err != nil {
		return nil, err
	}

	width, height := constraints.IdealWidth, constraints.IdealHeight
	if width <= 0 || height <= 0 {
		width, height = DefaultIdealWidth, DefaultIdealHeight
	}

	capturer := NewV4L2Capturer(device, width, height, a.config.FPS)
	if err := capturer.ProbeDevice(); err != nil {
		return nil, err
	}

	// セッションの寿命は要求のctxとは独立させる
	streamCtx, cancel := context.WithCancel(context.Background())
	in := make(chan []byte, 4)
	errCh := make(chan error, 1)
	go capturer.StartStream(streamCtx, in, errCh)

	session := newStreamSession(constraints.Facing, cancel)

	select {
	case frame, ok := <-in:
		if !ok {
			cancel()
			select {
			case err := <-errCh:
				return nil, err
			default:
				return nil, NewAccessError(KindOther, fmt.Errorf("デバイス %s からフレームが届きませんでした", device))
			}
		}
		session.publish(frame)
		go session.forward(in)
		go reportStreamEnd(session, device, errCh)

	case err := <-errCh:
		cancel()
		return nil, err

	case <-ctx.Done():
		cancel()
		return nil, NewAccessError(KindOther, ctx.Err())
	}

	width, height = session.FrameSize()
	log.Info().
		Str("device", device).
		Str("facing", string(constraints.Facing)).
		Int("width", width).
		Int("height", height).
		Msg("カメラセッションを開始しました")

	return session, nil
}

// reportStreamEnd はストリームの終了を待ち、ffmpegの異常終了を記録する
// 正常な停止(Release)ではエラーは送られない
func reportStreamEnd(session *streamSession, device string, errCh <-chan error) {
	<-session.done

	select {
	case err := <-errCh:
		log.Error().
			Err(err).
			Str("device", device).
			Str("session", session.ID()).
			Msg("カメラのストリームが停止しました")
	default:
	}
}
