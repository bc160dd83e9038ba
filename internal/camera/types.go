package camera

import (
	"context"
	"image"
)

// FacingMode はカメラの向き（前面/背面）を表す
type FacingMode string

const (
	FacingFront FacingMode = "user"        // 前面カメラ（自撮り側）
	FacingBack  FacingMode = "environment" // 背面カメラ
)

// Toggle は反対側の向きを返す
func (f FacingMode) Toggle() FacingMode {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// IsFront は前面カメラかどうかを返す
func (f FacingMode) IsFront() bool {
	return f == FacingFront
}

// Label は表示用の名前を返す
func (f FacingMode) Label() string {
	if f == FacingFront {
		return "Front Camera"
	}
	return "Back Camera"
}

// ParseFacingMode は設定値からFacingModeを解釈する
// "front"/"user" と "back"/"environment" を受け付ける
func ParseFacingMode(s string) (FacingMode, bool) {
	switch s {
	case "front", "user":
		return FacingFront, true
	case "back", "environment":
		return FacingBack, true
	default:
		return "", false
	}
}

// 解像度のデフォルトのヒント値
const (
	DefaultIdealWidth  = 1920
	DefaultIdealHeight = 1080
)

// Constraints はセッション要求時の制約
// IdealWidth/IdealHeight はベストエフォートで、保証されない
type Constraints struct {
	Facing      FacingMode
	IdealWidth  int
	IdealHeight int
	Audio       bool
}

// DefaultConstraints は指定された向きで標準の制約を返す
func DefaultConstraints(facing FacingMode) Constraints {
	return Constraints{
		Facing:      facing,
		IdealWidth:  DefaultIdealWidth,
		IdealHeight: DefaultIdealHeight,
		Audio:       false,
	}
}

// Session はアクティブなカメラストリームのハンドル
type Session interface {
	// ID はセッションの一意識別子を返す
	ID() string

	// Facing はセッション取得時の向きを返す
	Facing() FacingMode

	// FrameSize は現在のフレームのネイティブサイズを返す
	// まだフレームが届いていない場合は 0, 0
	FrameSize() (width, height int)

	// Frame は現在のフレームを画像として返す
	Frame(ctx context.Context) (image.Image, error)

	// Frames はプレビュー用のJPEGフレームを配信する
	// Release 後にクローズされる
	Frames() <-chan []byte

	// Release は全てのトラックを停止する。複数回呼んでも安全
	Release(ctx context.Context) error
}

// Acquirer はカメラセッションを取得するメディア取得サービス
type Acquirer interface {
	// Acquire は制約に従って新しいセッションを取得する
	// 失敗時は *AccessError を返す
	Acquire(ctx context.Context, constraints Constraints) (Session, error)
}
