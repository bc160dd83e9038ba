// Package ui はカメラ画面の表示状態を管理する
//
// コントローラーは Surface を通して表示を操作する。
// Model はその状態をメモリ上に保持し、変更を購読者へ通知する。
package ui

import (
	"snapcam/internal/gallery"
)

// Surface はコントローラーが操作する表示領域
type Surface interface {
	// SetLoading はローディング表示を切り替える
	SetLoading(visible bool)

	// ShowError はローディング表示を消し、エラーパネルにメッセージを表示する
	ShowError(message string)

	// HideError はエラーパネルを隠す
	HideError()

	// ShowGalleryButton はギャラリーボタンを表示する
	ShowGalleryButton()

	// SetToggleLabel はカメラ切り替えボタンのラベルを設定する
	SetToggleLabel(label string)

	// ShowPhoto は撮影した写真を表示する
	ShowPhoto(photo gallery.Photo)

	// RenderGallery はギャラリーの内容を描画し直す
	RenderGallery(photos []gallery.Photo)

	// SetGalleryVisible はギャラリーオーバーレイの表示を切り替える
	SetGalleryVisible(visible bool)

	// SetCaptureFlash は撮影ボタンの撮影アニメーションを切り替える
	SetCaptureFlash(active bool)
}
