package ui

import (
	"fmt"
	"sync"

	"snapcam/internal/gallery"
)

// Mode は排他的な表示モード
type Mode string

const (
	ModeUninitialized Mode = "uninitialized" // 起動直後
	ModeLoading       Mode = "loading"       // カメラ取得中
	ModeError         Mode = "error"         // 取得に失敗
	ModeReady         Mode = "ready"         // プレビュー表示中
)

// GalleryItem はギャラリーに描画された1項目
type GalleryItem struct {
	PhotoID string `json:"photo_id"`
	Alt     string `json:"alt"`
	URL     string `json:"url"`
}

// State は表示状態のスナップショット
type State struct {
	Mode                 Mode          `json:"mode"`
	Loading              bool          `json:"loading"`
	ErrorVisible         bool          `json:"error_visible"`
	ErrorMessage         string        `json:"error_message,omitempty"`
	GalleryButtonVisible bool          `json:"gallery_button_visible"`
	GalleryVisible       bool          `json:"gallery_visible"`
	GalleryItems         []GalleryItem `json:"gallery_items"`
	ToggleLabel          string        `json:"toggle_label"`
	CurrentPhotoID       string        `json:"current_photo_id,omitempty"`
	CaptureFlash         bool          `json:"capture_flash"`
	Version              uint64        `json:"version"`
}

// Model はSurfaceのメモリ上の実装
type Model struct {
	mu        sync.RWMutex
	state     State
	photoURL  func(id string) string
	listeners []func(State)
}

// NewModel は新しいModelを作成する
// photoURL はギャラリー項目の画像URLを組み立てる
func NewModel(toggleLabel string, photoURL func(id string) string) *Model {
	if photoURL == nil {
		photoURL = func(id string) string { return "/api/photos/" + id }
	}
	return &Model{
		state: State{
			Mode:         ModeUninitialized,
			GalleryItems: []GalleryItem{},
			ToggleLabel:  toggleLabel,
		},
		photoURL: photoURL,
	}
}

// OnChange は状態変更時に呼ばれる関数を登録する
func (m *Model) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// State は現在の状態のコピーを返す
func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

func (s State) clone() State {
	items := make([]GalleryItem, len(s.GalleryItems))
	copy(items, s.GalleryItems)
	s.GalleryItems = items
	return s
}

// update は状態を変更し、モードを再計算してから購読者に通知する
func (m *Model) update(fn func(s *State)) {
	m.mu.Lock()
	fn(&m.state)
	m.state.Mode = deriveMode(m.state)
	m.state.Version++
	snapshot := m.state.clone()
	listeners := append([]func(State){}, m.listeners...)
	m.mu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
}

// deriveMode は表示フラグからモードを導出する
func deriveMode(s State) Mode {
	switch {
	case s.Loading:
		return ModeLoading
	case s.ErrorVisible:
		return ModeError
	case s.GalleryButtonVisible:
		return ModeReady
	case s.Mode == ModeUninitialized:
		return ModeUninitialized
	default:
		return ModeReady
	}
}

// SetLoading はローディング表示を切り替える
func (m *Model) SetLoading(visible bool) {
	m.update(func(s *State) { s.Loading = visible })
}

// ShowError はローディングを消してエラーを表示する
func (m *Model) ShowError(message string) {
	m.update(func(s *State) {
		s.Loading = false
		s.ErrorVisible = true
		s.ErrorMessage = message
	})
}

// HideError はエラーパネルを隠す
func (m *Model) HideError() {
	m.update(func(s *State) {
		s.ErrorVisible = false
		s.ErrorMessage = ""
	})
}

// ShowGalleryButton はギャラリーボタンを表示する
func (m *Model) ShowGalleryButton() {
	m.update(func(s *State) { s.GalleryButtonVisible = true })
}

// SetToggleLabel は切り替えボタンのラベルを設定する
func (m *Model) SetToggleLabel(label string) {
	m.update(func(s *State) { s.ToggleLabel = label })
}

// ShowPhoto は撮影した写真を現在の写真として表示する
func (m *Model) ShowPhoto(photo gallery.Photo) {
	m.update(func(s *State) { s.CurrentPhotoID = photo.ID })
}

// RenderGallery はギャラリー項目を描画し直す
func (m *Model) RenderGallery(photos []gallery.Photo) {
	items := make([]GalleryItem, 0, len(photos))
	for i, photo := range photos {
		items = append(items, GalleryItem{
			PhotoID: photo.ID,
			Alt:     fmt.Sprintf("Photo %d", i+1),
			URL:     m.photoURL(photo.ID),
		})
	}
	m.update(func(s *State) { s.GalleryItems = items })
}

// SetGalleryVisible はギャラリーオーバーレイの表示を切り替える
func (m *Model) SetGalleryVisible(visible bool) {
	m.update(func(s *State) { s.GalleryVisible = visible })
}

// SetCaptureFlash は撮影アニメーションを切り替える
func (m *Model) SetCaptureFlash(active bool) {
	m.update(func(s *State) { s.CaptureFlash = active })
}
