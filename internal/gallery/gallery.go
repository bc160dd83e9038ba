// Package gallery は撮影した写真をメモリ上に保持する
//
// 写真は新しいものが先頭（インデックス0が最新）に並ぶ。
// 上限はなく、プロセスの寿命を超えて永続化はしない。
package gallery

import (
	"encoding/base64"
	"sync"
	"time"

	"snapcam/internal/camera"
)

// Photo は撮影された1枚の静止画
type Photo struct {
	ID         string            `json:"id"`
	Data       []byte            `json:"-"`
	MIMEType   string            `json:"mime_type"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Facing     camera.FacingMode `json:"facing"`
	Mirrored   bool              `json:"mirrored"`
	CapturedAt time.Time         `json:"captured_at"`
}

// DataURL は画像をdata URLとして返す
func (p Photo) DataURL() string {
	return "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// Size はエンコード済みデータのバイト数を返す
func (p Photo) Size() int {
	return len(p.Data)
}

// Gallery は撮影順（新しい順）の写真一覧
type Gallery struct {
	mu     sync.RWMutex
	photos []Photo
}

// New は空のGalleryを作成する
func New() *Gallery {
	return &Gallery{}
}

// Prepend は写真を先頭に追加する
func (g *Gallery) Prepend(photo Photo) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.photos = append(g.photos, Photo{})
	copy(g.photos[1:], g.photos)
	g.photos[0] = photo
}

// List は現在の一覧のコピーを返す
func (g *Gallery) List() []Photo {
	g.mu.RLock()
	defer g.mu.RUnlock()

	photos := make([]Photo, len(g.photos))
	copy(photos, g.photos)
	return photos
}

// Len は写真の枚数を返す
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.photos)
}

// Latest は最新の写真を返す
func (g *Gallery) Latest() (Photo, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.photos) == 0 {
		return Photo{}, false
	}
	return g.photos[0], true
}

// Get はIDで写真を取得する
func (g *Gallery) Get(id string) (Photo, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, photo := range g.photos {
		if photo.ID == id {
			return photo, true
		}
	}
	return Photo{}, false
}
