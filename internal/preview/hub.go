// Package preview はカメラセッションのライブプレビューを配信する
package preview

import (
	"sync"

	"snapcam/internal/camera"
)

// Hub は現在のセッションのフレームを複数の視聴者へ配信する
type Hub struct {
	mu        sync.RWMutex
	sessionID string
	viewers   map[chan []byte]struct{}
}

// NewHub は新しいHubを作成する
func NewHub() *Hub {
	return &Hub{
		viewers: make(map[chan []byte]struct{}),
	}
}

// Attach はセッションをプレビューに接続する
// セッションのフレームチャンネルがクローズされるまで配信を続ける
func (h *Hub) Attach(session camera.Session) {
	h.mu.Lock()
	h.sessionID = session.ID()
	h.mu.Unlock()

	go h.pump(session)
}

// SessionID は接続中のセッションIDを返す
func (h *Hub) SessionID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessionID
}

func (h *Hub) pump(session camera.Session) {
	for frame := range session.Frames() {
		h.mu.RLock()
		current := h.sessionID == session.ID()
		if current {
			for ch := range h.viewers {
				select {
				case ch <- frame:
				default:
					// 遅い視聴者はフレームを取りこぼす
				}
			}
		}
		h.mu.RUnlock()
	}

	h.mu.Lock()
	if h.sessionID == session.ID() {
		h.sessionID = ""
	}
	h.mu.Unlock()
}

// Subscribe はフレームを受け取るチャンネルと解除関数を返す
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 2)
	h.mu.Lock()
	h.viewers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.viewers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}
