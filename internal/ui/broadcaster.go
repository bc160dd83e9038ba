package ui

import (
	"encoding/json"
	"sync"
)

// Broadcaster は状態の変更を複数のSSEクライアントへ配信する
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

// NewBroadcaster は新しいBroadcasterを作成する
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Attach はModelの変更をこのBroadcasterへ流す
func (b *Broadcaster) Attach(model *Model) {
	model.OnChange(b.Publish)
}

// Subscribe は配信を受け取るチャンネルと解除関数を返す
// 切断時には必ず解除関数を呼ぶこと
func (b *Broadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Clients は購読中のクライアント数を返す
func (b *Broadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish は状態をJSONにして全クライアントへ送る
// 遅いクライアントは取りこぼすことがある
func (b *Broadcaster) Publish(state State) {
	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// バッファが一杯なのでスキップ
		}
	}
}
