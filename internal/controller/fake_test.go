package controller

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"snapcam/internal/camera"
)

// fakeSession はテスト用のSession実装
type fakeSession struct {
	id       string
	facing   camera.FacingMode
	frame    image.Image
	frames   chan []byte
	acquirer *fakeAcquirer

	mu       sync.Mutex
	released bool
}

func (s *fakeSession) ID() string                { return s.id }
func (s *fakeSession) Facing() camera.FacingMode { return s.facing }
func (s *fakeSession) Frames() <-chan []byte     { return s.frames }

func (s *fakeSession) FrameSize() (int, int) {
	if s.frame == nil {
		return 0, 0
	}
	b := s.frame.Bounds()
	return b.Dx(), b.Dy()
}

func (s *fakeSession) Frame(_ context.Context) (image.Image, error) {
	if s.frame == nil {
		return nil, camera.ErrNoFrame
	}
	return s.frame, nil
}

func (s *fakeSession) Release(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	close(s.frames)
	s.acquirer.sessionReleased()
	return nil
}

func (s *fakeSession) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// fakeResponse は1回のAcquireに対する応答
type fakeResponse struct {
	err   error
	frame image.Image
	gate  chan struct{} // クローズされるまで応答を保留する
}

// fakeAcquirer は応答を順番に返すAcquirer
// Acquire 呼び出し時点で生きているセッション数と、同時に実行中の取得数を記録する
type fakeAcquirer struct {
	mu          sync.Mutex
	responses   []fakeResponse
	requests    []camera.Constraints
	sessions    []*fakeSession
	live        int
	maxLiveSeen int
	inflight    int
	maxInflight int
	cancelled   int
	started     chan struct{}

	// exclusive はデバイスが1台しかない環境を再現する
	// 他の取得が実行中か、セッションが生きている間は device_busy で失敗する
	exclusive bool
}

func newFakeAcquirer(responses ...fakeResponse) *fakeAcquirer {
	return &fakeAcquirer{
		responses: responses,
		started:   make(chan struct{}, 16),
	}
}

func (a *fakeAcquirer) Acquire(ctx context.Context, constraints camera.Constraints) (camera.Session, error) {
	a.mu.Lock()
	a.requests = append(a.requests, constraints)
	if a.live > a.maxLiveSeen {
		a.maxLiveSeen = a.live
	}
	a.inflight++
	if a.inflight > a.maxInflight {
		a.maxInflight = a.inflight
	}
	busy := a.exclusive && (a.live > 0 || a.inflight > 1)
	resp := fakeResponse{frame: solidHalves(64, 32)}
	if len(a.responses) > 0 {
		resp = a.responses[0]
		a.responses = a.responses[1:]
	}
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inflight--
		a.mu.Unlock()
	}()

	if busy {
		return nil, camera.NewAccessError(camera.KindDeviceBusy, nil)
	}

	select {
	case a.started <- struct{}{}:
	default:
	}

	if resp.gate != nil {
		select {
		case <-resp.gate:
		case <-ctx.Done():
			a.mu.Lock()
			a.cancelled++
			a.mu.Unlock()
			return nil, camera.NewAccessError(camera.KindOther, ctx.Err())
		}
	}
	if resp.err != nil {
		return nil, resp.err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	session := &fakeSession{
		id:       fmt.Sprintf("session-%d", len(a.sessions)+1),
		facing:   constraints.Facing,
		frame:    resp.frame,
		frames:   make(chan []byte),
		acquirer: a,
	}
	a.sessions = append(a.sessions, session)
	a.live++
	return session, nil
}

func (a *fakeAcquirer) sessionReleased() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.live--
}

func (a *fakeAcquirer) Requests() []camera.Constraints {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]camera.Constraints(nil), a.requests...)
}

func (a *fakeAcquirer) Sessions() []*fakeSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*fakeSession(nil), a.sessions...)
}

func (a *fakeAcquirer) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

func (a *fakeAcquirer) MaxLiveSeen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxLiveSeen
}

func (a *fakeAcquirer) MaxInflight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxInflight
}

func (a *fakeAcquirer) Cancelled() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled
}

// solidHalves は左半分が赤、右半分が青の画像を作る
func solidHalves(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{B: 0xFF, A: 0xFF}
			if x < width/2 {
				c = color.RGBA{R: 0xFF, A: 0xFF}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// recordingPreview はAttachされたセッションを記録する
type recordingPreview struct {
	mu       sync.Mutex
	attached []string
}

func (p *recordingPreview) Attach(session camera.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attached = append(p.attached, session.ID())
}

func (p *recordingPreview) Attached() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.attached...)
}
