package session

import (
	"context"
	"sync"
	"sync/atomic"

	"ar-tryon/pkg/catalog"
	"ar-tryon/pkg/media"
)

type fakeStream struct {
	releases atomic.Int32
}

func (s *fakeStream) Kind() media.Kind { return media.KindStream }

func (s *fakeStream) Release() { s.releases.Add(1) }

func (s *fakeStream) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte)
	close(ch)
	return ch, func() {}
}

func releasesOf(r media.Resource) int {
	switch v := r.(type) {
	case *fakeStream:
		return int(v.releases.Load())
	case *media.Image:
		return v.Releases()
	}
	panic("unknown resource")
}

type outcome int

const (
	succeed outcome = iota
	abort
	deny
)

// fakeAcquirer resolves every request with the next scripted outcome.
// When gate is set, a request waits for it regardless of ctx.
type fakeAcquirer struct {
	mu       sync.Mutex
	script   []outcome
	gate     chan struct{}
	acquired []media.Resource
	calls    []Method
}

func (a *fakeAcquirer) push(o ...outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.script = append(a.script, o...)
}

func (a *fakeAcquirer) hold() chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate = make(chan struct{})
	return a.gate
}

func (a *fakeAcquirer) next(m Method) (outcome, chan struct{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, m)
	o := succeed
	if len(a.script) > 0 {
		o = a.script[0]
		a.script = a.script[1:]
	}
	gate := a.gate
	a.gate = nil
	return o, gate
}

func (a *fakeAcquirer) record(r media.Resource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acquired = append(a.acquired, r)
}

func (a *fakeAcquirer) resources() []media.Resource {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]media.Resource(nil), a.acquired...)
}

func (a *fakeAcquirer) AcquireLiveStream(ctx context.Context) (media.Stream, error) {
	o, gate := a.next(MethodLiveCamera)
	if gate != nil {
		<-gate
	}
	switch o {
	case deny:
		return nil, media.ErrDenied
	case abort:
		return nil, media.ErrUnavailable
	}
	s := &fakeStream{}
	a.record(s)
	return s, nil
}

func (a *fakeAcquirer) pick(m Method) (*media.Image, error) {
	o, gate := a.next(m)
	if gate != nil {
		<-gate
	}
	switch o {
	case deny:
		return nil, media.ErrDenied
	case abort:
		return nil, nil
	}
	img := &media.Image{ID: m.String()}
	a.record(img)
	return img, nil
}

func (a *fakeAcquirer) AcquireFromGallery(ctx context.Context) (*media.Image, error) {
	return a.pick(MethodGallery)
}

func (a *fakeAcquirer) AcquireFromDirectCapture(ctx context.Context) (*media.Image, error) {
	return a.pick(MethodDirectCapture)
}

func testItems() []catalog.Item {
	return catalog.Default().Items()
}
