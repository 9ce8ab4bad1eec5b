package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"ar-tryon/pkg/media"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func pngPhoto(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestGalleryReopensRightAfterCancel(t *testing.T) {
	adapter := media.NewAdapter(nil, 0)
	c := NewController(adapter)
	defer c.Close()
	items := testItems()

	for i := 0; i < 20; i++ {
		if err := c.StartTryOn(&items[0]); err != nil {
			t.Fatal(err)
		}
		first, err := c.ChooseAsync(context.Background(), MethodGallery)
		if err != nil {
			t.Fatal(err)
		}
		waitFor(t, "gallery picker", adapter.Gallery.Pending)

		c.Cancel()
		if err = c.StartTryOn(&items[1]); err != nil {
			t.Fatal(err)
		}
		second, err := c.ChooseAsync(context.Background(), MethodGallery)
		if err != nil {
			t.Fatal(err)
		}
		waitFor(t, "reopened gallery picker", adapter.Gallery.Pending)
		if err = adapter.Gallery.Deliver(pngPhoto(t)); err != nil {
			t.Fatal(err)
		}

		if err = <-second; err != nil {
			t.Fatalf("run %d: reopened gallery failed: %v", i, err)
		}
		if err = <-first; !errors.Is(err, ErrSuperseded) {
			t.Fatalf("run %d: cancelled gallery: expected ErrSuperseded, got %v", i, err)
		}
		s := mustInvariants(t, c)
		if s.Mode != PhotoReview || s.Notice != "" || s.Item.ID != items[1].ID {
			t.Fatalf("run %d: unexpected snapshot %+v", i, s)
		}
		c.Cancel()
	}
}

func TestCallerDeadlineIsNoSelection(t *testing.T) {
	c, _, items := newTestController()
	_ = c.StartTryOn(&items[0])
	c.acquirer = &ctxAcquirer{}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if err := c.ChooseGallery(ctx); err != nil {
		t.Fatalf("an expired picker is a no selection, got %v", err)
	}
	if s := mustInvariants(t, c); s.Mode != ChoosingMethod || s.Notice != "" || s.Pending != MethodNone {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}

// slowStream blocks in Release until gate is closed, like a device close.
type slowStream struct {
	fakeStream
	entered chan struct{}
	gate    chan struct{}
}

func (s *slowStream) Release() {
	close(s.entered)
	<-s.gate
	s.fakeStream.Release()
}

type slowLiveAcquirer struct {
	fakeAcquirer
	stream *slowStream
}

func (a *slowLiveAcquirer) AcquireLiveStream(ctx context.Context) (media.Stream, error) {
	return a.stream, nil
}

func TestSnapshotNotBlockedByRelease(t *testing.T) {
	stream := &slowStream{entered: make(chan struct{}), gate: make(chan struct{})}
	c := NewController(&slowLiveAcquirer{stream: stream})
	items := testItems()
	_ = c.StartTryOn(&items[0])
	if err := c.ChooseLiveCamera(context.Background()); err != nil {
		t.Fatal(err)
	}

	cancelled := make(chan struct{})
	go func() {
		c.Cancel()
		close(cancelled)
	}()
	<-stream.entered

	snap := make(chan Snapshot, 1)
	go func() { snap <- c.Snapshot() }()
	select {
	case s := <-snap:
		if s.Mode != Idle || s.Resource != nil {
			t.Fatalf("unexpected snapshot %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("snapshot blocked while the stream was stopping")
	}
	select {
	case <-cancelled:
		t.Fatal("cancel returned before the stream was released")
	default:
	}

	close(stream.gate)
	<-cancelled
	if n := stream.releases.Load(); n != 1 {
		t.Fatalf("stream released %d times", n)
	}
}
