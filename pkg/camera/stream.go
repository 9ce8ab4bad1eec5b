package camera

import (
	"sync"

	"ar-tryon/pkg/media"
)

// Stream fans device frames out to subscribers. Slow subscribers drop
// frames instead of blocking capture.
type Stream struct {
	lock     sync.Mutex
	subs     map[int]chan []byte
	nextID   int
	released bool
	ended    bool

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	stop    func() error
}

var _ media.Stream = (*Stream)(nil)

func newStream(frames <-chan []byte, stop func() error) *Stream {
	s := &Stream{
		subs:    make(map[int]chan []byte),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		stop:    stop,
	}
	go s.loop(frames)

	return s
}

func (s *Stream) Kind() media.Kind {
	return media.KindStream
}

// Released reports whether Release has been called.
func (s *Stream) Released() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.released
}

func (s *Stream) Subscribe() (<-chan []byte, func()) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ch := make(chan []byte, 1)
	if s.released || s.ended {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	return ch, func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Release stops the device. Only the first call has an effect.
func (s *Stream) Release() {
	s.once.Do(func() {
		s.lock.Lock()
		s.released = true
		s.lock.Unlock()
		close(s.done)
		if s.stop != nil {
			if err := s.stop(); err != nil {
				logger.Warnf("stop stream err: %s", err)
			}
		}
		s.closeSubs()
		close(s.stopped)
	})
}

// Stopped is closed once Release has finished stopping the device.
func (s *Stream) Stopped() <-chan struct{} {
	return s.stopped
}

func (s *Stream) loop(frames <-chan []byte) {
	for {
		select {
		case <-s.done:
			return
		case frame, ok := <-frames:
			if !ok {
				s.closeSubs()
				return
			}
			if len(frame) == 0 {
				continue
			}
			s.broadcast(frame)
		}
	}
}

func (s *Stream) broadcast(frame []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.subs) == 0 {
		return
	}
	// the device reuses its buffers
	cp := append([]byte(nil), frame...)
	for _, ch := range s.subs {
		select {
		case ch <- cp:
		default:
		}
	}
}

func (s *Stream) closeSubs() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.ended = true
}
