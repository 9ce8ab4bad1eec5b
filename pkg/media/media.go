// Package media holds the visual resources a try-on session can display and
// the adapter that acquires them from the host: a live camera stream, a photo
// picked from the gallery, or a photo taken with the capture affordance.
package media

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	ErrDenied           = errors.New("media: access denied")
	ErrUnavailable      = errors.New("media: source unavailable")
	ErrUnsupportedImage = errors.New("media: unsupported image")
	ErrTooLarge         = errors.New("media: payload too large")
	ErrPickerBusy       = errors.New("media: picker already open")
	ErrNoPendingRequest = errors.New("media: no pending request")
)

type Kind int

const (
	KindNone Kind = iota
	KindStream
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindStream:
		return "stream"
	case KindImage:
		return "image"
	default:
		return "none"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Resource is anything a session can hold on screen.
type Resource interface {
	Kind() Kind
	// Release gives the resource back. Callers invoke it exactly once.
	Release()
}

// Stream is a live capture handle. Release stops the underlying hardware.
type Stream interface {
	Resource
	// Subscribe returns a channel of JPEG frames and a func that detaches
	// the subscriber. The channel is closed when the stream is released.
	Subscribe() (<-chan []byte, func())
}

// Image is a decoded still photo. It holds no hardware, so Release only
// marks it as dropped by its owner.
type Image struct {
	ID        string
	Data      []byte
	MIME      string
	Width     int
	Height    int
	CreatedAt time.Time

	releases atomic.Int32
}

func (i *Image) Kind() Kind {
	return KindImage
}

func (i *Image) Release() {
	i.releases.Add(1)
}

// Releases reports how many times Release was called.
func (i *Image) Releases() int {
	return int(i.releases.Load())
}
