package session

import (
	"context"
	"fmt"

	"ar-tryon/pkg/media"
)

// Acquirer is the boundary to the host input sources. Gallery and direct
// capture resolve to (nil, nil) when the user made no selection.
type Acquirer interface {
	AcquireLiveStream(ctx context.Context) (media.Stream, error)
	AcquireFromGallery(ctx context.Context) (*media.Image, error)
	AcquireFromDirectCapture(ctx context.Context) (*media.Image, error)
}

// Method is an acquisition request. Every variant resolves to a Resource,
// so the controller handles them uniformly.
type Method int

const (
	MethodNone Method = iota
	MethodLiveCamera
	MethodGallery
	MethodDirectCapture
)

func (m Method) String() string {
	switch m {
	case MethodLiveCamera:
		return "live"
	case MethodGallery:
		return "gallery"
	case MethodDirectCapture:
		return "capture"
	default:
		return ""
	}
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func ParseMethod(s string) (Method, error) {
	for _, m := range []Method{MethodLiveCamera, MethodGallery, MethodDirectCapture} {
		if m.String() == s {
			return m, nil
		}
	}
	return MethodNone, fmt.Errorf("unknown method %q", s)
}

// Kind is the resource kind the method produces.
func (m Method) Kind() media.Kind {
	switch m {
	case MethodLiveCamera:
		return media.KindStream
	case MethodGallery, MethodDirectCapture:
		return media.KindImage
	default:
		return media.KindNone
	}
}

// acquire runs the request. A nil Resource with a nil error means no selection.
func (m Method) acquire(ctx context.Context, a Acquirer) (media.Resource, error) {
	var (
		res media.Resource
		err error
	)
	switch m {
	case MethodLiveCamera:
		var s media.Stream
		if s, err = a.AcquireLiveStream(ctx); s != nil {
			res = s
		}
	case MethodGallery:
		var img *media.Image
		if img, err = a.AcquireFromGallery(ctx); img != nil {
			res = img
		}
	case MethodDirectCapture:
		var img *media.Image
		if img, err = a.AcquireFromDirectCapture(ctx); img != nil {
			res = img
		}
	default:
		return nil, fmt.Errorf("%w: no acquisition method", ErrStateViolation)
	}
	if err != nil && res != nil {
		res.Release()
		res = nil
	}

	return res, err
}
