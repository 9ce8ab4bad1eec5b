package session

import (
	"ar-tryon/pkg/catalog"
	"ar-tryon/pkg/media"
)

// Snapshot is what the rendering layer sees after every change.
type Snapshot struct {
	Mode     Mode
	Item     *catalog.Item
	Size     string
	Color    string
	Resource media.Resource
	// Pending is the acquisition in flight, if any.
	Pending Method
	// Notice is a transient, non-fatal message for the user.
	Notice string
	// Epoch changes whenever a session ends or a new one starts.
	Epoch uint64
}

func (s Snapshot) ResourceKind() media.Kind {
	if s.Resource == nil {
		return media.KindNone
	}
	return s.Resource.Kind()
}

// Stream returns the live stream handle in LiveCamera mode.
func (s Snapshot) Stream() (media.Stream, bool) {
	st, ok := s.Resource.(media.Stream)
	return st, ok
}

// Image returns the photo in PhotoReview mode.
func (s Snapshot) Image() (*media.Image, bool) {
	img, ok := s.Resource.(*media.Image)
	return img, ok
}
