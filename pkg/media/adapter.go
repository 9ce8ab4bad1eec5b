package media

import (
	"context"
	"fmt"
)

// LiveSource opens a live capture handle.
type LiveSource interface {
	Open(ctx context.Context) (Stream, error)
}

// Adapter joins the three host input sources behind one boundary.
type Adapter struct {
	Live    LiveSource
	Gallery *Picker
	Capture *Picker
}

func NewAdapter(live LiveSource, maxPhotoSize int64) *Adapter {
	return &Adapter{
		Live:    live,
		Gallery: NewPicker("gallery", maxPhotoSize),
		Capture: NewPicker("capture", maxPhotoSize),
	}
}

func (a *Adapter) AcquireLiveStream(ctx context.Context) (Stream, error) {
	if a.Live == nil {
		return nil, fmt.Errorf("live camera: %w", ErrUnavailable)
	}
	return a.Live.Open(ctx)
}

func (a *Adapter) AcquireFromGallery(ctx context.Context) (*Image, error) {
	return a.Gallery.Acquire(ctx)
}

func (a *Adapter) AcquireFromDirectCapture(ctx context.Context) (*Image, error) {
	return a.Capture.Acquire(ctx)
}

// Picker returns the picker behind a source name ("gallery" or "capture").
func (a *Adapter) Picker(source string) (*Picker, bool) {
	switch source {
	case a.Gallery.Name():
		return a.Gallery, true
	case a.Capture.Name():
		return a.Capture, true
	}
	return nil, false
}
