package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

var supportedMIME = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
}

// DecodeImage sniffs and validates an uploaded photo.
func DecodeImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrUnsupportedImage)
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), supportedMIME...) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}

	return &Image{
		ID:        uuid.NewString(),
		Data:      data,
		MIME:      mt.String(),
		Width:     cfg.Width,
		Height:    cfg.Height,
		CreatedAt: time.Now(),
	}, nil
}
