package camera

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
	"go.uber.org/zap"

	"ar-tryon/pkg/media"
	"ar-tryon/pkg/utils"
)

const (
	DefaultDevice = "/dev/video0"
	DefaultWidth  = 1280
	DefaultHeight = 720
	DefaultFPS    = 15

	// time for the capture goroutine to reach its ctx.Done branch before Close
	stopGrace = 100 * time.Millisecond
)

var (
	StartedErr = errors.New("already started")

	logger *zap.SugaredLogger
)

func init() {
	logger = utils.GetLogger()
}

// Camera is a V4L2 live source. Every Open starts the device and returns a
// Stream; the device is closed when that Stream is released. Only one
// Stream is live at a time.
type Camera struct {
	devName       string
	width, height int

	lock   sync.Mutex
	active *Stream
}

func New(devName string, width, height int) *Camera {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	return &Camera{devName: devName, width: width, height: height}
}

func (c *Camera) Open(ctx context.Context) (media.Stream, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.active != nil {
		if !c.active.Released() {
			return nil, fmt.Errorf("%s %w: %w", c.devName, StartedErr, media.ErrUnavailable)
		}
		// a release running on another goroutine still owns the device
		select {
		case <-c.active.Stopped():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Infof("start camera %s in %d*%d", c.devName, c.width, c.height)
	dev, err := device.Open(
		c.devName,
		device.WithBufferSize(1),
		device.WithFPS(DefaultFPS),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtMJPEG,
			Width:       uint32(c.width),
			Height:      uint32(c.height),
		}),
	)
	if err != nil {
		return nil, classify(c.devName, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if err = dev.Start(runCtx); err != nil {
		cancel()
		_ = dev.Close()
		return nil, classify(c.devName, err)
	}
	// the requester may have left while the device was starting
	if err = ctx.Err(); err != nil {
		cancel()
		_ = dev.Close()
		return nil, err
	}

	devName := c.devName
	s := newStream(dev.GetOutput(), func() error {
		cancel()
		time.Sleep(stopGrace)
		logger.Infof("stop camera %s", devName)
		return dev.Close()
	})
	c.active = s

	return s, nil
}

func classify(devName string, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("open %s: %w: %w", devName, media.ErrDenied, err)
	default:
		return fmt.Errorf("open %s: %w: %w", devName, media.ErrUnavailable, err)
	}
}
