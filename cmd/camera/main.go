package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"ar-tryon/pkg/camera"
	"ar-tryon/pkg/utils"
)

var (
	devName = flag.String("device", camera.DefaultDevice, "V4L2 device")
	width   = flag.Int("width", camera.DefaultWidth, "")
	height  = flag.Int("height", camera.DefaultHeight, "")
	count   = flag.Int("n", 2, "frames to save")
	reopen  = flag.Bool("reopen", true, "release and reopen the device between frames")
)

// Probes a camera the same way a try-on session does: open, read a frame,
// release. Frames are written as frame-<i>.jpg.
func main() {
	flag.Parse()
	logger := utils.GetLogger()
	defer logger.Sync()

	cam := camera.New(*devName, *width, *height)
	for i := 0; i < *count; i++ {
		start := time.Now()
		if err := grab(cam, fmt.Sprintf("frame-%d.jpg", i)); err != nil {
			logger.Fatal(err)
		}
		logger.Infof("frame %d in %s", i, time.Since(start))
		if !*reopen {
			break
		}
	}
}

func grab(cam *camera.Camera, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := cam.Open(ctx)
	if err != nil {
		return err
	}
	defer stream.Release()

	frames, unsubscribe := stream.Subscribe()
	defer unsubscribe()

	select {
	case f, ok := <-frames:
		if !ok {
			return fmt.Errorf("%s: stream ended before the first frame", *devName)
		}
		return os.WriteFile(path, f, 0644)
	case <-ctx.Done():
		return ctx.Err()
	}
}
