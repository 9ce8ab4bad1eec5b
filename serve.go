package main

import (
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ar-tryon/pkg/camera"
	"ar-tryon/pkg/catalog"
	"ar-tryon/pkg/media"
	"ar-tryon/pkg/server"
	"ar-tryon/pkg/session"
	"ar-tryon/pkg/utils"
)

type serveOptions struct {
	port        int
	device      string
	width       int
	height      int
	catalogFile string
	statics     string
	maxPhoto    string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the try-on web service",
		Long: `Starts the HTTP service that exposes the catalog, the try-on session and
the media pickers. Every flag can also be set with a TRYON_* environment
variable or in a .env file.`,
		Example: `  # Built-in catalog, camera on /dev/video0
  ar-tryon serve

  # Photo-only kiosk with a custom catalog
  ar-tryon serve --device "" --catalog ./catalog.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.port, "port", "p", envInt("TRYON_PORT", 9999), "port to listen on")
	f.StringVar(&opts.device, "device", envString("TRYON_DEVICE", camera.DefaultDevice), "V4L2 device for the live camera, empty disables it")
	f.IntVar(&opts.width, "width", envInt("TRYON_WIDTH", camera.DefaultWidth), "live camera width")
	f.IntVar(&opts.height, "height", envInt("TRYON_HEIGHT", camera.DefaultHeight), "live camera height")
	f.StringVar(&opts.catalogFile, "catalog", envString("TRYON_CATALOG", ""), "catalog file (.json or .yaml), built-in catalog when empty")
	f.StringVar(&opts.statics, "statics", envString("TRYON_STATICS", ""), "UI build directory served at /")
	f.StringVar(&opts.maxPhoto, "max-photo", envString("TRYON_MAX_PHOTO", "10MiB"), "largest accepted photo upload")

	return cmd
}

func serve(cmd *cobra.Command, opts serveOptions) error {
	logger := utils.GetLogger()

	cat := catalog.Default()
	if opts.catalogFile != "" {
		var err error
		if cat, err = catalog.Load(opts.catalogFile); err != nil {
			return err
		}
	}
	logger.Infof("catalog has %d items", cat.Len())

	maxPhoto, err := humanize.ParseBytes(opts.maxPhoto)
	if err != nil {
		return err
	}

	var live media.LiveSource
	if opts.device != "" {
		live = camera.New(opts.device, opts.width, opts.height)
	} else {
		logger.Info("live camera disabled")
	}
	adapter := media.NewAdapter(live, int64(maxPhoto))

	ctrl := session.NewController(adapter)
	defer ctrl.Close()

	srv := server.New(cat, ctrl, adapter)
	if opts.statics != "" {
		if err = srv.RegisterStatics(opts.statics); err != nil {
			return err
		}
	}

	return utils.ListenAndServe(cmd.Context(), srv.Handler(), opts.port)
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
