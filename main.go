package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	cli "github.com/jawher/mow.cli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bilbercode/stillcam/internal/camera"
	"github.com/bilbercode/stillcam/internal/config"
	"github.com/bilbercode/stillcam/internal/console"
	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
	"github.com/bilbercode/stillcam/internal/photo"
	"github.com/bilbercode/stillcam/internal/preferences"
	"github.com/bilbercode/stillcam/internal/simulator"
	"github.com/bilbercode/stillcam/internal/streamconfig"
)

const (
	appName = "stillcam"
	appDesc = "still capture pipeline on simulated camera sensors"
)

var (
	viewSize    = geometry.Size{Width: 1080, Height: 1440}
	displaySize = geometry.Size{Width: 1080, Height: 2340}
)

func main() {

	app := cli.App(appName, appDesc)

	configLocation := app.String(cli.StringOpt{
		Name:   "config",
		Desc:   "YAML configuration location",
		EnvVar: "STILLCAM_CONFIG",
		Value:  "",
	})

	logLevel := app.String(cli.StringOpt{
		Name:   "log.level",
		Desc:   "log level, overrides the configuration",
		EnvVar: "LOG_LEVEL",
		Value:  "",
	})

	metricsAddress := app.String(cli.StringOpt{
		Name:   "metrics.address",
		Desc:   "address to serve prometheus metrics on",
		EnvVar: "METRICS_ADDRESS",
		Value:  "",
	})

	outputDir := app.String(cli.StringOpt{
		Name:   "output",
		Desc:   "directory photos are written to",
		EnvVar: "OUTPUT_DIR",
		Value:  "",
	})

	preferencesDir := app.String(cli.StringOpt{
		Name:   "preferences",
		Desc:   "directory resolution preferences are stored in",
		EnvVar: "PREFERENCES_DIR",
		Value:  "",
	})

	load := func() *config.Config {
		cfg, err := config.Load(*configLocation)
		if err != nil {
			log.WithError(err).Panic("failed to load configuration")
		}
		if *logLevel != "" {
			cfg.Log.Level = *logLevel
		}
		if *metricsAddress != "" {
			cfg.Metrics.Address = *metricsAddress
		}
		if *outputDir != "" {
			cfg.Storage.OutputDir = *outputDir
		}
		if *preferencesDir != "" {
			cfg.Storage.PreferencesDir = *preferencesDir
		}
		if err := cfg.Validate(); err != nil {
			log.WithError(err).Panic("invalid configuration")
		}
		cfg.ConfigureLogging()
		return cfg
	}

	app.Command("capture", "open a camera and take still pictures", func(cmd *cli.Cmd) {
		count := cmd.Int(cli.IntOpt{
			Name:  "count n",
			Desc:  "number of pictures to take",
			Value: 1,
		})
		facing := cmd.String(cli.StringOpt{
			Name:  "facing",
			Desc:  "back or front, overrides the configuration",
			Value: "",
		})
		resolution := cmd.Int(cli.IntOpt{
			Name:  "resolution r",
			Desc:  "photo resolution index, largest first; negative keeps the stored choice",
			Value: -1,
		})
		flash := cmd.String(cli.StringOpt{
			Name:  "flash",
			Desc:  "off, on or auto",
			Value: "off",
		})
		orientation := cmd.Int(cli.IntOpt{
			Name:  "orientation",
			Desc:  "device rotation in degrees",
			Value: 0,
		})
		target := cmd.String(cli.StringOpt{
			Name:  "target t",
			Desc:  "file to write the picture to instead of a timestamped name",
			Value: "",
		})
		timeout := cmd.String(cli.StringOpt{
			Name:  "timeout",
			Desc:  "give up after this long",
			Value: "30s",
		})

		cmd.Action = func() {
			cfg := load()
			if *facing != "" {
				cfg.Camera.Facing = *facing
			}
			flashState, err := parseFlash(*flash)
			if err != nil {
				log.WithError(err).Panic("invalid flash option")
			}
			deadline, err := time.ParseDuration(*timeout)
			if err != nil {
				log.WithError(err).Panic("invalid timeout")
			}

			prefs, err := preferences.NewService(cfg.Storage.PreferencesDir)
			if err != nil {
				log.WithError(err).Panic("failed to create preferences store")
			}
			writer, err := photo.NewWriter(cfg.Storage.OutputDir)
			if err != nil {
				log.WithError(err).Panic("failed to create photo writer")
			}
			saver := &notifyingProcessor{PhotoProcessor: writer, saved: make(chan struct{}, *count)}

			shell := console.NewShell(viewSize, displaySize, prefs)
			shell.SetOrientation(*orientation)
			svc := camera.NewService(simulator.NewBackend(simulatorConfig(cfg)), shell, prefs, saver, cameraConfig(cfg))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, deadline)
			defer cancel()

			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error {
				return svc.Start(ctx)
			})
			if cfg.Metrics.Address != "" {
				serveMetrics(ctx, group, cfg.Metrics.Address)
			}
			group.Go(func() error {
				defer cancel()
				return capturePictures(ctx, svc, shell, saver, captureOptions{
					front:      cfg.Camera.Facing == "front",
					count:      *count,
					resolution: *resolution,
					flash:      flashState,
					target:     *target,
				})
			})

			if err := group.Wait(); err != nil {
				log.WithError(err).Panic("capture failed")
			}
		}
	})

	app.Command("devices", "list the simulated sensors and their stream configurations", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			cfg := load()
			prefs, err := preferences.NewService(cfg.Storage.PreferencesDir)
			if err != nil {
				log.WithError(err).Panic("failed to create preferences store")
			}
			if err := listDevices(simulator.NewBackend(simulatorConfig(cfg)), prefs, cameraConfig(cfg)); err != nil {
				log.WithError(err).Panic("failed to list devices")
			}
		}
	})

	err := app.Run(os.Args)
	if err != nil {
		log.WithError(err).Panic("failed to execute application")
	}
}

type captureOptions struct {
	front      bool
	count      int
	resolution int
	flash      camera.FlashState
	target     string
}

func capturePictures(ctx context.Context, svc camera.Service, shell *console.Shell, saver *notifyingProcessor, opts captureOptions) error {
	if opts.front {
		svc.ToggleFrontBackCamera()
	} else {
		svc.Resume()
	}
	if err := shell.WaitAvailable(ctx, true); err != nil {
		return fmt.Errorf("camera never became available: %w", err)
	}

	if opts.resolution >= 0 {
		shell.ChooseResolution(opts.resolution)
		svc.ShowResolutionPicker()
		// reopen so the stored size is used for the still stream
		svc.Pause()
		svc.Resume()
		if err := shell.WaitAvailable(ctx, true); err != nil {
			return fmt.Errorf("camera never reopened: %w", err)
		}
	}

	svc.SetFlashState(opts.flash)
	if opts.target != "" {
		if opts.count > 1 {
			log.Warnf("writing %d pictures to the same target %s", opts.count, opts.target)
		}
		svc.SetTargetOutput(opts.target)
	}

	for i := 0; i < opts.count; i++ {
		svc.TakePicture()
		if err := shell.WaitButtons(ctx, false); err != nil {
			return fmt.Errorf("picture %d never started: %w", i+1, err)
		}
		if err := shell.WaitButtons(ctx, true); err != nil {
			return fmt.Errorf("picture %d never finished: %w", i+1, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("picture %d was not saved: %w", i+1, ctx.Err())
		case <-saver.saved:
		}
		log.Infof("picture %d of %d saved", i+1, opts.count)
	}

	svc.Pause()
	return nil
}

func listDevices(backend hal.Backend, prefs preferences.Service, cfg camera.Config) error {
	ids, err := backend.DeviceIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		chars, err := backend.Characteristics(id)
		if err != nil {
			return fmt.Errorf("failed to read characteristics of camera %s: %w", id, err)
		}
		front := chars.Facing == hal.FacingFront
		streams, err := streamconfig.Select(chars, prefs.PhotoResolutionIndex(front), viewSize, displaySize, cfg.MaxPreview)
		if err != nil {
			log.WithError(err).Warnf("camera %s uses the fallback stream configuration", id)
		}
		log.WithFields(log.Fields{
			"camera":      id,
			"facing":      chars.Facing,
			"orientation": chars.SensorOrientation,
			"flash":       chars.FlashAvailable,
			"focus":       chars.FocusSupported(),
			"max_zoom":    chars.MaxDigitalZoom,
			"preview":     fmt.Sprintf("%dx%d", streams.Preview.Width, streams.Preview.Height),
			"still":       fmt.Sprintf("%dx%d", streams.Still.Width, streams.Still.Height),
			"pixels":      humanize.SIWithDigits(float64(streams.Still.Area()), 1, "px"),
		}).Info("camera")
	}

	records, err := prefs.List()
	if err != nil {
		return fmt.Errorf("failed to list preferences: %w", err)
	}
	for _, record := range records {
		log.WithFields(log.Fields{
			"front": record.Front,
			"photo": record.PhotoResolutionIndex,
			"video": record.VideoResolutionIndex,
		}).Info("stored resolution preference")
	}
	return nil
}

func serveMetrics(ctx context.Context, group *errgroup.Group, address string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: address, Handler: mux}

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		log.Infof("serving metrics on %s", address)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
}

// notifyingProcessor signals every processed photo so the CLI knows when it
// can stop.
type notifyingProcessor struct {
	camera.PhotoProcessor
	saved chan struct{}
}

func (p *notifyingProcessor) Process(ctx context.Context, photo *camera.Photo) error {
	err := p.PhotoProcessor.Process(ctx, photo)
	select {
	case p.saved <- struct{}{}:
	default:
	}
	return err
}

func parseFlash(value string) (camera.FlashState, error) {
	switch value {
	case "off":
		return camera.FlashOff, nil
	case "on":
		return camera.FlashOn, nil
	case "auto":
		return camera.FlashAuto, nil
	default:
		return camera.FlashOff, fmt.Errorf("unknown flash mode %q", value)
	}
}

func cameraConfig(cfg *config.Config) camera.Config {
	return camera.Config{
		OpenTimeout: cfg.Camera.OpenTimeout,
		MaxPreview:  geometry.Size{Width: cfg.Camera.MaxPreviewWidth, Height: cfg.Camera.MaxPreviewHeight},
		TapTimeout:  cfg.Camera.TapTimeout,
		TapSlop:     cfg.Camera.TapSlop,
		InboxSize:   cfg.Camera.InboxSize,
	}
}

func simulatorConfig(cfg *config.Config) simulator.Config {
	return simulator.Config{
		OpenDelay:        cfg.Simulator.OpenDelay,
		FrameInterval:    cfg.Simulator.FrameInterval,
		FocusFrames:      cfg.Simulator.FocusFrames,
		PrecaptureFrames: cfg.Simulator.PrecaptureFrames,
		LowLight:         cfg.Simulator.LowLight,
	}
}
