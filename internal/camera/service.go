package camera

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bilbercode/stillcam/internal/capture"
	"github.com/bilbercode/stillcam/internal/devices"
	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
	"github.com/bilbercode/stillcam/internal/streamconfig"
)

var (
	stillsCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "stills_captured",
		Namespace: "stillcam",
		Help:      "number of still captures the device completed",
	})
	captureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "capture_failures",
		Namespace: "stillcam",
		Help:      "number of still captures the device reported as failed",
	})
	deviceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "device_errors",
		Namespace: "stillcam",
		Help:      "number of device and session errors by reason",
	}, []string{"reason"})
	focusRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "focus_requests",
		Namespace: "stillcam",
		Help:      "number of tap to focus requests submitted",
	})
)

const maxPendingPhotos = 2

type service struct {
	sync.Mutex
	cfg       Config
	backend   hal.Backend
	devices   devices.Service
	shell     Shell
	prefs     Preferences
	processor PhotoProcessor

	inbox    chan command
	photos   chan *Photo
	done     chan struct{}
	doneOnce sync.Once

	state atomic.Int32

	// guarded by the mutex
	front      bool
	videoMode  bool
	flash      FlashState
	target     string
	intentMode bool

	// owned by the worker
	preview           hal.Request
	hasPreview        bool
	zoomLevel         int
	zoomRect          geometry.Rect
	fingerSpacing     float64
	rotationAtCapture int
	focusTag          string
	flashPending      bool
	downAt            time.Time
	downPos           geometry.Point
	pending           *pendingRequests
	newTag            func() string
}

func NewService(backend hal.Backend, shell Shell, prefs Preferences, processor PhotoProcessor, cfg Config) Service {
	defaults := DefaultConfig()
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}
	if cfg.MaxPreview.IsZero() {
		cfg.MaxPreview = defaults.MaxPreview
	}
	if cfg.TapTimeout <= 0 {
		cfg.TapTimeout = defaults.TapTimeout
	}
	if cfg.TapSlop <= 0 {
		cfg.TapSlop = defaults.TapSlop
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaults.InboxSize
	}

	s := &service{
		cfg:       cfg,
		backend:   backend,
		shell:     shell,
		prefs:     prefs,
		processor: processor,
		inbox:     make(chan command, cfg.InboxSize),
		photos:    make(chan *Photo, maxPendingPhotos),
		done:      make(chan struct{}),
		zoomLevel: 1,
		pending:   newPendingRequests(),
		newTag:    uuid.NewString,
	}
	s.devices = devices.NewService(backend, s, cfg.OpenTimeout)
	return s
}

// Start runs the worker until ctx ends, then closes the device.
func (s *service) Start(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer s.doneOnce.Do(func() { close(s.done) })
		for {
			select {
			case <-ctx.Done():
				s.devices.Close()
				return nil
			case cmd := <-s.inbox:
				s.handle(cmd)
			}
		}
	})

	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case photo := <-s.photos:
				s.processPhoto(ctx, photo)
			}
		}
	})

	return group.Wait()
}

func (s *service) Post(ev hal.Event) {
	s.post(command{kind: commandHardware, event: ev})
}

func (s *service) post(cmd command) {
	select {
	case s.inbox <- cmd:
	case <-s.done:
		log.Debugf("dropping %s, camera service stopped", cmd)
	}
}

func (s *service) Resume() {
	front := s.useFront()
	facing := hal.FacingBack
	if front {
		facing = hal.FacingFront
	}

	chars, err := devices.FindDevice(s.backend, facing)
	if chars == nil {
		log.WithError(err).Warn("no camera available")
		deviceErrors.WithLabelValues("missing").Inc()
		s.shell.SetCameraAvailability(false)
		return
	}
	if err != nil {
		log.WithError(err).Warn("requested camera not found")
	}

	streams, err := streamconfig.Select(chars, s.prefs.PhotoResolutionIndex(front),
		s.shell.PreviewViewSize(), s.shell.DisplaySize(), s.cfg.MaxPreview)
	if err != nil {
		log.WithError(err).Warn("falling back to default stream configuration")
	}
	log.WithFields(log.Fields{
		"camera":  chars.ID,
		"facing":  chars.Facing,
		"preview": streams.Preview,
		"still":   streams.Still,
	}).Info("stream configuration selected")

	// the preview surface is laid out in portrait
	s.shell.SetPreviewAspectRatio(streams.Preview.Height, streams.Preview.Width)
	s.shell.SetFlashAvailability(chars.FlashAvailable)

	err = s.devices.Open(devices.OpenRequest{ID: chars.ID, Characteristics: chars, Streams: streams})
	if err != nil {
		reason := "open"
		if errors.Is(err, hal.ErrDeviceBusy) {
			reason = "busy"
		}
		deviceErrors.WithLabelValues(reason).Inc()
		log.WithError(err).Warnf("failed to open camera %s", chars.ID)
		s.shell.SetCameraAvailability(false)
	}
}

func (s *service) Pause() {
	s.devices.Close()
	s.post(command{kind: commandClosed})
}

func (s *service) ToggleFrontBackCamera() {
	s.Lock()
	s.front = !s.front
	s.Unlock()
	s.Pause()
	s.Resume()
}

func (s *service) SetTargetOutput(locator string) {
	s.Lock()
	defer s.Unlock()
	s.target = locator
}

func (s *service) SetImageCaptureIntentMode(enabled bool) {
	s.Lock()
	defer s.Unlock()
	s.intentMode = enabled
}

func (s *service) SetFlashState(state FlashState) {
	s.post(command{kind: commandSetFlash, flash: state})
}

func (s *service) ToggleFlash() {
	s.post(command{kind: commandToggleFlash})
}

func (s *service) TakePicture() {
	s.post(command{kind: commandTakePicture})
}

func (s *service) InitPhotoMode() {
	s.Lock()
	defer s.Unlock()
	s.videoMode = false
}

// InitVideoMode switches the flash cycle to video mode. Recording is not
// supported so it always reports false.
func (s *service) InitVideoMode() bool {
	s.Lock()
	defer s.Unlock()
	s.videoMode = true
	return false
}

func (s *service) CurrentCaptureState() capture.State {
	return capture.State(s.state.Load())
}

func (s *service) HandleTouch(ev TouchEvent) {
	s.post(command{kind: commandTouch, touch: ev})
}

func (s *service) ShowResolutionPicker() {
	chars := s.devices.Characteristics()
	if chars == nil {
		return
	}
	front := s.useFront()
	old, _ := streamconfig.StillSize(chars.JPEGSizes, s.prefs.PhotoResolutionIndex(front))
	photo := append([]geometry.Size(nil), chars.JPEGSizes...)

	s.shell.ShowResolutionPicker(front, photo, nil, func() {
		current, _ := streamconfig.StillSize(chars.JPEGSizes, s.prefs.PhotoResolutionIndex(front))
		if current != old {
			s.post(command{kind: commandResolutionChanged})
		}
	})
}

func (s *service) useFront() bool {
	s.Lock()
	defer s.Unlock()
	return s.front
}

func (s *service) flashState() FlashState {
	s.Lock()
	defer s.Unlock()
	return s.flash
}

func (s *service) setState(state capture.State) {
	s.state.Store(int32(state))
}

func (s *service) processPhoto(ctx context.Context, photo *Photo) {
	if s.processor == nil {
		log.Warn("no photo processor configured, dropping still")
		return
	}
	if err := s.processor.Process(ctx, photo); err != nil {
		log.WithError(err).Warnf("failed to process still for %q", photo.Target)
	}
}
