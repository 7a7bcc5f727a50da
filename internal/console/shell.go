// Package console is a headless camera.Shell that logs what a user interface
// would render and lets a driver wait on availability changes.
package console

import (
	"context"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/bilbercode/stillcam/internal/camera"
	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/preferences"
)

const signalBuffer = 16

type Shell struct {
	sync.Mutex
	view        geometry.Size
	display     geometry.Size
	orientation int
	prefs       preferences.Service
	choice      int

	available chan bool
	buttons   chan bool
}

func NewShell(view, display geometry.Size, prefs preferences.Service) *Shell {
	return &Shell{
		view:      view,
		display:   display,
		prefs:     prefs,
		choice:    -1,
		available: make(chan bool, signalBuffer),
		buttons:   make(chan bool, signalBuffer),
	}
}

// SetOrientation records the device rotation in degrees.
func (s *Shell) SetOrientation(degrees int) {
	s.Lock()
	defer s.Unlock()
	s.orientation = degrees
}

// ChooseResolution sets the index the next resolution picker selects. A
// negative index leaves the preference untouched.
func (s *Shell) ChooseResolution(index int) {
	s.Lock()
	defer s.Unlock()
	s.choice = index
}

func (s *Shell) DrawFocusIndicator(x, y float64) {
	log.WithFields(log.Fields{"x": x, "y": y}).Info("focus indicator")
}

func (s *Shell) SetFlashAvailability(available bool) {
	log.Infof("flash available: %t", available)
}

func (s *Shell) SetCameraAvailability(available bool) {
	log.Infof("camera available: %t", available)
	signal(s.available, available)
}

func (s *Shell) UpdateFlashState(state camera.FlashState) {
	log.Infof("flash %s", state)
}

func (s *Shell) ToggleCaptureButtons(enabled bool) {
	log.Debugf("capture buttons enabled: %t", enabled)
	signal(s.buttons, enabled)
}

func (s *Shell) DeviceOrientation() int {
	s.Lock()
	defer s.Unlock()
	return s.orientation
}

func (s *Shell) PreviewViewSize() geometry.Size {
	return s.view
}

func (s *Shell) DisplaySize() geometry.Size {
	return s.display
}

func (s *Shell) SetPreviewAspectRatio(width, height int) {
	log.Infof("preview aspect ratio %d:%d", width, height)
}

func (s *Shell) ShowResolutionPicker(front bool, photo, video []geometry.Size, done func()) {
	sorted := append([]geometry.Size(nil), photo...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Area() > sorted[j].Area() })
	for i, size := range sorted {
		log.Infof("photo resolution %d: %dx%d", i, size.Width, size.Height)
	}

	s.Lock()
	choice := s.choice
	s.Unlock()
	if choice >= 0 && choice < len(sorted) && s.prefs != nil {
		record, err := s.prefs.Get(front)
		if err != nil {
			log.WithError(err).Warn("failed to read resolution preference")
			record = &preferences.Record{Front: front}
		}
		record.PhotoResolutionIndex = choice
		if err := s.prefs.Update(record); err != nil {
			log.WithError(err).Warn("failed to store resolution preference")
		}
	}
	done()
}

// WaitAvailable blocks until the camera reports the wanted availability.
func (s *Shell) WaitAvailable(ctx context.Context, want bool) error {
	return wait(ctx, s.available, want)
}

// WaitButtons blocks until the capture buttons reach the wanted state.
func (s *Shell) WaitButtons(ctx context.Context, want bool) error {
	return wait(ctx, s.buttons, want)
}

func signal(ch chan bool, v bool) {
	select {
	case ch <- v:
	default:
		// drop the oldest value so the latest state is never lost
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

func wait(ctx context.Context, ch chan bool, want bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v := <-ch:
			if v == want {
				return nil
			}
		}
	}
}
