package camera

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/bilbercode/stillcam/internal/capture"
	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
)

func flashSettings(state FlashState) (hal.FlashMode, hal.AEMode) {
	switch state {
	case FlashOn:
		return hal.FlashModeTorch, hal.AEModeOn
	case FlashAuto:
		return hal.FlashModeOff, hal.AEModeOnAutoFlash
	default:
		return hal.FlashModeOff, hal.AEModeOn
	}
}

func (s *service) setFlash(state FlashState) {
	s.Lock()
	s.flash = state
	s.Unlock()
	s.applyFlash()
}

func (s *service) toggleFlash() {
	s.Lock()
	states := FlashState(3)
	if s.videoMode {
		states = 2
	}
	next := (s.flash + 1) % states
	s.Unlock()
	s.setFlash(next)
}

// applyFlash pushes the flash state into the preview. Changes made while a
// capture is in flight are applied when the preview is restored.
func (s *service) applyFlash() {
	chars := s.devices.Characteristics()
	if !s.hasPreview || chars == nil || !chars.FlashAvailable {
		return
	}
	if s.CurrentCaptureState() != capture.StateIdle {
		s.flashPending = true
		return
	}
	s.flashPending = false
	state := s.flashState()
	flash, ae := flashSettings(state)
	s.preview = s.preview.WithFlash(flash, ae)
	if err := s.setRepeating(); err != nil {
		s.sessionError(err, "failed to apply flash state")
		return
	}
	s.shell.UpdateFlashState(state)
}

func (s *service) handleTouch(ev TouchEvent) {
	chars := s.devices.Characteristics()
	if chars == nil || len(ev.Pointers) == 0 {
		if ev.Action == TouchUp || ev.Action == TouchCancel {
			s.fingerSpacing = 0
		}
		return
	}

	switch ev.Action {
	case TouchDown:
		s.downAt = ev.Time
		s.downPos = ev.Pointers[0]
	case TouchUp:
		p := ev.Pointers[0]
		if chars.FocusSupported() && ev.Time.Sub(s.downAt) < s.cfg.TapTimeout &&
			math.Abs(p.X-s.downPos.X) < s.cfg.TapSlop && math.Abs(p.Y-s.downPos.Y) < s.cfg.TapSlop {
			s.focusArea(p, chars)
		}
	}

	if chars.ZoomSupported() && len(ev.Pointers) > 1 {
		s.handleZoom(ev.Pointers[0], ev.Pointers[1], chars)
	}
	if ev.Action == TouchUp || ev.Action == TouchCancel {
		s.fingerSpacing = 0
	}
}

func (s *service) handleZoom(a, b geometry.Point, chars *hal.Characteristics) {
	spacing := geometry.FingerSpacing(a, b)
	previous := s.fingerSpacing
	s.fingerSpacing = spacing
	if previous == 0 || spacing == previous {
		return
	}

	s.zoomLevel, s.zoomRect = geometry.ComputeZoomRegion(s.zoomLevel, spacing-previous, chars.ActiveArray, chars.MaxZoomLevel())
	if !s.hasPreview {
		return
	}
	s.preview = s.preview.WithCropRegion(s.zoomRect)
	if s.CurrentCaptureState() != capture.StateIdle {
		// picked up when the preview is restored after the still
		return
	}
	if err := s.setRepeating(); err != nil {
		s.sessionError(err, "failed to apply zoom")
	}
}

func (s *service) focusArea(p geometry.Point, chars *hal.Characteristics) {
	s.shell.DrawFocusIndicator(p.X, p.Y)

	session := s.devices.Session()
	if session == nil || !s.hasPreview {
		return
	}
	if state := s.CurrentCaptureState(); state != capture.StateIdle {
		log.Debugf("focus request ignored while %s", state)
		return
	}

	if err := session.StopRepeating(); err != nil {
		s.sessionError(err, "failed to stop preview for focus")
		return
	}

	cancelTag := s.newTag()
	if err := s.pending.Enqueue(cancelTag, func(hal.Event) {}); err != nil {
		log.WithError(err).Warn("failed to track focus cancel")
	} else if err := session.Capture(s.preview.WithAFTrigger(hal.AFTriggerCancel).WithTag(cancelTag)); err != nil {
		s.pending.Dequeue(cancelTag)
		s.sessionError(err, "failed to cancel focus")
	}

	withRegion := func(r hal.Request) hal.Request { return r }
	if chars.MaxAFRegions >= 1 {
		region := geometry.ScreenPointToSensorRegion(p, s.shell.PreviewViewSize(),
			chars.SensorOrientation, chars.Facing == hal.FacingFront)
		metering := geometry.MeteringRect{
			Rect:   geometry.NormalizedRegionToSensorRect(chars.ActiveArray, region.Rect),
			Weight: region.Weight,
		}
		withRegion = func(r hal.Request) hal.Request { return r.WithAFRegions(metering) }
	}
	req := withRegion(s.preview).WithControlMode(hal.ControlModeAuto)

	tag := s.newTag()
	err := s.pending.Enqueue(tag, func(ev hal.Event) {
		if tag != s.focusTag {
			return
		}
		s.focusTag = ""
		// the preview keeps the focus region once the trigger completed
		s.preview = withRegion(s.preview).WithControlMode(hal.ControlModeAuto)
		if s.CurrentCaptureState() == capture.StatePictureTaken {
			// restorePreview resumes it after the still
			return
		}
		// a still waiting on AF or AE metadata needs the preview frames
		if err := s.setRepeating(); err != nil {
			s.sessionError(err, "failed to resume preview after focus")
		}
	})
	if err != nil {
		log.WithError(err).Warn("failed to track focus request")
		if err := s.setRepeating(); err != nil {
			s.sessionError(err, "failed to resume preview")
		}
		return
	}
	s.focusTag = tag

	focusRequests.Inc()
	if err := session.Capture(req.WithAFTrigger(hal.AFTriggerStart).WithTag(tag)); err != nil {
		s.pending.Dequeue(tag)
		s.focusTag = ""
		s.sessionError(err, "failed to start focus")
		if err := s.setRepeating(); err != nil {
			s.sessionError(err, "failed to resume preview")
		}
	}
}
