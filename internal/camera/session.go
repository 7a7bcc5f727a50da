package camera

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/bilbercode/stillcam/internal/capture"
	"github.com/bilbercode/stillcam/internal/hal"
)

func (s *service) onDeviceOpened(dev hal.Device) {
	if !s.devices.Opened(dev) {
		return
	}
	chars := s.devices.Characteristics()
	s.zoomLevel = 1
	s.zoomRect = chars.ActiveArray
	s.fingerSpacing = 0

	streams := s.devices.Streams()
	if err := dev.CreateSession(streams.Preview, s.devices.ImageReader(), s); err != nil {
		deviceErrors.WithLabelValues("session").Inc()
		log.WithError(err).Warnf("failed to create capture session for camera %s", dev.ID())
		s.shell.SetCameraAvailability(false)
	}
}

func (s *service) onDeviceLost(dev hal.Device, cause error, reason string) {
	if !s.devices.Failed(dev, cause) {
		return
	}
	deviceErrors.WithLabelValues(reason).Inc()
	s.resetSession()
	s.shell.SetCameraAvailability(false)
}

func (s *service) onSessionConfigured(session hal.Session) {
	if !s.devices.SessionConfigured(session) {
		log.Debug("capture session configured after its device went away")
		_ = session.Close()
		return
	}

	flash, ae := flashSettings(s.flashState())
	s.preview = hal.Request{
		Template:      hal.TemplatePreview,
		Target:        hal.TargetPreview,
		AFMode:        hal.AFModeContinuousPicture,
		CaptureIntent: hal.CaptureIntentPreview,
		CropRegion:    s.zoomRect,
	}.WithFlash(flash, ae)
	s.hasPreview = true

	if err := s.setRepeating(); err != nil {
		s.sessionError(err, "failed to start preview")
		s.shell.SetCameraAvailability(false)
		return
	}
	s.setState(capture.StateIdle)
	s.shell.SetCameraAvailability(true)
}

// resetSession forgets everything tied to the previous session.
func (s *service) resetSession() {
	if s.CurrentCaptureState() != capture.StateIdle {
		s.shell.ToggleCaptureButtons(true)
	}
	s.pending.Reset()
	s.preview = hal.Request{}
	s.hasPreview = false
	s.focusTag = ""
	s.fingerSpacing = 0
	s.flashPending = false
	s.setState(capture.StateIdle)
}

func (s *service) process(result hal.Result) {
	state := s.CurrentCaptureState()
	next, action := capture.Advance(state, result)
	if next == state && action == capture.ActionNone {
		return
	}
	log.WithFields(log.Fields{
		"from":   state,
		"to":     next,
		"af":     result.AFState,
		"ae":     result.AEState,
		"action": action,
	}).Debug("capture state advanced")
	s.setState(next)

	switch action {
	case capture.ActionCaptureStill:
		s.captureStill()
	case capture.ActionRunPrecapture:
		s.runPrecapture()
	}
}

func (s *service) takePicture() {
	session := s.devices.Session()
	if session == nil || !s.hasPreview {
		log.Debug("take picture ignored, no capture session")
		return
	}
	if state := s.CurrentCaptureState(); state != capture.StateIdle {
		log.Debugf("take picture ignored while %s", state)
		return
	}

	s.shell.ToggleCaptureButtons(false)
	if s.devices.Characteristics().FocusSupported() {
		s.lockFocus(session)
	} else {
		s.captureStill()
	}
}

func (s *service) lockFocus(session hal.Session) {
	s.setState(capture.StateWaitingLock)
	if err := session.Capture(s.preview.WithAFTrigger(hal.AFTriggerStart)); err != nil {
		s.sessionError(err, "failed to lock focus")
		s.restorePreview()
	}
}

func (s *service) runPrecapture() {
	session := s.devices.Session()
	if session == nil {
		return
	}
	if err := session.Capture(s.preview.WithAEPrecaptureTrigger(hal.AEPrecaptureStart)); err != nil {
		s.sessionError(err, "failed to run precapture sequence")
		s.restorePreview()
	}
}

func (s *service) captureStill() {
	session := s.devices.Session()
	chars := s.devices.Characteristics()
	if session == nil || s.devices.Device() == nil {
		return
	}

	s.setState(capture.StatePictureTaken)
	s.rotationAtCapture = s.shell.DeviceOrientation()

	flash, ae := flashSettings(s.flashState())
	tag := s.newTag()
	req := hal.Request{
		Template:        hal.TemplateStillCapture,
		Target:          hal.TargetImage,
		AFMode:          hal.AFModeContinuousPicture,
		CaptureIntent:   hal.CaptureIntentStillCapture,
		CropRegion:      s.zoomRect,
		JPEGOrientation: jpegOrientation(chars),
	}.WithFlash(flash, ae).WithTag(tag)

	if err := s.pending.Enqueue(tag, s.onStillDone); err != nil {
		log.WithError(err).Warn("failed to track still capture")
		s.restorePreview()
		return
	}

	if err := session.StopRepeating(); err != nil {
		s.sessionError(err, "failed to stop preview")
	}
	if err := session.AbortCaptures(); err != nil {
		s.sessionError(err, "failed to abort captures")
	}
	if err := session.Capture(req); err != nil {
		s.pending.Dequeue(tag)
		s.sessionError(err, "failed to capture still")
		captureFailures.Inc()
		s.restorePreview()
	}
}

func (s *service) onStillDone(ev hal.Event) {
	if ev.Type == hal.EventCaptureFailed {
		captureFailures.Inc()
		log.WithError(ev.Err).Warn("still capture failed")
	} else {
		stillsCaptured.Inc()
	}
	s.restorePreview()
}

// restorePreview clears the AF trigger, resumes the repeating request with
// any deferred flash change and gives the capture buttons back.
func (s *service) restorePreview() {
	s.unlockFocus()
	if s.flashPending {
		s.applyFlash()
	}
	s.shell.ToggleCaptureButtons(true)
}

func (s *service) unlockFocus() {
	s.setState(capture.StateIdle)
	session := s.devices.Session()
	if session == nil || !s.hasPreview {
		return
	}
	if err := session.Capture(s.preview.WithAFTrigger(hal.AFTriggerIdle)); err != nil {
		s.sessionError(err, "failed to unlock focus")
	}
	if err := s.setRepeating(); err != nil {
		s.sessionError(err, "failed to resume preview")
	}
}

func (s *service) onImageAvailable(data []byte) {
	chars := s.devices.Characteristics()
	if chars == nil {
		return
	}
	s.Lock()
	photo := &Photo{
		Data:               data,
		Rotation:           s.rotationAtCapture,
		JPEGOrientation:    jpegOrientation(chars),
		Front:              chars.Facing == hal.FacingFront,
		Target:             s.target,
		ImageCaptureIntent: s.intentMode,
	}
	s.Unlock()

	select {
	case s.photos <- photo:
	default:
		log.Warn("photo processor busy, dropping still")
	}
}

func (s *service) onResolutionChanged() {
	// TODO: reopen the device so the new still size applies immediately
	log.Info("photo resolution changed, applies from the next time the camera opens")
}

func (s *service) setRepeating() error {
	session := s.devices.Session()
	if session == nil {
		return hal.ErrSessionRace
	}
	return session.SetRepeatingRequest(s.preview)
}

// sessionError logs a failed session call. Calls racing a close are expected.
func (s *service) sessionError(err error, msg string) {
	if errors.Is(err, hal.ErrSessionRace) {
		log.WithError(err).Debug(msg)
		return
	}
	deviceErrors.WithLabelValues("request").Inc()
	log.WithError(err).Warn(msg)
}

func jpegOrientation(chars *hal.Characteristics) int {
	orientation := chars.SensorOrientation
	if chars.Facing == hal.FacingFront {
		orientation += 180
	}
	return orientation % 360
}
