package camera

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/bilbercode/stillcam/internal/hal"
)

type commandKind int

const (
	commandHardware commandKind = iota
	commandTakePicture
	commandSetFlash
	commandToggleFlash
	commandTouch
	commandClosed
	commandResolutionChanged
)

func (k commandKind) String() string {
	switch k {
	case commandHardware:
		return "hardware"
	case commandTakePicture:
		return "take_picture"
	case commandSetFlash:
		return "set_flash"
	case commandToggleFlash:
		return "toggle_flash"
	case commandTouch:
		return "touch"
	case commandClosed:
		return "closed"
	case commandResolutionChanged:
		return "resolution_changed"
	default:
		return "unknown"
	}
}

// command is a single item of the worker inbox.
type command struct {
	kind  commandKind
	event hal.Event
	flash FlashState
	touch TouchEvent
}

func (c command) String() string {
	if c.kind == commandHardware {
		return fmt.Sprintf("%s(%s)", c.kind, c.event.Type)
	}
	return c.kind.String()
}

func (s *service) handle(cmd command) {
	switch cmd.kind {
	case commandHardware:
		s.handleHardware(cmd.event)
	case commandTakePicture:
		s.takePicture()
	case commandSetFlash:
		s.setFlash(cmd.flash)
	case commandToggleFlash:
		s.toggleFlash()
	case commandTouch:
		s.handleTouch(cmd.touch)
	case commandClosed:
		s.resetSession()
	case commandResolutionChanged:
		s.onResolutionChanged()
	}
}

func (s *service) handleHardware(ev hal.Event) {
	switch ev.Type {
	case hal.EventDeviceOpened:
		s.onDeviceOpened(ev.Device)
	case hal.EventDeviceDisconnected:
		s.onDeviceLost(ev.Device, ev.Err, "disconnected")
	case hal.EventDeviceError:
		s.onDeviceLost(ev.Device, ev.Err, "error")
	case hal.EventSessionConfigured:
		s.onSessionConfigured(ev.Session)
	case hal.EventSessionConfigureFailed:
		deviceErrors.WithLabelValues("configure").Inc()
		log.WithError(ev.Err).Warn("failed to configure capture session")
		s.shell.SetCameraAvailability(false)
	case hal.EventCaptureProgressed:
		if ev.Request.Tag != "" && s.pending.Has(ev.Request.Tag) {
			return
		}
		s.process(ev.Result)
	case hal.EventCaptureCompleted, hal.EventCaptureFailed:
		if h, ok := s.pending.Dequeue(ev.Request.Tag); ok {
			h(ev)
			return
		}
		if ev.Type == hal.EventCaptureFailed {
			log.WithError(ev.Err).Debugf("capture of frame %d failed", ev.Result.FrameNumber)
			return
		}
		s.process(ev.Result)
	case hal.EventImageAvailable:
		s.onImageAvailable(ev.Image)
	default:
		log.Debugf("ignoring hardware event %s", ev.Type)
	}
}
