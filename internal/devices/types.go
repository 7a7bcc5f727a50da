package devices

import (
	"github.com/bilbercode/stillcam/internal/hal"
	"github.com/bilbercode/stillcam/internal/streamconfig"
)

type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

type EventType int

const (
	EventTypeUnknown EventType = iota
	EventTypeAvailable
	EventTypeUnavailable
)

type Event struct {
	Type     EventType
	DeviceID string
	Err      error
}

type OpenRequest struct {
	ID              string
	Characteristics *hal.Characteristics
	Streams         streamconfig.Config
}

// Service owns the device handle, its capture session and the still image
// reader. Open and Close may block the caller on the open/close permit; the
// terminal callbacks Opened and Failed run on the worker that receives
// hardware events.
type Service interface {
	Open(req OpenRequest) error
	Close()

	Opened(dev hal.Device) bool
	Failed(dev hal.Device, cause error) bool
	SessionConfigured(session hal.Session) bool

	State() State
	Device() hal.Device
	Session() hal.Session
	ImageReader() hal.ImageReader
	Characteristics() *hal.Characteristics
	Streams() streamconfig.Config

	Subscribe(f func(*Event)) func()
}
