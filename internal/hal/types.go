// Package hal describes the camera hardware as seen by the capture pipeline:
// devices, their capture sessions, the requests submitted to them and the
// per-frame metadata they report back.
package hal

import (
	"github.com/bilbercode/stillcam/internal/geometry"
)

// Sink receives every asynchronous callback from the hardware.
type Sink interface {
	Post(ev Event)
}

type Backend interface {
	DeviceIDs() ([]string, error)
	Characteristics(id string) (*Characteristics, error)
	NewImageReader(size geometry.Size, maxImages int) (ImageReader, error)
	// Open starts opening the device. The outcome arrives on sink as
	// EventDeviceOpened, EventDeviceDisconnected or EventDeviceError.
	Open(id string, sink Sink) error
}

type Device interface {
	ID() string
	// CreateSession configures a session with a preview surface of the given
	// size and the reader as still target. The outcome arrives on sink as
	// EventSessionConfigured or EventSessionConfigureFailed.
	CreateSession(preview geometry.Size, reader ImageReader, sink Sink) error
	Close() error
}

// Session requests are processed in submission order. Results for every
// request arrive on the sink the session was created with.
type Session interface {
	SetRepeatingRequest(req Request) error
	Capture(req Request) error
	StopRepeating() error
	AbortCaptures() error
	Close() error
}

type ImageReader interface {
	Size() geometry.Size
	Close() error
}

type Facing int

const (
	FacingBack Facing = iota
	FacingFront
	FacingExternal
)

func (f Facing) String() string {
	switch f {
	case FacingBack:
		return "back"
	case FacingFront:
		return "front"
	case FacingExternal:
		return "external"
	default:
		return "unknown"
	}
}

type Characteristics struct {
	ID                string
	Facing            Facing
	SensorOrientation int
	ActiveArray       geometry.Rect
	MaxDigitalZoom    float64
	MaxAFRegions      int
	AFModes           []AFMode
	FlashAvailable    bool
	JPEGSizes         []geometry.Size
	PreviewSizes      []geometry.Size
}

// FocusSupported is true when the sensor offers more than the fixed AF mode.
func (c *Characteristics) FocusSupported() bool {
	return len(c.AFModes) > 1
}

func (c *Characteristics) ZoomSupported() bool {
	return c.MaxDigitalZoom > 0
}

// MaxZoomLevel is the number of pinch steps between no zoom and max digital zoom.
func (c *Characteristics) MaxZoomLevel() float64 {
	return c.MaxDigitalZoom * 10
}
