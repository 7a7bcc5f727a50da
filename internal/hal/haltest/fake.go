// Package haltest provides recording fakes of the hal interfaces.
package haltest

import (
	"fmt"
	"sync"

	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
)

// Backend hands out the configured characteristics and records every open.
// Nothing is posted to the sink; tests deliver the callbacks themselves.
type Backend struct {
	sync.Mutex
	Cameras   []*hal.Characteristics
	OpenErr   error
	ReaderErr error

	Opens   []string
	Readers []*Reader
	Sinks   []hal.Sink
}

func NewBackend(cameras ...*hal.Characteristics) *Backend {
	return &Backend{Cameras: cameras}
}

func (b *Backend) DeviceIDs() ([]string, error) {
	b.Lock()
	defer b.Unlock()
	ids := make([]string, 0, len(b.Cameras))
	for _, c := range b.Cameras {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (b *Backend) Characteristics(id string) (*hal.Characteristics, error) {
	b.Lock()
	defer b.Unlock()
	for _, c := range b.Cameras {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: camera %s", hal.ErrDeviceAccess, id)
}

func (b *Backend) NewImageReader(size geometry.Size, maxImages int) (hal.ImageReader, error) {
	b.Lock()
	defer b.Unlock()
	if b.ReaderErr != nil {
		return nil, b.ReaderErr
	}
	r := &Reader{size: size}
	b.Readers = append(b.Readers, r)
	return r, nil
}

func (b *Backend) Open(id string, sink hal.Sink) error {
	b.Lock()
	defer b.Unlock()
	if b.OpenErr != nil {
		return b.OpenErr
	}
	b.Opens = append(b.Opens, id)
	b.Sinks = append(b.Sinks, sink)
	return nil
}

type Reader struct {
	sync.Mutex
	size   geometry.Size
	Closed int
}

func (r *Reader) Size() geometry.Size {
	return r.size
}

func (r *Reader) Close() error {
	r.Lock()
	defer r.Unlock()
	r.Closed++
	return nil
}

// Device records session creation and close calls.
type Device struct {
	sync.Mutex
	Name     string
	Sessions []geometry.Size
	Closed   int
}

func NewDevice(id string) *Device {
	return &Device{Name: id}
}

func (d *Device) ID() string {
	return d.Name
}

func (d *Device) CreateSession(preview geometry.Size, reader hal.ImageReader, sink hal.Sink) error {
	d.Lock()
	defer d.Unlock()
	if d.Closed > 0 {
		return hal.ErrSessionRace
	}
	d.Sessions = append(d.Sessions, preview)
	return nil
}

func (d *Device) Close() error {
	d.Lock()
	defer d.Unlock()
	d.Closed++
	return nil
}

// Session records every request submitted to it in order.
type Session struct {
	sync.Mutex
	Repeating []hal.Request
	Captures  []hal.Request
	Stops     int
	Aborts    int
	Closed    int
	Ops       []string
}

func (s *Session) SetRepeatingRequest(req hal.Request) error {
	s.Lock()
	defer s.Unlock()
	if s.Closed > 0 {
		return hal.ErrSessionRace
	}
	s.Repeating = append(s.Repeating, req)
	s.Ops = append(s.Ops, "repeat")
	return nil
}

func (s *Session) Capture(req hal.Request) error {
	s.Lock()
	defer s.Unlock()
	if s.Closed > 0 {
		return hal.ErrSessionRace
	}
	s.Captures = append(s.Captures, req)
	s.Ops = append(s.Ops, "capture")
	return nil
}

func (s *Session) StopRepeating() error {
	s.Lock()
	defer s.Unlock()
	s.Stops++
	s.Ops = append(s.Ops, "stop")
	return nil
}

func (s *Session) AbortCaptures() error {
	s.Lock()
	defer s.Unlock()
	s.Aborts++
	s.Ops = append(s.Ops, "abort")
	return nil
}

func (s *Session) Close() error {
	s.Lock()
	defer s.Unlock()
	s.Closed++
	return nil
}

// LastRepeating returns the most recent repeating request.
func (s *Session) LastRepeating() hal.Request {
	s.Lock()
	defer s.Unlock()
	if len(s.Repeating) == 0 {
		return hal.Request{}
	}
	return s.Repeating[len(s.Repeating)-1]
}

// LastCapture returns the most recent one-shot request.
func (s *Session) LastCapture() hal.Request {
	s.Lock()
	defer s.Unlock()
	if len(s.Captures) == 0 {
		return hal.Request{}
	}
	return s.Captures[len(s.Captures)-1]
}

// Sink collects posted events.
type Sink struct {
	sync.Mutex
	Events []hal.Event
}

func (s *Sink) Post(ev hal.Event) {
	s.Lock()
	defer s.Unlock()
	s.Events = append(s.Events, ev)
}

// BackCamera is a typical rear sensor: 4000x3000 active array, 90 degree
// mounting, AF and flash available.
func BackCamera(id string) *hal.Characteristics {
	return &hal.Characteristics{
		ID:                id,
		Facing:            hal.FacingBack,
		SensorOrientation: 90,
		ActiveArray:       geometry.Rect{Right: 4000, Bottom: 3000},
		MaxDigitalZoom:    4,
		MaxAFRegions:      1,
		AFModes:           []hal.AFMode{hal.AFModeOff, hal.AFModeAuto, hal.AFModeContinuousPicture},
		FlashAvailable:    true,
		JPEGSizes: []geometry.Size{
			{Width: 1280, Height: 960}, {Width: 4000, Height: 3000}, {Width: 640, Height: 480},
		},
		PreviewSizes: []geometry.Size{
			{Width: 1920, Height: 1440}, {Width: 1440, Height: 1080}, {Width: 960, Height: 720}, {Width: 640, Height: 480},
		},
	}
}

// FrontCamera is a fixed-focus front sensor without flash.
func FrontCamera(id string) *hal.Characteristics {
	return &hal.Characteristics{
		ID:                id,
		Facing:            hal.FacingFront,
		SensorOrientation: 270,
		ActiveArray:       geometry.Rect{Right: 2592, Bottom: 1944},
		AFModes:           []hal.AFMode{hal.AFModeOff},
		JPEGSizes:         []geometry.Size{{Width: 2592, Height: 1944}, {Width: 640, Height: 480}},
		PreviewSizes:      []geometry.Size{{Width: 1440, Height: 1080}, {Width: 640, Height: 480}},
	}
}
