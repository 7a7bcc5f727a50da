// Package simulator implements hal.Backend with two synthetic sensors. Device,
// session and per-frame callbacks are delivered from simulator goroutines so
// the pipeline sees the same interleavings real hardware produces.
package simulator

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
)

type Config struct {
	OpenDelay     time.Duration
	FrameInterval time.Duration
	// FocusFrames is the number of frames an AF scan takes to lock.
	FocusFrames int
	// PrecaptureFrames is the number of frames the AE precapture sequence runs.
	PrecaptureFrames int
	// LowLight keeps AE from converging until a precapture sequence ran.
	LowLight bool
}

type Backend struct {
	sync.Mutex
	cfg     Config
	cameras map[string]*hal.Characteristics
	order   []string
	opened  map[string]*device
}

func NewBackend(cfg Config) *Backend {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 33 * time.Millisecond
	}
	b := &Backend{
		cfg:     cfg,
		cameras: make(map[string]*hal.Characteristics),
		opened:  make(map[string]*device),
	}
	b.add(&hal.Characteristics{
		ID:                "0",
		Facing:            hal.FacingBack,
		SensorOrientation: 90,
		ActiveArray:       geometry.Rect{Left: 8, Top: 8, Right: 4008, Bottom: 3008},
		MaxDigitalZoom:    4,
		MaxAFRegions:      1,
		AFModes:           []hal.AFMode{hal.AFModeOff, hal.AFModeAuto, hal.AFModeContinuousPicture, hal.AFModeContinuousVideo},
		FlashAvailable:    true,
		JPEGSizes: []geometry.Size{
			{Width: 1600, Height: 1200}, {Width: 4000, Height: 3000}, {Width: 3264, Height: 2448},
			{Width: 3840, Height: 2160}, {Width: 640, Height: 480},
		},
		PreviewSizes: []geometry.Size{
			{Width: 1920, Height: 1440}, {Width: 1920, Height: 1080}, {Width: 1440, Height: 1080},
			{Width: 1280, Height: 720}, {Width: 960, Height: 720}, {Width: 640, Height: 480},
		},
	})
	b.add(&hal.Characteristics{
		ID:                "1",
		Facing:            hal.FacingFront,
		SensorOrientation: 270,
		ActiveArray:       geometry.Rect{Right: 2592, Bottom: 1944},
		AFModes:           []hal.AFMode{hal.AFModeOff},
		JPEGSizes:         []geometry.Size{{Width: 2592, Height: 1944}, {Width: 1280, Height: 960}, {Width: 640, Height: 480}},
		PreviewSizes:      []geometry.Size{{Width: 1440, Height: 1080}, {Width: 1280, Height: 720}, {Width: 640, Height: 480}},
	})
	return b
}

func (b *Backend) add(c *hal.Characteristics) {
	b.cameras[c.ID] = c
	b.order = append(b.order, c.ID)
}

func (b *Backend) DeviceIDs() ([]string, error) {
	b.Lock()
	defer b.Unlock()
	return append([]string(nil), b.order...), nil
}

func (b *Backend) Characteristics(id string) (*hal.Characteristics, error) {
	b.Lock()
	defer b.Unlock()
	c, ok := b.cameras[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown camera %s", hal.ErrDeviceAccess, id)
	}
	copied := *c
	return &copied, nil
}

func (b *Backend) NewImageReader(size geometry.Size, maxImages int) (hal.ImageReader, error) {
	if size.IsZero() {
		return nil, fmt.Errorf("%w: empty image reader size", hal.ErrConfiguration)
	}
	return &imageReader{size: size, maxImages: maxImages}, nil
}

// Open fails the device with EventDeviceError when it is already held by
// another client, as a camera service would.
func (b *Backend) Open(id string, sink hal.Sink) error {
	b.Lock()
	chars, ok := b.cameras[id]
	if !ok {
		b.Unlock()
		return fmt.Errorf("%w: unknown camera %s", hal.ErrDeviceAccess, id)
	}
	_, busy := b.opened[id]
	dev := &device{backend: b, chars: chars, cfg: b.cfg, sink: sink}
	if !busy {
		b.opened[id] = dev
	}
	b.Unlock()

	go func() {
		time.Sleep(b.cfg.OpenDelay)
		if busy {
			sink.Post(hal.Event{Type: hal.EventDeviceError, Device: dev, Err: fmt.Errorf("camera %s in use", id)})
			return
		}
		log.Debugf("simulated camera %s opened", id)
		sink.Post(hal.Event{Type: hal.EventDeviceOpened, Device: dev})
	}()
	return nil
}

// Disconnect simulates the device being taken away, for example by a higher
// priority client.
func (b *Backend) Disconnect(id string) {
	b.Lock()
	dev, ok := b.opened[id]
	b.Unlock()
	if ok {
		dev.disconnect()
	}
}

func (b *Backend) release(id string, dev *device) {
	b.Lock()
	defer b.Unlock()
	if b.opened[id] == dev {
		delete(b.opened, id)
	}
}

type imageReader struct {
	size      geometry.Size
	maxImages int
}

func (r *imageReader) Size() geometry.Size {
	return r.size
}

func (r *imageReader) Close() error {
	return nil
}
