package simulator

import (
	"errors"
	"sync"
	"time"

	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
)

var errDisconnected = errors.New("camera disconnected")

type device struct {
	sync.Mutex
	backend *Backend
	chars   *hal.Characteristics
	cfg     Config
	sink    hal.Sink
	session *session
	closed  bool
}

func (d *device) ID() string {
	return d.chars.ID
}

func (d *device) CreateSession(preview geometry.Size, reader hal.ImageReader, sink hal.Sink) error {
	d.Lock()
	if d.closed {
		d.Unlock()
		return hal.ErrSessionRace
	}
	previous := d.session
	s := newSession(d, preview, reader, sink)
	d.session = s
	d.sink = sink
	d.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	go func() {
		time.Sleep(d.cfg.OpenDelay)
		sink.Post(hal.Event{Type: hal.EventSessionConfigured, Session: s})
		s.run()
	}()
	return nil
}

func (d *device) Close() error {
	d.Lock()
	if d.closed {
		d.Unlock()
		return nil
	}
	d.closed = true
	s := d.session
	d.session = nil
	d.Unlock()

	if s != nil {
		_ = s.Close()
	}
	d.backend.release(d.chars.ID, d)
	return nil
}

func (d *device) disconnect() {
	d.Lock()
	sink := d.sink
	d.Unlock()
	_ = d.Close()
	if sink != nil {
		sink.Post(hal.Event{Type: hal.EventDeviceDisconnected, Device: d, Err: errDisconnected})
	}
}
