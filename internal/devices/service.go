package devices

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/bilbercode/stillcam/internal/hal"
	"github.com/bilbercode/stillcam/internal/streamconfig"
)

// DefaultOpenTimeout bounds the wait for the open/close permit.
const DefaultOpenTimeout = 2500 * time.Millisecond

const maxStillImages = 2

var (
	permitTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "permit_timeouts",
		Namespace: "stillcam",
		Help:      "number of times the device open/close permit could not be acquired",
	}, []string{"operation"})
	deviceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "device_failures",
		Namespace: "stillcam",
		Help:      "number of device disconnects and errors",
	}, []string{"device"})
)

type service struct {
	sync.Mutex
	backend hal.Backend
	sink    hal.Sink
	permit  *Permit
	timeout time.Duration

	state   State
	pending *Guard
	id      string
	device  hal.Device
	session hal.Session
	reader  hal.ImageReader
	chars   *hal.Characteristics
	streams streamconfig.Config

	subscribers map[string]func(*Event)
}

func NewService(backend hal.Backend, sink hal.Sink, openTimeout time.Duration) Service {
	if openTimeout <= 0 {
		openTimeout = DefaultOpenTimeout
	}
	return &service{
		backend:     backend,
		sink:        sink,
		permit:      NewPermit(),
		timeout:     openTimeout,
		subscribers: make(map[string]func(*Event)),
	}
}

func (s *service) Open(req OpenRequest) error {
	guard, err := s.permit.Acquire(s.timeout)
	if err != nil {
		permitTimeouts.WithLabelValues("open").Inc()
		return err
	}

	s.Lock()
	if s.state != StateClosed {
		state := s.state
		s.Unlock()
		guard.Release()
		log.Debugf("camera %s open skipped, device is %s", req.ID, state)
		return nil
	}
	s.Unlock()

	reader, err := s.backend.NewImageReader(req.Streams.Still, maxStillImages)
	if err != nil {
		guard.Release()
		return fmt.Errorf("failed to create image reader %dx%d: %w",
			req.Streams.Still.Width, req.Streams.Still.Height, errors.Join(hal.ErrDeviceAccess, err))
	}

	s.Lock()
	s.state = StateOpening
	s.pending = guard
	s.id = req.ID
	s.reader = reader
	s.chars = req.Characteristics
	s.streams = req.Streams
	s.Unlock()

	log.Infof("opening camera %s", req.ID)
	if err := s.backend.Open(req.ID, s.sink); err != nil {
		s.Lock()
		s.state = StateClosed
		s.pending = nil
		s.reader = nil
		s.Unlock()
		_ = reader.Close()
		guard.Release()
		return fmt.Errorf("failed to open camera %s: %w", req.ID, errors.Join(hal.ErrDeviceAccess, err))
	}
	return nil
}

func (s *service) Opened(dev hal.Device) bool {
	s.Lock()
	guard := s.pending
	s.pending = nil
	if s.state != StateOpening {
		s.Unlock()
		guard.Release()
		log.Infof("camera %s opened after its open was abandoned, closing", dev.ID())
		_ = dev.Close()
		return false
	}
	s.state = StateOpen
	s.device = dev
	id := s.id
	s.Unlock()

	guard.Release()
	s.publish(&Event{Type: EventTypeAvailable, DeviceID: id})
	return true
}

// Failed handles a disconnect or error callback. It reports false when the
// callback belongs to a device that was already torn down.
func (s *service) Failed(dev hal.Device, cause error) bool {
	s.Lock()
	current := s.device
	if dev != nil && dev != current && (s.state != StateOpening || dev.ID() != s.id) {
		s.Unlock()
		log.WithError(errors.Join(hal.ErrSessionRace, cause)).Debugf("ignoring failure of stale camera %s", dev.ID())
		return false
	}
	guard := s.pending
	s.pending = nil
	id := s.id
	session := s.session
	reader := s.reader
	s.state = StateClosed
	s.device = nil
	s.session = nil
	s.reader = nil
	s.Unlock()

	guard.Release()
	deviceFailures.WithLabelValues(id).Inc()
	log.WithError(cause).Warnf("camera %s lost", id)

	if session != nil {
		_ = session.Close()
	}
	if dev != nil {
		_ = dev.Close()
	}
	if reader != nil {
		_ = reader.Close()
	}
	s.publish(&Event{Type: EventTypeUnavailable, DeviceID: id, Err: errors.Join(hal.ErrDeviceAccess, cause)})
	return true
}

func (s *service) SessionConfigured(session hal.Session) bool {
	s.Lock()
	defer s.Unlock()
	if s.device == nil || s.state != StateOpen {
		return false
	}
	s.session = session
	return true
}

// Close tears down session, device and image reader. Teardown errors are
// logged and dropped.
func (s *service) Close() {
	guard, err := s.permit.Acquire(s.timeout)
	if err != nil {
		permitTimeouts.WithLabelValues("close").Inc()
		log.WithError(err).Warn("closing camera without the open/close permit")
	}
	defer guard.Release()

	s.Lock()
	if s.state == StateClosed {
		s.Unlock()
		return
	}
	s.state = StateClosing
	session, device, reader, id := s.session, s.device, s.reader, s.id
	s.session, s.device, s.reader = nil, nil, nil
	s.Unlock()

	if session != nil {
		if err := session.Close(); err != nil {
			log.WithError(err).Debugf("closing capture session of camera %s", id)
		}
	}
	if device != nil {
		if err := device.Close(); err != nil {
			log.WithError(err).Debugf("closing camera %s", id)
		}
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			log.WithError(err).Debugf("closing image reader of camera %s", id)
		}
	}

	s.Lock()
	s.state = StateClosed
	s.Unlock()
	log.Infof("camera %s closed", id)
}

func (s *service) State() State {
	s.Lock()
	defer s.Unlock()
	return s.state
}

func (s *service) Device() hal.Device {
	s.Lock()
	defer s.Unlock()
	return s.device
}

func (s *service) Session() hal.Session {
	s.Lock()
	defer s.Unlock()
	return s.session
}

func (s *service) ImageReader() hal.ImageReader {
	s.Lock()
	defer s.Unlock()
	return s.reader
}

func (s *service) Characteristics() *hal.Characteristics {
	s.Lock()
	defer s.Unlock()
	return s.chars
}

func (s *service) Streams() streamconfig.Config {
	s.Lock()
	defer s.Unlock()
	return s.streams
}

func (s *service) Subscribe(f func(*Event)) func() {
	id := uuid.NewString()
	s.Lock()
	defer s.Unlock()
	s.subscribers[id] = f
	return func() {
		s.Lock()
		defer s.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *service) publish(ev *Event) {
	s.Lock()
	handlers := make([]func(*Event), 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handlers = append(handlers, h)
	}
	s.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
