package simulator

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
)

var errAborted = errors.New("capture aborted")

// session processes one request per frame: queued one-shot captures first,
// then the repeating request.
type session struct {
	sync.Mutex
	dev     *device
	sink    hal.Sink
	reader  hal.ImageReader
	preview geometry.Size

	repeating *hal.Request
	queue     []hal.Request
	closed    bool
	done      chan struct{}

	frame               int64
	af                  hal.AFState
	afRemaining         int
	ae                  hal.AEState
	precaptureRemaining int
	exposed             bool
}

func newSession(dev *device, preview geometry.Size, reader hal.ImageReader, sink hal.Sink) *session {
	return &session{
		dev:     dev,
		sink:    sink,
		reader:  reader,
		preview: preview,
		done:    make(chan struct{}),
	}
}

func (s *session) SetRepeatingRequest(req hal.Request) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return hal.ErrSessionRace
	}
	s.repeating = &req
	return nil
}

func (s *session) Capture(req hal.Request) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return hal.ErrSessionRace
	}
	s.queue = append(s.queue, req)
	return nil
}

func (s *session) StopRepeating() error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return hal.ErrSessionRace
	}
	s.repeating = nil
	return nil
}

func (s *session) AbortCaptures() error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return hal.ErrSessionRace
	}
	aborted := s.queue
	s.queue = nil
	// the caller may be the goroutine draining the sink
	go func() {
		for _, req := range aborted {
			s.sink.Post(hal.Event{Type: hal.EventCaptureFailed, Request: req, Err: errAborted})
		}
	}()
	return nil
}

func (s *session) Close() error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

func (s *session) run() {
	ticker := time.NewTicker(s.dev.cfg.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.step()
		}
	}
}

func (s *session) step() {
	s.Lock()
	if s.closed {
		s.Unlock()
		return
	}
	var req hal.Request
	switch {
	case len(s.queue) > 0:
		req = s.queue[0]
		s.queue = s.queue[1:]
	case s.repeating != nil:
		req = *s.repeating
	default:
		s.Unlock()
		return
	}
	s.frame++
	s.advance(req)
	result := hal.Result{FrameNumber: s.frame, AFState: s.af, AEState: s.ae}
	if req.Template == hal.TemplateStillCapture {
		s.exposed = false
	}
	s.Unlock()

	if req.Template != hal.TemplateStillCapture {
		partial := result
		partial.Partial = true
		s.sink.Post(hal.Event{Type: hal.EventCaptureProgressed, Request: req, Result: partial})
		s.sink.Post(hal.Event{Type: hal.EventCaptureCompleted, Request: req, Result: result})
		return
	}

	data, err := renderStill(s.reader.Size(), req.CropRegion, s.dev.chars, result.FrameNumber)
	if err != nil {
		log.WithError(err).Warn("failed to render simulated still")
		s.sink.Post(hal.Event{Type: hal.EventCaptureFailed, Request: req, Result: result, Err: err})
		return
	}
	s.sink.Post(hal.Event{Type: hal.EventCaptureCompleted, Request: req, Result: result})
	s.sink.Post(hal.Event{Type: hal.EventImageAvailable, Request: req, Image: data})
}

// advance moves the simulated AF and AE loops by one frame under req.
func (s *session) advance(req hal.Request) {
	cfg := s.dev.cfg

	switch {
	case !s.dev.chars.FocusSupported():
		s.af = hal.AFStateAbsent
	case req.AFTrigger == hal.AFTriggerStart:
		s.af = hal.AFStateActiveScan
		s.afRemaining = cfg.FocusFrames
		if s.afRemaining <= 0 {
			s.af = hal.AFStateFocusedLocked
		}
	case req.AFTrigger == hal.AFTriggerCancel:
		s.af = hal.AFStateInactive
	case s.af == hal.AFStateActiveScan:
		s.afRemaining--
		if s.afRemaining <= 0 {
			s.af = hal.AFStateFocusedLocked
		}
	case s.af.Locked():
	case req.AFMode == hal.AFModeContinuousPicture || req.AFMode == hal.AFModeContinuousVideo:
		s.af = hal.AFStatePassiveFocused
	default:
		s.af = hal.AFStateInactive
	}

	switch {
	case req.AEPrecaptureTrigger == hal.AEPrecaptureStart:
		s.ae = hal.AEStatePrecapture
		s.precaptureRemaining = cfg.PrecaptureFrames
	case s.ae == hal.AEStatePrecapture:
		s.precaptureRemaining--
		if s.precaptureRemaining <= 0 {
			s.exposed = true
			s.ae = hal.AEStateConverged
		}
	case cfg.LowLight && !s.exposed:
		s.ae = hal.AEStateSearching
		if req.AEMode == hal.AEModeOnAutoFlash {
			s.ae = hal.AEStateFlashRequired
		}
	default:
		s.ae = hal.AEStateConverged
	}
}
