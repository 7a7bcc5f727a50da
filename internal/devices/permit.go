package devices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bilbercode/stillcam/internal/hal"
)

// Permit guards the transition between "device handle exists" and "device
// handle absent". At most one open or close sequence holds it.
type Permit struct {
	sem *semaphore.Weighted
}

func NewPermit() *Permit {
	return &Permit{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the permit is free or timeout elapses.
func (p *Permit) Acquire(timeout time.Duration) (*Guard, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waited %s for open/close permit", hal.ErrDeviceBusy, timeout)
	}
	return &Guard{permit: p}, nil
}

// Held reports whether some sequence currently owns the permit.
func (p *Permit) Held() bool {
	if !p.sem.TryAcquire(1) {
		return true
	}
	p.sem.Release(1)
	return false
}

// Guard is the proof of holding a Permit. Release may be called any number of
// times, on a nil Guard too; the permit is given back exactly once.
type Guard struct {
	once   sync.Once
	permit *Permit
}

func (g *Guard) Release() {
	if g == nil {
		return
	}
	g.once.Do(func() {
		g.permit.sem.Release(1)
	})
}
