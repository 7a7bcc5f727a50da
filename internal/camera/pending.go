package camera

import (
	"errors"

	"github.com/bilbercode/stillcam/internal/hal"
)

// pendingRequests maps request tags to the handler of their terminal
// callback. Only the worker goroutine touches it.
type pendingRequests struct {
	items map[string]func(ev hal.Event)
}

func newPendingRequests() *pendingRequests {
	return &pendingRequests{items: make(map[string]func(ev hal.Event))}
}

func (p *pendingRequests) Has(tag string) bool {
	_, ok := p.items[tag]
	return ok
}

func (p *pendingRequests) Enqueue(tag string, h func(ev hal.Event)) error {
	if _, ok := p.items[tag]; ok {
		return errors.New("duplicate request tag")
	}
	p.items[tag] = h
	return nil
}

func (p *pendingRequests) Dequeue(tag string) (func(ev hal.Event), bool) {
	h, ok := p.items[tag]
	if !ok {
		return nil, false
	}
	delete(p.items, tag)
	return h, true
}

// Reset drops every handler, used when the session goes away.
func (p *pendingRequests) Reset() {
	p.items = make(map[string]func(ev hal.Event))
}
