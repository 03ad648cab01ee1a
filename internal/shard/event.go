package shard

import "sync"

// PhaseEvent is a settable, clearable, repeatedly-waitable gate modeled on
// gevent's Event: Set unblocks every current and future Wait until Clear
// is called. Unlike a sync.WaitGroup it can be reused across generations
// without reconstruction; unlike closing a channel, it can be un-set.
type PhaseEvent struct {
	mu   sync.Mutex
	ch   chan struct{}
	isSet bool
}

// NewPhaseEvent returns an event starting in the cleared state.
func NewPhaseEvent() *PhaseEvent {
	return &PhaseEvent{ch: make(chan struct{})}
}

// Set marks the event as set, releasing every blocked and future Wait
// call until the next Clear.
func (e *PhaseEvent) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.isSet {
		e.isSet = true
		close(e.ch)
	}
}

// Clear resets the event so that subsequent Wait calls block again.
func (e *PhaseEvent) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isSet {
		e.isSet = false
		e.ch = make(chan struct{})
	}
}

// Wait blocks until the event is set.
func (e *PhaseEvent) Wait() {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()
	<-ch
}

// IsSet reports whether the event is currently set.
func (e *PhaseEvent) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isSet
}
