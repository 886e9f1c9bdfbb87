package sync

import (
	"context"
	"sync"
)

// State is an exporter's position in its lifecycle.
type State int32

const (
	// Active accepts new export calls.
	Active State = iota
	// ShuttingDown rejects new export calls while in-flight ones drain.
	ShuttingDown
	// Shutdown is terminal.
	Shutdown
)

// Lifecycle tracks an exporter's state and its in-flight export calls, so
// shutdown can reject new work and then wait for current work to finish.
// The zero value is Active with nothing in flight.
type Lifecycle struct {
	mu       sync.Mutex
	state    State
	inflight int
	// idle is closed once state has left Active and inflight reaches zero.
	idle chan struct{}
}

// Begin marks the start of an export call. It reports false, without any
// bookkeeping, if the lifecycle has left the Active state.
func (l *Lifecycle) Begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Active {
		return false
	}
	l.inflight++
	return true
}

// End marks the end of an export call begun with [Lifecycle.Begin].
func (l *Lifecycle) End() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight--
	if l.inflight == 0 && l.idle != nil {
		close(l.idle)
		l.idle = nil
	}
}

// BeginShutdown moves Active to ShuttingDown and reports whether this call
// performed the transition. Later calls (and calls after Shutdown) report
// false.
func (l *Lifecycle) BeginShutdown() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Active {
		return false
	}
	l.state = ShuttingDown
	return true
}

// Wait blocks until no export calls are in flight, or ctx is cancelled. It
// does not keep new calls from starting, so in the Active state it only
// guarantees that the calls running when Wait began have finished.
func (l *Lifecycle) Wait(ctx context.Context) error {
	l.mu.Lock()
	if l.inflight == 0 {
		l.mu.Unlock()
		return nil
	}
	if l.idle == nil {
		l.idle = make(chan struct{})
	}
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain waits until every in-flight export call has finished, or ctx is
// cancelled. Only meaningful after BeginShutdown, which stops new calls from
// starting.
func (l *Lifecycle) Drain(ctx context.Context) error {
	return l.Wait(ctx)
}

// FinishShutdown moves ShuttingDown to Shutdown.
func (l *Lifecycle) FinishShutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = Shutdown
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
