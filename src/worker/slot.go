// Package worker runs at most one background interaction loop at a time.
package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

type State int32

const (
	NotStarted State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Slot holds the single background loop. State changes into Running happen
// under mu together with the loop's cancel func.
type Slot struct {
	state atomic.Int32

	mu     sync.Mutex
	done   chan struct{}
	cancel context.CancelFunc
}

// TryStart runs fn on a new goroutine unless a loop is already running, in
// which case it returns false and does nothing. A Finished slot can be
// started again. fn receives a context cancelled by Stop.
func (s *Slot) TryStart(ctx context.Context, fn func(ctx context.Context)) bool {
	// The transition to Running and the new cancel are published together,
	// so a Stop that observes Running always reaches this loop.
	s.mu.Lock()
	if !s.state.CompareAndSwap(int32(NotStarted), int32(Running)) &&
		!s.state.CompareAndSwap(int32(Finished), int32(Running)) {
		s.mu.Unlock()
		log.Printf("Worker: loop already running, ignoring start")
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.done = done
	s.cancel = cancel
	s.mu.Unlock()

	log.Printf("Worker: loop started")
	go func() {
		defer func() {
			cancel()
			s.state.Store(int32(Finished))
			close(done)
			log.Printf("Worker: loop finished")
		}()
		fn(loopCtx)
	}()
	return true
}

// Stop cancels the running loop's context. It does not wait.
func (s *Slot) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the most recently started loop returns.
func (s *Slot) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Slot) State() State { return State(s.state.Load()) }

func (s *Slot) Running() bool { return s.State() == Running }
