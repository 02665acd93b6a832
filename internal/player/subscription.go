package player

import (
	"slices"
	"sync"
)

// Subscription delivers engine state. Updates holds at most one state: a newer
// one replaces an unread older one, so slow readers always see the latest.
type Subscription struct {
	Updates <-chan State
	Done    <-chan struct{}

	mu      sync.Mutex
	updates chan State
	done    chan struct{}
	closed  bool
}

func newSubscription() *Subscription {
	updates := make(chan State, 1)
	done := make(chan struct{})
	return &Subscription{Updates: updates, Done: done, updates: updates, done: done}
}

func (s *Subscription) send(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- st:
	default:
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// Subscribe registers a state listener. The current state is delivered immediately.
func (e *Engine) Subscribe() *Subscription {
	e.lock()
	defer e.unlock()

	sub := newSubscription()
	if e.closed {
		sub.close()
		return sub
	}
	e.subs = append(e.subs, sub)
	sub.send(e.stateLocked())
	return sub
}

// Unsubscribe removes sub and closes its Done channel.
func (e *Engine) Unsubscribe(sub *Subscription) {
	e.lock()
	defer e.unlock()

	if i := slices.Index(e.subs, sub); i >= 0 {
		e.subs = slices.Delete(e.subs, i, i+1)
		sub.close()
	}
}

// changed schedules a state broadcast for when the lock is released.
func (e *Engine) changed() {
	e.dirty = true
}

// broadcastLocked queues delivery of the current state to every subscriber.
func (e *Engine) broadcastLocked() {
	if !e.dirty {
		return
	}
	e.dirty = false
	if len(e.subs) == 0 {
		return
	}
	st := e.stateLocked()
	subs := slices.Clone(e.subs)
	e.after(func() {
		for _, sub := range subs {
			sub.send(st)
		}
	})
}
