package audio

import (
	"context"
	"sync"
	"time"
)

// SilentElement keeps a wall clock per load but produces no sound.
//
// It is the fallback on builds without a speaker backend and backs `--mute`.
// With a zero duration it never ends on its own.
type SilentElement struct {
	mu       sync.Mutex
	token    uint64
	src      string
	duration float64
	offset   float64
	started  time.Time
	playing  bool
	closed   bool
	timer    *time.Timer
	now      func() time.Time
	events   *dispatcher
}

// NewSilentElement creates a SilentElement.
func NewSilentElement() *SilentElement {
	return &SilentElement{now: time.Now, events: newDispatcher()}
}

// SetDuration sets the duration reported for the current load.
func (e *SilentElement) SetDuration(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = seconds
	if e.playing {
		e.armLocked()
	}
}

func (e *SilentElement) Load(src string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTimerLocked()
	e.token++
	e.src = src
	e.offset = 0
	e.playing = false
	e.duration = 0
	if src != "" {
		e.events.emit(Event{Type: EventLoaded, Token: e.token})
	}
	return e.token
}

func (e *SilentElement) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.closed:
		return ErrClosed
	case e.src == "":
		return ErrNoSource
	case e.playing:
		return nil
	}

	e.playing = true
	e.started = e.now()
	e.armLocked()
	e.events.emit(Event{Type: EventPlay, Token: e.token})
	e.events.emit(Event{Type: EventPlaying, Token: e.token})
	return nil
}

func (e *SilentElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing {
		return
	}
	e.offset = e.positionLocked()
	e.playing = false
	e.stopTimerLocked()
	e.events.emit(Event{Type: EventPause, Token: e.token})
}

func (e *SilentElement) Seek(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.offset = max(seconds, 0)
	e.started = e.now()
	if e.playing {
		e.armLocked()
	}
}

func (e *SilentElement) SetVolume(float64) {}

func (e *SilentElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *SilentElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *SilentElement) Src() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

func (e *SilentElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.playing
}

func (e *SilentElement) SetHandler(h func(Event)) { e.events.setHandler(h) }

func (e *SilentElement) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.playing = false
	e.stopTimerLocked()
	e.events.close()
	return nil
}

func (e *SilentElement) positionLocked() float64 {
	pos := e.offset
	if e.playing {
		pos += e.now().Sub(e.started).Seconds()
	}
	if e.duration > 0 && pos > e.duration {
		pos = e.duration
	}
	return pos
}

func (e *SilentElement) armLocked() {
	e.stopTimerLocked()
	if e.duration <= 0 {
		return
	}

	remaining := max(e.duration-e.positionLocked(), 0)
	token := e.token
	e.timer = time.AfterFunc(time.Duration(remaining*float64(time.Second)), func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if token != e.token || !e.playing {
			return
		}
		e.offset = e.duration
		e.playing = false
		e.events.emit(Event{Type: EventEnded, Token: token})
	})
}

func (e *SilentElement) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
