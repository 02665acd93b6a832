package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/encore/internal/audio"
)

// FakeElement is a scripted [audio.Element]. It never emits events on its own:
// tests drive it with Emit, EmitError and EmitStale from the test goroutine.
type FakeElement struct {
	mu       sync.Mutex
	token    uint64
	src      string
	playing  bool
	volume   float64
	time     float64
	duration float64
	closed   bool
	handler  func(audio.Event)

	// PlayErr is returned by every Play call while set.
	PlayErr error
	// PlayErrFor fails Play for specific sources.
	PlayErrFor map[string]error

	calls []string
	loads []string
}

func NewFakeElement() *FakeElement {
	return &FakeElement{volume: 1, PlayErrFor: make(map[string]error)}
}

func (f *FakeElement) Load(src string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.token++
	f.src = src
	f.playing = false
	f.time = 0
	f.duration = 0
	f.calls = append(f.calls, "load:"+src)
	if src != "" {
		f.loads = append(f.loads, src)
	}
	return f.token
}

func (f *FakeElement) Play(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "play")
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.closed {
		return audio.ErrClosed
	}
	if f.src == "" {
		return audio.ErrNoSource
	}
	if f.PlayErr != nil {
		return f.PlayErr
	}
	if err := f.PlayErrFor[f.src]; err != nil {
		return err
	}
	f.playing = true
	return nil
}

func (f *FakeElement) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "pause")
	f.playing = false
}

func (f *FakeElement) Seek(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("seek:%g", seconds))
	f.time = seconds
}

func (f *FakeElement) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("volume:%.2f", v))
	f.volume = v
}

func (f *FakeElement) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.time
}

func (f *FakeElement) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *FakeElement) Src() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src
}

func (f *FakeElement) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.playing
}

func (f *FakeElement) SetHandler(h func(audio.Event)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *FakeElement) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.playing = false
	return nil
}

// SetTime moves the playhead without recording a seek.
func (f *FakeElement) SetTime(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.time = seconds
}

// SetDuration sets the duration reported for the current load.
func (f *FakeElement) SetDuration(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duration = seconds
}

// Volume returns the last volume written.
func (f *FakeElement) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

// Token returns the current load token.
func (f *FakeElement) Token() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// Calls returns a copy of every recorded method call.
func (f *FakeElement) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Loads returns every non-empty source loaded, in order.
func (f *FakeElement) Loads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loads...)
}

// Emit delivers an event for the current load.
func (f *FakeElement) Emit(t audio.EventType) {
	f.deliver(audio.Event{Type: t, Token: f.Token()})
}

// EmitError delivers a media error for the current load.
func (f *FakeElement) EmitError(code audio.MediaErrorCode) {
	f.deliver(audio.Event{Type: audio.EventError, Token: f.Token(), Code: code})
}

// EmitStale delivers an event tagged with an earlier load token.
func (f *FakeElement) EmitStale(t audio.EventType, token uint64) {
	f.deliver(audio.Event{Type: t, Token: token})
}

// End moves the playhead to the end and emits ended, as a finished track would.
func (f *FakeElement) End() {
	f.mu.Lock()
	f.time = f.duration
	f.playing = false
	f.mu.Unlock()
	f.Emit(audio.EventEnded)
}

func (f *FakeElement) deliver(ev audio.Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()

	if h != nil {
		h(ev)
	}
}
