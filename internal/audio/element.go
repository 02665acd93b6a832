package audio

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSource is returned by Play when no source is loaded.
var ErrNoSource = errors.New("no source loaded")

// ErrClosed is returned by Play after Close.
var ErrClosed = errors.New("element closed")

// EventType names a media event.
type EventType int

const (
	EventLoaded EventType = iota
	EventPlay
	EventPlaying
	EventPause
	EventWaiting
	EventEnded
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventLoaded:
		return "loaded"
	case EventPlay:
		return "play"
	case EventPlaying:
		return "playing"
	case EventPause:
		return "pause"
	case EventWaiting:
		return "waiting"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// IsTerminal reports whether the event ends the current load.
func (t EventType) IsTerminal() bool {
	return t == EventEnded || t == EventError
}

// MediaErrorCode follows the MediaError codes of HTML media elements.
type MediaErrorCode int

const (
	CodeUnknown     MediaErrorCode = 0
	CodeAborted     MediaErrorCode = 1
	CodeNetwork     MediaErrorCode = 2
	CodeDecode      MediaErrorCode = 3
	CodeUnsupported MediaErrorCode = 4
)

// Cause returns the human-readable category of the code.
func (c MediaErrorCode) Cause() string {
	switch c {
	case CodeAborted:
		return "aborted"
	case CodeNetwork:
		return "network"
	case CodeDecode:
		return "decode"
	case CodeUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// MediaError carries a code alongside the underlying failure.
type MediaError struct {
	Code MediaErrorCode
	Err  error
}

func (e *MediaError) Error() string {
	if e.Err == nil {
		return e.Code.Cause() + " error"
	}
	return fmt.Sprintf("%s error: %v", e.Code.Cause(), e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }

// CodeOf extracts the media error code from err, or CodeUnknown.
func CodeOf(err error) MediaErrorCode {
	var me *MediaError
	if errors.As(err, &me) {
		return me.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeAborted
	}
	return CodeUnknown
}

// Event is a state change reported by an [Element].
type Event struct {
	Type  EventType
	Token uint64
	Code  MediaErrorCode
	Err   error
}

// Element is a single audio output channel.
//
// Implementations must never invoke the handler from inside one of their own
// method calls; events are delivered from a separate goroutine (or, in tests,
// from the test body) so that callers may hold locks while calling methods.
type Element interface {
	// Load replaces the source and returns its load token. An empty src unloads.
	Load(src string) uint64
	// Play starts or resumes playback. An error is a refused start, like a rejected play() promise.
	Play(ctx context.Context) error
	Pause()
	Seek(seconds float64)
	// SetVolume sets linear gain in [0, 1].
	SetVolume(v float64)
	CurrentTime() float64
	Duration() float64
	Src() string
	Paused() bool
	SetHandler(h func(Event))
	Close() error
}

// DurationHinter is implemented by elements that cannot learn a source's
// duration on their own. The hint applies to the current load only.
type DurationHinter interface {
	SetDuration(seconds float64)
}

// Clamp01 clamps v into [0, 1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
