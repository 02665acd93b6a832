//go:build (linux && cgo) || windows || darwin

package audio

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/desertthunder/encore/internal/shared"
)

// Available indicates whether real audio output is supported in this build.
const Available = true

const sampleRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// initSpeaker initializes the shared speaker once. Every element mixes into it.
func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	})
	return speakerErr
}

// New returns a [BeepElement], or a [SilentElement] when opts.Silent is set.
func New(opts Options) Element {
	if opts.Silent {
		return NewSilentElement()
	}
	return NewBeepElement(opts)
}

// BeepElement plays a fully buffered source through the shared beep speaker.
type BeepElement struct {
	mu sync.Mutex

	client *http.Client
	logger *log.Logger
	events *dispatcher
	cancel context.CancelFunc

	token    uint64
	src      string
	volume   float64
	wantPlay bool
	closed   bool
	// pendingSeek holds a Seek issued before the source finished decoding, or -1.
	pendingSeek float64

	streamer beep.StreamSeekCloser
	format   beep.Format
	vol      *effects.Volume
	ctrl     *beep.Ctrl
}

// NewBeepElement creates a BeepElement.
func NewBeepElement(opts Options) *BeepElement {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BeepElement{
		client:      opts.Client,
		logger:      shared.WithLogger(logger, "component", "audio"),
		events:      newDispatcher(),
		volume:      1,
		pendingSeek: -1,
	}
}

func (e *BeepElement) Load(src string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unloadLocked()
	e.token++
	e.src = src
	e.wantPlay = false
	e.pendingSeek = -1

	if src != "" && !e.closed {
		ctx, cancel := context.WithCancel(context.Background())
		e.cancel = cancel
		go e.fetch(ctx, e.token, src)
	}
	return e.token
}

// fetch downloads and decodes src, then starts playback if Play was called meanwhile.
func (e *BeepElement) fetch(ctx context.Context, token uint64, src string) {
	data, format, err := Fetch(ctx, e.client, src)
	if err != nil {
		e.fail(token, err)
		return
	}

	streamer, f, err := decode(format, data)
	if err != nil {
		e.fail(token, &MediaError{Code: CodeDecode, Err: err})
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if token != e.token || e.closed {
		streamer.Close()
		return
	}

	e.streamer = streamer
	e.format = f
	if e.pendingSeek >= 0 {
		e.seekLocked(e.pendingSeek)
		e.pendingSeek = -1
	}
	e.events.emit(Event{Type: EventLoaded, Token: token})

	if e.wantPlay {
		if err := e.startLocked(); err != nil {
			e.events.emit(Event{Type: EventError, Token: token, Code: CodeAborted, Err: err})
		}
	}
}

func (e *BeepElement) fail(token uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if token != e.token {
		return
	}
	code := CodeOf(err)
	e.logger.Debug("source failed", "src", e.src, "code", code.Cause(), "error", err)
	e.events.emit(Event{Type: EventError, Token: token, Code: code, Err: err})
}

func decode(format Format, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	rc := nopCloser{bytes.NewReader(data)}
	switch format {
	case FormatWAV:
		return wav.Decode(rc)
	case FormatFLAC:
		return flac.Decode(rc)
	default:
		return mp3.Decode(rc)
	}
}

func (e *BeepElement) Play(ctx context.Context) error {
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
	}

	e.wantPlay = true

	if e.streamer == nil {
		e.events.emit(Event{Type: EventWaiting, Token: e.token})
		return nil
	}

	if e.ctrl != nil {
		speaker.Lock()
		e.ctrl.Paused = false
		speaker.Unlock()
		e.events.emit(Event{Type: EventPlay, Token: e.token})
		e.events.emit(Event{Type: EventPlaying, Token: e.token})
		return nil
	}

	return e.startLocked()
}

// startLocked hands the decoded stream to the speaker (must be called with lock held).
func (e *BeepElement) startLocked() error {
	if err := initSpeaker(); err != nil {
		return err
	}

	resampled := beep.Resample(4, e.format.SampleRate, sampleRate, e.streamer)
	e.vol = &effects.Volume{Streamer: resampled, Base: 2}
	applyGain(e.vol, e.volume)
	e.ctrl = &beep.Ctrl{Streamer: e.vol}

	token := e.token
	speaker.Play(beep.Seq(e.ctrl, beep.Callback(func() {
		// Runs on the speaker goroutine with the speaker lock held.
		go e.finished(token)
	})))

	e.events.emit(Event{Type: EventPlay, Token: token})
	e.events.emit(Event{Type: EventPlaying, Token: token})
	return nil
}

func (e *BeepElement) finished(token uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if token != e.token || e.ctrl == nil {
		return
	}
	e.wantPlay = false
	e.ctrl = nil
	e.events.emit(Event{Type: EventEnded, Token: token})
}

func (e *BeepElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.wantPlay = false
	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
	e.events.emit(Event{Type: EventPause, Token: e.token})
}

func (e *BeepElement) Seek(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		e.pendingSeek = max(seconds, 0)
		return
	}
	e.seekLocked(seconds)
}

// seekLocked moves the stream position (must be called with lock held).
func (e *BeepElement) seekLocked(seconds float64) {
	speaker.Lock()
	defer speaker.Unlock()

	n := e.format.SampleRate.N(time.Duration(max(seconds, 0) * float64(time.Second)))
	if last := e.streamer.Len() - 1; n > last {
		n = max(last, 0)
	}
	if err := e.streamer.Seek(n); err != nil {
		e.logger.Warn("seek failed", "src", e.src, "error", err)
	}
}

func (e *BeepElement) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume = Clamp01(v)
	if e.vol == nil {
		return
	}
	speaker.Lock()
	applyGain(e.vol, e.volume)
	speaker.Unlock()
}

// applyGain maps linear gain onto the base-2 exponent effects.Volume expects.
func applyGain(vol *effects.Volume, gain float64) {
	if gain <= 0 {
		vol.Silent = true
		return
	}
	vol.Silent = false
	vol.Volume = math.Log2(gain)
}

func (e *BeepElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := e.streamer.Position()
	speaker.Unlock()

	return e.format.SampleRate.D(pos).Seconds()
}

func (e *BeepElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Len()).Seconds()
}

func (e *BeepElement) Src() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

func (e *BeepElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return true
	}
	speaker.Lock()
	defer speaker.Unlock()
	return e.ctrl.Paused
}

func (e *BeepElement) SetHandler(h func(Event)) { e.events.setHandler(h) }

func (e *BeepElement) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unloadLocked()
	e.closed = true
	e.events.close()
	return nil
}

// unloadLocked detaches the current stream from the speaker (must be called with lock held).
func (e *BeepElement) unloadLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.ctrl != nil {
		speaker.Lock()
		e.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	e.ctrl = nil
	e.vol = nil
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

var _ io.ReadCloser = nopCloser{}
