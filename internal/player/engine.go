package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/encore/internal/analytics"
	"github.com/desertthunder/encore/internal/audio"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/queue"
	"github.com/desertthunder/encore/internal/shared"
)

// State is a read-only view of the engine.
type State struct {
	IsPlaying         bool
	IsBuffering       bool
	Volume            float64
	CurrentTime       float64
	Duration          float64
	IsQueueOpen       bool
	CrossfadeDuration int
	// ActiveSong is the song loaded in the active element. It can briefly differ
	// from the queue's current song and is kept after the queue is exhausted.
	ActiveSong *models.Song
	Status     Status
}

// preloadSlot describes what the preload element holds.
type preloadSlot struct {
	song       models.Song
	queueID    string
	url        string
	token      uint64
	generation uint64
}

// fade is an in-progress crossfade. The outgoing element sits in the preload role.
type fade struct {
	out   audio.Element
	token uint64
}

// Engine plays the queue's current song on a two-element deck.
type Engine struct {
	cfg       Config
	queue     *queue.Store
	deck      *Deck
	resolver  Resolver
	progress  ProgressStore
	prefs     Preferences
	sink      analytics.Sink
	notifier  Notifier
	announcer Announcer
	session   MediaSession
	platform  Platform
	analyzer  Analyzer
	logger    *log.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	analyzerOnce sync.Once
	analyzerErr  error

	mu      sync.Mutex
	effects []func()
	machine machine

	activeSong *models.Song
	activeURL  string
	token      uint64
	handled    bool

	volume      float64
	crossfade   int
	queueOpen   bool
	currentTime float64
	duration    float64

	buffering      bool
	bufferingSince time.Time
	stallHandled   bool

	lastPos    float64
	playedSecs float64
	played     map[string]bool
	completed  map[string]bool
	lastSave   time.Time

	preload *preloadSlot
	fade    *fade

	subs   []*Subscription
	dirty  bool
	closed bool
}

// New creates an Engine. It does not start the tick loop; call [Engine.Run].
func New(cfg Config, deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "player")

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:       cfg,
		queue:     deps.Queue,
		deck:      NewDeck(deps.Elements[0], deps.Elements[1]),
		resolver:  deps.Resolver,
		progress:  deps.Progress,
		prefs:     deps.Prefs,
		sink:      deps.Sink,
		notifier:  deps.Notifier,
		announcer: deps.Announcer,
		session:   deps.MediaSession,
		platform:  deps.Platform,
		analyzer:  deps.Analyzer,
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		volume:    audio.Clamp01(cfg.Volume),
		played:    make(map[string]bool),
		completed: make(map[string]bool),
	}
	if e.resolver == nil {
		e.resolver = plainResolver{}
	}
	if e.sink == nil {
		e.sink = analytics.NopSink{}
	}
	if e.platform == nil {
		e.platform = anyPlatform{}
	}
	e.crossfade = loadCrossfade(e.prefs, clampCrossfade(cfg.CrossfadeDuration), logger)

	e.deck.Each(func(el audio.Element) {
		el.SetHandler(func(ev audio.Event) { e.handleEvent(el, ev) })
	})
	return e
}

// lock and unlock bracket every state change. Queued side effects run after
// the lock is released, in the order they were queued.
func (e *Engine) lock() { e.mu.Lock() }

func (e *Engine) unlock() {
	e.broadcastLocked()
	fx := e.effects
	e.effects = nil
	e.mu.Unlock()

	for _, f := range fx {
		f()
	}
}

// after queues f to run once the lock is released.
func (e *Engine) after(f func()) {
	e.effects = append(e.effects, f)
}

// State returns the current state.
func (e *Engine) State() State {
	e.lock()
	defer e.unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	s := State{
		IsPlaying:         e.isPlayingLocked(),
		IsBuffering:       e.buffering,
		Volume:            e.volume,
		CurrentTime:       e.currentTime,
		Duration:          e.duration,
		IsQueueOpen:       e.queueOpen,
		CrossfadeDuration: e.crossfade,
		Status:            e.machine.status,
	}
	if e.activeSong != nil {
		song := *e.activeSong
		s.ActiveSong = &song
	}
	return s
}

func (e *Engine) isPlayingLocked() bool {
	return e.machine.is(StatusPlaying, StatusRecovering)
}

// Queue returns the store the engine plays from.
func (e *Engine) Queue() *queue.Store { return e.queue }

// Run drives time updates, preloading, crossfades, stall detection and periodic
// progress saves until ctx is done or the engine is closed.
func (e *Engine) Run(ctx context.Context) {
	tick := e.cfg.Tick
	if tick <= 0 {
		tick = DefaultConfig().Tick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Close saves progress, stops both elements and closes every subscription.
func (e *Engine) Close() error {
	e.lock()
	defer e.unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.saveProgressLocked()
	e.cancel()
	e.fire(trStop)

	var errs []error
	e.deck.Each(func(el audio.Element) {
		if err := el.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	for _, sub := range e.subs {
		sub.close()
	}
	e.subs = nil
	return errors.Join(errs...)
}

// fire applies a transition and logs it.
func (e *Engine) fire(t trigger) bool {
	from, ok := e.machine.fire(t)
	if ok && from != e.machine.status {
		e.changed()
		e.logger.Debug("transition", "from", from, "trigger", t, "to", e.machine.status)
	}
	return ok
}

func (e *Engine) notify(msg string) {
	if e.notifier != nil {
		e.after(func() { e.notifier.Notify(msg) })
	}
}

func (e *Engine) publishPlaybackStateLocked() {
	if e.session != nil {
		playing := e.isPlayingLocked()
		e.after(func() { e.session.SetPlaybackState(playing) })
	}
}
