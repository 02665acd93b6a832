// Package session builds the playback core for one listening session and
// scopes it to a context.
//
// A [Session] owns durable storage, the quality resolver, the queue store, the
// progress keeper and the playback engine. Views reach them through [Queue]
// and [Player], which panic outside a session scope.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/encore/internal/analytics"
	"github.com/desertthunder/encore/internal/audio"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/player"
	"github.com/desertthunder/encore/internal/progress"
	"github.com/desertthunder/encore/internal/quality"
	"github.com/desertthunder/encore/internal/queue"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/shared"
)

// Options configures [New]. Config is required; everything else has a default.
type Options struct {
	Config *shared.Config
	// DB is used instead of opening Config.Database. The caller keeps ownership.
	DB *sql.DB
	// Elements replace the audio elements built from the host's audio stack.
	Elements     []audio.Element
	Sink         analytics.Sink
	Notifier     player.Notifier
	Announcer    player.Announcer
	MediaSession player.MediaSession
	Platform     player.Platform
	Analyzer     player.Analyzer
	Logger       *log.Logger
}

// Session is the lifetime scope of the playback core.
type Session struct {
	Config   *shared.Config
	Storage  *repositories.LocalStorage
	History  *repositories.HistoryRepository
	Resolver *quality.Resolver
	Queue    *queue.Store
	Progress *progress.Keeper
	Player   *player.Engine

	db     *sql.DB
	ownsDB bool
	beacon *analytics.BeaconSink
	logger *log.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New builds a session. Expired progress snapshots are discarded before
// anything can read them.
func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: session requires a config", shared.ErrInvalidConfig)
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Session{Config: cfg, logger: shared.WithLogger(logger, "component", "session")}

	s.db = opts.DB
	if s.db == nil {
		db, err := shared.OpenStorage(cfg.Database)
		if err != nil {
			return nil, err
		}
		s.db = db
		s.ownsDB = true
	}

	s.Storage = repositories.NewLocalStorage(s.db)
	s.History = repositories.NewHistoryRepository(s.db)

	network := quality.NetworkInfo{SaveData: cfg.Network.SaveData, EffectiveType: cfg.Network.EffectiveType}
	s.Resolver = quality.NewResolver(s.Storage, network, logger)
	if q, ok := models.ParseQuality(cfg.Playback.Quality); ok {
		if _, err := s.Storage.Get(quality.PreferenceKey); errors.Is(err, shared.ErrNotFound) {
			s.Resolver.SetPreferred(q)
		}
	}

	s.Queue = queue.New(queue.WithLogger(logger))
	s.Progress = progress.NewKeeper(s.Storage, logger)
	s.Progress.Expire()

	sinks := analytics.Multi{analytics.NewLogSink(logger), analytics.NewHistorySink(s.History, logger)}
	if cfg.Analytics.Endpoint != "" {
		s.beacon = analytics.NewBeaconSink(cfg.Analytics.Endpoint, analytics.BeaconOpts{
			EventsPerSecond: cfg.Analytics.EventsPerSecond,
			Buffer:          cfg.Analytics.Buffer,
			Logger:          logger,
		})
		sinks = append(sinks, s.beacon)
	}
	if opts.Sink != nil {
		sinks = append(sinks, opts.Sink)
	}

	elements := [2]audio.Element{}
	for i := range elements {
		if i < len(opts.Elements) && opts.Elements[i] != nil {
			elements[i] = opts.Elements[i]
			continue
		}
		elements[i] = audio.New(audio.Options{Logger: logger})
	}

	s.Player = player.New(player.ConfigFrom(cfg.Playback), player.Deps{
		Queue:        s.Queue,
		Elements:     elements,
		Resolver:     s.Resolver,
		Progress:     s.Progress,
		Prefs:        s.Storage,
		Sink:         sinks,
		Notifier:     opts.Notifier,
		Announcer:    opts.Announcer,
		MediaSession: opts.MediaSession,
		Platform:     opts.Platform,
		Analyzer:     opts.Analyzer,
		Logger:       logger,
	})
	return s, nil
}

// Start runs the engine's tick loop until ctx is done or the session closes.
func (s *Session) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Player.Run(ctx)
	}()
}

// Close stops the engine (saving progress), flushes analytics and closes storage it opened.
func (s *Session) Close() error {
	var errs []error
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()

		if err := s.Player.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close player: %w", err))
		}
		s.Queue.Close()

		if s.beacon != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := s.beacon.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to flush analytics: %w", err))
			}
			cancel()
		}
		if s.ownsDB {
			if err := s.db.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
			}
		}
		s.logger.Debug("session closed")
	})
	return errors.Join(errs...)
}

type ctxKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// MustFromContext returns the session in ctx and panics with [shared.ErrNoSession] without one.
func MustFromContext(ctx context.Context, caller string) *Session {
	s, ok := FromContext(ctx)
	if !ok {
		panic(fmt.Errorf("%w: %s called outside a session scope", shared.ErrNoSession, caller))
	}
	return s
}

// Queue returns the session's queue store. It panics outside a session scope.
func Queue(ctx context.Context) *queue.Store {
	return MustFromContext(ctx, "session.Queue").Queue
}

// Player returns the session's playback engine. It panics outside a session scope.
func Player(ctx context.Context) *player.Engine {
	return MustFromContext(ctx, "session.Player").Player
}
