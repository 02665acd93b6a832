package player

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/encore/internal/analytics"
	"github.com/desertthunder/encore/internal/audio"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/queue"
	"github.com/desertthunder/encore/internal/shared"
)

// CrossfadeKey is the preference key of the crossfade duration.
const CrossfadeKey = "encore.crossfade"

// MaxCrossfade is the longest allowed crossfade, in seconds.
const MaxCrossfade = 12

// Platform reports host capabilities.
type Platform interface {
	// SupportsVolumeControl is false where programmatic volume has no effect.
	SupportsVolumeControl() bool
}

// Analyzer is an optional visualisation graph fed by the active element.
// Connect is awaited once before the first volume is applied.
type Analyzer interface {
	Connect(ctx context.Context) error
	SetGain(v float64)
}

// Notifier shows transient user-facing messages. Implementations must not block.
type Notifier interface {
	Notify(msg string)
}

// Announcer speaks status changes to assistive technology. Implementations must not block.
type Announcer interface {
	Announce(msg string)
}

// MediaSession mirrors the engine onto OS transport controls.
type MediaSession interface {
	SetMetadata(song models.Song)
	SetPlaybackState(playing bool)
}

// Resolver picks stream URLs by quality.
type Resolver interface {
	StreamURL(song models.Song) string
	LowerQualityURL(song models.Song, currentURL string) (string, bool)
}

// ProgressStore persists the resume snapshot.
type ProgressStore interface {
	SaveURL(song models.Song, streamURL string, position, duration float64) bool
	Load() *models.PlaybackSnapshot
	Clear()
	ClearFor(songID string)
}

// Preferences is durable key/value storage for the crossfade setting.
type Preferences interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Config holds the engine's tunables.
type Config struct {
	Volume            float64
	CrossfadeDuration int
	// PreloadWindow is the remaining time at which the next song starts loading.
	PreloadWindow time.Duration
	// RestartThreshold is how far into a song PlayPrev restarts it instead of going back.
	RestartThreshold time.Duration
	SaveInterval     time.Duration
	StallTimeout     time.Duration
	Tick             time.Duration
	// PlayedThreshold is the cumulative playback that counts as a play.
	PlayedThreshold time.Duration
	// CompleteFraction is the position, as a fraction of duration, that counts as completion.
	CompleteFraction float64
}

func DefaultConfig() Config {
	return Config{
		Volume:           1,
		PreloadWindow:    30 * time.Second,
		RestartThreshold: 3 * time.Second,
		SaveInterval:     30 * time.Second,
		StallTimeout:     8 * time.Second,
		Tick:             250 * time.Millisecond,
		PlayedThreshold:  30 * time.Second,
		CompleteFraction: 0.9,
	}
}

// ConfigFrom maps the [playback] section of the config file, keeping defaults for zero values.
func ConfigFrom(pc shared.PlaybackConfig) Config {
	cfg := DefaultConfig()
	cfg.Volume = audio.Clamp01(pc.Volume)
	cfg.CrossfadeDuration = clampCrossfade(pc.CrossfadeSeconds)
	if pc.PreloadSeconds > 0 {
		cfg.PreloadWindow = seconds(pc.PreloadSeconds)
	}
	if pc.RestartThresholdSeconds > 0 {
		cfg.RestartThreshold = seconds(pc.RestartThresholdSeconds)
	}
	if pc.SaveIntervalSeconds > 0 {
		cfg.SaveInterval = time.Duration(pc.SaveIntervalSeconds) * time.Second
	}
	if pc.StallTimeoutSeconds > 0 {
		cfg.StallTimeout = time.Duration(pc.StallTimeoutSeconds) * time.Second
	}
	if pc.TickMS > 0 {
		cfg.Tick = time.Duration(pc.TickMS) * time.Millisecond
	}
	return cfg
}

// Deps are the collaborators of an [Engine]. Queue and Elements are required;
// every other field may be nil.
type Deps struct {
	Queue        *queue.Store
	Elements     [2]audio.Element
	Resolver     Resolver
	Progress     ProgressStore
	Prefs        Preferences
	Sink         analytics.Sink
	Notifier     Notifier
	Announcer    Announcer
	MediaSession MediaSession
	Platform     Platform
	Analyzer     Analyzer
	Logger       *log.Logger
}

// plainResolver plays StreamURL as is and never degrades.
type plainResolver struct{}

func (plainResolver) StreamURL(song models.Song) string { return song.StreamURL }

func (plainResolver) LowerQualityURL(models.Song, string) (string, bool) { return "", false }

type anyPlatform struct{}

func (anyPlatform) SupportsVolumeControl() bool { return true }

// loadCrossfade reads the persisted crossfade, falling back to def on absence or garbage.
func loadCrossfade(prefs Preferences, def int, logger *log.Logger) int {
	if prefs == nil {
		return def
	}
	raw, err := prefs.Get(CrossfadeKey)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			logger.Warn("could not read crossfade preference", "error", err)
		}
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("ignoring malformed crossfade preference", "value", raw)
		return def
	}
	return clampCrossfade(n)
}

func clampCrossfade(n int) int {
	return max(0, min(n, MaxCrossfade))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
