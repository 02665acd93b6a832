// Package quality resolves which stream URL a song should play from.
//
// The preferred tier is persisted in client storage and defaults from network
// conditions. Resolution never touches the network: it is a pure function of a
// [models.Song] and the preference.
package quality

import (
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// PreferenceKey is the storage key of the preferred tier.
const PreferenceKey = "encore.quality"

// Preferences is the durable storage the resolver persists its tier into.
type Preferences interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// NetworkInfo mirrors the connection hints a host platform exposes.
type NetworkInfo struct {
	SaveData      bool
	EffectiveType string
}

// DefaultQuality picks a tier from network hints.
func DefaultQuality(n NetworkInfo) models.Quality {
	if n.SaveData {
		return models.QualityLow
	}
	switch strings.ToLower(n.EffectiveType) {
	case "2g", "slow-2g":
		return models.QualityLow
	case "3g":
		return models.QualityMedium
	default:
		return models.QualityHigh
	}
}

// Resolve returns the URL for tier q, falling back high → medium → low → StreamURL.
func Resolve(song models.Song, q models.Quality) string {
	if u := song.QualityURLs[q]; u != "" {
		return u
	}
	for _, tier := range models.Qualities {
		if u := song.QualityURLs[tier]; u != "" {
			return u
		}
	}
	return song.StreamURL
}

// TierOf reports which tier currentURL belongs to.
func TierOf(song models.Song, currentURL string) (models.Quality, bool) {
	if currentURL == "" {
		return "", false
	}
	for _, tier := range models.Qualities {
		if song.QualityURLs[tier] == currentURL {
			return tier, true
		}
	}
	return "", false
}

// Lower returns the next available URL below the tier matching currentURL.
// It reports false when currentURL is already the lowest available or matches no tier.
func Lower(song models.Song, currentURL string) (string, bool) {
	tier, ok := TierOf(song, currentURL)
	if !ok {
		return "", false
	}

	below := false
	for _, t := range models.Qualities {
		if below {
			if u := song.QualityURLs[t]; u != "" {
				return u, true
			}
			continue
		}
		below = t == tier
	}
	return "", false
}

// Resolver resolves stream URLs against the persisted preference.
type Resolver struct {
	mu      sync.RWMutex
	prefs   Preferences
	network NetworkInfo
	logger  *log.Logger
}

// NewResolver creates a Resolver. prefs may be nil, in which case nothing is persisted.
func NewResolver(prefs Preferences, network NetworkInfo, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{prefs: prefs, network: network, logger: shared.WithLogger(logger, "component", "quality")}
}

// SetNetwork replaces the network hints used for the default tier.
func (r *Resolver) SetNetwork(n NetworkInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.network = n
}

// Preferred returns the persisted tier, or the network default when none is stored or storage fails.
func (r *Resolver) Preferred() models.Quality {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fallback := DefaultQuality(r.network)
	if r.prefs == nil {
		return fallback
	}

	raw, err := r.prefs.Get(PreferenceKey)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			r.logger.Warn("failed to read quality preference", "error", err)
		}
		return fallback
	}

	q, ok := models.ParseQuality(raw)
	if !ok {
		r.logger.Warn("ignoring unknown quality preference", "value", raw)
		return fallback
	}
	return q
}

// SetPreferred persists q. Storage failures are logged and otherwise ignored.
func (r *Resolver) SetPreferred(q models.Quality) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.prefs == nil {
		return
	}
	if err := r.prefs.Set(PreferenceKey, string(q)); err != nil {
		r.logger.Warn("failed to persist quality preference", "quality", q, "error", err)
	}
}

// StreamURL resolves the URL for song at the preferred tier.
func (r *Resolver) StreamURL(song models.Song) string {
	return Resolve(song, r.Preferred())
}

// LowerQualityURL walks one tier down from currentURL.
func (r *Resolver) LowerQualityURL(song models.Song, currentURL string) (string, bool) {
	return Lower(song, currentURL)
}
