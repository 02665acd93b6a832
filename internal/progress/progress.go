// Package progress persists the (song, position) snapshot used to resume playback.
package progress

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// StorageKey is the storage key of the snapshot.
const StorageKey = "encore.playback-progress"

const (
	// MinPosition is the earliest position worth saving, in seconds.
	MinPosition = 5.0
	// MaxFraction is the latest position worth saving, as a fraction of duration.
	MaxFraction = 0.95
	// MaxAge is how long a snapshot stays resumable.
	MaxAge = 7 * 24 * time.Hour
)

// Storage is the durable key/value store snapshots live in.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Keeper saves and restores the playback snapshot. Storage failures are logged
// and swallowed: a broken store means no persistence, never a broken player.
type Keeper struct {
	store  Storage
	logger *log.Logger
	now    func() time.Time
}

// NewKeeper creates a Keeper. store may be nil, which disables persistence.
func NewKeeper(store Storage, logger *log.Logger) *Keeper {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Keeper{store: store, logger: shared.WithLogger(logger, "component", "progress"), now: time.Now}
}

// ShouldSave reports whether position is far enough from both ends of the song.
func ShouldSave(position, duration float64) bool {
	return position >= MinPosition && position <= duration*MaxFraction
}

// Save writes a snapshot for song at position. It reports whether anything was written.
func (k *Keeper) Save(song models.Song, position, duration float64) bool {
	if k.store == nil || song.ID == "" {
		return false
	}
	if duration <= 0 {
		duration = song.Duration
	}
	if !ShouldSave(position, duration) {
		return false
	}

	snap := models.PlaybackSnapshot{
		SongID:     song.ID,
		Position:   position,
		Duration:   duration,
		Timestamp:  k.now(),
		Title:      song.DisplayTitle(),
		ArtistName: song.ArtistName,
		AlbumName:  song.AlbumName,
		StreamURL:  song.StreamURL,
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		k.logger.Warn("failed to encode playback snapshot", "error", err)
		return false
	}
	if err := k.store.Set(StorageKey, string(raw)); err != nil {
		k.logger.Warn("failed to save playback progress", "song", song.ID, "error", err)
		return false
	}
	return true
}

// SaveURL is Save with an explicit stream URL recorded in the snapshot, used when
// the song is playing from a quality-specific URL.
func (k *Keeper) SaveURL(song models.Song, streamURL string, position, duration float64) bool {
	if streamURL != "" {
		song.StreamURL = streamURL
	}
	return k.Save(song, position, duration)
}

// Load returns the stored snapshot, or nil when there is none, it cannot be
// read, or it expired. Expired snapshots are deleted.
func (k *Keeper) Load() *models.PlaybackSnapshot {
	if k.store == nil {
		return nil
	}

	raw, err := k.store.Get(StorageKey)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			k.logger.Warn("failed to read playback progress", "error", err)
		}
		return nil
	}

	var snap models.PlaybackSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil || snap.SongID == "" {
		k.logger.Warn("discarding unreadable playback snapshot", "error", err)
		k.Clear()
		return nil
	}

	if snap.Age(k.now()) > MaxAge {
		k.logger.Debug("discarding expired playback snapshot", "song", snap.SongID, "age", snap.Age(k.now()))
		k.Clear()
		return nil
	}
	return &snap
}

// Expire deletes the snapshot if it is older than [MaxAge]. Run at session start.
func (k *Keeper) Expire() {
	k.Load()
}

// Clear deletes the snapshot.
func (k *Keeper) Clear() {
	if k.store == nil {
		return
	}
	if err := k.store.Delete(StorageKey); err != nil {
		k.logger.Warn("failed to clear playback progress", "error", err)
	}
}

// ClearFor deletes the snapshot only if it belongs to songID.
func (k *Keeper) ClearFor(songID string) {
	if snap := k.Load(); snap != nil && snap.SongID == songID {
		k.Clear()
	}
}

// StubSong rebuilds the minimal playable song a snapshot describes.
func StubSong(snap models.PlaybackSnapshot) models.Song {
	return models.Song{
		ID:           snap.SongID,
		Title:        snap.Title,
		ArtistName:   snap.ArtistName,
		AlbumName:    snap.AlbumName,
		Duration:     snap.Duration,
		StreamURL:    snap.StreamURL,
		IsStreamable: true,
	}
}
