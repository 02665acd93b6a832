// Package analytics provides fire-and-forget sinks for playback events.
//
// Every sink method returns immediately; delivery failures are logged, never
// surfaced to the caller, so analytics can never block or break playback.
package analytics

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// Event names emitted by the playback engine.
const (
	EventSongPlay      = "song_play"
	EventSongComplete  = "song_complete"
	EventSongPlayed    = "song_played"
	EventPlaybackError = "playback_error"
)

// Sink receives playback analytics.
type Sink interface {
	TrackSongPlay(song models.Song)
	TrackSongComplete(song models.Song)
	TrackSongPlayed(song models.Song, seconds float64)
	TrackPlaybackError(song models.Song, cause string, code int)
	TrackEvent(name string, props map[string]any)
}

// Event is the flattened form every sink method produces.
type Event struct {
	Name    string         `json:"event"`
	SongID  string         `json:"songId,omitempty"`
	Title   string         `json:"title,omitempty"`
	Artist  string         `json:"artist,omitempty"`
	Album   string         `json:"album,omitempty"`
	Seconds float64        `json:"seconds,omitempty"`
	Cause   string         `json:"cause,omitempty"`
	Code    int            `json:"code,omitempty"`
	Props   map[string]any `json:"props,omitempty"`
	At      time.Time      `json:"at"`
}

func songEvent(name string, song models.Song) Event {
	return Event{
		Name:   name,
		SongID: song.ID,
		Title:  song.DisplayTitle(),
		Artist: song.ArtistName,
		Album:  song.AlbumName,
		At:     time.Now(),
	}
}

// FuncSink adapts a function receiving flattened events to [Sink].
type FuncSink func(Event)

func (f FuncSink) TrackSongPlay(song models.Song) { f(songEvent(EventSongPlay, song)) }

func (f FuncSink) TrackSongComplete(song models.Song) { f(songEvent(EventSongComplete, song)) }

func (f FuncSink) TrackSongPlayed(song models.Song, seconds float64) {
	ev := songEvent(EventSongPlayed, song)
	ev.Seconds = seconds
	f(ev)
}

func (f FuncSink) TrackPlaybackError(song models.Song, cause string, code int) {
	ev := songEvent(EventPlaybackError, song)
	ev.Cause = cause
	ev.Code = code
	f(ev)
}

func (f FuncSink) TrackEvent(name string, props map[string]any) {
	f(Event{Name: name, Props: props, At: time.Now()})
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) TrackSongPlay(models.Song)                   {}
func (NopSink) TrackSongComplete(models.Song)               {}
func (NopSink) TrackSongPlayed(models.Song, float64)        {}
func (NopSink) TrackPlaybackError(models.Song, string, int) {}
func (NopSink) TrackEvent(string, map[string]any)           {}

// NewLogSink writes each event as a structured debug line, errors at warn.
func NewLogSink(logger *log.Logger) Sink {
	l := shared.WithLogger(logger, "component", "analytics")
	return FuncSink(func(ev Event) {
		kv := []any{"event", ev.Name}
		if ev.SongID != "" {
			kv = append(kv, "song", ev.SongID, "title", ev.Title)
		}
		if ev.Seconds > 0 {
			kv = append(kv, "seconds", ev.Seconds)
		}
		for k, v := range ev.Props {
			kv = append(kv, k, v)
		}

		if ev.Name == EventPlaybackError {
			l.Warn("analytics", append(kv, "cause", ev.Cause, "code", ev.Code)...)
			return
		}
		l.Debug("analytics", kv...)
	})
}

// Multi fans every call out to each sink in order.
type Multi []Sink

func (m Multi) TrackSongPlay(song models.Song) {
	for _, s := range m {
		s.TrackSongPlay(song)
	}
}

func (m Multi) TrackSongComplete(song models.Song) {
	for _, s := range m {
		s.TrackSongComplete(song)
	}
}

func (m Multi) TrackSongPlayed(song models.Song, seconds float64) {
	for _, s := range m {
		s.TrackSongPlayed(song, seconds)
	}
}

func (m Multi) TrackPlaybackError(song models.Song, cause string, code int) {
	for _, s := range m {
		s.TrackPlaybackError(song, cause, code)
	}
}

func (m Multi) TrackEvent(name string, props map[string]any) {
	for _, s := range m {
		s.TrackEvent(name, props)
	}
}
