// package models defines the data model for the playback core
package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Quality is a stream quality tier.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Qualities lists tiers from best to worst; the resolver walks it for fallbacks.
var Qualities = []Quality{QualityHigh, QualityMedium, QualityLow}

// ParseQuality parses a tier name. The second result is false for unknown names.
func ParseQuality(s string) (Quality, bool) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Qualities, q) {
		return q, true
	}
	return "", false
}

// RepeatMode controls what happens past the last queue item.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// ParseRepeatMode parses a repeat mode name. The second result is false for unknown names.
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch m := RepeatMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RepeatOff, RepeatAll, RepeatOne:
		return m, true
	}
	return "", false
}

// Next cycles off → all → one → off.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// Song is one concrete recording of a track at a show.
type Song struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	TrackTitle        string             `json:"trackTitle,omitempty"`
	ArtistName        string             `json:"artistName"`
	AlbumName         string             `json:"albumName,omitempty"`
	AlbumIdentifier   string             `json:"albumIdentifier,omitempty"`
	Venue             string             `json:"venue,omitempty"`
	Date              string             `json:"date,omitempty"`
	Duration          float64            `json:"duration"` // seconds
	StreamURL         string             `json:"streamUrl,omitempty"`
	QualityURLs       map[Quality]string `json:"qualityUrls,omitempty"`
	Taper             string             `json:"taper,omitempty"`
	Source            string             `json:"source,omitempty"`
	Lineage           string             `json:"lineage,omitempty"`
	IsStreamable      bool               `json:"isStreamable"`
	RestrictionReason string             `json:"restrictionReason,omitempty"`
	AvgRating         float64            `json:"avgRating,omitempty"`
	NumReviews        int                `json:"numReviews,omitempty"`
}

// DisplayTitle returns the title a listener sees, falling back to the track title.
func (s Song) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.TrackTitle
}

// Label renders "Title - Artist" for notifications and announcements.
func (s Song) Label() string {
	if s.ArtistName == "" {
		return s.DisplayTitle()
	}
	return s.DisplayTitle() + " - " + s.ArtistName
}

// Track is a logical song title within one album with 1..N recorded versions.
type Track struct {
	Title     string `json:"title"`
	Songs     []Song `json:"songs"`
	SongCount int    `json:"songCount"`
}

// NewTrack builds a Track keeping SongCount consistent with Songs.
func NewTrack(title string, songs ...Song) Track {
	return Track{Title: title, Songs: songs, SongCount: len(songs)}
}

// Validate checks the SongCount invariant.
func (t Track) Validate() error {
	if t.SongCount != len(t.Songs) {
		return fmt.Errorf("track %q: song count %d does not match %d songs", t.Title, t.SongCount, len(t.Songs))
	}
	return nil
}

// Album is a show: an ordered list of tracks plus show-level metadata.
type Album struct {
	Identifier  string  `json:"identifier"`
	Title       string  `json:"title"`
	ArtistName  string  `json:"artistName"`
	Venue       string  `json:"venue,omitempty"`
	Date        string  `json:"date,omitempty"`
	CoverArt    string  `json:"coverArt,omitempty"`
	Tracks      []Track `json:"tracks"`
	TotalTracks int     `json:"totalTracks"`
}

// Validate checks the TotalTracks invariant and every track.
func (a Album) Validate() error {
	if a.TotalTracks != len(a.Tracks) {
		return fmt.Errorf("album %q: total tracks %d does not match %d tracks", a.Identifier, a.TotalTracks, len(a.Tracks))
	}
	for _, t := range a.Tracks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("album %q: %w", a.Identifier, err)
		}
	}
	return nil
}

// AlbumSource records which album and track index a queue item belongs to.
type AlbumSource struct {
	AlbumIdentifier string `json:"albumIdentifier"`
	AlbumTitle      string `json:"albumTitle"`
	TrackIndex      int    `json:"trackIndex"`
}

// QueueItem wraps the selected Song with its sibling versions.
//
// QueueID is distinct from Song.ID because the same song can be queued twice.
type QueueItem struct {
	QueueID           string       `json:"queueId"`
	Song              Song         `json:"song"`
	TrackTitle        string       `json:"trackTitle"`
	AvailableVersions []Song       `json:"availableVersions"`
	AlbumSource       *AlbumSource `json:"albumSource,omitempty"`
	Played            bool         `json:"played"`
}

// HasVersion reports whether a song with songID is one of the item's versions.
func (q QueueItem) HasVersion(songID string) bool {
	return slices.ContainsFunc(q.AvailableVersions, func(s Song) bool { return s.ID == songID })
}

// IsAdHoc reports whether the item was queued outside album context.
func (q QueueItem) IsAdHoc() bool {
	return q.AlbumSource == nil
}

// AlbumGroup is a contiguous run [Start, End) of queue items sharing one album identifier.
// Groups are for display only and never affect playback order.
type AlbumGroup struct {
	AlbumIdentifier string `json:"albumIdentifier"`
	AlbumTitle      string `json:"albumTitle"`
	Start           int    `json:"start"`
	End             int    `json:"end"`
}

// Len returns the number of items in the group.
func (g AlbumGroup) Len() int { return g.End - g.Start }

// UnifiedQueue is a copy of the queue store's state.
type UnifiedQueue struct {
	Items       []QueueItem  `json:"items"`
	CursorIndex int          `json:"cursorIndex"`
	Shuffle     bool         `json:"shuffle"`
	Repeat      RepeatMode   `json:"repeat"`
	Groups      []AlbumGroup `json:"groups"`
}

// PlaybackSnapshot is the persisted (song, position) pair used to resume after a reload.
type PlaybackSnapshot struct {
	SongID     string    `json:"songId"`
	Position   float64   `json:"position"`
	Duration   float64   `json:"duration"`
	Timestamp  time.Time `json:"timestamp"`
	Title      string    `json:"title"`
	ArtistName string    `json:"artistName"`
	AlbumName  string    `json:"albumName"`
	StreamURL  string    `json:"streamUrl"`
}

// Age returns how long ago the snapshot was taken.
func (s PlaybackSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// PlayRecord is one row of listening history.
type PlayRecord struct {
	ID        int64     `json:"id"`
	SongID    string    `json:"songId"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
}
