package queue

import (
	"github.com/samber/lo"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// BestVersion picks the default recording: the highest rated, preferring streamable
// recordings, ties resolved to the first. It reports false for an empty slice.
func BestVersion(songs []models.Song) (models.Song, int, bool) {
	if len(songs) == 0 {
		return models.Song{}, -1, false
	}

	candidates := lo.Filter(songs, func(s models.Song, _ int) bool { return s.IsStreamable })
	if len(candidates) == 0 {
		candidates = songs
	}

	best := lo.MaxBy(candidates, func(a, b models.Song) bool { return a.AvgRating > b.AvgRating })
	_, idx, _ := lo.FindIndexOf(songs, func(s models.Song) bool { return s.ID == best.ID })
	return best, idx, true
}

// AlbumToItems maps each track of album to one queue item, in track order.
// Tracks without recordings are skipped; AlbumSource.TrackIndex keeps the original index.
func AlbumToItems(album models.Album) []models.QueueItem {
	items := make([]models.QueueItem, 0, len(album.Tracks))
	for i, track := range album.Tracks {
		song, _, ok := BestVersion(track.Songs)
		if !ok {
			continue
		}
		items = append(items, models.QueueItem{
			QueueID:           shared.GenerateID(),
			Song:              song,
			TrackTitle:        track.Title,
			AvailableVersions: track.Songs,
			AlbumSource: &models.AlbumSource{
				AlbumIdentifier: album.Identifier,
				AlbumTitle:      album.Title,
				TrackIndex:      i,
			},
		})
	}
	return items
}

// TrackToItem wraps a single recording as an ad-hoc item.
func TrackToItem(song models.Song) models.QueueItem {
	title := song.TrackTitle
	if title == "" {
		title = song.Title
	}
	return models.QueueItem{
		QueueID:           shared.GenerateID(),
		Song:              song,
		TrackTitle:        title,
		AvailableVersions: []models.Song{song},
	}
}

// TrackVersionsToItem builds an ad-hoc item for track with the recording at songIndex
// selected. An out-of-range songIndex selects the best version.
func TrackVersionsToItem(track models.Track, songIndex int) (models.QueueItem, bool) {
	if len(track.Songs) == 0 {
		return models.QueueItem{}, false
	}

	var song models.Song
	if songIndex >= 0 && songIndex < len(track.Songs) {
		song = track.Songs[songIndex]
	} else {
		song, _, _ = BestVersion(track.Songs)
	}

	return models.QueueItem{
		QueueID:           shared.GenerateID(),
		Song:              song,
		TrackTitle:        track.Title,
		AvailableVersions: track.Songs,
	}, true
}

// Groups computes contiguous runs of album-sourced items sharing an identifier.
// Ad-hoc items belong to no group.
func Groups(items []models.QueueItem) []models.AlbumGroup {
	var groups []models.AlbumGroup
	for i, item := range items {
		if item.AlbumSource == nil {
			continue
		}
		if n := len(groups); n > 0 && groups[n-1].End == i && groups[n-1].AlbumIdentifier == item.AlbumSource.AlbumIdentifier {
			groups[n-1].End = i + 1
			continue
		}
		groups = append(groups, models.AlbumGroup{
			AlbumIdentifier: item.AlbumSource.AlbumIdentifier,
			AlbumTitle:      item.AlbumSource.AlbumTitle,
			Start:           i,
			End:             i + 1,
		})
	}
	return groups
}

func cloneItems(items []models.QueueItem) []models.QueueItem {
	out := make([]models.QueueItem, len(items))
	copy(out, items)
	return out
}
