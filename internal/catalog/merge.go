package catalog

import (
	"github.com/samber/lo"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// Merge folds several recordings of one show into a single album. Tracks are
// matched by normalised title and keep the first album's order; tracks only a
// later recording has are appended. Repeated titles pair up in order.
func Merge(albums ...models.Album) models.Album {
	if len(albums) == 0 {
		return models.Album{}
	}

	out := albums[0]
	out.Tracks = lo.Map(albums[0].Tracks, func(t models.Track, _ int) models.Track {
		return models.NewTrack(t.Title, append([]models.Song(nil), t.Songs...)...)
	})

	slots := make(map[string][]int)
	for i, t := range out.Tracks {
		k := shared.NormalizeTitle(t.Title)
		slots[k] = append(slots[k], i)
	}

	for _, album := range albums[1:] {
		used := make(map[string]int)
		for _, t := range album.Tracks {
			k := shared.NormalizeTitle(t.Title)
			if n := used[k]; n < len(slots[k]) {
				idx := slots[k][n]
				used[k] = n + 1
				out.Tracks[idx] = models.NewTrack(out.Tracks[idx].Title, append(out.Tracks[idx].Songs, t.Songs...)...)
				continue
			}
			out.Tracks = append(out.Tracks, models.NewTrack(t.Title, t.Songs...))
			slots[k] = append(slots[k], len(out.Tracks)-1)
			used[k]++
		}
	}

	out.TotalTracks = len(out.Tracks)
	return out
}
