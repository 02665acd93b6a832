package testing

import (
	"fmt"

	"github.com/desertthunder/encore/internal/models"
)

// NewSong builds a streamable song with all three tier URLs and a 300s duration.
func NewSong(id string) models.Song {
	return models.Song{
		ID:           id,
		Title:        "Song " + id,
		ArtistName:   "Grateful Dead",
		AlbumName:    "Cornell 1977",
		Duration:     300,
		StreamURL:    "https://example.test/" + id + ".mp3",
		IsStreamable: true,
		QualityURLs: map[models.Quality]string{
			models.QualityHigh:   "https://example.test/" + id + ".flac",
			models.QualityMedium: "https://example.test/" + id + "_vbr.mp3",
			models.QualityLow:    "https://example.test/" + id + "_64kb.mp3",
		},
	}
}

// NewAlbum builds an album of n tracks with the given number of versions each.
// Song ids are "<identifier>-t<track>v<version>".
func NewAlbum(identifier string, n, versions int) models.Album {
	album := models.Album{Identifier: identifier, Title: "Show " + identifier, ArtistName: "Grateful Dead"}
	for i := range n {
		var songs []models.Song
		for v := range versions {
			s := NewSong(fmt.Sprintf("%s-t%dv%d", identifier, i, v))
			s.TrackTitle = fmt.Sprintf("Track %d", i)
			s.AlbumIdentifier = identifier
			s.AlbumName = album.Title
			songs = append(songs, s)
		}
		album.Tracks = append(album.Tracks, models.NewTrack(fmt.Sprintf("Track %d", i), songs...))
	}
	album.TotalTracks = len(album.Tracks)
	return album
}
