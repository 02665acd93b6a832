package catalog

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// LoadFile reads an album from a JSON catalog file.
func LoadFile(path string) (*models.Album, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var album models.Album
	if err := json.Unmarshal(data, &album); err != nil {
		return nil, fmt.Errorf("%w: failed to parse catalog file %s: %v", shared.ErrCatalog, path, err)
	}
	if album.TotalTracks == 0 && len(album.Tracks) > 0 {
		album.TotalTracks = len(album.Tracks)
	}
	for i, t := range album.Tracks {
		if t.SongCount == 0 {
			album.Tracks[i].SongCount = len(t.Songs)
		}
	}
	if err := album.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalog, err)
	}
	return &album, nil
}

// SaveFile writes album as indented JSON.
func SaveFile(path string, album models.Album) error {
	data, err := json.MarshalIndent(album, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode album: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}
