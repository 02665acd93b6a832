package formatter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	th "github.com/desertthunder/encore/internal/testing"
)

func testQueue() models.UnifiedQueue {
	album := th.NewAlbum("gd77", 2, 2)
	var items []models.QueueItem
	for i, track := range album.Tracks {
		items = append(items, models.QueueItem{
			QueueID:           "q" + string(rune('a'+i)),
			Song:              track.Songs[0],
			TrackTitle:        track.Title,
			AvailableVersions: track.Songs,
			AlbumSource:       &models.AlbumSource{AlbumIdentifier: "gd77", AlbumTitle: album.Title, TrackIndex: i},
		})
	}
	adhoc := th.NewSong("extra")
	adhoc.QualityURLs = map[models.Quality]string{models.QualityLow: "https://example.test/extra_64kb.mp3"}
	items = append(items, models.QueueItem{QueueID: "qz", Song: adhoc, TrackTitle: adhoc.Title, AvailableVersions: []models.Song{adhoc}})

	return models.UnifiedQueue{
		Items:       items,
		CursorIndex: 1,
		Repeat:      models.RepeatAll,
		Groups:      []models.AlbumGroup{{AlbumIdentifier: "gd77", AlbumTitle: album.Title, Start: 0, End: 2}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ext  string
	}{
		{"", FormatText, ".txt"},
		{"text", FormatText, ".txt"},
		{"MD", FormatMarkdown, ".md"},
		{"markdown", FormatMarkdown, ".md"},
		{" csv ", FormatCSV, ".csv"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("ParseFormat(%q) failed: %v", tt.in, err)
			}
			if got != tt.want || got.Extension() != tt.ext {
				t.Errorf("ParseFormat(%q) = %q (%s), want %q (%s)", tt.in, got, got.Extension(), tt.want, tt.ext)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestQueueRenderers(t *testing.T) {
	q := testQueue()

	t.Run("QueueToCSV", func(t *testing.T) {
		data, err := QueueToCSV(q)
		if err != nil {
			t.Fatalf("QueueToCSV failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
		}
		if lines[0] != "Position,Current,QueueID,Album,Track,SongID,Title,Artist,Duration,Versions,Quality" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if !strings.HasPrefix(lines[2], "2,*,qb,gd77,Track 1,gd77-t1v0,") {
			t.Errorf("expected cursor row for second item, got %q", lines[2])
		}
		if !strings.HasSuffix(lines[2], ",300,2,high/medium/low") {
			t.Errorf("expected duration, versions and tiers, got %q", lines[2])
		}
		if !strings.HasSuffix(lines[3], ",1,low") || !strings.Contains(lines[3], "3,,qz,,") {
			t.Errorf("expected ad hoc row without album, got %q", lines[3])
		}
	})

	t.Run("QueueToMarkdown", func(t *testing.T) {
		data, err := QueueToMarkdown(q)
		if err != nil {
			t.Fatalf("QueueToMarkdown failed: %v", err)
		}
		out := string(data)

		for _, want := range []string{
			"# Queue",
			"**Items**: 3",
			"**Repeat**: all",
			"## Show gd77",
			"2. Grateful Dead - Song gd77-t1v0 [5:00] _(2 versions)_ ▶",
			"## Queued songs",
			"3. Grateful Dead - Song extra [5:00]",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, out)
			}
		}
		if strings.Index(out, "## Show gd77") > strings.Index(out, "## Queued songs") {
			t.Error("expected album group before trailing ad hoc items")
		}
	})

	t.Run("QueueToText", func(t *testing.T) {
		data, err := QueueToText(q)
		if err != nil {
			t.Fatalf("QueueToText failed: %v", err)
		}
		out := string(data)
		if !strings.Contains(out, "Queue: 3 items (shuffle off, repeat all)") {
			t.Errorf("Text missing summary, got:\n%s", out)
		}
		if !strings.Contains(out, "> 2. Grateful Dead - Song gd77-t1v0 (5:00)") {
			t.Errorf("Text missing cursor marker, got:\n%s", out)
		}
	})

	t.Run("empty queue", func(t *testing.T) {
		for _, f := range []Format{FormatText, FormatMarkdown, FormatCSV} {
			if _, err := RenderQueue(models.UnifiedQueue{Repeat: models.RepeatOff}, f); err != nil {
				t.Errorf("RenderQueue(%s) failed: %v", f, err)
			}
		}
	})
}

func TestAlbumRenderers(t *testing.T) {
	album := th.NewAlbum("gd77", 2, 2)
	album.Date = "1977-05-08"
	album.Venue = "Barton Hall"
	album.Tracks[0].Songs[1].Source = "SBD"

	t.Run("AlbumToCSV", func(t *testing.T) {
		data, err := AlbumToCSV(album)
		if err != nil {
			t.Fatalf("AlbumToCSV failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 5 {
			t.Fatalf("expected header and one row per version, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[2], "1,Track 0,2,gd77-t0v1,") {
			t.Errorf("unexpected second version row %q", lines[2])
		}
	})

	t.Run("AlbumToMarkdown", func(t *testing.T) {
		data, err := AlbumToMarkdown(album, "cover.jpg")
		if err != nil {
			t.Fatalf("AlbumToMarkdown failed: %v", err)
		}
		out := string(data)
		for _, want := range []string{"# Show gd77", "![Cover](cover.jpg)", "**Venue**: Barton Hall", "1. Track 0 [5:00]", "   - gd77-t0v1 (SBD)"} {
			if !strings.Contains(out, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("AlbumToText", func(t *testing.T) {
		data, err := AlbumToText(album)
		if err != nil {
			t.Fatalf("AlbumToText failed: %v", err)
		}
		out := string(data)
		if !strings.Contains(out, "Where: 1977-05-08, Barton Hall") || !strings.Contains(out, "2. Track 1 (2 versions)") {
			t.Errorf("unexpected text:\n%s", out)
		}

		album.Venue = ""
		data, _ = AlbumToText(album)
		if !strings.Contains(string(data), "Where: 1977-05-08\n") {
			t.Errorf("expected date only, got:\n%s", data)
		}
	})
}

func TestHistoryRenderers(t *testing.T) {
	records := []models.PlayRecord{
		{ID: 2, SongID: "gd77-t0v0", Title: "Scarlet Begonias", Artist: "Grateful Dead", Event: "song_played", Detail: "31s", CreatedAt: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)},
		{ID: 1, SongID: "gd77-t0v0", Title: "Scarlet Begonias", Artist: "Grateful Dead", Event: "song_play", CreatedAt: time.Date(2026, 3, 1, 19, 59, 0, 0, time.UTC)},
	}

	t.Run("HistoryToCSV", func(t *testing.T) {
		data, err := HistoryToCSV(records)
		if err != nil {
			t.Fatalf("HistoryToCSV failed: %v", err)
		}
		if !strings.Contains(string(data), "2,2026-03-01T20:00:00Z,song_played,gd77-t0v0,Scarlet Begonias,Grateful Dead,,31s") {
			t.Errorf("unexpected CSV:\n%s", data)
		}
	})

	t.Run("HistoryToText", func(t *testing.T) {
		data, err := HistoryToText(records)
		if err != nil {
			t.Fatalf("HistoryToText failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 2 || !strings.HasSuffix(lines[0], "Grateful Dead - Scarlet Begonias (31s)") {
			t.Errorf("unexpected text:\n%s", data)
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(""); err == nil {
			t.Error("DownloadImage with empty URL should return error")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		if _, err := DownloadImage(srv.URL); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriters(t *testing.T) {
	album := th.NewAlbum("gd77", 2, 1)

	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			result, err := WriteCSVExport(album, "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.TracksFile != "gd77_tracks.csv" || result.MetadataFile != "gd77_metadata.json" {
				t.Errorf("unexpected files %+v", result)
			}

			th.AssertFileExists(t, result.TracksFile)
			metadata := th.MustReadFile(t, result.MetadataFile)
			if !strings.Contains(metadata, `"identifier": "gd77"`) || strings.Contains(metadata, "tracks\"") {
				t.Errorf("unexpected metadata JSON:\n%s", metadata)
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "custom_export")
			result, err := WriteCSVExport(album, base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.TracksFile != base+"_tracks.csv" {
				t.Errorf("expected %s_tracks.csv, got %s", base, result.TracksFile)
			}
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithCover", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "image/jpeg")
				w.Write([]byte{0xff, 0xd8, 0xff})
			}))
			defer srv.Close()

			withCover := album
			withCover.CoverArt = srv.URL
			dir := filepath.Join(t.TempDir(), "show")

			result, err := WriteMarkdownExport(withCover, dir)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if len(result.Files) != 2 || result.CoverImage != filepath.Join(dir, "cover.jpg") {
				t.Errorf("unexpected result %+v", result)
			}
			readme := th.MustReadFile(t, filepath.Join(dir, "README.md"))
			if !strings.Contains(readme, "![Cover](cover.jpg)") {
				t.Errorf("README missing cover:\n%s", readme)
			}
		})

		t.Run("WithoutCover", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "show")
			result, err := WriteMarkdownExport(album, dir)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if len(result.Files) != 1 || result.CoverImage != "" {
				t.Errorf("unexpected result %+v", result)
			}
		})
	})

	t.Run("WriteQueueExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "q.md")
		got, err := WriteQueueExport(testQueue(), FormatMarkdown, path)
		if err != nil {
			t.Fatalf("WriteQueueExport failed: %v", err)
		}
		if got != path || !strings.HasPrefix(th.MustReadFile(t, path), "# Queue") {
			t.Errorf("unexpected export at %s", got)
		}
	})
}
