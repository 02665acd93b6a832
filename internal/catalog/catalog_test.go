package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	th "github.com/desertthunder/encore/internal/testing"
)

const showID = "gd1977-05-08.sbd.hicks"

func fixture(t *testing.T) []byte {
	t.Helper()
	return []byte(th.MustReadFile(t, filepath.Join("testdata", "gd1977-05-08.json")))
}

// newTestClient serves the handler and retries without waiting.
func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(ClientOpts{BaseURL: srv.URL, MaxRetries: 3, Logger: shared.NewLogger(io.Discard)})
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	t.Cleanup(c.Stop)
	return c, srv
}

func TestParse(t *testing.T) {
	album, err := Parse(showID, fixture(t), "https://archive.org")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := album.Validate(); err != nil {
		t.Fatalf("invalid album: %v", err)
	}

	if album.Title != "Grateful Dead Live at Barton Hall on 1977-05-08" || album.ArtistName != "Grateful Dead" {
		t.Errorf("album = %+v", album)
	}
	if album.TotalTracks != 3 {
		t.Fatalf("tracks = %d, want 3", album.TotalTracks)
	}

	titles := []string{album.Tracks[0].Title, album.Tracks[1].Title, album.Tracks[2].Title}
	want := []string{"New Minglewood Blues", "Jack Straw", "Scarlet Begonias >"}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("track %d = %q, want %q", i, titles[i], want[i])
		}
	}

	t.Run("tiers", func(t *testing.T) {
		song := album.Tracks[1].Songs[0]
		base := "https://archive.org/download/" + showID + "/gd77-05-08d1t02"
		tests := map[models.Quality]string{
			models.QualityHigh:   base + ".flac",
			models.QualityMedium: base + ".mp3",
			models.QualityLow:    base + "_64kb.mp3",
		}
		for q, u := range tests {
			if got := song.QualityURLs[q]; got != u {
				t.Errorf("%s = %q, want %q", q, got, u)
			}
		}
		if song.StreamURL != base+".mp3" {
			t.Errorf("stream url = %q", song.StreamURL)
		}
		if song.Duration != 342 {
			t.Errorf("duration = %v", song.Duration)
		}
	})

	t.Run("show metadata", func(t *testing.T) {
		song := album.Tracks[0].Songs[0]
		if song.ID != showID+"/gd77-05-08d1t01" {
			t.Errorf("id = %q", song.ID)
		}
		if song.Source != "SBD > Reel > DAT" || song.Taper != "Betty Cantor-Jackson" {
			t.Errorf("source %q taper %q", song.Source, song.Taper)
		}
		if song.AvgRating != 4.5 || song.NumReviews != 2 {
			t.Errorf("rating %v reviews %d", song.AvgRating, song.NumReviews)
		}
		if !song.IsStreamable {
			t.Error("expected streamable")
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			want error
		}{
			{"invalid json", "{", shared.ErrCatalog},
			{"empty item", "{}", shared.ErrAlbumNotFound},
			{"no audio", `{"metadata":{"title":"x"},"files":[{"name":"a.txt","format":"Text"}]}`, shared.ErrNothingPlayable},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := Parse("x", []byte(tt.body), "https://archive.org"); !errors.Is(err, tt.want) {
					t.Errorf("err = %v, want %v", err, tt.want)
				}
			})
		}
	})

	t.Run("dark item", func(t *testing.T) {
		body := `{"is_dark":true,"metadata":{"title":"x"},"files":[{"name":"a.mp3","format":"VBR MP3"}]}`
		album, err := Parse("x", []byte(body), "https://archive.org")
		if err != nil {
			t.Fatal(err)
		}
		if song := album.Tracks[0].Songs[0]; song.IsStreamable || song.RestrictionReason == "" {
			t.Errorf("song = %+v", song)
		}
	})
}

func TestParseHelpers(t *testing.T) {
	lengths := map[string]float64{"361.5": 361.5, "6:01": 361, "1:02:03": 3723, "": 0, "abc": 0}
	for in, want := range lengths {
		if got := parseLength(in); got != want {
			t.Errorf("parseLength(%q) = %v, want %v", in, got, want)
		}
	}

	tracks := map[string]int{"5": 5, "05": 5, "5/12": 5, "": 0, "x": 0}
	for in, want := range tracks {
		if got := trackNumber(in); got != want {
			t.Errorf("trackNumber(%q) = %d, want %d", in, got, want)
		}
	}

	keys := map[string]string{"d1t01.flac": "d1t01", "d1t01_vbr.mp3": "d1t01", "d1t01_64kb.mp3": "d1t01", "disc1/d1t01.mp3": "d1t01"}
	for in, want := range keys {
		if got := baseKey(in); got != want {
			t.Errorf("baseKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientAlbum(t *testing.T) {
	t.Run("caches by identifier", func(t *testing.T) {
		var hits atomic.Int32
		body := fixture(t)
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if r.URL.Path != "/metadata/"+showID {
				http.NotFound(w, r)
				return
			}
			w.Write(body)
		})

		for range 2 {
			album, err := c.Album(context.Background(), showID)
			if err != nil {
				t.Fatalf("Album: %v", err)
			}
			if album.TotalTracks != 3 {
				t.Errorf("tracks = %d", album.TotalTracks)
			}
		}
		if hits.Load() != 1 {
			t.Errorf("requests = %d, want 1", hits.Load())
		}

		c.Forget(showID)
		if _, err := c.Album(context.Background(), showID); err != nil {
			t.Fatal(err)
		}
		if hits.Load() != 2 {
			t.Errorf("requests after Forget = %d, want 2", hits.Load())
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var hits atomic.Int32
		body := fixture(t)
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write(body)
		})

		if _, err := c.Album(context.Background(), showID); err != nil {
			t.Fatalf("Album: %v", err)
		}
		if hits.Load() != 3 {
			t.Errorf("requests = %d, want 3", hits.Load())
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var hits atomic.Int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := c.Album(context.Background(), showID)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("err = %v", err)
		}
		if hits.Load() != 4 {
			t.Errorf("requests = %d, want 4", hits.Load())
		}
	})

	t.Run("transport failures are unavailable", func(t *testing.T) {
		c := NewClient(ClientOpts{
			BaseURL:    "https://archive.example",
			HTTPClient: &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("connection reset"))},
			MaxRetries: 2,
			Logger:     shared.NewLogger(io.Discard),
		})
		c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
		t.Cleanup(c.Stop)

		_, err := c.Album(context.Background(), showID)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("err = %v, want %v", err, shared.ErrServiceUnavailable)
		}
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		tests := []struct {
			status int
			want   error
		}{
			{http.StatusNotFound, shared.ErrAlbumNotFound},
			{http.StatusForbidden, shared.ErrCatalog},
		}
		for _, tt := range tests {
			var hits atomic.Int32
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
			})

			if _, err := c.Album(context.Background(), showID); !errors.Is(err, tt.want) {
				t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
			}
			if hits.Load() != 1 {
				t.Errorf("status %d: requests = %d, want 1", tt.status, hits.Load())
			}
		}
	})

	t.Run("missing identifier", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		if _, err := c.Album(context.Background(), " "); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestClientAlbumsMerges(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := filepath.Base(r.URL.Path)
		w.Write([]byte(`{"metadata":{"identifier":"` + id + `","title":"Cornell"},"files":[
			{"name":"t1.mp3","format":"VBR MP3","title":"Jack Straw","track":"1"},
			{"name":"t2.mp3","format":"VBR MP3","title":"Deal","track":"2"}]}`))
	})

	album, err := c.Albums(context.Background(), "sbd", "aud")
	if err != nil {
		t.Fatalf("Albums: %v", err)
	}
	if album.TotalTracks != 2 || album.Tracks[0].SongCount != 2 {
		t.Fatalf("album = %+v", album)
	}
	if album.Tracks[0].Songs[1].AlbumIdentifier != "aud" {
		t.Errorf("second version from %q", album.Tracks[0].Songs[1].AlbumIdentifier)
	}
}

func TestMerge(t *testing.T) {
	song := func(id string) models.Song { return models.Song{ID: id} }
	sbd := models.Album{Identifier: "sbd", Tracks: []models.Track{
		models.NewTrack("Scarlet Begonias ->", song("sbd-1")),
		models.NewTrack("Drums", song("sbd-2")),
		models.NewTrack("Drums", song("sbd-3")),
	}, TotalTracks: 3}
	aud := models.Album{Identifier: "aud", Tracks: []models.Track{
		models.NewTrack("scarlet begonias >", song("aud-1")),
		models.NewTrack("Drums", song("aud-2")),
		models.NewTrack("Drums", song("aud-3")),
		models.NewTrack("Morning Dew", song("aud-4")),
	}, TotalTracks: 4}

	merged := Merge(sbd, aud)
	if err := merged.Validate(); err != nil {
		t.Fatal(err)
	}
	if merged.Identifier != "sbd" || merged.TotalTracks != 4 {
		t.Fatalf("merged = %s with %d tracks", merged.Identifier, merged.TotalTracks)
	}

	counts := []int{2, 2, 2, 1}
	for i, want := range counts {
		if got := merged.Tracks[i].SongCount; got != want {
			t.Errorf("track %d has %d versions, want %d", i, got, want)
		}
	}
	if merged.Tracks[2].Songs[1].ID != "aud-3" {
		t.Errorf("repeated titles paired out of order: %v", merged.Tracks[2].Songs)
	}
	if len(sbd.Tracks[0].Songs) != 1 {
		t.Error("Merge mutated its input")
	}

	if got := Merge(); got.TotalTracks != 0 {
		t.Errorf("empty merge = %+v", got)
	}
}

func TestFiles(t *testing.T) {
	album, err := Parse(showID, fixture(t), "https://archive.org")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "show.json")
	if err := SaveFile(path, *album); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	th.AssertFileExists(t, path)

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.TotalTracks != album.TotalTracks || loaded.Tracks[1].Songs[0].QualityURLs[models.QualityLow] == "" {
		t.Errorf("loaded = %+v", loaded)
	}

	t.Run("counts are derived when omitted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lean.json")
		os.WriteFile(path, []byte(`{"identifier":"x","tracks":[{"title":"a","songs":[{"id":"1"}]}]}`), 0o644)

		album, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if album.TotalTracks != 1 || album.Tracks[0].SongCount != 1 {
			t.Errorf("album = %+v", album)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		os.WriteFile(path, []byte(`{"identifier":"x","totalTracks":2,"tracks":[]}`), 0o644)
		if _, err := LoadFile(path); !errors.Is(err, shared.ErrCatalog) {
			t.Errorf("err = %v", err)
		}
		if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
			t.Error("expected error for a missing file")
		}
	})
}
