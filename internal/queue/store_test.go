package queue

import (
	"io"
	"math/rand/v2"
	"testing"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
	th "github.com/desertthunder/encore/internal/testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(WithRand(rand.New(rand.NewPCG(7, 11))), WithLogger(shared.NewLogger(io.Discard)))
}

// assertInvariant checks the cursor and versions invariants.
func assertInvariant(t *testing.T, s *Store) {
	t.Helper()
	snap := s.Snapshot()
	n := len(snap.Items)
	if n == 0 && snap.CursorIndex != -1 {
		t.Fatalf("empty queue with cursor %d", snap.CursorIndex)
	}
	if n > 0 && (snap.CursorIndex < 0 || snap.CursorIndex >= n) {
		t.Fatalf("cursor %d outside [0, %d)", snap.CursorIndex, n)
	}
	for i, item := range snap.Items {
		if !item.HasVersion(item.Song.ID) {
			t.Fatalf("item %d selected song %s missing from versions", i, item.Song.ID)
		}
	}
}

func loaded(t *testing.T, n, start int) *Store {
	t.Helper()
	s := newTestStore(t)
	s.LoadAlbum(th.NewAlbum("gd77", n, 2), start)
	return s
}

func TestLoadAlbum(t *testing.T) {
	t.Run("replaces content and sets cursor", func(t *testing.T) {
		s := newTestStore(t)
		s.AddToQueue(th.NewSong("old"))
		s.LoadAlbum(th.NewAlbum("gd77", 5, 2), 2)

		if s.Len() != 5 || s.CursorIndex() != 2 {
			t.Fatalf("len=%d cursor=%d, want 5 and 2", s.Len(), s.CursorIndex())
		}
		if got := s.CurrentItem().AlbumSource.TrackIndex; got != 2 {
			t.Errorf("current track index = %d, want 2", got)
		}
		if g := s.Groups(); len(g) != 1 || g[0].Start != 0 || g[0].End != 5 {
			t.Errorf("groups = %+v", g)
		}
		assertInvariant(t, s)
	})

	t.Run("clamps start index", func(t *testing.T) {
		for _, start := range []int{-4, 99} {
			s := loaded(t, 3, start)
			assertInvariant(t, s)
		}
	})

	t.Run("empty album", func(t *testing.T) {
		s := newTestStore(t)
		s.LoadAlbum(models.Album{Identifier: "none"}, 0)
		if s.CursorIndex() != -1 || s.HasItems() || s.CurrentSong() != nil {
			t.Error("empty album should leave an empty queue")
		}
		assertInvariant(t, s)
	})
}

func TestPlayTrack(t *testing.T) {
	t.Run("inserts after cursor and becomes current", func(t *testing.T) {
		s := loaded(t, 3, 0)
		song := th.NewSong("adhoc")
		item := s.PlayTrack(song)

		if s.CursorIndex() != 1 || s.CurrentItem().QueueID != item.QueueID {
			t.Fatalf("cursor=%d, want the inserted item at 1", s.CursorIndex())
		}
		if s.Len() != 4 {
			t.Errorf("len = %d, want 4", s.Len())
		}
		if next := s.PeekNextTrack(); next == nil || next.ID != "gd77-t1v0" {
			t.Errorf("next after ad-hoc play should resume the original order, got %+v", next)
		}
		assertInvariant(t, s)
	})

	t.Run("empty queue", func(t *testing.T) {
		s := newTestStore(t)
		s.PlayTrack(th.NewSong("a"))
		if s.CursorIndex() != 0 || s.Len() != 1 {
			t.Errorf("cursor=%d len=%d", s.CursorIndex(), s.Len())
		}
		assertInvariant(t, s)
	})

	t.Run("same song twice gets distinct ids", func(t *testing.T) {
		s := newTestStore(t)
		a := s.PlayTrack(th.NewSong("a"))
		b := s.PlayTrack(th.NewSong("a"))
		if a.QueueID == b.QueueID {
			t.Error("queue ids must be unique")
		}
	})

	t.Run("PlayItem adds missing selected song to versions", func(t *testing.T) {
		s := newTestStore(t)
		item := models.QueueItem{Song: th.NewSong("a"), AvailableVersions: []models.Song{th.NewSong("b")}}
		got := s.PlayItem(item)
		if got.QueueID == "" || !got.HasVersion("a") {
			t.Errorf("unexpected item %+v", got)
		}
		assertInvariant(t, s)
	})
}

func TestAddToUpNext(t *testing.T) {
	t.Run("FIFO after cursor", func(t *testing.T) {
		s := loaded(t, 3, 0)
		s.AddToUpNext(th.NewSong("x"))
		s.AddToUpNext(th.NewSong("y"))

		if s.CursorIndex() != 0 {
			t.Fatalf("cursor moved to %d", s.CursorIndex())
		}

		var order []string
		for _, it := range s.Items() {
			order = append(order, it.Song.ID)
		}
		want := []string{"gd77-t0v0", "x", "y", "gd77-t1v0", "gd77-t2v0"}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("order = %v, want %v", order, want)
			}
		}
		if g := s.Groups(); len(g) != 2 {
			t.Errorf("ad-hoc items should split the album group, got %+v", g)
		}
		assertInvariant(t, s)
	})

	t.Run("empty queue becomes current", func(t *testing.T) {
		s := newTestStore(t)
		s.AddToUpNext(th.NewSong("x"))
		if s.CursorIndex() != 0 || s.CurrentSong().ID != "x" {
			t.Error("first up-next item should become current")
		}
	})

	t.Run("AddToQueue appends", func(t *testing.T) {
		s := loaded(t, 2, 0)
		s.AddToQueue(th.NewSong("tail"))
		if got := s.SongAt(2); got == nil || got.ID != "tail" {
			t.Errorf("SongAt(2) = %+v", got)
		}
		assertInvariant(t, s)
	})
}

func TestRemoveAndClear(t *testing.T) {
	t.Run("before cursor shifts cursor", func(t *testing.T) {
		s := loaded(t, 4, 2)
		current := s.CurrentSong().ID
		if !s.RemoveItem(0) {
			t.Fatal("RemoveItem(0) reported false")
		}
		if s.CursorIndex() != 1 || s.CurrentSong().ID != current {
			t.Errorf("current item changed: cursor=%d", s.CursorIndex())
		}
		assertInvariant(t, s)
	})

	t.Run("current item", func(t *testing.T) {
		s := loaded(t, 3, 1)
		s.RemoveItem(1)
		if s.CurrentSong().ID != "gd77-t2v0" {
			t.Errorf("following item should become current, got %s", s.CurrentSong().ID)
		}

		s.RemoveItem(1)
		if s.CursorIndex() != 0 {
			t.Errorf("cursor = %d after removing the last item", s.CursorIndex())
		}

		s.RemoveItem(0)
		assertInvariant(t, s)
		if s.CursorIndex() != -1 {
			t.Errorf("cursor = %d on empty queue", s.CursorIndex())
		}
	})

	t.Run("out of range", func(t *testing.T) {
		s := loaded(t, 2, 0)
		if s.RemoveItem(5) || s.RemoveItem(-1) {
			t.Error("out-of-range removal should report false")
		}
		assertInvariant(t, s)
	})

	t.Run("Clear", func(t *testing.T) {
		s := loaded(t, 3, 1)
		s.Clear()
		assertInvariant(t, s)
		if s.HasItems() || s.NextTrack() != nil || s.PrevTrack() != nil || s.PeekNextTrack() != nil {
			t.Error("cleared queue should have nothing to navigate")
		}
	})
}

func TestSetCurrentTrackAndSongAt(t *testing.T) {
	s := loaded(t, 3, 0)

	if !s.SetCurrentTrack(2) || s.CursorIndex() != 2 {
		t.Error("SetCurrentTrack(2) failed")
	}
	if s.SetCurrentTrack(3) || s.SetCurrentTrack(-1) || s.CursorIndex() != 2 {
		t.Error("out-of-range SetCurrentTrack should be a no-op")
	}
	if s.SongAt(3) != nil || s.SongAt(-1) != nil {
		t.Error("out-of-range SongAt should return nil")
	}
	if got := s.SongAt(1); got == nil || got.ID != "gd77-t1v0" {
		t.Errorf("SongAt(1) = %+v", got)
	}
	if !s.IsLastItem() || s.IsFirstItem() {
		t.Error("cursor 2 of 3 should be last, not first")
	}
	assertInvariant(t, s)
}

func TestSelectVersion(t *testing.T) {
	t.Run("by queue id", func(t *testing.T) {
		s := loaded(t, 3, 1)
		item := s.ItemAt(2)
		alt := item.AvailableVersions[1]

		if idx := s.SelectVersion(ByQueueID(item.QueueID), alt); idx != 2 {
			t.Fatalf("SelectVersion returned %d, want 2", idx)
		}
		if s.SongAt(2).ID != alt.ID {
			t.Errorf("selected = %s, want %s", s.SongAt(2).ID, alt.ID)
		}
		if s.CursorIndex() != 1 {
			t.Error("selecting a version must not move the cursor")
		}
		assertInvariant(t, s)
	})

	t.Run("by track index", func(t *testing.T) {
		s := loaded(t, 3, 0)
		alt := s.ItemAt(1).AvailableVersions[1]
		if idx := s.SelectVersion(ByTrackIndex(1), alt); idx != 1 {
			t.Fatalf("SelectVersion returned %d, want 1", idx)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		s := loaded(t, 3, 1)
		before := s.Snapshot()
		current := s.CurrentItem()

		if idx := s.SelectVersion(ByQueueID(current.QueueID), current.Song); idx != -1 {
			t.Errorf("selecting the selected song should be a no-op, got %d", idx)
		}

		after := s.Snapshot()
		if after.CursorIndex != before.CursorIndex {
			t.Error("cursor changed")
		}
		for i := range before.Items {
			if before.Items[i].QueueID != after.Items[i].QueueID || before.Items[i].Song.ID != after.Items[i].Song.ID {
				t.Fatalf("item %d changed", i)
			}
		}
	})

	t.Run("foreign song ignored", func(t *testing.T) {
		s := loaded(t, 2, 0)
		id := s.CurrentItem().QueueID
		if idx := s.SelectVersion(ByQueueID(id), th.NewSong("stranger")); idx != -1 {
			t.Error("a song outside the versions must be rejected")
		}
		if idx := s.SelectVersion(ByQueueID("missing"), th.NewSong("x")); idx != -1 {
			t.Error("an unknown queue id must be ignored")
		}
		assertInvariant(t, s)
	})
}

func TestMoveItem(t *testing.T) {
	t.Run("current item identity preserved", func(t *testing.T) {
		s := loaded(t, 5, 0)
		current := s.CurrentSong().ID

		s.MoveItem(0, 3)

		if s.CursorIndex() != 3 {
			t.Errorf("cursor = %d, want 3", s.CursorIndex())
		}
		if s.CurrentSong().ID != current {
			t.Errorf("current song changed to %s", s.CurrentSong().ID)
		}
		assertInvariant(t, s)
	})

	tc := []struct {
		name        string
		cursor      int
		from, to    int
		wantCursor  int
		wantCurrent string
	}{
		{"across cursor forward", 2, 0, 4, 1, "gd77-t2v0"},
		{"across cursor backward", 2, 4, 0, 3, "gd77-t2v0"},
		{"after cursor", 1, 3, 4, 1, "gd77-t1v0"},
		{"to clamped", 0, 1, 99, 0, "gd77-t0v0"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			s := loaded(t, 5, tt.cursor)
			s.MoveItem(tt.from, tt.to)
			if s.CursorIndex() != tt.wantCursor || s.CurrentSong().ID != tt.wantCurrent {
				t.Errorf("cursor=%d current=%s, want %d %s", s.CursorIndex(), s.CurrentSong().ID, tt.wantCursor, tt.wantCurrent)
			}
			assertInvariant(t, s)
		})
	}

	t.Run("out of range", func(t *testing.T) {
		s := loaded(t, 3, 0)
		if s.MoveItem(7, 0) || s.MoveItem(-1, 0) {
			t.Error("out-of-range from should be a no-op")
		}
	})
}

func TestSubscription(t *testing.T) {
	s := loaded(t, 3, 0)
	sub := s.Subscribe()

	gen := s.Generation()
	s.SetRepeat(models.RepeatAll)
	s.NextTrack()

	want := []ChangeKind{ChangeMode, ChangeCursor}
	for _, kind := range want {
		select {
		case c := <-sub.Changes:
			if c.Kind != kind {
				t.Errorf("change = %s, want %s", c.Kind, kind)
			}
		default:
			t.Fatalf("expected a %s change", kind)
		}
	}
	if s.Generation() <= gen {
		t.Error("generation should increase")
	}

	for range 2 * changeBufferSize {
		s.ToggleShuffle()
	}

	s.Unsubscribe(sub)
	select {
	case <-sub.Done:
	default:
		t.Error("Done should be closed after Unsubscribe")
	}
}
