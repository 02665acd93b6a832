package ui

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/encore/internal/audio"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/player"
	"github.com/desertthunder/encore/internal/queue"
	"github.com/desertthunder/encore/internal/shared"
	th "github.com/desertthunder/encore/internal/testing"
)

func newTestModel(t *testing.T, tracks, versions int) (*Model, *player.Engine) {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	e := player.New(player.DefaultConfig(), player.Deps{
		Queue:    queue.New(queue.WithLogger(logger)),
		Elements: [2]audio.Element{th.NewFakeElement(), th.NewFakeElement()},
		Prefs:    th.NewMemoryStorage(),
		Platform: th.Platform{Volume: true},
		Logger:   logger,
	})
	t.Cleanup(func() { e.Close() })

	if tracks > 0 && !e.PlayAlbum(th.NewAlbum("gd77", tracks, versions), 0) {
		t.Fatal("PlayAlbum failed")
	}

	m := NewModel(context.Background(), e)
	t.Cleanup(m.Close)
	return m, e
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyPress(k))
	}
	return cmd
}

func activeID(e *player.Engine) string {
	if s := e.State().ActiveSong; s != nil {
		return s.ID
	}
	return ""
}

func TestPlayerKeys(t *testing.T) {
	m, e := newTestModel(t, 3, 1)

	t.Run("renders now playing", func(t *testing.T) {
		view := m.View()
		if !strings.Contains(view, "Song gd77-t0v0") || !strings.Contains(view, "▶") {
			t.Errorf("expected now playing header, got:\n%s", view)
		}
	})

	t.Run("toggle", func(t *testing.T) {
		press(m, " ")
		if e.State().IsPlaying {
			t.Error("expected paused after space")
		}
		if !strings.Contains(m.View(), "⏸") {
			t.Error("expected pause glyph")
		}
		press(m, " ")
		if !e.State().IsPlaying {
			t.Error("expected playing after second space")
		}
	})

	t.Run("seek", func(t *testing.T) {
		press(m, "l")
		if got := e.State().CurrentTime; got != seekStep {
			t.Errorf("expected position %v, got %v", seekStep, got)
		}
		press(m, "h", "h")
		if got := e.State().CurrentTime; got != 0 {
			t.Errorf("expected seek to clamp at 0, got %v", got)
		}
	})

	t.Run("volume", func(t *testing.T) {
		press(m, "+", "-")
		if got := e.State().Volume; math.Abs(got-(1-volumeStep)) > 1e-9 {
			t.Errorf("expected volume %v, got %v", 1-volumeStep, got)
		}
		if !strings.Contains(m.View(), "vol 95%") {
			t.Errorf("expected volume in view, got:\n%s", m.View())
		}
	})

	t.Run("crossfade cycles", func(t *testing.T) {
		want := []int{3, 6, 9, 12, 0}
		for _, w := range want {
			press(m, "c")
			if got := e.State().CrossfadeDuration; got != w {
				t.Fatalf("expected crossfade %d, got %d", w, got)
			}
		}
	})

	t.Run("modes", func(t *testing.T) {
		press(m, "s", "r")
		q := e.Queue()
		if !q.Shuffle() || q.Repeat() != models.RepeatAll {
			t.Errorf("expected shuffle on and repeat all, got %v %v", q.Shuffle(), q.Repeat())
		}
		if !strings.Contains(m.View(), "shuffle on  repeat all") {
			t.Errorf("expected modes in view, got:\n%s", m.View())
		}
		press(m, "s", "r", "r")
	})

	t.Run("next and prev", func(t *testing.T) {
		press(m, "n")
		if got := activeID(e); got != "gd77-t1v0" {
			t.Errorf("expected second song, got %s", got)
		}
		press(m, "p")
		if got := activeID(e); got != "gd77-t0v0" {
			t.Errorf("expected first song, got %s", got)
		}
	})

	t.Run("end of queue toast", func(t *testing.T) {
		press(m, "n", "n")
		cmd := press(m, "n")
		if cmd == nil {
			t.Fatal("expected a toast expiry command")
		}
		if !strings.Contains(m.View(), "End of queue") {
			t.Errorf("expected end of queue toast, got:\n%s", m.View())
		}
	})

	t.Run("quit", func(t *testing.T) {
		if cmd := press(m, "q"); cmd == nil {
			t.Error("expected quit command")
		}
	})
}

func TestDrawer(t *testing.T) {
	m, e := newTestModel(t, 3, 1)

	if strings.Contains(m.View(), "Show gd77") {
		t.Fatal("drawer should start closed")
	}

	press(m, "tab")
	if !e.State().IsQueueOpen {
		t.Fatal("expected queue open")
	}
	view := m.View()
	if !strings.Contains(view, "Show gd77 (3)") || !strings.Contains(view, "♪") {
		t.Errorf("expected grouped drawer with current marker, got:\n%s", view)
	}

	t.Run("play selected", func(t *testing.T) {
		press(m, "j", "j", "j", "k", "enter")
		if got := e.Queue().CursorIndex(); got != 1 {
			t.Errorf("expected cursor 1, got %d", got)
		}
		if got := activeID(e); got != "gd77-t1v0" {
			t.Errorf("expected second song, got %s", got)
		}
	})

	t.Run("remove selected", func(t *testing.T) {
		press(m, "j", "x")
		if got := e.Queue().Len(); got != 2 {
			t.Errorf("expected 2 items, got %d", got)
		}
		if m.selected != 1 {
			t.Errorf("expected selection clamped to 1, got %d", m.selected)
		}
	})

	t.Run("ad hoc items", func(t *testing.T) {
		e.Queue().AddToQueue(th.NewSong("extra"))
		m.sync()
		if !strings.Contains(m.View(), "Queued") {
			t.Errorf("expected ad hoc section, got:\n%s", m.View())
		}
	})

	press(m, "tab")
	if e.State().IsQueueOpen || strings.Contains(m.View(), "Show gd77") {
		t.Error("expected drawer closed")
	}
}

func TestVersionPicker(t *testing.T) {
	t.Run("single version has nothing to pick", func(t *testing.T) {
		m, _ := newTestModel(t, 2, 1)
		press(m, "v")
		if m.view != PlayerView {
			t.Error("expected player view")
		}
	})

	t.Run("select another recording", func(t *testing.T) {
		m, e := newTestModel(t, 2, 3)
		press(m, "v")
		if m.view != VersionView {
			t.Fatal("expected version view")
		}
		if view := m.View(); !strings.Contains(view, "gd77-t0v0 ✓") {
			t.Errorf("expected current version marked, got:\n%s", view)
		}

		press(m, "j", "enter")
		if m.view != PlayerView {
			t.Error("expected player view after selection")
		}
		if got := e.Queue().CurrentSong().ID; got != "gd77-t0v1" {
			t.Errorf("expected queue to hold version 1, got %s", got)
		}
		if got := activeID(e); got != "gd77-t0v1" {
			t.Errorf("expected engine to play version 1, got %s", got)
		}
	})

	t.Run("esc keeps the version", func(t *testing.T) {
		m, e := newTestModel(t, 2, 2)
		press(m, "v", "j", "esc")
		if m.view != PlayerView || activeID(e) != "gd77-t0v0" {
			t.Errorf("expected unchanged playback, got %s", activeID(e))
		}
	})
}

func TestMessages(t *testing.T) {
	m, _ := newTestModel(t, 0, 0)

	t.Run("idle view", func(t *testing.T) {
		if !strings.Contains(m.View(), "Nothing playing") {
			t.Errorf("expected idle message, got:\n%s", m.View())
		}
	})

	t.Run("toasts expire by id", func(t *testing.T) {
		m.Update(toastMsg("Couldn't play \"Dark Star\" (network error). Skipping to \"St. Stephen\"."))
		first := m.nextToast
		m.Update(toastMsg("second"))
		if !strings.Contains(m.View(), "Dark Star") || !strings.Contains(m.View(), "second") {
			t.Fatalf("expected both toasts, got:\n%s", m.View())
		}

		m.Update(toastExpiredMsg(first))
		if strings.Contains(m.View(), "Dark Star") || !strings.Contains(m.View(), "second") {
			t.Errorf("expected only the second toast, got:\n%s", m.View())
		}
	})

	t.Run("toasts are capped", func(t *testing.T) {
		for i := range maxToasts + 2 {
			m.Update(toastMsg(strings.Repeat("x", i+1)))
		}
		if len(m.toasts) != maxToasts {
			t.Errorf("expected %d toasts, got %d", maxToasts, len(m.toasts))
		}
	})

	t.Run("announcement", func(t *testing.T) {
		m.Update(announceMsg("Now playing: Scarlet Begonias - Grateful Dead"))
		if !strings.Contains(m.View(), "Now playing: Scarlet Begonias") {
			t.Errorf("expected announcement, got:\n%s", m.View())
		}
	})

	t.Run("metadata sets window title", func(t *testing.T) {
		if _, cmd := m.Update(metadataMsg("▶ Scarlet Begonias")); cmd == nil {
			t.Error("expected window title command")
		}
	})

	t.Run("engine closed quits", func(t *testing.T) {
		if _, cmd := m.Update(engineClosedMsg()); cmd == nil || !m.closed {
			t.Error("expected quit after engine close")
		}
	})
}

func TestSubscriptions(t *testing.T) {
	m, e := newTestModel(t, 0, 0)

	msg := m.waitForState()()
	st, ok := msg.(Msg)
	if !ok || st.kind != MsgState {
		t.Fatalf("expected initial state message, got %#v", msg)
	}

	done := make(chan tea.Msg, 1)
	go func() { done <- m.waitForQueue()() }()
	e.PlayAlbum(th.NewAlbum("gd77", 2, 1), 0)

	select {
	case msg := <-done:
		if qm, ok := msg.(Msg); !ok || qm.kind != MsgQueueChanged {
			t.Errorf("expected queue change, got %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for queue change")
	}

	m.Update(queueChangedMsg(queue.Change{}))
	if len(m.snapshot.Items) != 2 {
		t.Errorf("expected refreshed snapshot, got %d items", len(m.snapshot.Items))
	}

	e.Close()
	if msg := m.waitForState()(); msg.(Msg).kind != MsgEngineClosed && msg.(Msg).kind != MsgState {
		t.Errorf("unexpected message %#v", msg)
	}
}

func TestBridge(t *testing.T) {
	t.Run("unattached drops", func(t *testing.T) {
		b := NewBridge()
		b.Notify("dropped")
		b.Announce("dropped")
	})

	t.Run("forwards hooks", func(t *testing.T) {
		got := make(chan tea.Msg, 4)
		b := NewBridge()
		b.AttachFunc(func(msg tea.Msg) { got <- msg })

		recv := func() Msg {
			t.Helper()
			select {
			case msg := <-got:
				return msg.(Msg)
			case <-time.After(2 * time.Second):
				t.Fatal("timed out waiting for message")
				return Msg{}
			}
		}

		b.SetPlaybackState(true)
		b.Notify("stream failed")
		if msg := recv(); msg.kind != MsgToast || msg.data != "stream failed" {
			t.Errorf("expected toast, got %#v", msg)
		}

		song := th.NewSong("gd77-t0v0")
		b.SetMetadata(song)
		if msg := recv(); msg.kind != MsgMetadata || msg.data != "▶ Song gd77-t0v0 - Grateful Dead" {
			t.Errorf("expected metadata title, got %#v", msg)
		}

		b.SetPlaybackState(false)
		if msg := recv(); msg.data != "⏸ Song gd77-t0v0 - Grateful Dead" {
			t.Errorf("expected paused title, got %#v", msg)
		}

		b.Announce("Now playing")
		if msg := recv(); msg.kind != MsgAnnounce {
			t.Errorf("expected announcement, got %#v", msg)
		}
	})
}
