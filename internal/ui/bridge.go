package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/player"
)

var (
	_ player.Notifier     = (*Bridge)(nil)
	_ player.Announcer    = (*Bridge)(nil)
	_ player.MediaSession = (*Bridge)(nil)
)

// Bridge forwards engine hooks to a running program. Messages sent before a
// program is attached are dropped.
type Bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
	song *models.Song
}

// NewBridge creates an unattached Bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach starts forwarding to p.
func (b *Bridge) Attach(p *tea.Program) {
	b.AttachFunc(p.Send)
}

// AttachFunc starts forwarding to send.
func (b *Bridge) AttachFunc(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

// dispatch sends off the caller's goroutine: [tea.Program.Send] blocks until the
// program reads the message and the engine must never wait on the view.
func (b *Bridge) dispatch(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send != nil {
		go send(msg)
	}
}

// Notify shows message as a toast.
func (b *Bridge) Notify(message string) { b.dispatch(toastMsg(message)) }

// Announce replaces the announcement line.
func (b *Bridge) Announce(message string) { b.dispatch(announceMsg(message)) }

// SetMetadata sets the window title to the song.
func (b *Bridge) SetMetadata(song models.Song) {
	b.mu.Lock()
	b.song = &song
	b.mu.Unlock()
	b.dispatch(metadataMsg(windowTitle(song, true)))
}

// SetPlaybackState updates the play/pause glyph in the window title.
func (b *Bridge) SetPlaybackState(playing bool) {
	b.mu.Lock()
	song := b.song
	b.mu.Unlock()
	if song != nil {
		b.dispatch(metadataMsg(windowTitle(*song, playing)))
	}
}

func windowTitle(song models.Song, playing bool) string {
	glyph := "⏸"
	if playing {
		glyph = "▶"
	}
	return glyph + " " + song.Label()
}
