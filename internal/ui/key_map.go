package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle    key.Binding
	next      key.Binding
	prev      key.Binding
	forward   key.Binding
	rewind    key.Binding
	louder    key.Binding
	quieter   key.Binding
	queue     key.Binding
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	versions  key.Binding
	remove    key.Binding
	shuffle   key.Binding
	repeat    key.Binding
	crossfade key.Binding
	back      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev")),
		forward:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+10s")),
		rewind:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-10s")),
		louder:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		quieter:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		queue:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "queue")),
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		versions:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "versions")),
		remove:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		shuffle:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		repeat:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		crossfade: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "crossfade")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.next, k.prev, k.queue, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.next, k.prev, k.forward, k.rewind},
		{k.louder, k.quieter, k.shuffle, k.repeat, k.crossfade},
		{k.queue, k.up, k.down, k.enter, k.versions, k.remove},
		{k.back, k.quit},
	}
}

// drawerHelp is the help line while the queue drawer is open.
func (k keyMap) drawerHelp() []key.Binding {
	return []key.Binding{k.up, k.down, k.enter, k.versions, k.remove, k.queue}
}
