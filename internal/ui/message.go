package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/encore/internal/player"
	"github.com/desertthunder/encore/internal/queue"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgState MsgKind = iota
	MsgEngineClosed
	MsgQueueChanged
	MsgToast
	MsgToastExpired
	MsgAnnounce
	MsgMetadata
)

// stateMsg is the constructor for [MsgState]
func stateMsg(st player.State) Msg {
	return Msg{kind: MsgState, data: st}
}

// engineClosedMsg is the constructor for [MsgEngineClosed]
func engineClosedMsg() Msg {
	return Msg{kind: MsgEngineClosed}
}

// queueChangedMsg is the constructor for [MsgQueueChanged]
func queueChangedMsg(c queue.Change) Msg {
	return Msg{kind: MsgQueueChanged, data: c}
}

// toastMsg is the constructor for [MsgToast]
func toastMsg(text string) Msg {
	return Msg{kind: MsgToast, data: text}
}

// toastExpiredMsg is the constructor for [MsgToastExpired]
func toastExpiredMsg(id int) Msg {
	return Msg{kind: MsgToastExpired, data: id}
}

// announceMsg is the constructor for [MsgAnnounce]
func announceMsg(text string) Msg {
	return Msg{kind: MsgAnnounce, data: text}
}

// metadataMsg is the constructor for [MsgMetadata]. The text becomes the window title.
func metadataMsg(title string) Msg {
	return Msg{kind: MsgMetadata, data: title}
}
