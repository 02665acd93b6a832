// Package ui implements the terminal player using bubbletea's Elm architecture.
//
// The [Model] renders the now-playing header, a progress bar, the queue drawer
// (grouped by album) and a version picker for tracks recorded more than once.
// Engine state and queue changes arrive through subscriptions that are read
// one message at a time, like any other bubbletea command.
//
// The engine never talks to the program directly: a [Bridge] implements its
// notifier, announcer and media session hooks and forwards them as messages,
// so stream-error toasts and "Now playing" announcements show up in the view.
//
// Keyboard navigation uses vim-style bindings with contextual help from charmbracelet/bubbles/help.
package ui
