package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

var (
	_ list.Item = queueItem{}
	_ list.Item = versionItem{}
)

// queueItem wraps [models.QueueItem] to implement [list.Item].
type queueItem struct {
	item models.QueueItem
}

func (i queueItem) FilterValue() string { return i.item.Song.DisplayTitle() }
func (i queueItem) Title() string       { return i.item.Song.DisplayTitle() }
func (i queueItem) Description() string {
	desc := fmt.Sprintf("%s • %s", i.item.Song.ArtistName, shared.FormatDuration(i.item.Song.Duration))
	if n := len(i.item.AvailableVersions); n > 1 {
		desc = fmt.Sprintf("%s • %d versions", desc, n)
	}
	return desc
}

// versionItem wraps one recording of a queue item's track to implement [list.Item].
type versionItem struct {
	song     models.Song
	selected bool
}

func (i versionItem) FilterValue() string { return i.song.ID }
func (i versionItem) Title() string {
	title := i.song.ID
	if i.selected {
		title += " ✓"
	}
	return title
}
func (i versionItem) Description() string {
	parts := []string{shared.FormatDuration(i.song.Duration)}
	for _, s := range []string{i.song.Source, i.song.Taper} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if i.song.NumReviews > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f (%d)", i.song.AvgRating, i.song.NumReviews))
	}
	if !i.song.IsStreamable {
		parts = append(parts, "unavailable")
	}
	return strings.Join(parts, " • ")
}

func versionItems(item models.QueueItem) []list.Item {
	items := make([]list.Item, len(item.AvailableVersions))
	for i, song := range item.AvailableVersions {
		items[i] = versionItem{song: song, selected: song.ID == item.Song.ID}
	}
	return items
}
