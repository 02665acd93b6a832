package analytics

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// HistoryWriter stores play records; satisfied by repositories.HistoryRepository.
type HistoryWriter interface {
	Create(record *models.PlayRecord) error
}

// NewHistorySink records song events into listening history. Generic events are ignored.
func NewHistorySink(w HistoryWriter, logger *log.Logger) Sink {
	l := shared.WithLogger(logger, "component", "history")
	return FuncSink(func(ev Event) {
		if ev.SongID == "" {
			return
		}

		rec := &models.PlayRecord{
			SongID:    ev.SongID,
			Title:     ev.Title,
			Artist:    ev.Artist,
			Album:     ev.Album,
			Event:     ev.Name,
			CreatedAt: ev.At,
		}
		switch ev.Name {
		case EventPlaybackError:
			rec.Detail = fmt.Sprintf("%s (code %d)", ev.Cause, ev.Code)
		case EventSongPlayed:
			rec.Detail = fmt.Sprintf("%.0fs", ev.Seconds)
		}

		if err := w.Create(rec); err != nil {
			l.Warn("failed to record history", "song", ev.SongID, "event", ev.Name, "error", err)
		}
	})
}
