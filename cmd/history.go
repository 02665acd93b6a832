package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/repositories"
	"github.com/desertthunder/encore/internal/shared"
)

func (r *Runner) openHistory() (*repositories.HistoryRepository, func(), error) {
	db, err := shared.OpenStorage(r.config.Database)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewHistoryRepository(db), func() { db.Close() }, nil
}

// History lists recorded playback events, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if f == formatter.FormatMarkdown {
		return fmt.Errorf("%w: history supports text and csv", shared.ErrInvalidFlag)
	}

	repo, closeDB, err := r.openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := repo.List(map[string]any{
		"event":   cmd.String("event"),
		"song_id": cmd.String("song"),
		"limit":   cmd.Int("limit"),
	})
	if err != nil {
		return err
	}
	if len(records) == 0 && f == formatter.FormatText {
		return r.writePlain("No playback history\n")
	}

	var data []byte
	if f == formatter.FormatCSV {
		data, err = formatter.HistoryToCSV(records)
	} else {
		data, err = formatter.HistoryToText(records)
	}
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// HistoryStats prints the number of recorded events per name.
func (r *Runner) HistoryStats(ctx context.Context, cmd *cli.Command) error {
	repo, closeDB, err := r.openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	counts, err := repo.CountByEvent()
	if err != nil {
		return err
	}

	r.writePlainHeader("Playback events")
	names := lo.Keys(counts)
	slices.Sort(names)
	for _, name := range names {
		r.writePlain("%-18s %d\n", name, counts[name])
	}
	return nil
}

// HistoryPurge deletes events older than --days.
func (r *Runner) HistoryPurge(ctx context.Context, cmd *cli.Command) error {
	days := cmd.Int("days")
	if days < 0 {
		return fmt.Errorf("%w: --days must not be negative", shared.ErrInvalidFlag)
	}

	repo, closeDB, err := r.openHistory()
	if err != nil {
		return err
	}
	defer closeDB()

	n, err := repo.Purge(time.Now().AddDate(0, 0, -days))
	if err != nil {
		return err
	}
	r.logger.Info("purged play history", "deleted", n, "days", days)
	return r.writePlain("✓ Deleted %d events\n", n)
}
