package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/session"
	"github.com/desertthunder/encore/internal/shared"
	"github.com/desertthunder/encore/internal/ui"
)

// TUI launches the interactive player. Without --album it resumes the saved
// snapshot, if any.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	var album *models.Album
	if refs := cmd.StringSlice("album"); len(refs) > 0 {
		var err error
		if album, err = r.loadAlbum(ctx, refs); err != nil {
			return err
		}
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Logging.File
	if logPath == "" {
		logPath = "./tmp/encore-tui.log"
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Logging.Level))
	r.SetLogger(fileLogger)

	bridge := ui.NewBridge()
	sess, err := r.openSession(ctx, cmd.Bool("mute"), session.Options{
		Notifier:     bridge,
		Announcer:    bridge,
		MediaSession: bridge,
	})
	if err != nil {
		return err
	}
	defer closeSession(sess, r)

	if album != nil {
		start, err := trackIndex(cmd.Int("track"), len(album.Tracks))
		if err != nil {
			return err
		}
		sess.Player.PlayAlbum(*album, start)
	} else if err := sess.Player.ResumeSavedProgress(); err != nil && !errors.Is(err, shared.ErrNoSnapshot) {
		r.logger.Warn("failed to resume", "error", err)
	}

	if err := ui.Run(ctx, sess.Player, bridge); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
