package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/queue"
	"github.com/desertthunder/encore/internal/server"
	"github.com/desertthunder/encore/internal/session"
	"github.com/desertthunder/encore/internal/shared"
)

// trackIndex converts a 1-based --track value to a queue index.
func trackIndex(track, total int) (int, error) {
	if track < 1 || track > total {
		return 0, fmt.Errorf("%w: --track must be within 1-%d, got %d", shared.ErrInvalidFlag, total, track)
	}
	return track - 1, nil
}

func closeSession(sess *session.Session, r *Runner) {
	if err := sess.Close(); err != nil {
		r.logger.Warn("failed to close session", "error", err)
	}
}

// Play plays a show until the queue is exhausted or the process is interrupted.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	var preferred models.Quality
	if q := cmd.String("quality"); q != "" {
		parsed, ok := models.ParseQuality(q)
		if !ok {
			return fmt.Errorf("%w: --quality %q", shared.ErrInvalidFlag, q)
		}
		preferred = parsed
	}

	var repeat models.RepeatMode
	if s := cmd.String("repeat"); s != "" {
		mode, ok := models.ParseRepeatMode(s)
		if !ok {
			return fmt.Errorf("%w: --repeat %q", shared.ErrInvalidFlag, s)
		}
		repeat = mode
	}

	album, err := r.loadAlbum(ctx, cmd.StringSlice("album"))
	if err != nil {
		return err
	}
	start, err := trackIndex(cmd.Int("track"), len(album.Tracks))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := r.openSession(ctx, cmd.Bool("mute"), session.Options{})
	if err != nil {
		return err
	}
	defer closeSession(sess, r)

	if preferred != "" {
		sess.Resolver.SetPreferred(preferred)
	}
	if cf := cmd.Int("crossfade"); cf >= 0 {
		sess.Player.SetCrossfadeDuration(cf)
	}

	r.writePlainHeader(fmt.Sprintf("%s - %s", album.ArtistName, album.Title))
	if !sess.Player.PlayAlbum(*album, start) {
		return fmt.Errorf("%w: %s has no playable songs", shared.ErrInvalidInput, album.Identifier)
	}
	if cmd.Bool("shuffle") {
		sess.Queue.SetShuffle(true)
	}
	if repeat != "" {
		sess.Queue.SetRepeat(repeat)
	}

	r.follow(ctx, sess.Player)
	return nil
}

// Resume plays the saved snapshot. Nothing saved is not an error.
func (r *Runner) Resume(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := r.openSession(ctx, cmd.Bool("mute"), session.Options{})
	if err != nil {
		return err
	}
	defer closeSession(sess, r)

	if err := sess.Player.ResumeSavedProgress(); err != nil {
		if errors.Is(err, shared.ErrNoSnapshot) {
			r.writePlain("Nothing to resume\n")
			return nil
		}
		return fmt.Errorf("failed to resume: %w", err)
	}

	r.follow(ctx, sess.Player)
	return nil
}

// QueueShow builds the queue for a show without playing it.
func (r *Runner) QueueShow(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	album, err := r.loadAlbum(ctx, cmd.StringSlice("album"))
	if err != nil {
		return err
	}
	start, err := trackIndex(cmd.Int("track"), len(album.Tracks))
	if err != nil {
		return err
	}

	q := queue.New(queue.WithLogger(r.logger))
	defer q.Close()
	q.LoadAlbum(*album, start)
	if cmd.Bool("shuffle") {
		q.SetShuffle(true)
	}
	snap := q.Snapshot()

	if cmd.Bool("json") {
		return r.writeJSON(snap, true)
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteQueueExport(snap, f, path)
		if err != nil {
			return err
		}
		r.writePlain("✓ Queue written to %s\n", written)
		return nil
	}

	data, err := formatter.RenderQueue(snap, f)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// Serve runs a playback session behind the remote-control API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var album *models.Album
	if refs := cmd.StringSlice("album"); len(refs) > 0 {
		var err error
		if album, err = r.loadAlbum(ctx, refs); err != nil {
			return err
		}
	}

	sess, err := r.openSession(ctx, cmd.Bool("mute"), session.Options{})
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
	}

	addr := cmd.String("addr")
	r.writePlain("Remote control listening on http://%s/api/state\n", addr)
	return server.Serve(ctx, addr, server.NewHandler(sess.Player, r.logger), r.logger)
}
