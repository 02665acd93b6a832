package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/encore/internal/audio"
	"github.com/desertthunder/encore/internal/catalog"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/player"
	"github.com/desertthunder/encore/internal/session"
	"github.com/desertthunder/encore/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    *catalog.Client
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	elements   func(mute bool) []audio.Element
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    *catalog.Client
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Elements builds the two audio elements of a playback session.
	// Nil uses the host's speaker backend.
	Elements func(mute bool) []audio.Element
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Catalog == nil {
		co := catalog.OptsFrom(opts.Config.Catalog)
		if co.HTTPClient == nil {
			co.HTTPClient = opts.HTTPClient
		}
		co.Logger = opts.Logger
		opts.Catalog = catalog.NewClient(co)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		elements:   opts.Elements,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		playCommand, resumeCommand, queueCommand, catalogCommand, historyCommand,
		serveCommand, setupCommand, configCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by later commands.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close stops background work owned by the runner.
func (r *Runner) Close() {
	r.catalog.Stop()
}

// loadAlbum resolves --album values. Each value is an Archive.org identifier or a
// path to a JSON catalog file; several values are merged into one show.
func (r *Runner) loadAlbum(ctx context.Context, refs []string) (*models.Album, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: --album is required", shared.ErrMissingArgument)
	}

	var albums []models.Album
	var ids []string
	for _, ref := range refs {
		if !strings.HasSuffix(strings.ToLower(ref), ".json") {
			ids = append(ids, ref)
			continue
		}
		album, err := catalog.LoadFile(ref)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *album)
	}

	if len(ids) > 0 {
		album, err := r.catalog.Albums(ctx, ids...)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *album)
	}

	if len(albums) == 1 {
		return &albums[0], nil
	}
	merged := catalog.Merge(albums...)
	return &merged, nil
}

// openSession starts a playback session on the runner's config.
func (r *Runner) openSession(ctx context.Context, mute bool, opts session.Options) (*session.Session, error) {
	opts.Config = r.config
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	switch {
	case r.elements != nil:
		opts.Elements = r.elements(mute)
	case mute:
		opts.Elements = []audio.Element{
			audio.New(audio.Options{Silent: true, Logger: opts.Logger}),
			audio.New(audio.Options{Silent: true, Logger: opts.Logger}),
		}
	}

	sess, err := session.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	sess.Start(ctx)
	return sess, nil
}

// follow prints each song as it starts and returns once playback stops or ctx is done.
func (r *Runner) follow(ctx context.Context, engine *player.Engine) {
	sub := engine.Subscribe()
	defer engine.Unsubscribe(sub)

	var current string
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case st := <-sub.Updates:
			if song := st.ActiveSong; song != nil && song.ID != current {
				current = song.ID
				r.writePlain("♪ %s [%s]\n", song.Label(), shared.FormatDuration(song.Duration))
			}
			if st.Status == player.StatusStopped {
				r.writePlain("■ Playback stopped\n")
				return
			}
		}
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
