package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/encore/internal/catalog"
	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

func (r *Runner) fetchArgs(ctx context.Context, cmd *cli.Command) (*models.Album, error) {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one identifier is required", shared.ErrMissingArgument)
	}
	r.logger.Debug("fetching show metadata", "identifiers", ids)
	return r.catalog.Albums(ctx, ids...)
}

// CatalogFetch prints a show or saves it as a JSON catalog file.
func (r *Runner) CatalogFetch(ctx context.Context, cmd *cli.Command) error {
	album, err := r.fetchArgs(ctx, cmd)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := catalog.SaveFile(path, *album); err != nil {
			return err
		}
		r.writePlain("✓ Saved %s (%d tracks) to %s\n", album.Title, len(album.Tracks), path)
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(album, cmd.Bool("pretty"))
	}

	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	data, err := formatter.RenderAlbum(*album, f)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// CatalogExport writes a show to disk as Markdown or CSV.
func (r *Runner) CatalogExport(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	album, err := r.fetchArgs(ctx, cmd)
	if err != nil {
		return err
	}

	switch f {
	case formatter.FormatMarkdown:
		result, err := formatter.WriteMarkdownExport(*album, cmd.String("output"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %s to %s\n", album.Title, result.Directory)
		for _, file := range result.Files {
			r.writePlain("  %s\n", file)
		}
	case formatter.FormatCSV:
		result, err := formatter.WriteCSVExport(*album, cmd.String("output"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %s\n  %s\n  %s\n", album.Title, result.TracksFile, result.MetadataFile)
	default:
		return fmt.Errorf("%w: export supports markdown and csv, got %s", shared.ErrInvalidFlag, f)
	}
	return nil
}

// CatalogOpen opens a show's details page.
func (r *Runner) CatalogOpen(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("identifier")
	if id == "" {
		return fmt.Errorf("%w: identifier", shared.ErrMissingArgument)
	}

	url := shared.ArchiveDetailsURL(r.config.Catalog.BaseURL, id)
	if err := shared.OpenBrowser(url); err != nil {
		r.writePlain("Open %s in your browser\n", url)
		return nil
	}
	r.writePlain("Opened %s\n", url)
	return nil
}
