package main

import (
	"cmp"
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/booklister/internal/formatter"
)

// Export writes queue books to a file.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmp.Or(cmd.String("format"), r.config.Export.Format))
	if err != nil {
		return err
	}
	status, err := parseStatus(cmd.String("status"))
	if err != nil {
		return err
	}

	books, err := r.service.Queue(ctx, status)
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(books, format, r.service.BaseURL(), r.config.Export.Dir, cmd.String("out"))
	if err != nil {
		return err
	}

	r.logger.Info("export complete", "format", format, "books", len(books), "path", path)
	return r.writePlain("✓ Exported %d books to %s\n", len(books), path)
}
