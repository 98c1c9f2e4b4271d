package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
	"github.com/desertthunder/booklister/internal/upload"
)

// Upload validates, groups, and submits images in a single request.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	files, err := collectFiles(cmd.String("dir"), cmd.Args().Slice())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: pass image paths or --dir", shared.ErrMissingArgument)
	}

	quiet := cmd.Bool("json")
	updates := make(chan upload.ProgressUpdate, 32)
	session := upload.NewSession(upload.Options{
		Uploader:  r.service,
		Scheduler: r.scheduler,
		Logger:    shared.WithLogger(r.logger, "component", "upload"),
		Progress:  updates,
	})
	defer session.Dispose()

	if err := session.Accept(files); err != nil {
		return err
	}

	groups := session.Groups()
	if !quiet || cmd.Bool("dry-run") {
		r.writePlainHeader(fmt.Sprintf("Uploading %d files in %d folders", len(files), len(groups)))
		for _, g := range groups {
			r.writePlain("%-32s %4d files  %10s\n", g.Name, len(g.Files), shared.FormatBytes(g.Size()))
		}
		r.writePlain("\n")
	}
	if cmd.Bool("dry-run") {
		return nil
	}

	done := make(chan struct{})
	printed := make(chan struct{})
	if quiet {
		close(printed)
	} else {
		go r.printProgress(updates, done, printed)
	}

	result, err := session.Submit(ctx)
	close(done)
	<-printed

	if !cmd.Bool("no-history") {
		r.recordUpload(groups, result, err)
	}
	if err != nil {
		return err
	}

	if quiet {
		return r.writeJSON(result.Books, true)
	}

	r.writePlainln("✓ Created %d books from %d files (%s)", len(result.Books), result.Files, shared.FormatBytes(result.Bytes))
	for _, b := range result.Books {
		r.writePlain("  %s  %-32s %d images\n", b.ID, b.DisplayTitle(), len(b.Images))
	}
	return r.writePlainln("Review them with: booklister books list --status %s", models.BookNew)
}

func collectFiles(dir string, paths []string) ([]models.SelectedFile, error) {
	var files []models.SelectedFile
	if dir != "" {
		found, err := upload.FromDirectory(dir)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(paths) > 0 {
		found, err := upload.FromPaths(paths...)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// printProgress renders session updates until done is closed, then drains what is left and closes finished.
func (r *Runner) printProgress(updates <-chan upload.ProgressUpdate, done <-chan struct{}, finished chan<- struct{}) {
	defer close(finished)

	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	last := -1
	show := func(u upload.ProgressUpdate) {
		if u.Phase != upload.Uploading && u.Phase != upload.Complete {
			return
		}
		if u.Percent == last {
			return
		}
		last = u.Percent
		r.writePlain("%s  %s\n", bar.ViewAs(float64(u.Percent)/100), u.Message)
	}

	for {
		select {
		case u := <-updates:
			show(u)
		case <-done:
			for {
				select {
				case u := <-updates:
					show(u)
				default:
					return
				}
			}
		}
	}
}

// recordUpload stores the outcome in the local history. History problems never fail the upload.
func (r *Runner) recordUpload(groups []models.FolderGroup, result *upload.Result, err error) {
	var submitErr *upload.SubmitError
	if err != nil && !errors.As(err, &submitErr) {
		return
	}

	uploads, herr := r.history()
	if herr != nil {
		r.logger.Warn("upload history unavailable", "error", herr)
		return
	}

	var books []models.Book
	var failure string
	if err == nil {
		books = result.Books
	} else {
		failure = submitErr.Message
	}

	record, rerr := uploads.Record(groups, books, failure)
	if rerr != nil {
		r.logger.Warn("failed to record upload", "error", rerr)
		return
	}
	r.logger.Debug("recorded upload", "id", record.ID(), "state", record.State)
}
