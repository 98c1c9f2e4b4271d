package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/booklister/internal/carousel"
	"github.com/desertthunder/booklister/internal/formatter"
	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
	"github.com/desertthunder/booklister/internal/tasks"
)

func parseStatus(s string) (models.BookStatus, error) {
	status := models.BookStatus(s)
	if s == "" || status.Valid() {
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", shared.ErrInvalidFlag, s)
}

// BooksList prints the review queue.
func (r *Runner) BooksList(ctx context.Context, cmd *cli.Command) error {
	status, err := parseStatus(cmd.String("status"))
	if err != nil {
		return err
	}

	books, err := r.service.Queue(ctx, status)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(books, true)
	}

	r.writePlainHeader(fmt.Sprintf("Queue: %d books", len(books)))
	for _, b := range books {
		r.writePlain("%-36s  %-12s  %-32s  %d images\n", b.ID, b.Status, b.DisplayTitle(), len(b.Images))
	}
	return nil
}

// BooksShow prints one book with the address of every image.
func (r *Runner) BooksShow(ctx context.Context, cmd *cli.Command) error {
	book, err := r.book(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(book, true)
	}

	r.writePlainHeader(book.DisplayTitle())
	for _, row := range [][2]string{
		{"ID", book.ID},
		{"Status", string(book.Status)},
		{"Author", book.Author},
		{"Publisher", book.Publisher},
		{"Year", book.Year},
		{"ISBN-13", book.ISBN13},
		{"Condition", book.ConditionGrade},
	} {
		if row[1] != "" {
			r.writePlain("%-10s %s\n", row[0]+":", row[1])
		}
	}
	if book.PriceSuggested != nil {
		r.writePlain("%-10s $%.2f\n", "Price:", *book.PriceSuggested)
	}

	c := carousel.New(r.service.BaseURL(), book.ID, book.Images)
	r.writePlainln("Images (%d)", c.Len())
	for i, url := range c.URLs() {
		r.writePlain("  %d. %s\n", i+1, url)
	}
	return nil
}

// BooksOpen opens one image of a book in the default browser.
func (r *Runner) BooksOpen(ctx context.Context, cmd *cli.Command) error {
	book, err := r.book(ctx, cmd)
	if err != nil {
		return err
	}

	c := carousel.New(r.service.BaseURL(), book.ID, book.Images)
	if c.Empty() {
		return fmt.Errorf("book %s has no images", book.ID)
	}
	n := cmd.Int("image")
	if !c.Jump(n - 1) {
		return fmt.Errorf("%w: image %d out of range 1-%d", shared.ErrInvalidArgument, n, c.Len())
	}

	url := c.CurrentURL()
	r.logger.Info("opening image", "url", url)
	if err := r.open(url); err != nil {
		return err
	}
	return r.writePlain("Opened image %d of %d: %s\n", c.Index()+1, c.Len(), url)
}

// BooksUpdate sends the flags that were set as a partial edit of one book.
func (r *Runner) BooksUpdate(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}

	var update models.BookUpdate
	if cmd.IsSet("status") {
		status, err := parseStatus(cmd.String("status"))
		if err != nil {
			return err
		}
		update.Status = &status
	}
	for name, dst := range map[string]**string{
		"title":     &update.Title,
		"author":    &update.Author,
		"publisher": &update.Publisher,
		"year":      &update.Year,
		"isbn":      &update.ISBN13,
		"condition": &update.ConditionGrade,
	} {
		if cmd.IsSet(name) {
			v := cmd.String(name)
			*dst = &v
		}
	}
	if cmd.IsSet("price") {
		price := cmd.Float("price")
		update.PriceSuggested = &price
	}
	if update.Empty() {
		return fmt.Errorf("%w: nothing to update", shared.ErrMissingArgument)
	}

	book, err := r.service.UpdateBook(ctx, id, update)
	if err != nil {
		return err
	}
	r.logger.Info("book updated", "id", book.ID)

	if cmd.Bool("json") {
		return r.writeJSON(book, true)
	}
	return r.writePlainln("Updated %s: %s (%s)", book.ID, book.DisplayTitle(), book.Status)
}

// BooksImages downloads every image of a book.
func (r *Runner) BooksImages(ctx context.Context, cmd *cli.Command) error {
	book, err := r.book(ctx, cmd)
	if err != nil {
		return err
	}

	result, err := formatter.WriteImages(ctx, r.service, *book, cmd.String("out"))
	if err != nil {
		return err
	}

	for _, f := range result.Files {
		r.writePlain("✓ %s\n", f)
	}
	for name, ferr := range result.Failed {
		r.logger.Warn("failed to download image", "image", name, "error", ferr)
		r.writePlain("✗ %s: %v\n", name, ferr)
	}
	return r.writePlainln("Saved %d of %d images to %s", len(result.Files), len(book.Images), result.Directory)
}

// BooksDownload downloads the images of many books concurrently.
//
// Books are the given ids, or every queue book matching --status when no ids are given.
func (r *Runner) BooksDownload(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		status, err := parseStatus(cmd.String("status"))
		if err != nil {
			return err
		}
		books, err := r.service.Queue(ctx, status)
		if err != nil {
			return err
		}
		for _, b := range books {
			ids = append(ids, b.ID)
		}
	}
	if len(ids) == 0 {
		return r.writePlainln("No books to download")
	}

	engine := tasks.NewEngine(r.service, shared.WithLogger(r.logger, "component", "tasks"))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchBook:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.DownloadImages:
				r.writePlain("   ✓ [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.BookFailed:
				r.writePlain("   ✗ [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := engine.BulkDownload(ctx, progressCh, ids, tasks.BulkDownloadOpts{
		OutputDir:  cmd.String("out"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n═══════════════════════════════════════\n")
	r.writePlain("Download Complete!\n")
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("Books: %d/%d succeeded\n", result.Succeeded, result.TotalBooks)
	r.writePlain("Images: %d\n", result.Images)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.Failed > 0 {
		r.writePlain("\nFailed %d books:\n", result.Failed)
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  - %s: %v\n", res.BookID, res.Error)
			}
		}
	}
	return nil
}

func (r *Runner) book(ctx context.Context, cmd *cli.Command) (*models.Book, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return nil, fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}
	return r.service.Book(ctx, id)
}
