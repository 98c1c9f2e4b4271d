package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
)

// uploadView is the JSON shape of a history entry.
type uploadView struct {
	ID          string                `json:"id"`
	Sequence    int                   `json:"sequence"`
	State       models.UploadState    `json:"state"`
	Error       string                `json:"error,omitempty"`
	FileCount   int                   `json:"file_count"`
	FolderCount int                   `json:"folder_count"`
	TotalBytes  int64                 `json:"total_bytes"`
	Books       []models.UploadedBook `json:"books"`
	CreatedAt   time.Time             `json:"created_at"`
}

func newUploadView(u *models.UploadRecord) uploadView {
	return uploadView{
		ID:          u.ID(),
		Sequence:    u.Sequence(),
		State:       u.State,
		Error:       u.Error,
		FileCount:   u.FileCount,
		FolderCount: u.FolderCount,
		TotalBytes:  u.TotalBytes,
		Books:       u.Books,
		CreatedAt:   u.CreatedAt(),
	}
}

// HistoryList prints recorded uploads, newest first, followed by totals.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	uploads, err := r.history()
	if err != nil {
		return err
	}

	records, err := uploads.List(map[string]any{
		"status": cmd.String("status"),
		"limit":  cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]uploadView, len(records))
		for i, u := range records {
			views[i] = newUploadView(u)
		}
		return r.writeJSON(views, true)
	}

	r.writePlainHeader(fmt.Sprintf("Upload history: %d shown", len(records)))
	for _, u := range records {
		line := fmt.Sprintf("#%-4d %s  %-9s %4d files %3d folders %3d books  %s",
			u.Sequence(), u.CreatedAt().Format(time.DateTime), u.State,
			u.FileCount, u.FolderCount, len(u.Books), shared.FormatBytes(u.TotalBytes))
		if u.Error != "" {
			line += "  " + u.Error
		}
		r.writePlain("%s\n", line)
	}

	summary, err := uploads.Summary()
	if err != nil {
		return err
	}
	return r.writePlainln("Total: %d uploads (%d succeeded, %d failed), %d books, %s",
		summary.Uploads, summary.Succeeded, summary.Failed, summary.Books, shared.FormatBytes(summary.Bytes))
}

// HistoryShow prints one upload and the books it created.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: upload id", shared.ErrMissingArgument)
	}

	uploads, err := r.history()
	if err != nil {
		return err
	}
	u, err := uploads.Get(id)
	if err != nil {
		return err
	}
	return r.writeJSON(newUploadView(u), true)
}

// HistoryDelete removes an upload from the history.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: upload id", shared.ErrMissingArgument)
	}

	uploads, err := r.history()
	if err != nil {
		return err
	}
	if err := uploads.Delete(id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted upload %s\n", id)
}
