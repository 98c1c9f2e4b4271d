package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/booklister/internal/repositories"
	"github.com/desertthunder/booklister/internal/shared"
	"github.com/desertthunder/booklister/internal/ui"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.TUI.LogFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	var uploads *repositories.UploadRepository
	if uploads, err = r.history(); err != nil {
		r.logger.Warn("upload history unavailable", "error", err)
		uploads = nil
	}

	model := ui.NewModel(ctx, ui.Options{
		API:       r.service,
		Uploads:   uploads,
		Config:    r.config,
		Logger:    fileLogger,
		Scheduler: r.scheduler,
		Path:      cmd.String("page"),
		Open:      r.open,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
