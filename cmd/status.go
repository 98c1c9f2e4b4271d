package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/booklister/internal/shared"
)

// Status checks the API's /health endpoint and prints the upload limits it reports.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking API status", "url", r.api.BaseURL())

	resp, err := r.api.Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	health := "healthy"
	if data, ok := resp.JSONData.(map[string]any); ok {
		if s, ok := data["status"].(string); ok {
			health = s
		}
	}
	r.writePlain("✓ %s is %s\n", r.api.BaseURL(), health)

	status, err := r.service.UploadStatus(ctx)
	if err != nil {
		return err
	}

	r.writePlainln("Upload limits")
	r.writePlain("Status:           %s\n", status.Status)
	r.writePlain("Max file size:    %s\n", status.MaxFileSize)
	r.writePlain("Files per upload: %d\n", status.MaxFilesPerRequest)
	r.writePlain("Extensions:       %s\n", strings.Join(status.AllowedExtensions, " "))
	return nil
}
