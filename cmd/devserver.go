package main

import (
	"cmp"
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/booklister/internal/devserver"
	"github.com/desertthunder/booklister/internal/shared"
)

// DevServer runs the in-memory ingest API until the context is cancelled.
func (r *Runner) DevServer(ctx context.Context, cmd *cli.Command) error {
	host := cmp.Or(cmd.String("host"), r.config.DevServer.Host)
	port := cmp.Or(cmd.Int("port"), r.config.DevServer.Port)
	addr := fmt.Sprintf("%s:%d", host, port)

	srv := devserver.New(devserver.Options{
		Logger:   shared.WithLogger(r.logger, "component", "devserver"),
		Delay:    cmd.Duration("delay"),
		MaxFiles: cmd.Int("max-files"),
	})

	r.writePlain("Serving the BookLister API at http://%s (ctrl+c to stop)\n", addr)
	return srv.Start(ctx, addr)
}
