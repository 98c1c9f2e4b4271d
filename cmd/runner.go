package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/booklister/internal/repositories"
	"github.com/desertthunder/booklister/internal/services"
	"github.com/desertthunder/booklister/internal/shared"
	"github.com/desertthunder/booklister/internal/upload"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	service    services.Service
	logger     *log.Logger
	output     io.Writer
	scheduler  upload.Scheduler
	open       func(url string) error

	db      *sql.DB
	uploads *repositories.UploadRepository
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	Service    services.Service // defaults to API
	Logger     *log.Logger
	Output     io.Writer
	Scheduler  upload.Scheduler
	Open       func(url string) error
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
	if opts.API == nil {
		opts.API = services.NewFromConfig(opts.Config.API)
	}
	if opts.Service == nil {
		opts.Service = opts.API
	}
	if opts.Scheduler == nil {
		opts.Scheduler = upload.ClockScheduler{}
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		service:    opts.Service,
		logger:     opts.Logger,
		output:     opts.Output,
		scheduler:  opts.Scheduler,
		open:       opts.Open,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		uploadCommand, booksCommand, historyCommand, exportCommand, statusCommand,
		setupCommand, devServerCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// history opens the upload history database on first use.
func (r *Runner) history() (*repositories.UploadRepository, error) {
	if r.uploads != nil {
		return r.uploads, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.uploads = repositories.NewUploadRepository(db)
	return r.uploads, nil
}

// Close releases the history database.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
		r.uploads = nil
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
