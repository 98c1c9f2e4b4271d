package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/booklister/internal/models"
)

// Fetcher is the part of the API client bulk operations need.
type Fetcher interface {
	Book(ctx context.Context, id string) (*models.Book, error)
	ImageURL(bookID, storedPath string) string
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// Engine runs bulk operations through a [Fetcher].
type Engine struct {
	fetcher Fetcher
	logger  *log.Logger
}

// NewEngine creates an engine. A nil logger disables logging.
func NewEngine(f Fetcher, logger *log.Logger) *Engine {
	return &Engine{fetcher: f, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *Engine) debug(msg string, kv ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, kv...)
	}
}
