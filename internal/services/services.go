package services

import (
	"context"

	"github.com/desertthunder/booklister/internal/models"
)

// Service is the set of BookLister API operations used by the CLI and the terminal UI.
type Service interface {
	// UploadBatch submits files in one request and returns the books the server created.
	UploadBatch(ctx context.Context, files []models.SelectedFile, folders map[string]string) ([]models.Book, error)

	// UploadStatus reports the server's ingest limits.
	UploadStatus(ctx context.Context) (*models.UploadStatus, error)

	// Queue lists books, filtered by status when status is non-empty.
	Queue(ctx context.Context, status models.BookStatus) ([]models.Book, error)

	// Book fetches one book with its images.
	Book(ctx context.Context, id string) (*models.Book, error)

	// UpdateBook applies a partial edit to one book.
	UpdateBook(ctx context.Context, id string, update models.BookUpdate) (*models.Book, error)

	// FetchImage downloads image bytes.
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)

	// ImageURL builds the download address for a stored image path.
	ImageURL(bookID, storedPath string) string

	// BaseURL returns the API root.
	BaseURL() string
}

var _ Service = (*APIService)(nil)
