package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/booklister/internal/formatter"
	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
	"golang.org/x/time/rate"
)

const manifestName = "download_manifest.json"

// BulkDownloadOpts configures [Engine.BulkDownload].
type BulkDownloadOpts struct {
	OutputDir  string  // Base output directory (default: booklister_images_{epoch})
	NumWorkers int     // Concurrent workers (default: 4, max: 10)
	RateLimit  float64 // Book fetches per second (default: 5)
}

// BookDownloadResult is the outcome for one book.
type BookDownloadResult struct {
	BookID string
	Title  string
	Files  []string
	Missed int // images that could not be fetched
	Error  error

	index int
}

func (r BookDownloadResult) label() string {
	if r.Title == "" {
		return r.BookID
	}
	return fmt.Sprintf("%q (%s)", r.Title, r.BookID)
}

// BulkDownloadResult aggregates a bulk download.
type BulkDownloadResult struct {
	TotalBooks      int
	Succeeded       int
	Failed          int
	Images          int
	OutputDirectory string
	ManifestPath    string
	Results         []BookDownloadResult // in request order
}

type downloadJob struct {
	index int
	book  *models.Book
}

// BulkDownload downloads the images of every book in ids with a rate-limited fetch loop feeding a worker pool.
//
// Books that fail to fetch or write are reported in the result; the error return covers setup failures,
// cancellation and the manifest.
func (e *Engine) BulkDownload(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []string,
	opts BulkDownloadOpts,
) (*BulkDownloadResult, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher not initialized", shared.ErrServiceUnavailable)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no books to download", shared.ErrMissingArgument)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("booklister_images_%d", time.Now().Unix())
	}
	opts.NumWorkers = min(max(opts.NumWorkers, 0), 10)
	if opts.NumWorkers == 0 {
		opts.NumWorkers = 4
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkDownloadResult{
		TotalBooks:      len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]BookDownloadResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan downloadJob, len(ids))
	results := make(chan BookDownloadResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.downloadWorker(ctx, &wg, jobs, results, opts.OutputDir)
	}

	go func() {
		defer close(jobs)
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			e.sendProgress(prog, fetchingBookUpdate(i+1, len(ids), id))

			book, err := e.fetcher.Book(ctx, id)
			if err != nil {
				results <- BookDownloadResult{
					BookID: id,
					Error:  fmt.Errorf("failed to fetch book: %w", err),
					index:  i,
				}
				continue
			}
			jobs <- downloadJob{index: i, book: book}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Error != nil {
			result.Failed++
			e.debug("book download failed", "book", res.BookID, "error", res.Error)
			e.sendProgress(prog, failedUpdate(completed, len(ids), res))
			continue
		}
		result.Succeeded++
		result.Images += len(res.Files)
		e.sendProgress(prog, downloadedUpdate(completed, len(ids), res))
	}

	slices.SortFunc(result.Results, func(a, b BookDownloadResult) int { return a.index - b.index })

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("download completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func (e *Engine) downloadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan downloadJob,
	results chan<- BookDownloadResult,
	outputDir string,
) {
	defer wg.Done()

	for job := range jobs {
		res := BookDownloadResult{BookID: job.book.ID, Title: job.book.Title, index: job.index}
		if err := ctx.Err(); err != nil {
			res.Error = err
			results <- res
			continue
		}

		written, err := formatter.WriteImages(ctx, e.fetcher, *job.book, outputDir)
		if written != nil {
			res.Files = written.Files
			res.Missed = len(written.Failed)
		}
		if err != nil {
			res.Error = err
		}
		results <- res
	}
}

type manifestEntry struct {
	BookID string   `json:"book_id"`
	Title  string   `json:"title,omitempty"`
	Files  []string `json:"files"`
	Missed int      `json:"missed,omitempty"`
	Error  string   `json:"error,omitempty"`
}

type manifest struct {
	CreatedAt time.Time       `json:"created_at"`
	Total     int             `json:"total_books"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Images    int             `json:"images"`
	Books     []manifestEntry `json:"books"`
}

func writeManifest(result *BulkDownloadResult, path string) error {
	m := manifest{
		CreatedAt: time.Now().UTC(),
		Total:     result.TotalBooks,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Images:    result.Images,
		Books:     make([]manifestEntry, 0, len(result.Results)),
	}
	for _, r := range result.Results {
		entry := manifestEntry{BookID: r.BookID, Title: r.Title, Files: r.Files, Missed: r.Missed}
		if entry.Files == nil {
			entry.Files = []string{}
		}
		if r.Error != nil {
			entry.Error = r.Error.Error()
		}
		m.Books = append(m.Books, entry)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
