// package formatter exports book records to CSV, JSON, YAML, Markdown, and Parquet, and saves book images to disk
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/desertthunder/booklister/internal/carousel"
	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatParquet  Format = "parquet"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatYAML, FormatMarkdown, FormatParquet}
}

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "parquet", "pq":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatYAML:
		return "yaml"
	default:
		return string(f)
	}
}

var csvHeaders = []string{"ID", "Status", "Title", "Author", "Publisher", "Year", "ISBN13", "Condition", "Price", "Images"}

// ExportToCSV converts books to CSV with one row per book
func ExportToCSV(books []models.Book) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, b := range books {
		record := []string{
			b.ID,
			string(b.Status),
			b.Title,
			b.Author,
			b.Publisher,
			b.Year,
			b.ISBN13,
			b.ConditionGrade,
			formatPrice(b.PriceSuggested),
			strconv.Itoa(len(b.Images)),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts books to an indented JSON array
func ExportToJSON(books []models.Book) ([]byte, error) {
	if books == nil {
		books = []models.Book{}
	}
	data, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToYAML converts books to a YAML sequence
func ExportToYAML(books []models.Book) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if books == nil {
		books = []models.Book{}
	}
	if err := enc.Encode(books); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders books as a table, linking each title to its first image when baseURL is set
func ExportToMarkdown(books []models.Book, baseURL string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Book Queue\n\n")
	buf.WriteString(fmt.Sprintf("**Books**: %d\n\n", len(books)))

	if len(books) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Title | Author | Year | ISBN | Status | Price | Images |\n")
	buf.WriteString("|---|-------|--------|------|------|--------|-------|--------|\n")

	for i, b := range books {
		title := escapeCell(b.DisplayTitle())
		if baseURL != "" && len(b.Images) > 0 {
			title = fmt.Sprintf("[%s](%s)", title, carousel.ImageURL(baseURL, b.ID, b.Images[0].Path))
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s | %d |\n",
			i+1,
			title,
			escapeCell(b.Author),
			escapeCell(b.Year),
			escapeCell(b.ISBN13),
			b.Status,
			formatPrice(b.PriceSuggested),
			len(b.Images),
		))
	}

	return buf.Bytes(), nil
}

// BookRow is the flat Parquet schema for a book.
type BookRow struct {
	ID             string   `parquet:"id"`
	Status         string   `parquet:"status"`
	Title          string   `parquet:"title"`
	Author         string   `parquet:"author"`
	Publisher      string   `parquet:"publisher"`
	Year           string   `parquet:"year"`
	ISBN13         string   `parquet:"isbn13"`
	ConditionGrade string   `parquet:"condition_grade"`
	PriceSuggested *float64 `parquet:"price_suggested,optional"`
	ImageCount     int32    `parquet:"image_count"`
	ImagePaths     []string `parquet:"image_paths,list"`
	CreatedAt      int64    `parquet:"created_at"`
	UpdatedAt      int64    `parquet:"updated_at"`
}

// NewBookRow flattens a book into a [BookRow].
func NewBookRow(b models.Book) BookRow {
	paths := make([]string, len(b.Images))
	for i, img := range b.Images {
		paths[i] = img.Path
	}
	return BookRow{
		ID:             b.ID,
		Status:         string(b.Status),
		Title:          b.Title,
		Author:         b.Author,
		Publisher:      b.Publisher,
		Year:           b.Year,
		ISBN13:         b.ISBN13,
		ConditionGrade: b.ConditionGrade,
		PriceSuggested: b.PriceSuggested,
		ImageCount:     int32(len(b.Images)),
		ImagePaths:     paths,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

// ExportToParquet writes books as a single Parquet file
func ExportToParquet(books []models.Book) ([]byte, error) {
	rows := make([]BookRow, len(books))
	for i, b := range books {
		rows[i] = NewBookRow(b)
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[BookRow](&buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}

	return buf.Bytes(), nil
}

// ReadParquet reads every row of a Parquet export.
func ReadParquet(data []byte) ([]BookRow, error) {
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[BookRow](pf)
	defer reader.Close()

	rows := make([]BookRow, pf.NumRows())
	n, err := reader.Read(rows)
	if err != nil && n < len(rows) {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return rows[:n], nil
}

// Export encodes books in the given format.
func Export(books []models.Book, format Format, baseURL string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(books)
	case FormatJSON:
		return ExportToJSON(books)
	case FormatYAML:
		return ExportToYAML(books)
	case FormatMarkdown:
		return ExportToMarkdown(books, baseURL)
	case FormatParquet:
		return ExportToParquet(books)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
}

// WriteExport encodes books and writes them to outPath, or to a timestamped file in dir when path is empty.
//
// Returns the path written.
func WriteExport(books []models.Book, format Format, baseURL, dir, outPath string) (string, error) {
	data, err := Export(books, format, baseURL)
	if err != nil {
		return "", err
	}

	if outPath == "" {
		if dir == "" {
			dir = "."
		}
		outPath = filepath.Join(dir, fmt.Sprintf("books_%s.%s", time.Now().Format("20060102_150405"), format.Extension()))
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return outPath, nil
}

// ImageFetcher downloads book images.
type ImageFetcher interface {
	ImageURL(bookID, storedPath string) string
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// ImageExportResult lists the files written by [WriteImages] and the images that could not be fetched.
type ImageExportResult struct {
	Directory string
	Files     []string
	Failed    map[string]error
}

// WriteImages downloads every image of book into {outputDir}/{book id}/, named by the last segment of the stored path.
//
// A failed download is recorded and skipped; the error return is reserved for filesystem failures and cancellation.
func WriteImages(ctx context.Context, fetcher ImageFetcher, book models.Book, outputDir string) (*ImageExportResult, error) {
	dir := filepath.Join(outputDir, book.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &ImageExportResult{Directory: dir, Failed: map[string]error{}}
	for _, img := range book.Images {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := path.Base(strings.ReplaceAll(img.Path, "\\", "/"))
		data, err := fetcher.FetchImage(ctx, fetcher.ImageURL(book.ID, img.Path))
		if err != nil {
			result.Failed[name] = err
			continue
		}

		dest := filepath.Join(dir, name)
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return result, fmt.Errorf("failed to write image: %w", err)
		}
		result.Files = append(result.Files, dest)
	}

	return result, nil
}

func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
