// API service for making HTTP requests to the BookLister ingest API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/booklister/internal/carousel"
	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
	"github.com/desertthunder/booklister/internal/upload"
)

const defaultBaseURL string = "http://127.0.0.1:8000"

// APIService provides typed and raw access to the BookLister API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures an [APIService].
type Option func(*APIService)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(a *APIService) {
		if token == "" {
			return
		}
		base := a.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		client := *a.httpClient
		client.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		}
		a.httpClient = &client
	}
}

// WithImageRateLimit caps image downloads at rps requests per second. Zero or less disables the limit.
func WithImageRateLimit(rps float64) Option {
	return func(a *APIService) {
		if rps <= 0 {
			a.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewAPIService creates a new API service instance.
func NewAPIService(baseURL string, client *http.Client, opts ...Option) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig builds an [APIService] from the api section of the configuration.
func NewFromConfig(cfg shared.APIConfig) *APIService {
	client := &http.Client{Timeout: cfg.Timeout()}
	return NewAPIService(cfg.BaseURL, client, WithToken(cfg.Token), WithImageRateLimit(cfg.ImageRateLimit))
}

// BaseURL returns the API root without a trailing slash.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return a.raw(req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.raw(req)
}

func (a *APIService) raw(req *http.Request) (*APIResponse, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// UploadBatch sends every file in one multipart request to POST /ingest/upload.
//
// Each file becomes a "files" part named as [upload.UploadNames] assigns; folders travels as the "folder_info" JSON
// field and is keyed by the same names.
// The body is streamed from disk.
func (a *APIService) UploadBatch(ctx context.Context, files []models.SelectedFile, folders map[string]string) ([]models.Book, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files to upload", shared.ErrInvalidInput)
	}

	folderInfo, err := json.Marshal(folders)
	if err != nil {
		return nil, fmt.Errorf("failed to encode folder info: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeBatch(mw, files, upload.UploadNames(files), folderInfo))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/ingest/upload", pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var books []models.Book
	if err := a.doJSON(req, &books); err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	return books, nil
}

func writeBatch(mw *multipart.Writer, files []models.SelectedFile, names []string, folderInfo []byte) error {
	for i, f := range files {
		if err := writeFilePart(mw, f, names[i]); err != nil {
			return err
		}
	}
	if err := mw.WriteField("folder_info", string(folderInfo)); err != nil {
		return err
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(mw *multipart.Writer, f models.SelectedFile, name string) error {
	src, err := os.Open(f.Source)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	defer src.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, quoteEscaper.Replace(name)))
	h.Set("Content-Type", upload.ContentType(f.Name))

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Source, err)
	}
	return nil
}

// UploadStatus fetches the ingest limits from GET /ingest/upload-status.
func (a *APIService) UploadStatus(ctx context.Context) (*models.UploadStatus, error) {
	var status models.UploadStatus
	if err := a.getJSON(ctx, "/ingest/upload-status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Queue lists books from GET /queue, optionally filtered by status.
func (a *APIService) Queue(ctx context.Context, status models.BookStatus) ([]models.Book, error) {
	path := "/queue"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}

	var books []models.Book
	if err := a.getJSON(ctx, path, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// Book fetches one book with its images from GET /book/{id}.
func (a *APIService) Book(ctx context.Context, id string) (*models.Book, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}

	var book models.Book
	if err := a.getJSON(ctx, "/book/"+url.PathEscape(id), &book); err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s: %w", shared.ErrBookNotFound, id, err)
		}
		return nil, err
	}
	return &book, nil
}

// UpdateBook applies a partial edit through PUT /book/{id} and returns the updated book.
func (a *APIService) UpdateBook(ctx context.Context, id string, update models.BookUpdate) (*models.Book, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}
	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	data, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("failed to encode update: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, a.baseURL+"/book/"+url.PathEscape(id), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var book models.Book
	if err := a.doJSON(req, &book); err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s: %w", shared.ErrBookNotFound, id, err)
		}
		return nil, err
	}
	return &book, nil
}

// ImageURL returns the download address of an image stored at storedPath for a book.
func (a *APIService) ImageURL(bookID, storedPath string) string {
	return carousel.ImageURL(a.baseURL, bookID, storedPath)
}

// FetchImage downloads the bytes at imageURL, waiting for the image rate limiter first.
func (a *APIService) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

func (a *APIService) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return a.doJSON(req, out)
}

func (a *APIService) doJSON(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
