// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/booklister/internal/models"
)

// UploadCall records the arguments of one [MockUploader.UploadBatch] call.
type UploadCall struct {
	Files   []models.SelectedFile
	Folders map[string]string
}

// MockUploader is a test double for upload.Uploader.
//
// When Gate is non-nil, UploadBatch waits for it to be closed (or for ctx to end) before returning.
type MockUploader struct {
	Books []models.Book
	Err   error
	Gate  chan struct{}

	mu    sync.Mutex
	calls []UploadCall
}

func (m *MockUploader) UploadBatch(ctx context.Context, files []models.SelectedFile, folders map[string]string) ([]models.Book, error) {
	m.mu.Lock()
	m.calls = append(m.calls, UploadCall{Files: files, Folders: folders})
	m.mu.Unlock()

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Books, nil
}

// Calls returns the recorded calls.
func (m *MockUploader) Calls() []UploadCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UploadCall(nil), m.calls...)
}

// MockService is an in-memory test double for services.Service.
//
// Uploads are served by the embedded [MockUploader]; Catalog backs the queue and book lookups.
type MockService struct {
	MockUploader

	URL       string
	Status    *models.UploadStatus
	Catalog   []models.Book
	Images    map[string][]byte
	QueueErr  error
	StatusErr error
}

func (m *MockService) UploadStatus(ctx context.Context) (*models.UploadStatus, error) {
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	if m.Status == nil {
		return &models.UploadStatus{Status: "ready"}, nil
	}
	return m.Status, nil
}

func (m *MockService) Queue(ctx context.Context, status models.BookStatus) ([]models.Book, error) {
	if m.QueueErr != nil {
		return nil, m.QueueErr
	}
	var books []models.Book
	for _, b := range m.Catalog {
		if status == "" || b.Status == status {
			books = append(books, b)
		}
	}
	return books, nil
}

func (m *MockService) Book(ctx context.Context, id string) (*models.Book, error) {
	for _, b := range m.Catalog {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, errors.New("book not found")
}

// UpdateBook edits the catalog entry in place without validating the update.
func (m *MockService) UpdateBook(ctx context.Context, id string, update models.BookUpdate) (*models.Book, error) {
	for i := range m.Catalog {
		if m.Catalog[i].ID == id {
			update.Apply(&m.Catalog[i], time.Now().UnixMilli())
			b := m.Catalog[i]
			return &b, nil
		}
	}
	return nil, errors.New("book not found")
}

func (m *MockService) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	data, ok := m.Images[imageURL]
	if !ok {
		return nil, errors.New("image not found")
	}
	return data, nil
}

func (m *MockService) ImageURL(bookID, storedPath string) string {
	return m.BaseURL() + "/images/" + bookID + "/" + filepath.Base(storedPath)
}

func (m *MockService) BaseURL() string {
	if m.URL == "" {
		return "http://api.test"
	}
	return m.URL
}

type scheduled struct {
	every     bool
	delay     time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

// ManualScheduler is a test double for upload.Scheduler whose timers only fire when told to.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*scheduled
}

func (s *ManualScheduler) Every(d time.Duration, fn func()) func() {
	return s.add(&scheduled{every: true, delay: d, fn: fn})
}

func (s *ManualScheduler) After(d time.Duration, fn func()) func() {
	return s.add(&scheduled{delay: d, fn: fn})
}

func (s *ManualScheduler) add(task *scheduled) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		task.cancelled = true
	}
}

// Tick fires every live repeating task n times.
func (s *ManualScheduler) Tick(n int) {
	for range n {
		for _, fn := range s.live(true) {
			fn()
		}
	}
}

// Fire runs every live one-shot task once.
func (s *ManualScheduler) Fire() int {
	fns := s.live(false)
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Pending reports the number of live repeating and one-shot tasks.
func (s *ManualScheduler) Pending() (repeating, oneShot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.cancelled || t.fired {
			continue
		}
		if t.every {
			repeating++
		} else {
			oneShot++
		}
	}
	return repeating, oneShot
}

// Delays returns the delay of every one-shot task ever scheduled.
func (s *ManualScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, t := range s.tasks {
		if !t.every {
			out = append(out, t.delay)
		}
	}
	return out
}

func (s *ManualScheduler) live(every bool) []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fns []func()
	for _, t := range s.tasks {
		if t.cancelled || t.fired || t.every != every {
			continue
		}
		if !every {
			t.fired = true
		}
		fns = append(fns, t.fn)
	}
	return fns
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// WriteFile creates dir/rel (and its parents) holding size zero bytes and returns its path.
func WriteFile(t *testing.T, dir, rel string, size int) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return path
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
