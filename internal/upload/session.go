package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
)

const (
	DefaultTickInterval  = 200 * time.Millisecond
	DefaultTickStep      = 10
	DefaultProgressCap   = 90
	DefaultRedirectDelay = 1500 * time.Millisecond
	DefaultReviewPath    = "/review"

	// GenericFailureMessage is shown when a failed upload carries no server-supplied message.
	GenericFailureMessage = "Upload failed. Please try again."
)

var (
	ErrNoFiles    = errors.New("no files selected")
	ErrSubmitting = errors.New("upload already in progress")
	ErrDisposed   = errors.New("upload session disposed")
)

// Uploader sends a whole batch in a single request.
//
// folders maps each file's [models.SelectedFile.UploadName] to its folder key.
type Uploader interface {
	UploadBatch(ctx context.Context, files []models.SelectedFile, folders map[string]string) ([]models.Book, error)
}

// MessageError is implemented by structured API errors that carry a message meant for the user.
type MessageError interface {
	error
	UserMessage() string
}

// FailureMessage returns the text shown for a failed upload: the user message of a structured error when it has
// one, otherwise [GenericFailureMessage].
func FailureMessage(err error) string {
	var me MessageError
	if errors.As(err, &me) {
		if msg := me.UserMessage(); msg != "" {
			return msg
		}
	}
	return GenericFailureMessage
}

// SubmitError is returned by [Session.Submit] when the upload call fails.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }
func (e *SubmitError) Unwrap() error { return e.Err }

// Options configures a [Session]. Only Uploader is required.
type Options struct {
	Uploader  Uploader
	Scheduler Scheduler // defaults to ClockScheduler
	Logger    *log.Logger

	// Progress receives updates without blocking; a full channel drops them.
	Progress chan<- ProgressUpdate

	// Navigate is called once, after RedirectDelay, following a successful upload.
	Navigate   func(path string)
	ReviewPath string

	TickInterval  time.Duration
	TickStep      int
	ProgressCap   int
	RedirectDelay time.Duration
}

func (o *Options) withDefaults() {
	if o.Scheduler == nil {
		o.Scheduler = ClockScheduler{}
	}
	if o.Logger == nil {
		o.Logger = shared.NewLogger(io.Discard)
	}
	if o.ReviewPath == "" {
		o.ReviewPath = DefaultReviewPath
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.TickStep <= 0 {
		o.TickStep = DefaultTickStep
	}
	if o.ProgressCap <= 0 || o.ProgressCap >= 100 {
		o.ProgressCap = DefaultProgressCap
	}
	if o.RedirectDelay <= 0 {
		o.RedirectDelay = DefaultRedirectDelay
	}
}

// State is a point-in-time copy of a session.
type State struct {
	Files      []models.SelectedFile
	Groups     []models.FolderGroup
	Submitting bool
	Progress   int
	Completed  bool
	Error      string
}

// Result describes a successful submission.
type Result struct {
	Books   []models.Book
	Files   int
	Folders int
	Bytes   int64
}

// Session holds the state of one upload page.
//
// Groups are always the projection of the current file list. After a successful submission the session stays in
// the submitting state until it is disposed, so the batch cannot be sent twice.
type Session struct {
	opts Options

	mu         sync.Mutex
	files      []models.SelectedFile
	groups     []models.FolderGroup
	submitting bool
	progress   int
	completed  bool
	errMsg     string
	disposed   bool
	batch      int

	ticking    bool
	stopTicker func()
	cancelNav  func()
}

// NewSession creates an empty session.
func NewSession(opts Options) *Session {
	opts.withDefaults()
	return &Session{opts: opts}
}

// Accept validates a batch and appends it to the selection.
//
// A batch with any invalid file is rejected whole and leaves the session unchanged.
func (s *Session) Accept(files []models.SelectedFile) error {
	if err := Validate(files); err != nil {
		s.opts.Logger.Warn("rejected files", "count", len(files), "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkMutable(); err != nil {
		return err
	}

	s.files = append(s.files, files...)
	s.regroup()
	s.opts.Logger.Debug("accepted files", "added", len(files), "total", len(s.files), "folders", len(s.groups))
	return nil
}

// Remove deletes the file at index.
func (s *Session) Remove(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkMutable(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.files) {
		return fmt.Errorf("%w: file index %d out of range [0, %d)", shared.ErrInvalidArgument, index, len(s.files))
	}

	s.files = slices.Delete(s.files, index, index+1)
	s.regroup()
	return nil
}

// RemoveFolder deletes every file whose folder key is name and reports how many were removed.
func (s *Session) RemoveFolder(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkMutable(); err != nil {
		return 0, err
	}

	before := len(s.files)
	s.files = slices.DeleteFunc(s.files, func(f models.SelectedFile) bool {
		return FolderOf(f) == name
	})
	s.regroup()
	return before - len(s.files), nil
}

// Clear empties the selection. It does not touch the submission flags.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = nil
	s.groups = nil
}

// Submit uploads every selected file in one call.
//
// It blocks until the call returns. Failures come back as a [*SubmitError] whose message is also recorded on the
// session.
func (s *Session) Submit(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	if len(s.files) == 0 {
		s.mu.Unlock()
		return nil, ErrNoFiles
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitting
	}

	files := slices.Clone(s.files)
	folders := FolderMap(files)
	groups := len(s.groups)

	s.submitting = true
	s.completed = false
	s.progress = 0
	s.errMsg = ""
	s.batch = len(files)
	s.ticking = true
	s.stopTicker = s.opts.Scheduler.Every(s.opts.TickInterval, s.tick)
	s.mu.Unlock()

	s.sendProgress(uploadingUpdate(0, len(files)))
	s.opts.Logger.Info("uploading batch", "files", len(files), "folders", groups)

	books, err := s.opts.Uploader.UploadBatch(ctx, files, folders)

	s.mu.Lock()
	s.haltTicker()

	if err != nil {
		s.submitting = false
		s.progress = 0
		s.errMsg = FailureMessage(err)
		msg := s.errMsg
		s.mu.Unlock()

		s.opts.Logger.Error("upload failed", "error", err)
		s.sendProgress(failedUpdate(msg))
		return nil, &SubmitError{Message: msg, Err: err}
	}

	s.progress = 100
	s.completed = true
	if !s.disposed {
		s.cancelNav = s.opts.Scheduler.After(s.opts.RedirectDelay, s.redirect)
	}
	s.mu.Unlock()

	s.opts.Logger.Info("upload complete", "books", len(books))
	s.sendProgress(completeUpdate(len(books)))

	result := &Result{Books: books, Files: len(files), Folders: groups}
	for _, f := range files {
		result.Bytes += f.Size
	}
	return result, nil
}

// Dispose cancels the progress ticker and any pending navigation.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disposed = true
	s.haltTicker()
	if s.cancelNav != nil {
		s.cancelNav()
		s.cancelNav = nil
	}
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Files:      slices.Clone(s.files),
		Groups:     slices.Clone(s.groups),
		Submitting: s.submitting,
		Progress:   s.progress,
		Completed:  s.completed,
		Error:      s.errMsg,
	}
}

func (s *Session) Files() []models.SelectedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.files)
}

func (s *Session) Groups() []models.FolderGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.groups)
}

func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Err returns the message of the last failed submission, or "".
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Session) tick() {
	s.mu.Lock()
	if !s.ticking || s.disposed {
		s.mu.Unlock()
		return
	}
	s.progress = min(s.progress+s.opts.TickStep, s.opts.ProgressCap)
	update := uploadingUpdate(s.progress, s.batch)
	s.mu.Unlock()

	s.sendProgress(update)
}

func (s *Session) redirect() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.cancelNav = nil
	path := s.opts.ReviewPath
	s.mu.Unlock()

	s.sendProgress(redirectUpdate(path))
	if s.opts.Navigate != nil {
		s.opts.Navigate(path)
	}
}

// haltTicker must be called with mu held.
func (s *Session) haltTicker() {
	s.ticking = false
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
}

// checkMutable must be called with mu held.
func (s *Session) checkMutable() error {
	if s.disposed {
		return ErrDisposed
	}
	if s.submitting {
		return ErrSubmitting
	}
	return nil
}

// regroup must be called with mu held.
func (s *Session) regroup() {
	s.groups = Project(s.files)
}

// sendProgress sends a progress update through the channel without blocking.
func (s *Session) sendProgress(update ProgressUpdate) {
	if s.opts.Progress == nil {
		return
	}
	select {
	case s.opts.Progress <- update:
	default:
	}
}
