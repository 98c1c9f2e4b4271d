package upload

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
	tu "github.com/desertthunder/booklister/internal/testing"
)

type structuredErr struct{ detail string }

func (e structuredErr) Error() string       { return "status 400: " + e.detail }
func (e structuredErr) UserMessage() string { return e.detail }

type harness struct {
	session   *Session
	uploader  *tu.MockUploader
	scheduler *tu.ManualScheduler
	progress  chan ProgressUpdate

	mu        sync.Mutex
	navigated []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		uploader:  &tu.MockUploader{},
		scheduler: &tu.ManualScheduler{},
		progress:  make(chan ProgressUpdate, 64),
	}
	h.session = NewSession(Options{
		Uploader:  h.uploader,
		Scheduler: h.scheduler,
		Progress:  h.progress,
		Navigate: func(path string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.navigated = append(h.navigated, path)
		},
	})
	t.Cleanup(h.session.Dispose)
	return h
}

func (h *harness) navigations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.navigated...)
}

func (h *harness) drain() []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-h.progress:
			out = append(out, u)
		default:
			return out
		}
	}
}

func sampleFiles() []models.SelectedFile {
	return []models.SelectedFile{
		{Name: "1.jpg", Size: 100, RelativePath: "Spine/1.jpg"},
		{Name: "2.jpg", Size: 200, RelativePath: "Spine/2.jpg"},
		{Name: "3.png", Size: 300},
	}
}

func mustAccept(t *testing.T, s *Session, files []models.SelectedFile) {
	t.Helper()
	if err := s.Accept(files); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
}

func mustSubmit(t *testing.T, s *Session) *Result {
	t.Helper()
	result, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return result
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting: %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) assertPending(t *testing.T, wantRepeating, wantOneShot int) {
	t.Helper()
	repeating, oneShot := h.scheduler.Pending()
	if repeating != wantRepeating || oneShot != wantOneShot {
		t.Errorf("pending timers = %d repeating, %d one-shot; want %d, %d", repeating, oneShot, wantRepeating, wantOneShot)
	}
}

func TestSessionAccept(t *testing.T) {
	t.Run("groups the spine scenario", func(t *testing.T) {
		h := newHarness(t)
		mustAccept(t, h.session, sampleFiles())

		groups := h.session.Groups()
		if len(groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(groups))
		}
		if groups[0].Name != "Spine" || len(groups[0].Files) != 2 {
			t.Errorf("first group = %s with %d files, want Spine with 2", groups[0].Name, len(groups[0].Files))
		}
		if groups[1].Name != models.GeneralFolder || len(groups[1].Files) != 1 {
			t.Errorf("second group = %s with %d files, want General with 1", groups[1].Name, len(groups[1].Files))
		}
	})

	t.Run("appends to the selection", func(t *testing.T) {
		h := newHarness(t)
		mustAccept(t, h.session, sampleFiles()[:1])
		mustAccept(t, h.session, sampleFiles()[1:])

		if !reflect.DeepEqual(h.session.Files(), sampleFiles()) {
			t.Errorf("Files() = %+v, want both batches in order", h.session.Files())
		}
		if n := len(h.session.Groups()); n != 2 {
			t.Errorf("expected 2 groups, got %d", n)
		}
	})

	t.Run("oversized file leaves empty selection", func(t *testing.T) {
		h := newHarness(t)
		err := h.session.Accept([]models.SelectedFile{{Name: "big.png", Size: 12 * 1024 * 1024}})

		validationError(t, err)
		if len(h.session.Files()) != 0 || len(h.session.Groups()) != 0 {
			t.Error("rejected batch should leave the selection empty")
		}
	})

	t.Run("rejection keeps prior state", func(t *testing.T) {
		h := newHarness(t)
		mustAccept(t, h.session, sampleFiles())
		before := h.session.Snapshot()

		batch := []models.SelectedFile{
			{Name: "ok.jpg", Size: 1, RelativePath: "New/ok.jpg"},
			{Name: "cover.gif", Size: 1},
		}
		if err := h.session.Accept(batch); err == nil {
			t.Fatal("expected batch with a gif to be rejected")
		}
		if after := h.session.Snapshot(); !reflect.DeepEqual(before, after) {
			t.Errorf("state changed after rejection:\nbefore %+v\nafter  %+v", before, after)
		}
	})
}

func TestSessionRemove(t *testing.T) {
	t.Run("by index", func(t *testing.T) {
		h := newHarness(t)
		mustAccept(t, h.session, sampleFiles())
		if err := h.session.Remove(2); err != nil {
			t.Fatalf("Remove(2) error = %v", err)
		}

		files := h.session.Files()
		if len(files) != 2 {
			t.Fatalf("expected 2 files, got %d", len(files))
		}
		if !reflect.DeepEqual(h.session.Groups(), Project(files)) {
			t.Error("groups do not match the remaining files")
		}
		if n := len(h.session.Groups()); n != 1 {
			t.Errorf("expected 1 group, got %d", n)
		}
	})

	t.Run("index out of range", func(t *testing.T) {
		h := newHarness(t)
		mustAccept(t, h.session, sampleFiles())

		for _, idx := range []int{-1, 3} {
			if err := h.session.Remove(idx); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("Remove(%d) error = %v, want ErrInvalidArgument", idx, err)
			}
		}
		if n := len(h.session.Files()); n != 3 {
			t.Errorf("expected 3 files, got %d", n)
		}
	})

	t.Run("folder removes exactly its files", func(t *testing.T) {
		h := newHarness(t)
		files := append(sampleFiles(), models.SelectedFile{Name: "Spine.jpg", Size: 1, RelativePath: "SpineBack/Spine.jpg"})
		mustAccept(t, h.session, files)

		n, err := h.session.RemoveFolder("Spine")
		if err != nil || n != 2 {
			t.Fatalf("RemoveFolder(Spine) = %d, %v; want 2, nil", n, err)
		}

		remaining := h.session.Files()
		if !reflect.DeepEqual(remaining, []models.SelectedFile{files[2], files[3]}) {
			t.Errorf("remaining = %+v", remaining)
		}
		for _, f := range remaining {
			if FolderOf(f) == "Spine" {
				t.Errorf("%s should have been removed", f.UploadName())
			}
		}
	})

	t.Run("general folder", func(t *testing.T) {
		h := newHarness(t)
		mustAccept(t, h.session, sampleFiles())

		n, err := h.session.RemoveFolder(models.GeneralFolder)
		if err != nil || n != 1 {
			t.Fatalf("RemoveFolder(General) = %d, %v; want 1, nil", n, err)
		}
		if got := len(h.session.Groups()); got != 1 {
			t.Errorf("expected 1 group, got %d", got)
		}
	})

	t.Run("unknown folder is a no-op", func(t *testing.T) {
		h := newHarness(t)
		mustAccept(t, h.session, sampleFiles())

		n, err := h.session.RemoveFolder("Missing")
		if err != nil || n != 0 {
			t.Fatalf("RemoveFolder(Missing) = %d, %v; want 0, nil", n, err)
		}
		if got := len(h.session.Files()); got != 3 {
			t.Errorf("expected 3 files, got %d", got)
		}
	})
}

func TestSessionClear(t *testing.T) {
	h := newHarness(t)
	mustAccept(t, h.session, sampleFiles())

	h.session.Clear()
	if len(h.session.Files()) != 0 || len(h.session.Groups()) != 0 {
		t.Error("Clear() should empty files and groups")
	}
}

func TestSessionSubmit(t *testing.T) {
	t.Run("requires files", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.session.Submit(context.Background()); !errors.Is(err, ErrNoFiles) {
			t.Errorf("expected ErrNoFiles, got %v", err)
		}
		if n := len(h.uploader.Calls()); n != 0 {
			t.Errorf("expected no upload call, got %d", n)
		}
	})

	t.Run("success", func(t *testing.T) {
		h := newHarness(t)
		h.uploader.Books = []models.Book{{ID: "b1"}, {ID: "b2"}}
		mustAccept(t, h.session, sampleFiles())

		result := mustSubmit(t, h.session)
		if len(result.Books) != 2 || result.Files != 3 || result.Folders != 2 || result.Bytes != 600 {
			t.Errorf("unexpected result %+v", result)
		}

		calls := h.uploader.Calls()
		if len(calls) != 1 {
			t.Fatalf("expected exactly one upload call, got %d", len(calls))
		}
		if !reflect.DeepEqual(calls[0].Files, sampleFiles()) {
			t.Errorf("uploaded files = %+v", calls[0].Files)
		}
		wantFolders := map[string]string{
			"Spine/1.jpg": "Spine",
			"Spine/2.jpg": "Spine",
			"3.png":       models.GeneralFolder,
		}
		if !reflect.DeepEqual(calls[0].Folders, wantFolders) {
			t.Errorf("folders = %v, want %v", calls[0].Folders, wantFolders)
		}

		state := h.session.Snapshot()
		if state.Progress != 100 || !state.Completed || !state.Submitting || state.Error != "" {
			t.Errorf("unexpected state after success %+v", state)
		}

		h.assertPending(t, 0, 1)
		if delays := h.scheduler.Delays(); !reflect.DeepEqual(delays, []time.Duration{DefaultRedirectDelay}) {
			t.Errorf("scheduled delays = %v, want [%v]", delays, DefaultRedirectDelay)
		}
		if nav := h.navigations(); len(nav) != 0 {
			t.Errorf("navigated before the delay: %v", nav)
		}

		if n := h.scheduler.Fire(); n != 1 {
			t.Errorf("Fire() ran %d callbacks, want 1", n)
		}
		if nav := h.navigations(); !reflect.DeepEqual(nav, []string{DefaultReviewPath}) {
			t.Errorf("navigations = %v, want [%s]", nav, DefaultReviewPath)
		}
		if n := h.scheduler.Fire(); n != 0 {
			t.Errorf("second Fire() ran %d callbacks, want 0", n)
		}

		updates := h.drain()
		if len(updates) < 3 {
			t.Fatalf("expected at least 3 updates, got %+v", updates)
		}
		complete := updates[len(updates)-2]
		if updates[0].Phase != Uploading || complete.Phase != Complete || complete.Books != 2 || updates[len(updates)-1].Phase != Redirect {
			t.Errorf("unexpected update sequence %+v", updates)
		}
	})

	t.Run("repeated names keep one folder entry each", func(t *testing.T) {
		h := newHarness(t)
		mustAccept(t, h.session, []models.SelectedFile{
			{Name: "IMG_1.jpg", Size: 1},
			{Name: "IMG_1.jpg", Size: 2},
		})
		mustSubmit(t, h.session)

		folders := h.uploader.Calls()[0].Folders
		want := map[string]string{"IMG_1.jpg": models.GeneralFolder, "IMG_1 (2).jpg": models.GeneralFolder}
		if !reflect.DeepEqual(folders, want) {
			t.Errorf("folders = %v, want %v", folders, want)
		}
	})

	t.Run("completed session rejects another submit", func(t *testing.T) {
		h := newHarness(t)
		mustAccept(t, h.session, sampleFiles())
		mustSubmit(t, h.session)

		if _, err := h.session.Submit(context.Background()); !errors.Is(err, ErrSubmitting) {
			t.Errorf("expected ErrSubmitting, got %v", err)
		}
		if n := len(h.uploader.Calls()); n != 1 {
			t.Errorf("expected one upload call, got %d", n)
		}
		h.assertPending(t, 0, 1)
	})

	t.Run("structured failure surfaces detail verbatim", func(t *testing.T) {
		const detail = "Too many files. Maximum 100 files per request"
		h := newHarness(t)
		h.uploader.Err = structuredErr{detail: detail}
		mustAccept(t, h.session, sampleFiles())

		_, err := h.session.Submit(context.Background())

		var serr *SubmitError
		if !errors.As(err, &serr) {
			t.Fatalf("expected *SubmitError, got %v", err)
		}
		if serr.Message != detail {
			t.Errorf("Message = %q, want %q", serr.Message, detail)
		}

		state := h.session.Snapshot()
		if state.Submitting || state.Progress != 0 || state.Completed || state.Error != detail {
			t.Errorf("unexpected state after failure %+v", state)
		}
		h.assertPending(t, 0, 0)
		if nav := h.navigations(); len(nav) != 0 {
			t.Errorf("failure should not navigate, got %v", nav)
		}
	})

	t.Run("unstructured failure uses generic message", func(t *testing.T) {
		h := newHarness(t)
		h.uploader.Err = errors.New("connection refused")
		mustAccept(t, h.session, sampleFiles())

		_, err := h.session.Submit(context.Background())
		if err == nil || err.Error() != GenericFailureMessage {
			t.Fatalf("Submit() error = %v, want %q", err, GenericFailureMessage)
		}
		if h.session.Err() != GenericFailureMessage || h.session.Submitting() || h.session.Progress() != 0 {
			t.Errorf("unexpected state after failure %+v", h.session.Snapshot())
		}

		updates := h.drain()
		if len(updates) == 0 || updates[len(updates)-1].Phase != Failed {
			t.Errorf("expected a final Failed update, got %+v", updates)
		}
	})

	t.Run("failure leaves session resubmittable", func(t *testing.T) {
		h := newHarness(t)
		h.uploader.Err = errors.New("boom")
		mustAccept(t, h.session, sampleFiles())
		if _, err := h.session.Submit(context.Background()); err == nil {
			t.Fatal("expected first submit to fail")
		}

		h.uploader.Err = nil
		mustSubmit(t, h.session)
		if n := len(h.uploader.Calls()); n != 2 {
			t.Errorf("expected 2 upload calls, got %d", n)
		}
		if h.session.Err() != "" || !h.session.Completed() {
			t.Errorf("unexpected state after retry %+v", h.session.Snapshot())
		}
	})
}

func TestSessionProgressTicker(t *testing.T) {
	h := newHarness(t)
	h.uploader.Gate = make(chan struct{})
	mustAccept(t, h.session, sampleFiles())

	done := make(chan error, 1)
	go func() {
		_, err := h.session.Submit(context.Background())
		done <- err
	}()

	eventually(t, func() bool { return len(h.uploader.Calls()) == 1 }, "upload call")

	if !h.session.Submitting() {
		t.Error("expected Submitting() while the upload is in flight")
	}
	if err := h.session.Accept(sampleFiles()); !errors.Is(err, ErrSubmitting) {
		t.Errorf("Accept() error = %v, want ErrSubmitting", err)
	}
	if err := h.session.Remove(0); !errors.Is(err, ErrSubmitting) {
		t.Errorf("Remove() error = %v, want ErrSubmitting", err)
	}
	if _, err := h.session.Submit(context.Background()); !errors.Is(err, ErrSubmitting) {
		t.Errorf("Submit() error = %v, want ErrSubmitting", err)
	}

	last := 0
	for i := 0; i < 12; i++ {
		h.scheduler.Tick(1)
		p := h.session.Progress()
		if p < last {
			t.Errorf("tick %d: progress decreased from %d to %d", i, last, p)
		}
		if p >= 100 {
			t.Errorf("tick %d: progress %d reached completion before the upload finished", i, p)
		}
		last = p
	}
	if last != DefaultProgressCap {
		t.Errorf("progress settled at %d, want %d", last, DefaultProgressCap)
	}

	close(h.uploader.Gate)
	if err := <-done; err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if p := h.session.Progress(); p != 100 {
		t.Errorf("Progress() = %d, want 100", p)
	}

	h.scheduler.Tick(1)
	if p := h.session.Progress(); p != 100 {
		t.Errorf("tick after completion changed progress to %d", p)
	}
}

func TestSessionDispose(t *testing.T) {
	t.Run("cancels pending navigation", func(t *testing.T) {
		h := newHarness(t)
		mustAccept(t, h.session, sampleFiles())
		mustSubmit(t, h.session)

		h.session.Dispose()

		h.assertPending(t, 0, 0)
		if n := h.scheduler.Fire(); n != 0 {
			t.Errorf("Fire() ran %d callbacks after dispose", n)
		}
		if nav := h.navigations(); len(nav) != 0 {
			t.Errorf("navigated after dispose: %v", nav)
		}
	})

	t.Run("cancels running ticker", func(t *testing.T) {
		h := newHarness(t)
		h.uploader.Gate = make(chan struct{})
		mustAccept(t, h.session, sampleFiles())

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = h.session.Submit(context.Background())
		}()
		eventually(t, func() bool {
			repeating, _ := h.scheduler.Pending()
			return repeating == 1
		}, "progress ticker")

		h.session.Dispose()
		h.assertPending(t, 0, 0)

		close(h.uploader.Gate)
		<-done
		h.assertPending(t, 0, 0)
	})

	t.Run("rejects further use", func(t *testing.T) {
		h := newHarness(t)
		h.session.Dispose()

		if err := h.session.Accept(sampleFiles()); !errors.Is(err, ErrDisposed) {
			t.Errorf("Accept() error = %v, want ErrDisposed", err)
		}
		if _, err := h.session.Submit(context.Background()); !errors.Is(err, ErrDisposed) {
			t.Errorf("Submit() error = %v, want ErrDisposed", err)
		}
	})
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"structured", structuredErr{detail: "Invalid file type"}, "Invalid file type"},
		{"wrapped structured", errors.Join(errors.New("outer"), structuredErr{detail: "nope"}), "nope"},
		{"structured without message", structuredErr{}, GenericFailureMessage},
		{"plain", errors.New("timeout"), GenericFailureMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureMessage(tt.err); got != tt.want {
				t.Errorf("FailureMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClockScheduler(t *testing.T) {
	var s ClockScheduler

	fired := make(chan struct{}, 8)
	cancel := s.Every(time.Millisecond, func() { fired <- struct{}{} })
	<-fired
	cancel()
	cancel()

	after := make(chan struct{}, 1)
	s.After(time.Millisecond, func() { after <- struct{}{} })
	select {
	case <-after:
	case <-time.After(time.Second):
		t.Fatal("After callback did not run")
	}

	never := s.After(time.Hour, func() { t.Error("cancelled callback ran") })
	never()
}
