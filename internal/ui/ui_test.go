package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/nav"
	"github.com/desertthunder/booklister/internal/repositories"
	"github.com/desertthunder/booklister/internal/services"
	"github.com/desertthunder/booklister/internal/shared"
	tu "github.com/desertthunder/booklister/internal/testing"
)

var _ services.Service = (*tu.MockService)(nil)

var namedKeys = map[string]tea.KeyType{
	"tab":       tea.KeyTab,
	"shift+tab": tea.KeyShiftTab,
	"enter":     tea.KeyEnter,
	"esc":       tea.KeyEsc,
	"ctrl+d":    tea.KeyCtrlD,
	"up":        tea.KeyUp,
	"down":      tea.KeyDown,
	"left":      tea.KeyLeft,
	"right":     tea.KeyRight,
}

func keyMsg(k string) tea.KeyMsg {
	if kt, ok := namedKeys[k]; ok {
		return tea.KeyMsg{Type: kt}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends keys in order and returns the command produced by the last one.
func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyMsg(k))
	}
	return cmd
}

// step runs cmd once, feeds its messages back into the model, and returns the follow-up commands.
func step(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("command did not return")
	}

	if batch, ok := msg.(tea.BatchMsg); ok {
		var next []tea.Cmd
		for _, c := range batch {
			if c != nil {
				next = append(next, step(t, m, c))
			}
		}
		return tea.Batch(next...)
	}

	_, next := m.Update(msg)
	return next
}

func sampleBook() models.Book {
	return models.Book{
		ID:     "b1",
		Status: models.BookNew,
		Title:  "Dune",
		Author: "Frank Herbert",
		Images: []models.Image{
			{ID: "1", BookID: "b1", Path: "storage/b1/front.jpg"},
			{ID: "2", BookID: "b1", Path: "storage/b1/back.jpg"},
			{ID: "3", BookID: "b1", Path: "storage/b1/spine.jpg"},
		},
	}
}

func newTestModel(t *testing.T, svc *tu.MockService, opts Options) *Model {
	t.Helper()
	opts.API = svc
	if opts.Scheduler == nil {
		opts.Scheduler = &tu.ManualScheduler{}
	}
	m := NewModel(context.Background(), opts)
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func writeImages(t *testing.T, dir string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		tu.WriteFile(t, dir, rel, 64)
	}
}

func TestNavigation(t *testing.T) {
	t.Run("starts on upload by default", func(t *testing.T) {
		m := newTestModel(t, &tu.MockService{}, Options{})
		if m.Path() != nav.Upload.Path {
			t.Errorf("expected %s, got %s", nav.Upload.Path, m.Path())
		}
	})

	t.Run("unknown start path falls back to upload", func(t *testing.T) {
		m := newTestModel(t, &tu.MockService{}, Options{Path: "/nowhere"})
		if m.Path() != nav.Upload.Path {
			t.Errorf("expected %s, got %s", nav.Upload.Path, m.Path())
		}
	})

	t.Run("tab cycles forward and wraps", func(t *testing.T) {
		m := newTestModel(t, &tu.MockService{}, Options{Path: nav.Settings.Path})
		press(m, "tab")
		if m.Path() != nav.Review.Path {
			t.Errorf("expected %s, got %s", nav.Review.Path, m.Path())
		}
	})

	t.Run("shift+tab cycles backward and wraps", func(t *testing.T) {
		m := newTestModel(t, &tu.MockService{}, Options{Path: nav.Review.Path})
		press(m, "shift+tab")
		if m.Path() != nav.Settings.Path {
			t.Errorf("expected %s, got %s", nav.Settings.Path, m.Path())
		}
	})

	t.Run("digits select routes", func(t *testing.T) {
		m := newTestModel(t, &tu.MockService{}, Options{})
		for i, r := range nav.Routes() {
			press(m, string(rune('1'+i)))
			if m.Path() != r.Path {
				t.Errorf("key %d: expected %s, got %s", i+1, r.Path, m.Path())
			}
		}
	})

	t.Run("review loads the queue", func(t *testing.T) {
		svc := &tu.MockService{Catalog: []models.Book{sampleBook()}}
		m := newTestModel(t, svc, Options{})

		step(t, m, press(m, "1"))
		if len(m.books) != 1 {
			t.Fatalf("expected 1 book, got %d", len(m.books))
		}
	})

	t.Run("nav bar marks the active route", func(t *testing.T) {
		m := newTestModel(t, &tu.MockService{}, Options{Path: nav.Export.Path})
		view := m.View()
		for _, r := range nav.Routes() {
			if !strings.Contains(view, r.Icon+" "+r.Name) {
				t.Errorf("expected nav bar to contain %s", r.Name)
			}
		}
		if !strings.Contains(view, "Export the review queue") {
			t.Errorf("expected export page, got %s", view)
		}
	})
}

func TestUploadPage(t *testing.T) {
	t.Run("adds a library folder and groups by sub-folder", func(t *testing.T) {
		dir := t.TempDir()
		writeImages(t, dir, "Spine/a.jpg", "Spine/b.jpg", "c.png")
		m := newTestModel(t, &tu.MockService{}, Options{})

		press(m, "a")
		if !m.input.Focused() {
			t.Fatal("expected input to be focused")
		}
		m.input.SetValue(dir)
		press(m, "ctrl+d")

		groups := m.session.Groups()
		if len(groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(groups))
		}
		if groups[0].Name != "Spine" || groups[1].Name != models.GeneralFolder {
			t.Errorf("unexpected groups: %s, %s", groups[0].Name, groups[1].Name)
		}
		if m.input.Focused() {
			t.Error("expected input to blur after adding")
		}

		view := m.View()
		if !strings.Contains(view, "Spine") || !strings.Contains(view, "c.png") {
			t.Errorf("expected grouped files in view, got %s", view)
		}
	})

	t.Run("removes files, folders, and clears", func(t *testing.T) {
		dir := t.TempDir()
		writeImages(t, dir, "Spine/a.jpg", "Spine/b.jpg", "Cover/c.jpg")
		m := newTestModel(t, &tu.MockService{}, Options{})
		press(m, "a")
		m.input.SetValue(dir)
		press(m, "ctrl+d")

		press(m, "down", "x")
		files := m.session.Files()
		if len(files) != 2 {
			t.Fatalf("expected 2 files, got %d", len(files))
		}

		press(m, "X")
		if n := len(m.session.Files()); n != 1 {
			t.Fatalf("expected 1 file after removing a folder, got %d", n)
		}

		press(m, "c")
		if n := len(m.session.Files()); n != 0 {
			t.Errorf("expected no files after clear, got %d", n)
		}
	})

	t.Run("rejects unsupported files", func(t *testing.T) {
		dir := t.TempDir()
		writeImages(t, dir, "cover.gif")
		m := newTestModel(t, &tu.MockService{}, Options{})

		press(m, "a")
		m.input.SetValue(filepath.Join(dir, "cover.gif"))
		press(m, "enter")

		if len(m.session.Files()) != 0 {
			t.Error("expected the file to be rejected")
		}
		if !strings.Contains(m.uploadErr, "unsupported type") {
			t.Errorf("expected rejection message, got %q", m.uploadErr)
		}
	})

	t.Run("submit without files shows a message", func(t *testing.T) {
		m := newTestModel(t, &tu.MockService{}, Options{})
		if cmd := press(m, "s"); cmd != nil {
			t.Error("expected no command")
		}
		if m.uploadErr == "" {
			t.Error("expected an error message")
		}
	})

	t.Run("escape leaves the input", func(t *testing.T) {
		m := newTestModel(t, &tu.MockService{}, Options{})
		press(m, "a", "q", "esc")
		if m.input.Focused() {
			t.Error("expected input to blur")
		}
		if m.input.Value() != "q" {
			t.Errorf("expected typed text to stay in the input, got %q", m.input.Value())
		}
	})
}

func TestSubmitFlow(t *testing.T) {
	t.Run("uploads, records history, and redirects to review", func(t *testing.T) {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("failed to migrate: %v", err)
		}
		uploads := repositories.NewUploadRepository(db)

		dir := t.TempDir()
		writeImages(t, dir, "Dune/front.jpg", "Dune/back.jpg")

		book := sampleBook()
		svc := &tu.MockService{Catalog: []models.Book{book}}
		svc.MockUploader.Books = []models.Book{book}
		scheduler := &tu.ManualScheduler{}
		m := newTestModel(t, svc, Options{Scheduler: scheduler, Uploads: uploads})

		press(m, "a")
		m.input.SetValue(dir)
		press(m, "ctrl+d")

		next := step(t, m, press(m, "s"))
		if !strings.Contains(m.notice, "1 books created") {
			t.Errorf("expected success notice, got %q", m.notice)
		}
		if !m.session.Completed() || m.session.Progress() != 100 {
			t.Errorf("expected completed session at 100%%, got %d", m.session.Progress())
		}

		next = step(t, m, next)
		if m.phase.Percent != 100 {
			t.Errorf("expected complete update, got %+v", m.phase)
		}

		if n := scheduler.Fire(); n != 1 {
			t.Fatalf("expected one pending navigation, got %d", n)
		}
		next = step(t, m, next)
		if m.Path() != nav.Review.Path {
			t.Fatalf("expected redirect to review, got %s", m.Path())
		}
		if m.session.Submitting() || len(m.session.Files()) != 0 {
			t.Error("expected a fresh upload session after redirect")
		}

		step(t, m, next)
		if len(m.books) != 1 {
			t.Errorf("expected queue to load after redirect, got %d books", len(m.books))
		}

		summary, err := uploads.Summary()
		if err != nil {
			t.Fatalf("failed to summarize: %v", err)
		}
		if summary.Uploads != 1 || summary.Succeeded != 1 || summary.Books != 1 {
			t.Errorf("unexpected history: %+v", *summary)
		}
	})

	t.Run("shows the server message on failure", func(t *testing.T) {
		dir := t.TempDir()
		writeImages(t, dir, "a.jpg")

		svc := &tu.MockService{}
		svc.MockUploader.Err = &services.APIError{StatusCode: 400, Detail: "Too many files uploaded"}
		m := newTestModel(t, svc, Options{})

		press(m, "a")
		m.input.SetValue(filepath.Join(dir, "a.jpg"))
		press(m, "enter")

		step(t, m, press(m, "s"))
		if m.uploadErr != "Too many files uploaded" {
			t.Errorf("expected server message, got %q", m.uploadErr)
		}
		if m.session.Submitting() {
			t.Error("expected submitting to reset")
		}
		if m.Path() != nav.Upload.Path {
			t.Errorf("expected to stay on upload, got %s", m.Path())
		}
		if !strings.Contains(m.View(), "Too many files uploaded") {
			t.Error("expected error in view")
		}
	})
}

func TestReviewCarousel(t *testing.T) {
	var opened []string
	svc := &tu.MockService{Catalog: []models.Book{sampleBook()}}
	m := newTestModel(t, svc, Options{
		Path: nav.Review.Path,
		Open: func(url string) error {
			opened = append(opened, url)
			return nil
		},
	})

	step(t, m, m.Init())
	step(t, m, press(m, "enter"))
	if m.carousel == nil {
		t.Fatal("expected carousel to open")
	}

	press(m, "right")
	if m.carousel.Index() != 1 {
		t.Errorf("expected index 1, got %d", m.carousel.Index())
	}

	press(m, "left", "left")
	if m.carousel.Index() != 2 {
		t.Errorf("expected wrap to 2, got %d", m.carousel.Index())
	}

	press(m, "1")
	if m.carousel.Index() != 0 || m.Path() != nav.Review.Path {
		t.Errorf("expected digit to jump within the carousel, got index %d on %s", m.carousel.Index(), m.Path())
	}

	press(m, "9")
	if m.carousel.Index() != 0 {
		t.Errorf("expected out of range jump to be ignored, got %d", m.carousel.Index())
	}

	if !strings.Contains(m.View(), "Image 1 of 3") {
		t.Errorf("expected position in view, got %s", m.View())
	}

	step(t, m, press(m, "o"))
	want := "http://api.test/images/b1/front.jpg"
	if len(opened) != 1 || opened[0] != want {
		t.Errorf("expected %s to be opened, got %v", want, opened)
	}

	press(m, "esc")
	if m.carousel != nil {
		t.Error("expected esc to close the carousel")
	}
}

func TestExportPage(t *testing.T) {
	cfg := shared.DefaultConfig()
	cfg.Export.Dir = t.TempDir()
	cfg.Export.Format = "json"

	svc := &tu.MockService{Catalog: []models.Book{sampleBook()}}
	m := newTestModel(t, svc, Options{Config: cfg, Path: nav.Export.Path})

	if m.format != "json" {
		t.Fatalf("expected json format from config, got %s", m.format)
	}
	press(m, "f")
	if m.format != "yaml" {
		t.Errorf("expected yaml after json, got %s", m.format)
	}

	step(t, m, press(m, "e"))
	if m.exported == nil || m.exported.err != nil {
		t.Fatalf("expected successful export, got %+v", m.exported)
	}
	if m.exported.books != 1 || filepath.Ext(m.exported.path) != ".yaml" {
		t.Errorf("unexpected export result: %+v", m.exported)
	}
	if _, err := os.Stat(m.exported.path); err != nil {
		t.Errorf("expected export file: %v", err)
	}
}

func TestSettingsPage(t *testing.T) {
	svc := &tu.MockService{Status: &models.UploadStatus{
		Status:             "ready",
		MaxFileSize:        "10MB",
		MaxFilesPerRequest: 100,
		AllowedExtensions:  []string{".jpg", ".png"},
	}}
	m := newTestModel(t, svc, Options{})

	step(t, m, press(m, "4"))
	if m.status == nil {
		t.Fatal("expected upload status to load")
	}

	view := m.View()
	for _, want := range []string{"Server limits", "10MB", "http://api.test"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view", want)
		}
	}
}
