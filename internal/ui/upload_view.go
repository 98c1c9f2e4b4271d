package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
	"github.com/desertthunder/booklister/internal/upload"
)

func (m *Model) newSession() {
	m.session = upload.NewSession(upload.Options{
		Uploader:  m.api,
		Scheduler: m.scheduler,
		Logger:    shared.WithLogger(m.logger, "component", "upload"),
		Progress:  m.progressCh,
	})
	m.cursor = 0
	m.phase = upload.ProgressUpdate{}
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.addPaths(false)
		return m, nil
	case key.Matches(msg, m.keys.addDir):
		m.addPaths(true)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// addPaths reads the input as one path. tree treats it as a library folder whose sub-folders are groups.
func (m *Model) addPaths(tree bool) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return
	}

	var files []models.SelectedFile
	var err error
	if tree {
		files, err = upload.FromDirectory(value)
	} else {
		files, err = upload.FromPaths(value)
	}
	if err == nil && len(files) == 0 {
		err = fmt.Errorf("no files found in %s", value)
	}
	if err == nil {
		err = m.session.Accept(files)
	}
	if err != nil {
		m.uploadErr = err.Error()
		return
	}

	m.uploadErr = ""
	m.notice = fmt.Sprintf("Added %d files", len(files))
	m.input.Reset()
	m.input.Blur()
}

func (m *Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	files := m.session.Files()
	order := displayOrder(files)

	switch {
	case key.Matches(msg, m.keys.add):
		m.notice = ""
		return m, tea.Batch(m.input.Focus(), textinput.Blink)
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.down):
		if m.cursor < len(order)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.remove):
		if len(order) == 0 {
			return m, nil
		}
		if err := m.session.Remove(order[m.cursor]); err != nil {
			m.uploadErr = err.Error()
			return m, nil
		}
		m.clampCursor()
	case key.Matches(msg, m.keys.dropDir):
		if len(order) == 0 {
			return m, nil
		}
		name := upload.FolderOf(files[order[m.cursor]])
		n, err := m.session.RemoveFolder(name)
		if err != nil {
			m.uploadErr = err.Error()
			return m, nil
		}
		m.notice = fmt.Sprintf("Removed %d files from %s", n, name)
		m.clampCursor()
	case key.Matches(msg, m.keys.clear):
		m.session.Clear()
		m.cursor = 0
		m.uploadErr = ""
		m.notice = ""
	case key.Matches(msg, m.keys.submit):
		return m, m.submit()
	}
	return m, nil
}

func (m *Model) clampCursor() {
	n := len(m.session.Files())
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// submit starts the upload and the progress listener.
func (m *Model) submit() tea.Cmd {
	state := m.session.Snapshot()
	if state.Submitting {
		return nil
	}
	if len(state.Files) == 0 {
		m.uploadErr = "Select at least one image to upload."
		return nil
	}

	m.uploadErr = ""
	m.notice = ""
	m.phase = upload.ProgressUpdate{Phase: upload.Uploading}

	ctx, session, uploads, logger := m.ctx, m.session, m.uploads, m.logger
	run := func() tea.Msg {
		result, err := session.Submit(ctx)
		if uploads != nil {
			var failure string
			var submitErr *upload.SubmitError
			var books []models.Book
			switch {
			case err == nil:
				books = result.Books
			case errors.As(err, &submitErr):
				failure = submitErr.Message
			default:
				return submitDoneMsg{result: result, err: err}
			}
			if _, recErr := uploads.Record(state.Groups, books, failure); recErr != nil {
				logger.Warn("failed to record upload", "error", recErr)
			}
		}
		return submitDoneMsg{result: result, err: err}
	}
	if m.listening {
		return run
	}
	return tea.Batch(run, m.waitForProgress())
}

// waitForProgress receives the next session update. At most one receiver is outstanding.
func (m *Model) waitForProgress() tea.Cmd {
	m.listening = true
	ch := m.progressCh
	return func() tea.Msg {
		return progressMsg(<-ch)
	}
}

func (m *Model) handleProgress(update upload.ProgressUpdate) (tea.Model, tea.Cmd) {
	m.listening = false
	m.phase = update
	switch update.Phase {
	case upload.Failed:
		return m, nil
	case upload.Redirect:
		m.session.Dispose()
		m.newSession()
		return m.navigate(update.Message)
	}
	return m, m.waitForProgress()
}

func (m *Model) handleSubmitDone(msg submitDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		var submitErr *upload.SubmitError
		if errors.As(msg.err, &submitErr) {
			m.uploadErr = submitErr.Message
		} else {
			m.uploadErr = msg.err.Error()
		}
		return m, nil
	}

	r := msg.result
	m.notice = fmt.Sprintf("Uploaded %d files (%s) from %d folders: %d books created",
		r.Files, shared.FormatBytes(r.Bytes), r.Folders, len(r.Books))
	return m, nil
}

// displayOrder maps rows of the grouped file list to indexes in the selection.
func displayOrder(files []models.SelectedFile) []int {
	var folders []string
	byFolder := map[string][]int{}
	for i, f := range files {
		name := upload.FolderOf(f)
		if _, ok := byFolder[name]; !ok {
			folders = append(folders, name)
		}
		byFolder[name] = append(byFolder[name], i)
	}

	order := make([]int, 0, len(files))
	for _, name := range folders {
		order = append(order, byFolder[name]...)
	}
	return order
}

func (m *Model) renderUpload() string {
	state := m.session.Snapshot()
	var b strings.Builder

	b.WriteString(styles.title.Render("Upload book photos"))
	b.WriteString("\n")
	b.WriteString(styles.help.Render(fmt.Sprintf("Images up to %s: %s",
		shared.FormatBytes(upload.MaxFileSize), strings.Join(upload.AllowedExtensions, ", "))))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(state.Groups) == 0 {
		b.WriteString(styles.help.Render("No files selected. Press a to add a file or folder."))
		b.WriteString("\n")
	}

	row := 0
	for _, g := range state.Groups {
		b.WriteString(styles.folder.Render(fmt.Sprintf("▸ %s", g.Name)))
		b.WriteString(styles.help.Render(fmt.Sprintf("  %d files, %s", len(g.Files), shared.FormatBytes(g.Size()))))
		b.WriteString("\n")
		for _, f := range g.Files {
			line := fmt.Sprintf("    %s  %s", f.Name, shared.FormatBytes(f.Size))
			if row == m.cursor && !m.input.Focused() {
				line = styles.cursor.Render("  › " + strings.TrimPrefix(line, "    "))
			}
			b.WriteString(line)
			b.WriteString("\n")
			row++
		}
	}

	if state.Submitting || state.Completed {
		b.WriteString("\n")
		b.WriteString(m.bar.ViewAs(float64(state.Progress) / 100))
		b.WriteString("\n")
		if m.phase.Message != "" {
			b.WriteString(m.phase.Message)
			b.WriteString("\n")
		}
		if state.Completed {
			b.WriteString(styles.ok.Render("✓ Upload complete. Opening the review queue..."))
			b.WriteString("\n")
		}
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(styles.ok.Render(m.notice))
		b.WriteString("\n")
	}
	if m.uploadErr != "" {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(m.uploadErr))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
