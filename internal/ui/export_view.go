package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/booklister/internal/formatter"
)

func (m *Model) handleExportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.format):
		formats := formatter.Formats()
		for i, f := range formats {
			if f == m.format {
				m.format = formats[(i+1)%len(formats)]
				break
			}
		}
		m.exported = nil
	case key.Matches(msg, m.keys.export):
		if m.exporting {
			return m, nil
		}
		m.exporting = true
		m.exported = nil
		return m, m.exportQueue()
	}
	return m, nil
}

func (m *Model) exportQueue() tea.Cmd {
	ctx, api, format, dir := m.ctx, m.api, m.format, m.config.Export.Dir
	return func() tea.Msg {
		books, err := api.Queue(ctx, "")
		if err != nil {
			return exportDoneMsg{err: err}
		}
		path, err := formatter.WriteExport(books, format, api.BaseURL(), dir, "")
		return exportDoneMsg{path: path, books: len(books), err: err}
	}
}

func (m *Model) renderExport() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Export the review queue"))
	b.WriteString("\n")

	var formats []string
	for _, f := range formatter.Formats() {
		if f == m.format {
			formats = append(formats, styles.ok.Render("["+string(f)+"]"))
		} else {
			formats = append(formats, string(f))
		}
	}
	b.WriteString("Format: " + strings.Join(formats, "  "))
	b.WriteString("\n")
	b.WriteString(styles.help.Render("Directory: " + m.config.Export.Dir))
	b.WriteString("\n\n")

	switch {
	case m.exporting:
		b.WriteString("Exporting...")
	case m.exported != nil && m.exported.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Export failed: %v", m.exported.err)))
	case m.exported != nil:
		b.WriteString(styles.ok.Render(fmt.Sprintf("✓ Exported %d books to %s", m.exported.books, m.exported.path)))
	}
	return strings.TrimRight(b.String(), "\n")
}
