package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/booklister/internal/repositories"
	"github.com/desertthunder/booklister/internal/shared"
)

func (m *Model) fetchSettings() tea.Cmd {
	ctx, api, uploads := m.ctx, m.api, m.uploads
	return func() tea.Msg {
		msg := settingsFetchedMsg{}
		msg.status, msg.err = api.UploadStatus(ctx)
		if uploads != nil {
			summary, err := uploads.Summary()
			if err != nil && msg.err == nil {
				msg.err = err
			}
			msg.summary = summary
		}
		return msg
	}
}

func (m *Model) handleSettingsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.refresh) {
		return m, m.fetchSettings()
	}
	return m, nil
}

func (m *Model) renderSettings() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Settings"))
	b.WriteString("\n")

	token := "not set"
	if m.config.API.Token != "" {
		token = "set"
	}
	rows := [][2]string{
		{"API", m.api.BaseURL()},
		{"Token", token},
		{"Database", m.config.Database.Path},
		{"Export format", string(m.format)},
		{"Export directory", m.config.Export.Dir},
	}
	writeRows(&b, rows)

	b.WriteString("\n")
	b.WriteString(styles.folder.Render("Server limits"))
	b.WriteString("\n")
	if s := m.status; s != nil {
		writeRows(&b, [][2]string{
			{"Status", s.Status},
			{"Max file size", s.MaxFileSize},
			{"Max files per upload", fmt.Sprint(s.MaxFilesPerRequest)},
			{"Extensions", strings.Join(s.AllowedExtensions, " ")},
		})
	} else {
		b.WriteString(styles.help.Render("  unavailable"))
		b.WriteString("\n")
	}

	if m.summary != nil {
		b.WriteString("\n")
		b.WriteString(styles.folder.Render("Upload history"))
		b.WriteString("\n")
		writeRows(&b, summaryRows(m.summary))
	}

	if m.settingsErr != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.settingsErr)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func summaryRows(s *repositories.UploadSummary) [][2]string {
	return [][2]string{
		{"Uploads", fmt.Sprintf("%d (%d succeeded, %d failed)", s.Uploads, s.Succeeded, s.Failed)},
		{"Books created", fmt.Sprint(s.Books)},
		{"Bytes sent", shared.FormatBytes(s.Bytes)},
	}
}

func writeRows(b *strings.Builder, rows [][2]string) {
	for _, r := range rows {
		fmt.Fprintf(b, "  %-22s %s\n", r[0]+":", r[1])
	}
}
