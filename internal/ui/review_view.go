package ui

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) fetchQueue() tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		books, err := api.Queue(ctx, "")
		return queueFetchedMsg{books: books, err: err}
	}
}

func (m *Model) fetchBook(id string) tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		book, err := api.Book(ctx, id)
		return bookFetchedMsg{book: book, err: err}
	}
}

func (m *Model) openImage() tea.Cmd {
	url := m.carousel.CurrentURL()
	if url == "" {
		return nil
	}
	open := m.open
	return func() tea.Msg {
		return browserOpenedMsg{url: url, err: open(url)}
	}
}

func (m *Model) handleReviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.carousel != nil {
		return m.handleCarouselKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchQueue()
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.queue.SelectedItem().(bookItem); ok {
			return m, m.fetchBook(item.book.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

func (m *Model) handleCarouselKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.carousel = nil
		m.book = nil
	case key.Matches(msg, m.keys.left):
		m.carousel.Previous()
	case key.Matches(msg, m.keys.right):
		m.carousel.Next()
	case key.Matches(msg, m.keys.jump):
		n, _ := strconv.Atoi(msg.String())
		m.carousel.Jump(n - 1)
	case key.Matches(msg, m.keys.open):
		return m, m.openImage()
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchBook(m.book.ID)
	}
	return m, nil
}

func (m *Model) renderReview() string {
	if m.carousel != nil {
		return m.renderCarousel()
	}

	var b strings.Builder
	if m.reviewErr != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.reviewErr)))
		b.WriteString("\n\n")
	}
	if len(m.books) == 0 {
		b.WriteString(styles.help.Render("The queue is empty. Upload some photos to get started."))
		return b.String()
	}
	b.WriteString(m.queue.View())
	return b.String()
}

func (m *Model) renderCarousel() string {
	book := m.book
	var b strings.Builder

	b.WriteString(styles.title.Render(book.DisplayTitle()))
	b.WriteString("\n")

	var details []string
	for _, v := range []string{book.Author, book.Publisher, book.Year, book.ISBN13} {
		if v != "" {
			details = append(details, v)
		}
	}
	if len(details) > 0 {
		b.WriteString(strings.Join(details, " • "))
		b.WriteString("\n")
	}
	status := "Status: " + string(book.Status)
	if book.ConditionGrade != "" {
		status += " • Condition: " + book.ConditionGrade
	}
	if book.PriceSuggested != nil {
		status += fmt.Sprintf(" • Suggested price: $%.2f", *book.PriceSuggested)
	}
	b.WriteString(styles.help.Render(status))
	b.WriteString("\n\n")

	if m.carousel.Empty() {
		b.WriteString(styles.warn.Render("No images for this book"))
		return b.String()
	}

	img, _ := m.carousel.Current()
	b.WriteString(fmt.Sprintf("Image %d of %d  %s\n", m.carousel.Index()+1, m.carousel.Len(), m.dots()))
	b.WriteString(path.Base(strings.ReplaceAll(img.Path, "\\", "/")))
	if img.Width > 0 && img.Height > 0 {
		b.WriteString(fmt.Sprintf("  %d×%d", img.Width, img.Height))
	}
	b.WriteString("\n")
	b.WriteString(styles.help.Render(m.carousel.CurrentURL()))

	if m.reviewErr != nil {
		b.WriteString("\n\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.reviewErr)))
	}
	return b.String()
}

func (m *Model) dots() string {
	if m.carousel.Len() <= 1 {
		return ""
	}
	dots := make([]string, m.carousel.Len())
	for i := range dots {
		if i == m.carousel.Index() {
			dots[i] = styles.As("●", styles.accent)
		} else {
			dots[i] = "○"
		}
	}
	return strings.Join(dots, " ")
}
