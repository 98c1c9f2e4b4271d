package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/booklister/internal/models"
)

var _ list.Item = bookItem{}

// bookItem wraps [models.Book] to implement [list.Item].
type bookItem struct {
	book models.Book
}

func (i bookItem) FilterValue() string { return i.book.Title + " " + i.book.Author + " " + i.book.ISBN13 }
func (i bookItem) Title() string       { return i.book.DisplayTitle() }
func (i bookItem) Description() string {
	parts := []string{string(i.book.Status), fmt.Sprintf("%d images", len(i.book.Images))}
	if i.book.Author != "" {
		parts = append(parts, i.book.Author)
	}
	if i.book.ISBN13 != "" {
		parts = append(parts, i.book.ISBN13)
	}
	return strings.Join(parts, " • ")
}

func bookItems(books []models.Book) []list.Item {
	items := make([]list.Item, len(books))
	for i, b := range books {
		items[i] = bookItem{book: b}
	}
	return items
}
