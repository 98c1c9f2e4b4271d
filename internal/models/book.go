package models

import (
	"errors"
	"fmt"
	"slices"
)

// BookStatus is the review state of a book on the server.
type BookStatus string

const (
	BookNew         BookStatus = "new"
	BookAuto        BookStatus = "auto"
	BookNeedsReview BookStatus = "needs_review"
	BookApproved    BookStatus = "approved"
	BookExported    BookStatus = "exported"
)

// BookStatuses lists every known [BookStatus] in review order.
var BookStatuses = []BookStatus{BookNew, BookAuto, BookNeedsReview, BookApproved, BookExported}

// Valid reports whether s is a known status.
func (s BookStatus) Valid() bool {
	return slices.Contains(BookStatuses, s)
}

// Book is a book record as returned by the ingest API.
//
// Timestamps are milliseconds since the Unix epoch.
type Book struct {
	ID             string     `json:"id" yaml:"id"`
	Status         BookStatus `json:"status" yaml:"status"`
	Title          string     `json:"title,omitempty" yaml:"title,omitempty"`
	Author         string     `json:"author,omitempty" yaml:"author,omitempty"`
	Publisher      string     `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Year           string     `json:"year,omitempty" yaml:"year,omitempty"`
	ISBN13         string     `json:"isbn13,omitempty" yaml:"isbn13,omitempty"`
	ConditionGrade string     `json:"condition_grade,omitempty" yaml:"condition_grade,omitempty"`
	PriceSuggested *float64   `json:"price_suggested,omitempty" yaml:"price_suggested,omitempty"`
	Images         []Image    `json:"images" yaml:"images"`
	CreatedAt      int64      `json:"created_at" yaml:"created_at"`
	UpdatedAt      int64      `json:"updated_at" yaml:"updated_at"`
}

// DisplayTitle returns the title, or a placeholder for books that have not been extracted yet.
func (b Book) DisplayTitle() string {
	if b.Title != "" {
		return b.Title
	}
	return "Untitled book"
}

// BookUpdate is a partial edit of a book sent to PUT /book/{id}. Nil fields are left unchanged.
type BookUpdate struct {
	Status         *BookStatus `json:"status,omitempty"`
	Title          *string     `json:"title,omitempty"`
	Author         *string     `json:"author,omitempty"`
	Publisher      *string     `json:"publisher,omitempty"`
	Year           *string     `json:"year,omitempty"`
	ISBN13         *string     `json:"isbn13,omitempty"`
	ConditionGrade *string     `json:"condition_grade,omitempty"`
	PriceSuggested *float64    `json:"price_suggested,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u BookUpdate) Empty() bool {
	return u == BookUpdate{}
}

// Validate rejects empty updates, unknown statuses and negative prices.
func (u BookUpdate) Validate() error {
	if u.Empty() {
		return errors.New("update has no fields")
	}
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("unknown status %q", *u.Status)
	}
	if u.PriceSuggested != nil && *u.PriceSuggested < 0 {
		return errors.New("price cannot be negative")
	}
	return nil
}

// Apply copies the set fields onto b and stamps UpdatedAt with now (milliseconds).
func (u BookUpdate) Apply(b *Book, now int64) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	set(&b.Title, u.Title)
	set(&b.Author, u.Author)
	set(&b.Publisher, u.Publisher)
	set(&b.Year, u.Year)
	set(&b.ISBN13, u.ISBN13)
	set(&b.ConditionGrade, u.ConditionGrade)
	if u.PriceSuggested != nil {
		price := *u.PriceSuggested
		b.PriceSuggested = &price
	}
	b.UpdatedAt = now
}

// Image is a stored photo of a book. Path is the server-side storage path.
type Image struct {
	ID     string `json:"id" yaml:"id"`
	BookID string `json:"book_id" yaml:"book_id"`
	Path   string `json:"path" yaml:"path"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// UploadStatus describes the ingest limits reported by the server.
type UploadStatus struct {
	Status             string   `json:"status"`
	MaxFileSize        string   `json:"max_file_size"`
	MaxFilesPerRequest int      `json:"max_files_per_request"`
	AllowedExtensions  []string `json:"allowed_extensions"`
	AllowedMimeTypes   []string `json:"allowed_mime_types"`
}
