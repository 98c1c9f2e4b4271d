package models

import (
	"fmt"
	"time"
)

// UploadState is the outcome of a submitted batch.
type UploadState string

const (
	UploadPending   UploadState = "pending"
	UploadSucceeded UploadState = "succeeded"
	UploadFailed    UploadState = "failed"
)

// UploadedBook links a created book to the batch that produced it.
type UploadedBook struct {
	BookID     string
	Folder     string
	Position   int
	ImageCount int
}

// UploadRecord is the persisted history entry for one batch upload.
type UploadRecord struct {
	id          string
	sequence    int
	FileCount   int
	FolderCount int
	TotalBytes  int64
	State       UploadState
	Error       string
	Books       []UploadedBook
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewUploadRecord creates a pending record for a batch of files spread across folders.
func NewUploadRecord(fileCount, folderCount int, totalBytes int64) *UploadRecord {
	now := time.Now()
	return &UploadRecord{
		FileCount:   fileCount,
		FolderCount: folderCount,
		TotalBytes:  totalBytes,
		State:       UploadPending,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (u *UploadRecord) ID() string            { return u.id }
func (u *UploadRecord) Sequence() int         { return u.sequence }
func (u *UploadRecord) CreatedAt() time.Time  { return u.createdAt }
func (u *UploadRecord) UpdatedAt() time.Time  { return u.updatedAt }
func (u *UploadRecord) DeletedAt() *time.Time { return u.deletedAt }

func (u *UploadRecord) SetID(id string)           { u.id = id }
func (u *UploadRecord) SetSequence(seq int)       { u.sequence = seq }
func (u *UploadRecord) SetCreatedAt(t time.Time)  { u.createdAt = t }
func (u *UploadRecord) SetUpdatedAt(t time.Time)  { u.updatedAt = t }
func (u *UploadRecord) SetDeletedAt(t *time.Time) { u.deletedAt = t }

// Succeed marks the batch as accepted by the server and records the created books.
func (u *UploadRecord) Succeed(books []UploadedBook) {
	u.State = UploadSucceeded
	u.Error = ""
	u.Books = books
}

// Fail marks the batch as rejected with the user-facing message.
func (u *UploadRecord) Fail(message string) {
	u.State = UploadFailed
	u.Error = message
}

// Validate checks counts and state.
func (u *UploadRecord) Validate() error {
	if u.FileCount <= 0 {
		return fmt.Errorf("file count must be positive, got %d", u.FileCount)
	}
	if u.FolderCount <= 0 || u.FolderCount > u.FileCount {
		return fmt.Errorf("folder count must be between 1 and %d, got %d", u.FileCount, u.FolderCount)
	}
	switch u.State {
	case UploadPending, UploadSucceeded, UploadFailed:
	default:
		return fmt.Errorf("unknown upload state %q", u.State)
	}
	return nil
}
