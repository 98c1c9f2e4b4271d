package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
)

// UploadRepository implements models.Repository[*models.UploadRecord] for batch upload history.
//
// Created books live in upload_books and are written and read together with their batch.
type UploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new UploadRepository with the given database connection
func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// UploadSummary aggregates the upload history.
type UploadSummary struct {
	Uploads   int
	Succeeded int
	Failed    int
	Books     int
	Bytes     int64
}

const uploadColumns = `id, sequence, file_count, folder_count, total_bytes, status, error, created_at, updated_at, deleted_at`

// Create inserts a new upload record with generated ID and sequence
func (r *UploadRepository) Create(upload *models.UploadRecord) error {
	if err := upload.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "uploads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO uploads (id, sequence, file_count, folder_count, book_count, total_bytes, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		id,
		sequence,
		upload.FileCount,
		upload.FolderCount,
		len(upload.Books),
		upload.TotalBytes,
		string(upload.State),
		upload.Error,
		upload.CreatedAt(),
		upload.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	if err := insertBooks(tx, id, upload.Books); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upload: %w", err)
	}

	upload.SetID(id)
	upload.SetSequence(sequence)
	return nil
}

// Get retrieves an upload by ID with its books, excluding soft-deleted uploads
func (r *UploadRepository) Get(id string) (*models.UploadRecord, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = ? AND deleted_at IS NULL`

	upload, err := scanUpload(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUploadNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	books, err := r.books(id)
	if err != nil {
		return nil, err
	}
	upload.Books = books
	return upload, nil
}

// Update writes the outcome of an upload and replaces its books
func (r *UploadRepository) Update(upload *models.UploadRecord) error {
	if err := upload.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE uploads
		SET file_count = ?, folder_count = ?, book_count = ?, total_bytes = ?, status = ?, error = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := tx.Exec(query,
		upload.FileCount,
		upload.FolderCount,
		len(upload.Books),
		upload.TotalBytes,
		string(upload.State),
		upload.Error,
		now,
		upload.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update upload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUploadNotFound, upload.ID())
	}

	if _, err := tx.Exec(`DELETE FROM upload_books WHERE upload_id = ?`, upload.ID()); err != nil {
		return fmt.Errorf("failed to clear upload books: %w", err)
	}
	if err := insertBooks(tx, upload.ID(), upload.Books); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upload: %w", err)
	}

	upload.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes an upload by ID
func (r *UploadRepository) Delete(id string) error {
	query := `
		UPDATE uploads
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUploadNotFound, id)
	}

	return nil
}

// List retrieves uploads newest first, excluding soft-deleted uploads.
//
// Supported criteria: "status" (string) and "limit" (int).
func (r *UploadRepository) List(criteria map[string]any) ([]*models.UploadRecord, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}

	var uploads []*models.UploadRecord
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, upload := range uploads {
		books, err := r.books(upload.ID())
		if err != nil {
			return nil, err
		}
		upload.Books = books
	}

	return uploads, nil
}

// Summary totals every upload that has not been deleted
func (r *UploadRepository) Summary() (*UploadSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(book_count), 0),
			COALESCE(SUM(total_bytes), 0)
		FROM uploads
		WHERE deleted_at IS NULL
	`

	var s UploadSummary
	err := r.db.QueryRow(query, string(models.UploadSucceeded), string(models.UploadFailed)).
		Scan(&s.Uploads, &s.Succeeded, &s.Failed, &s.Books, &s.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize uploads: %w", err)
	}
	return &s, nil
}

// Record stores the outcome of one submitted batch. A non-empty failure marks the batch as failed.
//
// Books are matched to groups by position when the server returned one book per group.
func (r *UploadRepository) Record(groups []models.FolderGroup, books []models.Book, failure string) (*models.UploadRecord, error) {
	var files int
	var bytes int64
	for _, g := range groups {
		files += len(g.Files)
		bytes += g.Size()
	}

	upload := models.NewUploadRecord(files, len(groups), bytes)
	if failure != "" {
		upload.Fail(failure)
	} else {
		uploaded := make([]models.UploadedBook, len(books))
		for i, b := range books {
			uploaded[i] = models.UploadedBook{BookID: b.ID, Position: i, ImageCount: len(b.Images)}
			if len(books) == len(groups) {
				uploaded[i].Folder = groups[i].Name
			}
		}
		upload.Succeed(uploaded)
	}

	if err := r.Create(upload); err != nil {
		return nil, err
	}
	return upload, nil
}

func (r *UploadRepository) books(uploadID string) ([]models.UploadedBook, error) {
	rows, err := r.db.Query(`
		SELECT book_id, folder, position, image_count
		FROM upload_books
		WHERE upload_id = ?
		ORDER BY position ASC
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload books: %w", err)
	}
	defer rows.Close()

	var books []models.UploadedBook
	for rows.Next() {
		var b models.UploadedBook
		if err := rows.Scan(&b.BookID, &b.Folder, &b.Position, &b.ImageCount); err != nil {
			return nil, fmt.Errorf("failed to scan upload book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return books, nil
}

func insertBooks(tx *sql.Tx, uploadID string, books []models.UploadedBook) error {
	for _, b := range books {
		_, err := tx.Exec(`
			INSERT INTO upload_books (upload_id, book_id, folder, position, image_count)
			VALUES (?, ?, ?, ?, ?)
		`, uploadID, b.BookID, b.Folder, b.Position, b.ImageCount)
		if err != nil {
			return fmt.Errorf("failed to insert upload book %s: %w", b.BookID, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanUpload scans a row from [sql.Row] or [sql.Rows] into a [models.UploadRecord]
func scanUpload(row scanner) (*models.UploadRecord, error) {
	var (
		id          string
		sequence    int
		fileCount   int
		folderCount int
		totalBytes  int64
		status      string
		errorText   string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &fileCount, &folderCount, &totalBytes, &status, &errorText, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload: %w", err)
	}

	upload := models.NewUploadRecord(fileCount, folderCount, totalBytes)
	upload.SetID(id)
	upload.SetSequence(sequence)
	upload.State = models.UploadState(status)
	upload.Error = errorText
	upload.SetCreatedAt(createdAt)
	upload.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		upload.SetDeletedAt(&deletedAt.Time)
	}

	return upload, nil
}
