package devserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
	"github.com/desertthunder/booklister/internal/upload"
)

type uploadedPart struct {
	filename    string
	contentType string
	data        []byte
}

// handleUpload creates one book per folder from a multipart batch.
//
// Part filenames are read from the raw Content-Disposition header so folder prefixes survive.
func (s *Server) handleUpload(c echo.Context) error {
	reader, err := c.Request().MultipartReader()
	if err != nil {
		return badRequest("Expected multipart form data")
	}

	var (
		parts      []uploadedPart
		folderInfo map[string]string
	)

	for {
		p, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return badRequest("Malformed multipart body: %v", err)
		}

		_, params, _ := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
		switch params["name"] {
		case "files":
			if len(parts) >= s.maxFiles {
				return badRequest("Too many files uploaded (max %d per request)", s.maxFiles)
			}
			part, err := readFilePart(p, params["filename"])
			if err != nil {
				return err
			}
			parts = append(parts, part)
		case "folder_info":
			raw, err := io.ReadAll(io.LimitReader(p, 1<<20))
			if err != nil {
				return badRequest("Malformed folder_info: %v", err)
			}
			if err := json.Unmarshal(raw, &folderInfo); err != nil {
				folderInfo = nil
			}
		}
		p.Close()
	}

	if len(parts) == 0 {
		return badRequest("No files uploaded")
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}

	books := s.createBooks(groupParts(parts, folderInfo))
	s.logger.Info("created books", "files", len(parts), "books", len(books))
	return c.JSON(http.StatusOK, books)
}

func readFilePart(r io.Reader, filename string) (uploadedPart, error) {
	if filename == "" {
		return uploadedPart{}, badRequest("No filename provided")
	}

	ext := strings.ToLower(path.Ext(filename))
	if !upload.AllowedExtension(filename) {
		return uploadedPart{}, badRequest("Invalid file type: %s. Allowed: %s", ext, strings.Join(upload.AllowedExtensions, ", "))
	}

	data, err := io.ReadAll(io.LimitReader(r, upload.MaxFileSize+1))
	if err != nil {
		return uploadedPart{}, badRequest("Failed to read %s: %v", filename, err)
	}
	if int64(len(data)) > upload.MaxFileSize {
		return uploadedPart{}, badRequest("File too large: %s (max 10MB)", filename)
	}

	return uploadedPart{filename: filename, contentType: upload.ContentType(filename), data: data}, nil
}

type partGroup struct {
	folder string
	parts  []uploadedPart
}

// groupParts buckets parts by folder in first-seen order.
func groupParts(parts []uploadedPart, folderInfo map[string]string) []partGroup {
	var groups []partGroup
	for _, p := range parts {
		folder, ok := folderInfo[p.filename]
		if !ok || folder == "" {
			folder = upload.FolderOf(models.SelectedFile{RelativePath: p.filename})
		}

		i := slices.IndexFunc(groups, func(g partGroup) bool { return g.folder == folder })
		if i < 0 {
			groups = append(groups, partGroup{folder: folder})
			i = len(groups) - 1
		}
		groups[i].parts = append(groups[i].parts, p)
	}
	return groups
}

func (s *Server) createBooks(groups []partGroup) []models.Book {
	books := make([]models.Book, 0, len(groups))
	for _, g := range groups {
		now := time.Now().UnixMilli()
		book := models.Book{
			ID:        shared.GenerateID(),
			Status:    models.BookNew,
			CreatedAt: now,
			UpdatedAt: now,
			Images:    []models.Image{},
		}

		for _, p := range g.parts {
			filename := shared.GenerateID() + strings.ToLower(path.Ext(p.filename))
			width, height := dimensions(p.data)
			book.Images = append(book.Images, models.Image{
				ID:     shared.GenerateID(),
				BookID: book.ID,
				Path:   filename,
				Width:  width,
				Height: height,
			})
			s.store.PutImage(book.ID, filename, p.contentType, p.data)
		}

		s.store.Add(book)
		books = append(books, book)
	}
	return books
}

// dimensions reads the image header; formats without a registered decoder report 0x0.
func dimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func (s *Server) handleUploadStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, models.UploadStatus{
		Status:             "ready",
		MaxFileSize:        "10MB",
		MaxFilesPerRequest: s.maxFiles,
		AllowedExtensions:  dotted(upload.AllowedExtensions),
		AllowedMimeTypes:   upload.AllowedMimeTypes,
	})
}

func (s *Server) handleQueue(c echo.Context) error {
	status := models.BookStatus(c.QueryParam("status"))
	return c.JSON(http.StatusOK, s.store.Queue(status))
}

func (s *Server) handleBook(c echo.Context) error {
	book, ok := s.store.Book(c.Param("id"))
	if !ok {
		return notFound("Book not found")
	}
	return c.JSON(http.StatusOK, book)
}

func (s *Server) handleUpdateBook(c echo.Context) error {
	var update models.BookUpdate
	if err := json.NewDecoder(c.Request().Body).Decode(&update); err != nil {
		return badRequest("Invalid book update: %v", err)
	}
	if err := update.Validate(); err != nil {
		return badRequest("Invalid book update: %v", err)
	}

	book, ok := s.store.Update(c.Param("id"), func(b *models.Book) {
		update.Apply(b, time.Now().UnixMilli())
	})
	if !ok {
		return notFound("Book not found")
	}
	s.logger.Info("book updated", "id", book.ID, "status", book.Status)
	return c.JSON(http.StatusOK, book)
}

func (s *Server) handleImage(c echo.Context) error {
	data, contentType, ok := s.store.Image(c.Param("book"), c.Param("file"))
	if !ok {
		return notFound("Image not found")
	}
	return c.Blob(http.StatusOK, contentType, data)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "healthy",
		"books":  s.store.Len(),
	})
}

func dotted(exts []string) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = fmt.Sprintf(".%s", e)
	}
	return out
}
