package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/services"
	"github.com/desertthunder/booklister/internal/shared"
	tu "github.com/desertthunder/booklister/internal/testing"
	"github.com/desertthunder/booklister/internal/upload"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

type rawFile struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, files []rawFile, folderInfo string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		h.Set("Content-Type", upload.ContentType(f.name))
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	if folderInfo != "" {
		require.NoError(t, mw.WriteField("folder_info", folderInfo))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func post(t *testing.T, srv *Server, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ingest/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleUpload(t *testing.T) {
	img := pngBytes(t, 4, 3)

	t.Run("groups by path when folder info is missing", func(t *testing.T) {
		srv := New(Options{})
		body, ct := multipartBody(t, []rawFile{
			{"Spine/1.png", img}, {"Spine/2.png", img}, {"loose.png", img},
		}, "")

		rec := post(t, srv, body, ct)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var books []models.Book
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &books))
		require.Len(t, books, 2)
		assert.Len(t, books[0].Images, 2)
		assert.Len(t, books[1].Images, 1)
		assert.Equal(t, models.BookNew, books[0].Status)
		assert.Equal(t, 4, books[0].Images[0].Width)
		assert.Equal(t, 3, books[0].Images[0].Height)
		assert.Equal(t, 2, srv.Store().Len())
	})

	t.Run("folder info wins over path", func(t *testing.T) {
		srv := New(Options{})
		body, ct := multipartBody(t, []rawFile{
			{"a/1.png", img}, {"b/2.png", img},
		}, `{"a/1.png": "Same", "b/2.png": "Same"}`)

		rec := post(t, srv, body, ct)
		require.Equal(t, http.StatusOK, rec.Code)

		var books []models.Book
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &books))
		require.Len(t, books, 1)
		assert.Len(t, books[0].Images, 2)
	})

	t.Run("no files", func(t *testing.T) {
		body, ct := multipartBody(t, nil, `{}`)
		rec := post(t, New(Options{}), body, ct)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, ErrorBody{Error: true, Detail: "No files uploaded", StatusCode: 400}, decodeError(t, rec))
	})

	t.Run("too many files", func(t *testing.T) {
		body, ct := multipartBody(t, []rawFile{{"1.png", img}, {"2.png", img}, {"3.png", img}}, "")
		rec := post(t, New(Options{MaxFiles: 2}), body, ct)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Too many files uploaded (max 2 per request)", decodeError(t, rec).Detail)
	})

	t.Run("invalid type", func(t *testing.T) {
		body, ct := multipartBody(t, []rawFile{{"cover.gif", img}}, "")
		rec := post(t, New(Options{}), body, ct)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Detail, "Invalid file type: .gif")
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := post(t, New(Options{}), bytes.NewBufferString(`{}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReadFilePartTooLarge(t *testing.T) {
	_, err := readFilePart(bytes.NewReader(make([]byte, upload.MaxFileSize+1)), "big.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File too large: big.png")

	part, err := readFilePart(bytes.NewReader(make([]byte, 16)), "ok.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", part.contentType)
}

func TestReadEndpoints(t *testing.T) {
	srv := New(Options{})
	srv.Store().Add(models.Book{ID: "b1", Status: models.BookNew, Title: "Dune"})
	srv.Store().Add(models.Book{ID: "b2", Status: models.BookApproved})
	srv.Store().PutImage("b1", "front.jpg", "image/jpeg", []byte("jpeg"))

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("queue", func(t *testing.T) {
		var books []models.Book
		require.NoError(t, json.Unmarshal(get("/queue").Body.Bytes(), &books))
		assert.Len(t, books, 2)

		require.NoError(t, json.Unmarshal(get("/queue?status=approved").Body.Bytes(), &books))
		require.Len(t, books, 1)
		assert.Equal(t, "b2", books[0].ID)
	})

	t.Run("book", func(t *testing.T) {
		rec := get("/book/b1")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = get("/book/missing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Book not found", decodeError(t, rec).Detail)
	})

	t.Run("image", func(t *testing.T) {
		rec := get("/images/b1/front.jpg")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "jpeg", rec.Body.String())
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

		assert.Equal(t, http.StatusNotFound, get("/images/b1/nope.jpg").Code)
	})

	t.Run("upload status", func(t *testing.T) {
		var status models.UploadStatus
		require.NoError(t, json.Unmarshal(get("/ingest/upload-status").Body.Bytes(), &status))
		assert.Equal(t, "ready", status.Status)
		assert.Equal(t, MaxFilesPerRequest, status.MaxFilesPerRequest)
		assert.Contains(t, status.AllowedExtensions, ".tif")
	})
}

// TestClientRoundTrip drives the API client and an upload session against the dev server.
func TestUpdateBook(t *testing.T) {
	srv := New(Options{})
	srv.Store().Add(models.Book{ID: "b1", Status: models.BookNew, Title: "Dnue", Author: "Herbert"})

	put := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	t.Run("applies set fields", func(t *testing.T) {
		rec := put("/book/b1", `{"title":"Dune","status":"approved"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var book models.Book
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
		assert.Equal(t, "Dune", book.Title)
		assert.Equal(t, models.BookApproved, book.Status)
		assert.Equal(t, "Herbert", book.Author)
		assert.NotZero(t, book.UpdatedAt)

		stored, ok := srv.Store().Book("b1")
		require.True(t, ok)
		assert.Equal(t, "Dune", stored.Title)
	})

	t.Run("unknown book", func(t *testing.T) {
		rec := put("/book/missing", `{"title":"Dune"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Book not found", decodeError(t, rec).Detail)
	})

	t.Run("invalid update", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"status":"shelved"}`, `not json`} {
			rec := put("/book/b1", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.Contains(t, decodeError(t, rec).Detail, "Invalid book update", body)
		}
	})
}

func TestClientRoundTrip(t *testing.T) {
	srv := New(Options{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	dir := t.TempDir()
	img := pngBytes(t, 8, 8)
	for _, rel := range []string{"Spine/1.png", "Spine/2.png", "Cover/front.png"} {
		tu.WriteFile(t, dir, rel, 0)
		require.NoError(t, writeBytes(dir, rel, img))
	}

	files, err := upload.FromDirectory(dir)
	require.NoError(t, err)

	client := services.NewAPIService(ts.URL, nil)
	scheduler := &tu.ManualScheduler{}
	var navigated []string
	session := upload.NewSession(upload.Options{
		Uploader:  client,
		Scheduler: scheduler,
		Navigate:  func(p string) { navigated = append(navigated, p) },
	})
	defer session.Dispose()

	require.NoError(t, session.Accept(files))
	result, err := session.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Books, 2)
	assert.Equal(t, 100, session.Progress())

	scheduler.Fire()
	assert.Equal(t, []string{upload.DefaultReviewPath}, navigated)

	queue, err := client.Queue(context.Background(), models.BookNew)
	require.NoError(t, err)
	require.Len(t, queue, 2)

	book, err := client.Book(context.Background(), queue[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, book.Images)

	data, err := client.FetchImage(context.Background(), client.ImageURL(book.ID, book.Images[0].Path))
	require.NoError(t, err)
	assert.Equal(t, img, data)

	title := "Spine photos"
	updated, err := client.UpdateBook(context.Background(), book.ID, models.BookUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Len(t, updated.Images, len(book.Images))

	_, err = client.UpdateBook(context.Background(), "missing", models.BookUpdate{Title: &title})
	assert.ErrorIs(t, err, shared.ErrBookNotFound)
}

func TestClientStructuredFailure(t *testing.T) {
	ts := httptest.NewServer(New(Options{MaxFiles: 1}).Handler())
	defer ts.Close()

	dir := t.TempDir()
	a := tu.WriteFile(t, dir, "a.png", 4)
	b := tu.WriteFile(t, dir, "b.png", 4)

	session := upload.NewSession(upload.Options{
		Uploader:  services.NewAPIService(ts.URL, nil),
		Scheduler: &tu.ManualScheduler{},
	})
	defer session.Dispose()

	files, err := upload.FromPaths(a, b)
	require.NoError(t, err)
	require.NoError(t, session.Accept(files))

	_, err = session.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Too many files uploaded (max 1 per request)", session.Err())
	assert.False(t, session.Submitting())
	assert.Zero(t, session.Progress())
}

func writeBytes(dir, rel string, data []byte) error {
	return os.WriteFile(filepath.Join(dir, filepath.FromSlash(rel)), data, 0o644)
}
