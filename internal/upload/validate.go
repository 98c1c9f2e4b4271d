package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
)

// MaxFileSize is the largest accepted image, in bytes.
const MaxFileSize int64 = 10 * 1024 * 1024

// AllowedExtensions lists accepted image extensions, lower case and without the dot.
var AllowedExtensions = []string{"jpg", "jpeg", "png", "webp", "tiff", "tif"}

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
}

// AllowedMimeTypes lists the content types matching [AllowedExtensions].
var AllowedMimeTypes = []string{"image/jpeg", "image/png", "image/webp", "image/tiff"}

// ContentType returns the image content type for name, or application/octet-stream for unknown extensions.
func ContentType(name string) string {
	if ct, ok := mimeTypes[extension(name)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ValidationError reports a rejected batch. No file of the batch was accepted.
type ValidationError struct {
	Oversized   []string // names of files larger than MaxFileSize
	Unsupported []string // names of files with a disallowed extension
	Rejected    int      // distinct offending files
}

func (e *ValidationError) Error() string {
	var parts []string
	if n := len(e.Oversized); n > 0 {
		parts = append(parts, fmt.Sprintf("%d larger than %s", n, shared.FormatBytes(MaxFileSize)))
	}
	if n := len(e.Unsupported); n > 0 {
		parts = append(parts, fmt.Sprintf("%d with unsupported type (allowed: %s)", n, strings.Join(AllowedExtensions, ", ")))
	}
	return fmt.Sprintf("%s rejected: %s", plural(e.Rejected, "file"), strings.Join(parts, ", "))
}

// Unwrap lets callers match [shared.ErrInvalidInput].
func (e *ValidationError) Unwrap() error {
	return shared.ErrInvalidInput
}

// Validate checks every file against the size and type rules.
//
// It returns nil when all files pass, and a [*ValidationError] naming every offender otherwise.
func Validate(files []models.SelectedFile) error {
	verr := &ValidationError{}
	for _, f := range files {
		bad := false
		if f.Size > MaxFileSize {
			verr.Oversized = append(verr.Oversized, f.Name)
			bad = true
		}
		if !AllowedExtension(f.Name) {
			verr.Unsupported = append(verr.Unsupported, f.Name)
			bad = true
		}
		if bad {
			verr.Rejected++
		}
	}

	if verr.Rejected == 0 {
		return nil
	}
	return verr
}

// AllowedExtension reports whether name ends in one of [AllowedExtensions], ignoring case.
func AllowedExtension(name string) bool {
	_, ok := mimeTypes[extension(name)]
	return ok
}

func extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
