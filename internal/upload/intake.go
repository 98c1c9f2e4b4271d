package upload

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/shared"
)

// FromPaths builds a selection the way a drop target does.
//
// A file path yields one pathless file. A directory yields every file beneath it with a relative path rooted at
// the directory's own name, so the whole directory becomes one group. Hidden entries inside directories are skipped.
// Files are not validated here.
func FromPaths(paths ...string) ([]models.SelectedFile, error) {
	var files []models.SelectedFile
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}

		if !info.IsDir() {
			files = append(files, models.SelectedFile{
				Name:   info.Name(),
				Size:   info.Size(),
				Source: p,
			})
			continue
		}

		base := filepath.Base(filepath.Clean(p))
		found, err := walkDir(p, base)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// FromDirectory builds a selection the way a directory picker does for a library folder.
//
// Relative paths are taken from root itself: each immediate sub-directory becomes a group, and files lying
// directly in root fall into [models.GeneralFolder].
func FromDirectory(root string) ([]models.SelectedFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", shared.ErrInvalidArgument, root)
	}
	return walkDir(root, "")
}

func walkDir(root, prefix string) ([]models.SelectedFile, error) {
	var files []models.SelectedFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if prefix != "" {
			rel = prefix + "/" + rel
		}

		files = append(files, models.SelectedFile{
			Name:         d.Name(),
			Size:         info.Size(),
			RelativePath: rel,
			Source:       path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}
	return files, nil
}
