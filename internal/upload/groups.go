package upload

import (
	"fmt"
	"path"
	"strings"

	"github.com/desertthunder/booklister/internal/models"
)

// FolderOf returns the folder key of a file: the first segment of its relative path, or [models.GeneralFolder]
// when the path is empty or names the file alone.
//
// Backslashes are treated as separators so paths produced on Windows group the same way.
func FolderOf(f models.SelectedFile) string {
	p := strings.ReplaceAll(f.RelativePath, "\\", "/")
	p = strings.TrimPrefix(p, "/")

	first, _, found := strings.Cut(p, "/")
	if !found || first == "" {
		return models.GeneralFolder
	}
	return first
}

// Project derives folder groups from a flat file list.
//
// Groups appear in first-seen order and files keep their input order within a group. The result depends only on
// files, so calling Project twice on the same list yields identical groups.
func Project(files []models.SelectedFile) []models.FolderGroup {
	if len(files) == 0 {
		return nil
	}

	index := make(map[string]int)
	var groups []models.FolderGroup
	for _, f := range files {
		key := FolderOf(f)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.FolderGroup{Name: key})
		}
		groups[i].Files = append(groups[i].Files, f)
	}
	return groups
}

// FolderMap maps each file's upload name, as assigned by [UploadNames], to its folder key.
func FolderMap(files []models.SelectedFile) map[string]string {
	names := UploadNames(files)
	m := make(map[string]string, len(files))
	for i, f := range files {
		m[names[i]] = FolderOf(f)
	}
	return m
}

// UploadNames returns the multipart filename of each file, in order.
//
// The first file with a given upload name keeps it; later ones get a " (n)" suffix before the extension,
// so every part of a batch has a distinct name. Suffixes never collide with another file's own name.
func UploadNames(files []models.SelectedFile) []string {
	taken := make(map[string]bool, len(files))
	for _, f := range files {
		taken[f.UploadName()] = true
	}

	names := make([]string, len(files))
	used := make(map[string]bool, len(files))
	for i, f := range files {
		name := f.UploadName()
		if used[name] {
			ext := path.Ext(name)
			stem := strings.TrimSuffix(name, ext)
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
				if !taken[candidate] && !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}
