package models

// GeneralFolder is the group assigned to files without a folder-relative path.
const GeneralFolder = "General"

// SelectedFile is an image chosen for upload.
//
// RelativePath uses forward slashes and is empty for files that were picked individually.
// Source is the location of the bytes on the local filesystem.
type SelectedFile struct {
	Name         string
	Size         int64
	RelativePath string
	Source       string
}

// UploadName is the multipart filename sent for the file: the relative path when present, otherwise the name.
func (f SelectedFile) UploadName() string {
	if f.RelativePath != "" {
		return f.RelativePath
	}
	return f.Name
}

// FolderGroup is a named bucket of selected files that share a leading path segment.
type FolderGroup struct {
	Name  string
	Files []SelectedFile
}

// Size returns the combined size in bytes of the group's files.
func (g FolderGroup) Size() int64 {
	var total int64
	for _, f := range g.Files {
		total += f.Size
	}
	return total
}
