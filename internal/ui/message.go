package ui

import (
	"github.com/desertthunder/booklister/internal/models"
	"github.com/desertthunder/booklister/internal/repositories"
	"github.com/desertthunder/booklister/internal/upload"
)

type queueFetchedMsg struct {
	books []models.Book
	err   error
}

type bookFetchedMsg struct {
	book *models.Book
	err  error
}

// progressMsg carries one update from the upload session's progress channel.
type progressMsg upload.ProgressUpdate

type submitDoneMsg struct {
	result *upload.Result
	err    error
}

type settingsFetchedMsg struct {
	status  *models.UploadStatus
	summary *repositories.UploadSummary
	err     error
}

type exportDoneMsg struct {
	path  string
	books int
	err   error
}

type browserOpenedMsg struct {
	url string
	err error
}
