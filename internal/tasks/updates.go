package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Phase of a bulk operation.
type Phase int

const (
	FetchBook Phase = iota
	DownloadImages
	BookFailed
)

func (p Phase) String() string {
	switch p {
	case FetchBook:
		return "fetch_book"
	case DownloadImages:
		return "download_images"
	case BookFailed:
		return "book_failed"
	default:
		return ""
	}
}

func fetchingBookUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchBook,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching book %s...", id),
	}
}

func downloadedUpdate(step, total int, res BookDownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadImages,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Saved %d image(s) for %s", len(res.Files), res.label()),
		Data:    res,
	}
}

func failedUpdate(step, total int, res BookDownloadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BookFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Failed %s: %v", res.label(), res.Error),
		Data:    res,
	}
}
