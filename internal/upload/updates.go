package upload

// ProgressUpdate represents a progress event during a batch upload.
//
// Percent is cosmetic while Phase is Uploading; it does not measure bytes sent.
type ProgressUpdate struct {
	Phase   Phase
	Percent int
	Message string
	Books   int // books created, set when Phase is Complete
}

// Phase enumerates the stages of a submission.
type Phase int

const (
	Uploading Phase = iota
	Complete
	Failed
	Redirect
)

func (p Phase) String() string {
	switch p {
	case Uploading:
		return "uploading"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	case Redirect:
		return "redirect"
	default:
		return ""
	}
}

func uploadingUpdate(percent, files int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Uploading,
		Percent: percent,
		Message: "Uploading " + plural(files, "file") + "...",
	}
}

func completeUpdate(books int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Percent: 100,
		Message: "Created " + plural(books, "book"),
		Books:   books,
	}
}

func failedUpdate(message string) ProgressUpdate {
	return ProgressUpdate{Phase: Failed, Percent: 0, Message: message}
}

func redirectUpdate(path string) ProgressUpdate {
	return ProgressUpdate{Phase: Redirect, Percent: 100, Message: path}
}
