// Package upload implements the client side of a batch book upload.
//
// A [Session] owns the transient state of one upload page: the selected files, the folder groups derived from them,
// and the submission flags. Every mutation recomputes the groups from scratch with [Project], so groups never drift
// from the file list.
//
// # Intake
//
// Files arrive through two front ends that share one acceptance path:
//   - [FromPaths] : individual files and dropped folders (a folder contributes its own name as the group)
//   - [FromDirectory] : a library folder whose sub-folders each become a group
//
// [Session.Accept] validates the whole batch with [Validate] and rejects it outright if any file is too large or
// has an unsupported extension.
//
// # Submission
//
// [Session.Submit] sends every selected file in one call to an [Uploader]. While the call runs, a cosmetic progress
// ticker advances the percentage in fixed steps without ever reaching 100. The ticker is cancelled on both exit paths.
// Success pins progress to 100 and schedules one deferred navigation to the review page; failure resets the session
// so it can be submitted again.
//
// Progress is published as [ProgressUpdate] values on an optional channel; sends never block.
package upload
