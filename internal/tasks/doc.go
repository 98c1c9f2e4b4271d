// Package tasks runs long book operations against the ingest API with non-blocking progress reporting.
//
// # Bulk image downloads
//
// [Engine.BulkDownload] fetches each requested book through a rate limiter and hands it to a pool of
// workers that write the book's images under {OutputDir}/{book id}/. A failed book does not stop the
// batch; the outcome of every book is collected into a [BulkDownloadResult] and written to
// download_manifest.json in the output directory.
//
// # Progress Reporting
//
// Updates are [ProgressUpdate] values sent with select/default, so a slow or absent reader never
// blocks the workers.
package tasks
