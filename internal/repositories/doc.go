// Package repositories implements SQLite persistence for the local upload history.
//
// [UploadRepository] stores one row per submitted batch in uploads and the books the server created for it in
// upload_books. Records are soft-deleted via deleted_at and excluded from queries by default.
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
