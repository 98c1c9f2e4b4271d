// Package services implements the HTTP client for the BookLister ingest API.
//
// # Service Interface
//
// [Service] lists the operations the CLI and the terminal UI depend on. [APIService] implements it over HTTP and also
// exposes raw Get and Post calls for debugging.
//
// # Batch Upload
//
// [APIService.UploadBatch] streams a multipart body to POST /ingest/upload: one "files" part per image plus a
// "folder_info" JSON field mapping each part's filename to its folder. The server creates one book per folder.
//
// # Images
//
// Image URLs are built from the base address, the book id, and the last segment of the stored path.
// [APIService.FetchImage] waits on a [rate.Limiter] so bulk downloads stay polite.
//
// # Authentication
//
// When a token is configured, requests carry it as a bearer credential through an [oauth2.Transport] with a static
// token source.
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which keeps the body's error, detail, and message fields and wraps
// [shared.ErrAPIRequest]. [APIError.UserMessage] picks the text shown to users. Other failures are wrapped with:
//   - [shared.ErrAPIRequest] : transport failure
//   - [shared.ErrBookNotFound] : GET /book/{id} returned 404
//   - [shared.ErrInvalidInput] : a selected file could not be read
package services
