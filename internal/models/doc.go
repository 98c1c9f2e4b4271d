// Package models defines domain entities and persistence interfaces for booklister.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): records exchanged with the ingest API and the local filesystem
//   - [SelectedFile] : An image chosen for upload, with its optional folder-relative path
//   - [FolderGroup] : Files sharing the same inferred folder (one book per folder)
//   - [Book] : A book record created by the ingest API
//   - [Image] : A stored photo belonging to a book
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [UploadRecord] : One submitted batch and the books it produced
//
// Persistent entities implement the Model interface providing ID generation, timestamps, and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
