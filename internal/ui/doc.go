// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// A navigation bar across the top switches between four pages:
//  1. Review : browse the server's queue and page through a book's photos in a carousel
//  2. Upload : pick images or folder trees, check the grouping, and submit the batch
//  3. Export : write the queue to a file
//  4. Settings : show configuration, server limits, and upload history
//
// The [Model] implements bubbletea's Init/Update/View pattern. Upload progress flows through a channel owned by the
// [upload.Session]; the redirect that follows a successful upload arrives on the same channel and moves the UI to the
// Review page.
package ui
