package devserver

import (
	"slices"
	"sync"

	"github.com/desertthunder/booklister/internal/models"
)

// Store keeps books and image bytes in memory.
type Store struct {
	mu     sync.RWMutex
	order  []string
	books  map[string]models.Book
	images map[string]map[string]storedImage
}

type storedImage struct {
	contentType string
	data        []byte
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		books:  make(map[string]models.Book),
		images: make(map[string]map[string]storedImage),
	}
}

// Add inserts or replaces a book. New books are appended to the queue.
func (s *Store) Add(book models.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[book.ID]; !ok {
		s.order = append(s.order, book.ID)
	}
	s.books[book.ID] = cloneBook(book)
}

// Update applies fn to the stored book with id and returns the result.
func (s *Store) Update(id string, fn func(*models.Book)) (models.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return models.Book{}, false
	}
	fn(&b)
	s.books[id] = b
	return cloneBook(b), true
}

// PutImage stores image bytes under a book and filename.
func (s *Store) PutImage(bookID, filename, contentType string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.images[bookID] == nil {
		s.images[bookID] = make(map[string]storedImage)
	}
	s.images[bookID][filename] = storedImage{contentType: contentType, data: data}
}

// Book returns a copy of the book with id.
func (s *Store) Book(id string) (models.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return models.Book{}, false
	}
	return cloneBook(b), true
}

// Queue returns books in insertion order, filtered by status when status is non-empty.
func (s *Store) Queue(status models.BookStatus) []models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	books := make([]models.Book, 0, len(s.order))
	for _, id := range s.order {
		b := s.books[id]
		if status != "" && b.Status != status {
			continue
		}
		books = append(books, cloneBook(b))
	}
	return books
}

// Image returns stored image bytes.
func (s *Store) Image(bookID, filename string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[bookID][filename]
	if !ok {
		return nil, "", false
	}
	return img.data, img.contentType, true
}

// Len reports the number of books.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func cloneBook(b models.Book) models.Book {
	b.Images = slices.Clone(b.Images)
	return b
}
