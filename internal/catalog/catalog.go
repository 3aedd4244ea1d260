// internal/catalog/catalog.go
package catalog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrBookNotFound = errors.New("book not found")

// Catalog owns every Book in insertion order. Titles are not unique;
// lookups by title resolve to the first match.
type Catalog struct {
	books []Book
	index map[uuid.UUID]int
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{index: make(map[uuid.UUID]int)}
}

// Add appends a new, available book and returns it.
func (c *Catalog) Add(title, author, isbn string) Book {
	book := Book{
		ID:        uuid.New(),
		Title:     title,
		Author:    author,
		ISBN:      isbn,
		Available: true,
	}
	c.insert(book)
	return book
}

func (c *Catalog) insert(book Book) {
	c.index[book.ID] = len(c.books)
	c.books = append(c.books, book)
}

// Get returns the book with the given id.
func (c *Catalog) Get(id uuid.UUID) (Book, bool) {
	i, ok := c.index[id]
	if !ok {
		return Book{}, false
	}
	return c.books[i], true
}

// FindByTitle returns the first book whose title equals title exactly.
func (c *Catalog) FindByTitle(title string) (Book, bool) {
	for _, book := range c.books {
		if book.Title == title {
			return book, true
		}
	}
	return Book{}, false
}

// FindByAuthor returns every book by author, in insertion order.
func (c *Catalog) FindByAuthor(author string) []Book {
	result := []Book{}
	for _, book := range c.books {
		if book.Author == author {
			result = append(result, book)
		}
	}
	return result
}

// SetAvailable updates the availability flag of a book.
func (c *Catalog) SetAvailable(id uuid.UUID, available bool) error {
	i, ok := c.index[id]
	if !ok {
		return fmt.Errorf("book with ID %s: %w", id, ErrBookNotFound)
	}
	c.books[i].Available = available
	return nil
}

// Books returns a copy of the catalog in insertion order.
func (c *Catalog) Books() []Book {
	out := make([]Book, len(c.books))
	copy(out, c.books)
	return out
}

func (c *Catalog) Len() int {
	return len(c.books)
}

// Restore replaces the whole catalog. Books without an ID are given one.
func (c *Catalog) Restore(books []Book) {
	c.books = make([]Book, 0, len(books))
	c.index = make(map[uuid.UUID]int, len(books))
	for _, book := range books {
		if book.ID == uuid.Nil {
			book.ID = uuid.New()
		}
		if _, dup := c.index[book.ID]; dup {
			book.ID = uuid.New()
		}
		c.insert(book)
	}
}
