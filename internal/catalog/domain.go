// internal/catalog/domain.go
package catalog

import (
	"github.com/google/uuid"
)

// Book is a catalog entry. ID is assigned on insertion and never changes;
// other records refer to books by ID only.
type Book struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN      string    `json:"isbn"`
	Available bool      `json:"available"`
}

// AggregateType is the journal aggregate type for books.
const AggregateType = "book"

const (
	BookAddedEventType = "BookAdded"
)

// BookAddedEvent is published when a new book is added.
type BookAddedEvent struct {
	ID     uuid.UUID `json:"id"`
	ISBN   string    `json:"isbn"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
}
