// internal/circulation/service.go
package circulation

import (
	"context"

	"librarydesk/internal/catalog"
	"librarydesk/internal/eventstore"
	"librarydesk/internal/membership"
	"librarydesk/internal/storage"
)

// Service is the library aggregate root: it owns the catalog and the
// member registry and enforces lending rules across both.
type Service interface {
	AddBook(ctx context.Context, title, author, isbn string) (catalog.Book, error)
	RegisterUser(ctx context.Context, name, id string) (membership.Member, error)
	FindBookByTitle(ctx context.Context, title string) (catalog.Book, error)
	FindBooksByAuthor(ctx context.Context, author string) ([]catalog.Book, error)
	FindUserByID(ctx context.Context, id string) (membership.Member, error)
	IssueBook(ctx context.Context, userID, title string) (catalog.Book, error)
	ReturnBook(ctx context.Context, userID, title string) (catalog.Book, error)
	BorrowedBooks(ctx context.Context, userID string) ([]catalog.Book, error)
	ListBooks(ctx context.Context) []catalog.Book
	History(ctx context.Context, title string) ([]eventstore.Event, error)
	Journal(ctx context.Context) ([]eventstore.Event, error)
	Snapshot(ctx context.Context) storage.Snapshot
	Restore(ctx context.Context, snap storage.Snapshot) error
}
