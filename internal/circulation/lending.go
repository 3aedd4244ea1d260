// internal/circulation/lending.go
package circulation

import (
	"fmt"

	"github.com/google/uuid"

	"librarydesk/internal/catalog"
	"librarydesk/internal/membership"
)

// Borrow moves a book from Available to Borrowed by member. The member's
// borrowed set is the only record of who holds the book.
func Borrow(books *catalog.Catalog, member *membership.Member, bookID uuid.UUID) error {
	book, ok := books.Get(bookID)
	if !ok {
		return fmt.Errorf("book with ID %s: %w", bookID, ErrBookNotFound)
	}
	if !book.Available {
		return ErrBookUnavailable
	}
	if err := books.SetAvailable(bookID, false); err != nil {
		return err
	}
	member.Borrow(bookID)
	return nil
}

// Release moves a book held by member back to Available. A book held by
// anyone else, or by nobody, is rejected.
func Release(books *catalog.Catalog, member *membership.Member, bookID uuid.UUID) error {
	if !member.Holds(bookID) {
		return ErrNotBorrowedByMember
	}
	if err := books.SetAvailable(bookID, true); err != nil {
		return err
	}
	member.Release(bookID)
	return nil
}
