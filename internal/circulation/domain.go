// internal/circulation/domain.go
package circulation

import (
	"errors"

	"github.com/google/uuid"

	"librarydesk/internal/catalog"
	"librarydesk/internal/membership"
)

var (
	ErrBookUnavailable     = errors.New("book is not available")
	ErrNotBorrowedByMember = errors.New("book was not borrowed by this member")

	ErrBookNotFound      = catalog.ErrBookNotFound
	ErrMemberNotFound    = membership.ErrMemberNotFound
	ErrDuplicateMemberID = membership.ErrDuplicateMemberID
)

const (
	BookIssuedEventType      = "BookIssued"
	BookReturnedEventType    = "BookReturned"
	LibraryRestoredEventType = "LibraryRestored"

	libraryAggregateType = "library"
)

// libraryAggregateID keys events about the library as a whole.
var libraryAggregateID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("librarydesk/library"))

// BookIssuedEvent is published when a book is lent to a member.
type BookIssuedEvent struct {
	BookID   uuid.UUID `json:"book_id"`
	Title    string    `json:"title"`
	MemberID string    `json:"member_id"`
}

// BookReturnedEvent is published when a member returns a book.
type BookReturnedEvent struct {
	BookID   uuid.UUID `json:"book_id"`
	Title    string    `json:"title"`
	MemberID string    `json:"member_id"`
}

// LibraryRestoredEvent is published after a load replaced all state.
type LibraryRestoredEvent struct {
	Books    int `json:"books"`
	Members  int `json:"members"`
	Orphaned int `json:"orphaned"`
}
