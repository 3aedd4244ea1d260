package circulation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarydesk/internal/eventstore"
	"librarydesk/internal/logger"
	"librarydesk/internal/storage"
)

func newTestLibrary(t *testing.T) Service {
	t.Helper()
	return NewService(eventstore.NewEventStore(), logger.NewNop())
}

func TestIssueAndReturnLifecycle(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	_, err := lib.AddBook(ctx, "Dune", "Herbert", "111")
	require.NoError(t, err)
	_, err = lib.RegisterUser(ctx, "Alice", "u1")
	require.NoError(t, err)

	// arrange + act: first issue succeeds
	issued, err := lib.IssueBook(ctx, "u1", "Dune")
	require.NoError(t, err)
	assert.False(t, issued.Available)

	book, err := lib.FindBookByTitle(ctx, "Dune")
	require.NoError(t, err)
	assert.False(t, book.Available)
	borrowed, err := lib.BorrowedBooks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, borrowed, 1)
	assert.Equal(t, "Dune", borrowed[0].Title)

	// second issue is refused and changes nothing
	before := lib.Snapshot(ctx)
	_, err = lib.IssueBook(ctx, "u1", "Dune")
	assert.ErrorIs(t, err, ErrBookUnavailable)
	assert.Equal(t, before, lib.Snapshot(ctx))

	// return makes it available again
	returned, err := lib.ReturnBook(ctx, "u1", "Dune")
	require.NoError(t, err)
	assert.True(t, returned.Available)
	borrowed, err = lib.BorrowedBooks(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, borrowed)
}

func TestFindBooksByAuthorKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	first, _ := lib.AddBook(ctx, "Dune", "Herbert", "111")
	_, _ = lib.AddBook(ctx, "Emma", "Other", "222")
	second, _ := lib.AddBook(ctx, "Dune Messiah", "Herbert", "333")

	books, err := lib.FindBooksByAuthor(ctx, "Herbert")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, first.ID, books[0].ID)
	assert.Equal(t, second.ID, books[1].ID)

	books, err = lib.FindBooksByAuthor(ctx, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestRegisterUserRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	_, err := lib.RegisterUser(ctx, "Alice", "u1")
	require.NoError(t, err)
	_, err = lib.RegisterUser(ctx, "Bob", "u1")
	assert.ErrorIs(t, err, ErrDuplicateMemberID)

	assert.Len(t, lib.Snapshot(ctx).Members, 1)
	member, err := lib.FindUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", member.Name)
}

func TestIssueBookResolutionFailures(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	_, _ = lib.AddBook(ctx, "Dune", "Herbert", "111")
	_, _ = lib.RegisterUser(ctx, "Alice", "u1")

	_, err := lib.IssueBook(ctx, "ghost", "Dune")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	_, err = lib.IssueBook(ctx, "u1", "Missing")
	assert.ErrorIs(t, err, ErrBookNotFound)

	// member is resolved before the book
	_, err = lib.IssueBook(ctx, "ghost", "Missing")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	_, err = lib.ReturnBook(ctx, "ghost", "Dune")
	assert.ErrorIs(t, err, ErrMemberNotFound)
	_, err = lib.ReturnBook(ctx, "u1", "Missing")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestReturnBookHeldByAnotherMemberIsRefused(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	_, _ = lib.AddBook(ctx, "Dune", "Herbert", "111")
	_, _ = lib.RegisterUser(ctx, "Alice", "u1")
	_, _ = lib.RegisterUser(ctx, "Bob", "u2")

	_, err := lib.ReturnBook(ctx, "u1", "Dune")
	assert.ErrorIs(t, err, ErrNotBorrowedByMember, "nobody holds it yet")

	_, err = lib.IssueBook(ctx, "u1", "Dune")
	require.NoError(t, err)

	before := lib.Snapshot(ctx)
	_, err = lib.ReturnBook(ctx, "u2", "Dune")
	assert.ErrorIs(t, err, ErrNotBorrowedByMember)
	assert.Equal(t, before, lib.Snapshot(ctx))
}

func TestDuplicateTitlesResolveToFirstEntry(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	first, _ := lib.AddBook(ctx, "Dune", "Herbert", "111")
	_, _ = lib.AddBook(ctx, "Dune", "Herbert", "222")
	_, _ = lib.RegisterUser(ctx, "Alice", "u1")
	_, _ = lib.RegisterUser(ctx, "Bob", "u2")

	issued, err := lib.IssueBook(ctx, "u1", "Dune")
	require.NoError(t, err)
	assert.Equal(t, first.ID, issued.ID)

	// the second copy is unreachable by title
	_, err = lib.IssueBook(ctx, "u2", "Dune")
	assert.ErrorIs(t, err, ErrBookUnavailable)
}

func TestHistoryRecordsLendingEvents(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	_, _ = lib.AddBook(ctx, "Dune", "Herbert", "111")
	_, _ = lib.RegisterUser(ctx, "Alice", "u1")
	_, _ = lib.IssueBook(ctx, "u1", "Dune")
	_, _ = lib.IssueBook(ctx, "u1", "Dune")
	_, _ = lib.ReturnBook(ctx, "u1", "Dune")

	events, err := lib.History(ctx, "Dune")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "BookAdded", events[0].EventType)
	assert.Equal(t, BookIssuedEventType, events[1].EventType)
	assert.Equal(t, BookReturnedEventType, events[2].EventType)
	assert.JSONEq(t, `{"book_id":"`+events[0].AggregateID.String()+`","title":"Dune","member_id":"u1"}`, string(events[1].EventData))

	_, err = lib.History(ctx, "Missing")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRestoreReattachesBorrowers(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)

	err := lib.Restore(ctx, storage.Snapshot{
		Books: []storage.BookRecord{
			{Title: "Dune", Author: "Herbert", ISBN: "111", Available: false, BorrowerID: "u1"},
			{Title: "Emma", Author: "Austen", ISBN: "222", Available: false},
			{Title: "Ulysses", Author: "Joyce", ISBN: "333", Available: false, BorrowerID: "ghost"},
			{Title: "Ivanhoe", Author: "Scott", ISBN: "444", Available: true},
		},
		Members: []storage.MemberRecord{{Name: "Alice", ID: "u1"}},
	})
	require.NoError(t, err)

	borrowed, err := lib.BorrowedBooks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, borrowed, 1)
	assert.Equal(t, "Dune", borrowed[0].Title)

	_, err = lib.ReturnBook(ctx, "u1", "Dune")
	require.NoError(t, err)

	// books without a known holder stay unavailable and cannot be returned
	_, err = lib.ReturnBook(ctx, "u1", "Emma")
	assert.ErrorIs(t, err, ErrNotBorrowedByMember)
	_, err = lib.IssueBook(ctx, "u1", "Ulysses")
	assert.ErrorIs(t, err, ErrBookUnavailable)
}

func TestRestoreRejectsDuplicateMembers(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	_, _ = lib.AddBook(ctx, "Dune", "Herbert", "111")
	before := lib.Snapshot(ctx)

	err := lib.Restore(ctx, storage.Snapshot{
		Members: []storage.MemberRecord{{Name: "Alice", ID: "u1"}, {Name: "Bob", ID: "u1"}},
	})
	assert.ErrorIs(t, err, ErrDuplicateMemberID)
	assert.Equal(t, before, lib.Snapshot(ctx))
}

func TestRestoreIsDestructiveAndResetsHistory(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	_, _ = lib.AddBook(ctx, "Old", "Author", "000")
	_, _ = lib.RegisterUser(ctx, "Old", "u0")

	require.NoError(t, lib.Restore(ctx, storage.Snapshot{
		Books: []storage.BookRecord{{Title: "Dune", Author: "Herbert", ISBN: "111", Available: true}},
	}))

	assert.Len(t, lib.ListBooks(ctx), 1)
	_, err := lib.FindUserByID(ctx, "u0")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	events, err := lib.History(ctx, "Dune")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSaveLoadSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	_, _ = lib.AddBook(ctx, "Dune", "Herbert", "111")
	_, _ = lib.AddBook(ctx, "Emma", "Austen", "222")
	_, _ = lib.RegisterUser(ctx, "Alice", "u1")
	_, _ = lib.RegisterUser(ctx, "Bob", "u2")
	_, err := lib.IssueBook(ctx, "u2", "Emma")
	require.NoError(t, err)

	store := storage.NewFileStore(filepath.Join(t.TempDir(), "library.jsonl"))
	original := lib.Snapshot(ctx)
	require.NoError(t, store.Save(ctx, "", original))

	reloaded := newTestLibrary(t)
	snap, err := store.Load(ctx, "")
	require.NoError(t, err)
	require.NoError(t, reloaded.Restore(ctx, snap))

	assert.Equal(t, original, reloaded.Snapshot(ctx))
	borrowed, err := reloaded.BorrowedBooks(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, borrowed, 1)
	assert.Equal(t, "Emma", borrowed[0].Title)
}
