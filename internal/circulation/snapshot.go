// internal/circulation/snapshot.go
package circulation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"librarydesk/internal/catalog"
	"librarydesk/internal/membership"
	"librarydesk/internal/storage"
)

// Snapshot captures the catalog and members for persistence. Each borrowed
// book carries the id of the member holding it.
func (l *library) Snapshot(ctx context.Context) storage.Snapshot {
	holders := make(map[uuid.UUID]string)
	members := l.members.Members()
	for _, m := range members {
		for _, id := range m.Borrowed {
			holders[id] = m.ID
		}
	}

	books := l.catalog.Books()
	snap := storage.Snapshot{
		Books:   make([]storage.BookRecord, 0, len(books)),
		Members: make([]storage.MemberRecord, 0, len(members)),
	}
	for _, b := range books {
		snap.Books = append(snap.Books, storage.BookRecord{
			Title:      b.Title,
			Author:     b.Author,
			ISBN:       b.ISBN,
			Available:  b.Available,
			BorrowerID: holders[b.ID],
		})
	}
	for _, m := range members {
		snap.Members = append(snap.Members, storage.MemberRecord{Name: m.Name, ID: m.ID})
	}
	return snap
}

// Restore replaces all state with snap and clears the journal. Unavailable
// books whose borrower is named and registered go back into that member's
// borrowed set; the rest stay unavailable with no holder. A snapshot with
// duplicate member ids is rejected and nothing changes.
func (l *library) Restore(ctx context.Context, snap storage.Snapshot) error {
	ctx, span := l.tracer.Start(ctx, "library.restore")
	defer span.End()

	seen := make(map[string]bool, len(snap.Members))
	members := make([]membership.Member, 0, len(snap.Members))
	for _, m := range snap.Members {
		if seen[m.ID] {
			return fmt.Errorf("restore member %q: %w", m.ID, ErrDuplicateMemberID)
		}
		seen[m.ID] = true
		members = append(members, membership.Member{ID: m.ID, Name: m.Name})
	}
	registry := membership.NewRegistry()
	registry.Restore(members)

	books := make([]catalog.Book, 0, len(snap.Books))
	for _, b := range snap.Books {
		books = append(books, catalog.Book{
			ID:        uuid.New(),
			Title:     b.Title,
			Author:    b.Author,
			ISBN:      b.ISBN,
			Available: b.Available,
		})
	}
	restored := catalog.New()
	restored.Restore(books)

	orphaned := 0
	for i, b := range snap.Books {
		if b.Available {
			continue
		}
		holder, ok := registry.FindByID(b.BorrowerID)
		if b.BorrowerID == "" || !ok {
			orphaned++
			l.log.Warn("borrowed book has no known holder", "title", b.Title, "borrower_id", b.BorrowerID)
			continue
		}
		holder.Borrow(books[i].ID)
	}

	l.catalog = restored
	l.members = registry
	l.eventStore.Reset()
	l.record(ctx, libraryAggregateID, libraryAggregateType, LibraryRestoredEventType, LibraryRestoredEvent{
		Books:    len(books),
		Members:  len(members),
		Orphaned: orphaned,
	})
	l.log.Info("library restored", "books", len(books), "members", len(members), "orphaned", orphaned)
	return nil
}
