// internal/membership/domain.go
package membership

import (
	"github.com/google/uuid"
)

// Member represents a registered borrower. Borrowed holds catalog book IDs
// in borrow order; an ID appears at most once.
type Member struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Borrowed []uuid.UUID `json:"borrowed"`
}

// Holds reports whether the member currently has the book.
func (m *Member) Holds(bookID uuid.UUID) bool {
	for _, id := range m.Borrowed {
		if id == bookID {
			return true
		}
	}
	return false
}

// Borrow records bookID as held. It is a no-op if already held.
func (m *Member) Borrow(bookID uuid.UUID) {
	if m.Holds(bookID) {
		return
	}
	m.Borrowed = append(m.Borrowed, bookID)
}

// Release removes bookID and reports whether it was held.
func (m *Member) Release(bookID uuid.UUID) bool {
	for i, id := range m.Borrowed {
		if id == bookID {
			m.Borrowed = append(m.Borrowed[:i], m.Borrowed[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the member.
func (m Member) Clone() Member {
	if m.Borrowed != nil {
		m.Borrowed = append([]uuid.UUID(nil), m.Borrowed...)
	}
	return m
}

// AggregateType is the journal aggregate type for members.
const AggregateType = "member"

const MemberRegisteredEventType = "MemberRegistered"

// memberNamespace scopes name-based aggregate ids for members.
var memberNamespace = uuid.MustParse("6f1c2a52-52c7-4f3e-9b8e-0d7c1d2e6a41")

// AggregateID maps a member id onto a stable journal key.
func AggregateID(memberID string) uuid.UUID {
	return uuid.NewSHA1(memberNamespace, []byte(memberID))
}

// MemberRegisteredEvent is published when a new member registers.
type MemberRegisteredEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
