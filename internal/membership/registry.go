// internal/membership/registry.go
package membership

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateMemberID = errors.New("member ID already exists")
	ErrMemberNotFound    = errors.New("member not found")
)

// Registry holds members in registration order with unique ids.
type Registry struct {
	members []*Member
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a new member. A taken id is rejected and nothing changes.
func (r *Registry) Register(name, id string) (Member, error) {
	if _, exists := r.FindByID(id); exists {
		return Member{}, fmt.Errorf("register %q: %w", id, ErrDuplicateMemberID)
	}
	member := &Member{ID: id, Name: name}
	r.members = append(r.members, member)
	return member.Clone(), nil
}

// FindByID returns the live member record so callers can update its
// borrowed set.
func (r *Registry) FindByID(id string) (*Member, bool) {
	for _, member := range r.members {
		if member.ID == id {
			return member, true
		}
	}
	return nil, false
}

// Members returns copies of all members in registration order.
func (r *Registry) Members() []Member {
	out := make([]Member, 0, len(r.members))
	for _, member := range r.members {
		out = append(out, member.Clone())
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.members)
}

// Restore replaces every member. Later duplicates of an id are dropped.
func (r *Registry) Restore(members []Member) {
	r.members = make([]*Member, 0, len(members))
	for _, m := range members {
		if _, exists := r.FindByID(m.ID); exists {
			continue
		}
		restored := m.Clone()
		r.members = append(r.members, &restored)
	}
}
