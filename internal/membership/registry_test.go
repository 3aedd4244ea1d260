package membership

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()

	alice, err := r.Register("Alice", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", alice.Name)

	_, err = r.Register("Bob", "u1")
	assert.ErrorIs(t, err, ErrDuplicateMemberID)
	assert.Equal(t, 1, r.Len())

	member, ok := r.FindByID("u1")
	require.True(t, ok)
	assert.Equal(t, "Alice", member.Name)
}

func TestFindByIDReturnsLiveRecord(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("Alice", "u1")
	require.NoError(t, err)

	bookID := uuid.New()
	member, _ := r.FindByID("u1")
	member.Borrow(bookID)

	again, _ := r.FindByID("u1")
	assert.True(t, again.Holds(bookID))

	_, ok := r.FindByID("missing")
	assert.False(t, ok)
}

func TestMembersReturnsCopies(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Register("Alice", "u1")
	_, _ = r.Register("Bob", "u2")
	member, _ := r.FindByID("u1")
	member.Borrow(uuid.New())

	members := r.Members()
	require.Len(t, members, 2)
	assert.Equal(t, "u1", members[0].ID)
	assert.Equal(t, "u2", members[1].ID)

	members[0].Borrowed[0] = uuid.Nil
	live, _ := r.FindByID("u1")
	assert.NotEqual(t, uuid.Nil, live.Borrowed[0])
}

func TestBorrowAndRelease(t *testing.T) {
	m := &Member{ID: "u1", Name: "Alice"}
	first, second := uuid.New(), uuid.New()

	m.Borrow(first)
	m.Borrow(second)
	m.Borrow(first)
	assert.Equal(t, []uuid.UUID{first, second}, m.Borrowed)

	assert.True(t, m.Release(first))
	assert.False(t, m.Release(first))
	assert.Equal(t, []uuid.UUID{second}, m.Borrowed)
}

func TestRestoreDropsDuplicateIDs(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Register("Old", "u0")

	r.Restore([]Member{{ID: "u1", Name: "Alice"}, {ID: "u1", Name: "Impostor"}, {ID: "u2", Name: "Bob"}})

	require.Equal(t, 2, r.Len())
	_, ok := r.FindByID("u0")
	assert.False(t, ok)
	alice, _ := r.FindByID("u1")
	assert.Equal(t, "Alice", alice.Name)
}

func TestAggregateIDIsDeterministic(t *testing.T) {
	assert.Equal(t, AggregateID("u1"), AggregateID("u1"))
	assert.NotEqual(t, AggregateID("u1"), AggregateID("u2"))
}
