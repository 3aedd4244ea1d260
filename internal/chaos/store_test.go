package chaos

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarydesk/internal/storage"
)

func sampleSnapshot() storage.Snapshot {
	return storage.Snapshot{
		Books:   []storage.BookRecord{{Title: "Dune", Author: "Herbert", ISBN: "111", Available: true}},
		Members: []storage.MemberRecord{{Name: "Alice", ID: "u1"}},
	}
}

func newFileStore(t *testing.T) *storage.FileStore {
	t.Helper()
	return storage.NewFileStore(filepath.Join(t.TempDir(), "library.jsonl"))
}

func TestNoFaultsPassesThrough(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFileStore(t), 1)

	require.NoError(t, s.Save(ctx, "", sampleSnapshot()))
	snap, err := s.Load(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), snap)
	assert.Equal(t, 2, s.Calls())
	assert.Empty(t, s.Events())
}

func TestFullBlastRadiusFailsMatchingOperation(t *testing.T) {
	ctx := context.Background()
	next := newFileStore(t)
	s := NewStore(next, 1, Fault{Operation: "save", BlastRadius: 1, Fail: true})

	err := s.Save(ctx, "", sampleSnapshot())
	assert.ErrorIs(t, err, ErrInjected)

	// the wrapped store never saw the save
	_, err = next.Load(ctx, "")
	assert.ErrorIs(t, err, storage.ErrSourceNotFound)

	// loads are not affected
	_, err = s.Load(ctx, "")
	assert.ErrorIs(t, err, storage.ErrSourceNotFound)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "save", events[0].Operation)
}

func TestPartialBlastRadiusIsDeterministicPerSeed(t *testing.T) {
	ctx := context.Background()
	outcomes := func() []bool {
		s := NewStore(newFileStore(t), 42, Fault{BlastRadius: 0.5, Fail: true})
		var failed []bool
		for i := 0; i < 20; i++ {
			failed = append(failed, s.Save(ctx, "", sampleSnapshot()) != nil)
		}
		return failed
	}

	first, second := outcomes(), outcomes()
	assert.Equal(t, first, second)
	assert.Contains(t, first, true)
	assert.Contains(t, first, false)
}

func TestLatencyHonoursContext(t *testing.T) {
	s := NewStore(newFileStore(t), 1, Fault{BlastRadius: 1, Latency: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Load(ctx, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, s.Events())
}

func TestWrapWithoutActiveFaultsReturnsNext(t *testing.T) {
	next := newFileStore(t)

	assert.Same(t, next, Wrap(next, 1).(*storage.FileStore))
	assert.Same(t, next, Wrap(next, 1, DrillFaults(0, 0, time.Second)...).(*storage.FileStore))
}

func TestWrapDrillFaultsInjectsLoadFailures(t *testing.T) {
	ctx := context.Background()
	next := newFileStore(t)
	wrapped := Wrap(next, 1, DrillFaults(1, 0, 0)...)

	s, ok := wrapped.(*Store)
	require.True(t, ok)
	require.NoError(t, s.Save(ctx, "", sampleSnapshot()))
	_, err := s.Load(ctx, "")
	assert.ErrorIs(t, err, ErrInjected)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "load", s.Events()[0].Operation)
}

func TestDrillFaults(t *testing.T) {
	assert.Empty(t, DrillFaults(0, 0, time.Second))

	faults := DrillFaults(0.5, 0.25, 10*time.Millisecond)
	require.Len(t, faults, 2)
	assert.Equal(t, Fault{Operation: "load", BlastRadius: 0.5, Latency: 10 * time.Millisecond, Fail: true}, faults[0])
	assert.Equal(t, Fault{Operation: "save", BlastRadius: 0.25, Latency: 10 * time.Millisecond, Fail: true}, faults[1])
}
