package room

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJournalAppendAssignsMonotonicVersions(t *testing.T) {
	j := NewJournal(16)
	require.Equal(t, uint64(0), j.Version())

	for i := 0; i < 5; i++ {
		rec := j.Append(ChangeRecord{Reason: "play"})
		require.Equal(t, uint64(i+1), rec.Version)
	}
	require.Equal(t, uint64(5), j.Version())
	require.Equal(t, uint64(1), j.Floor())
}

func TestJournalSinceReplaysInOrder(t *testing.T) {
	j := NewJournal(16)
	for i := 0; i < 6; i++ {
		j.Append(ChangeRecord{Reason: fmt.Sprintf("r%d", i+1)})
	}

	records, ok := j.Since(3)
	require.True(t, ok)
	require.Len(t, records, 3)
	require.Equal(t, uint64(4), records[0].Version)
	require.Equal(t, uint64(6), records[2].Version)

	// Fully caught up: nothing to replay.
	records, ok = j.Since(6)
	require.True(t, ok)
	require.Empty(t, records)

	// Ahead of the journal (stale client state) is still "caught up".
	_, ok = j.Since(99)
	require.True(t, ok)
}

func TestJournalRetentionFloorForcesFullResync(t *testing.T) {
	j := NewJournal(4)
	for i := 0; i < 10; i++ {
		j.Append(ChangeRecord{Reason: "play"})
	}
	require.Equal(t, uint64(10), j.Version())
	require.Equal(t, 4, j.Len())
	require.Equal(t, uint64(7), j.Floor())

	// A client at version 3 fell below the floor.
	_, ok := j.Since(3)
	require.False(t, ok)

	// A client at the floor boundary can still replay incrementally.
	records, ok := j.Since(6)
	require.True(t, ok)
	require.Len(t, records, 4)
	require.Equal(t, uint64(7), records[0].Version)
}

func TestDedupWindowRemembersPerSeat(t *testing.T) {
	w := newDedupWindow(0)

	_, dup := w.lookup(0, "r1")
	require.False(t, dup)

	w.remember(0, "r1", dedupResult{OK: true})
	res, dup := w.lookup(0, "r1")
	require.True(t, dup)
	require.True(t, res.OK)

	// Same request id on another seat is a different key.
	_, dup = w.lookup(1, "r1")
	require.False(t, dup)

	// Empty request ids never dedup.
	w.remember(2, "", dedupResult{OK: true})
	_, dup = w.lookup(2, "")
	require.False(t, dup)

	w.remember(3, "bad", dedupResult{OK: false, Reply: []byte(`{"event":"error"}`)})
	res, dup = w.lookup(3, "bad")
	require.True(t, dup)
	require.False(t, res.OK)
	require.NotNil(t, res.Reply)
}
