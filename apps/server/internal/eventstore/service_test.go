package eventstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryServiceAppendAndLoad(t *testing.T) {
	store := NewMemoryService()
	now := time.Now()

	require.NoError(t, store.AppendChange("room1", 1, "room_update", []byte(`{"v":1}`), now))
	require.NoError(t, store.AppendChange("room1", 2, "deal", []byte(`{"v":2}`), now))
	require.NoError(t, store.AppendChange("room2", 1, "room_update", []byte(`{"v":1}`), now))

	records, err := store.LoadChanges(context.Background(), "room1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, uint64(1), records[0].Version)
	require.Equal(t, "deal", records[1].Reason)
	require.Equal(t, []byte(`{"v":2}`), records[1].Frame)

	_, err = store.LoadChanges(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryServiceFramesAreDetached(t *testing.T) {
	store := NewMemoryService()
	frame := []byte(`{"seat":0}`)
	require.NoError(t, store.AppendChange("room1", 1, "play", frame, time.Now()))

	frame[2] = 'X' // caller may reuse its buffer

	records, err := store.LoadChanges(context.Background(), "room1")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"seat":0}`), records[0].Frame)
}

func TestMemoryServiceDeleteRoom(t *testing.T) {
	store := NewMemoryService()
	require.NoError(t, store.AppendChange("room1", 1, "room_update", nil, time.Now()))
	require.NoError(t, store.DeleteRoom(context.Background(), "room1"))

	_, err := store.LoadChanges(context.Background(), "room1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewServiceFromEnvDefaultsToMemory(t *testing.T) {
	t.Setenv("EVENT_STORE_MODE", "")
	service, mode, err := NewServiceFromEnv()
	require.NoError(t, err)
	require.Equal(t, ModeMemory, mode)
	require.IsType(t, &MemoryService{}, service)

	t.Setenv("EVENT_STORE_MODE", "bogus")
	_, _, err = NewServiceFromEnv()
	require.Error(t, err)
}
