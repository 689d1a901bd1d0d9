package eventstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Service persists room journals. Rooms stay correct without any store
// (the in-memory journal is authoritative); a store only adds an audit
// trail that survives the room.
type Service interface {
	Close() error
	AppendChange(roomID string, version uint64, reason string, frame []byte, appliedAt time.Time) error
	LoadChanges(ctx context.Context, roomID string) ([]StoredChange, error)
	DeleteRoom(ctx context.Context, roomID string) error
}

// StoredChange is one persisted journal record.
type StoredChange struct {
	RoomID    string
	Version   uint64
	Reason    string
	Frame     []byte
	AppliedAt time.Time
}

var ErrNotFound = errors.New("not found")

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

// NewServiceFromEnv picks the store backend from EVENT_STORE_MODE
// (memory by default) and returns the service plus the resolved mode.
func NewServiceFromEnv() (Service, string, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("EVENT_STORE_MODE")))
	switch mode {
	case "", ModeMemory, "mem":
		return NewMemoryService(), ModeMemory, nil
	case ModeSQLite, "local":
		service, err := NewSQLiteServiceFromEnv()
		if err != nil {
			return nil, ModeSQLite, err
		}
		return service, ModeSQLite, nil
	case ModePostgres, "postgresql", "db":
		service, err := NewPostgresServiceFromEnv()
		if err != nil {
			return nil, ModePostgres, err
		}
		return service, ModePostgres, nil
	default:
		return nil, mode, fmt.Errorf("invalid EVENT_STORE_MODE %q (supported: %s, %s, %s)",
			mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}

// MemoryService keeps journals in process memory. It is the default and
// the mode tests run against.
type MemoryService struct {
	mu    sync.RWMutex
	rooms map[string][]StoredChange
}

func NewMemoryService() *MemoryService {
	return &MemoryService{rooms: make(map[string][]StoredChange)}
}

func (s *MemoryService) Close() error { return nil }

func (s *MemoryService) AppendChange(roomID string, version uint64, reason string, frame []byte, appliedAt time.Time) error {
	if roomID == "" {
		return fmt.Errorf("empty room id")
	}
	frameCopy := make([]byte, len(frame))
	copy(frameCopy, frame)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = append(s.rooms[roomID], StoredChange{
		RoomID:    roomID,
		Version:   version,
		Reason:    reason,
		Frame:     frameCopy,
		AppliedAt: appliedAt,
	})
	return nil
}

func (s *MemoryService) LoadChanges(_ context.Context, roomID string) ([]StoredChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]StoredChange, len(records))
	copy(out, records)
	return out, nil
}

func (s *MemoryService) DeleteRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}
