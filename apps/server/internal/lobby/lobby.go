package lobby

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"liap-tui/apps/server/internal/codec"
	"liap-tui/apps/server/internal/eventstore"
	"liap-tui/apps/server/internal/room"
	"liap-tui/castellan"
	"liap-tui/castellan/bot"
)

// SinkFactory builds the frame-delivery sink for a new room. The gateway
// provides it so room actors never hold connection references.
type SinkFactory func(roomID string) room.Sink

// Lobby manages all rooms and the idle-eviction sweep.
type Lobby struct {
	mu    sync.RWMutex
	rooms map[string]*room.Actor

	defaultConfig room.Config
	bots          *bot.Manager
	store         eventstore.Service
	sinkFor       SinkFactory

	idleTTL  time.Duration
	done     chan struct{}
	stopOnce sync.Once

	// onChange fires after any create/evict so the gateway can push
	// room_list_update broadcasts. onRemove lets the gateway release
	// per-seat pipes and notify room_closed.
	onChange func()
	onRemove func(roomID string)
}

// New creates a lobby.
func New(cfg room.Config, bots *bot.Manager, store eventstore.Service, sinkFor SinkFactory, idleTTL time.Duration) *Lobby {
	if idleTTL <= 0 {
		idleTTL = 5 * time.Minute
	}
	return &Lobby{
		rooms:         make(map[string]*room.Actor),
		defaultConfig: cfg,
		bots:          bots,
		store:         store,
		sinkFor:       sinkFor,
		idleTTL:       idleTTL,
		done:          make(chan struct{}),
	}
}

// OnChange registers the room-list change callback (at most one).
func (l *Lobby) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// OnRemove registers the room-removal callback (at most one).
func (l *Lobby) OnRemove(fn func(roomID string)) {
	l.mu.Lock()
	l.onRemove = fn
	l.mu.Unlock()
}

func (l *Lobby) notifyChange() {
	l.mu.RLock()
	fn := l.onChange
	l.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// CreateRoom spins up a new room actor with a fresh id.
func (l *Lobby) CreateRoom() (*room.Actor, error) {
	roomID := uuid.NewString()[:8]

	a, err := room.New(roomID, l.defaultConfig, l.sinkFor(roomID), l.bots, l.store)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	l.mu.Lock()
	l.rooms[roomID] = a
	total := len(l.rooms)
	l.mu.Unlock()

	log.Printf("[Lobby] Room %s created, total: %d", roomID, total)
	l.notifyChange()
	return a, nil
}

// GetRoom returns a room by ID, or nil.
func (l *Lobby) GetRoom(roomID string) *room.Actor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rooms[roomID]
}

// RoomInfo is the lobby directory entry. Players is sparse: length 4,
// null for empty slots, indexed by seat position.
type RoomInfo struct {
	RoomID        string                              `json:"room_id"`
	HostName      string                              `json:"host_name"`
	Players       [castellan.NumSeats]*codec.Player   `json:"players"`
	OccupiedSlots int                                 `json:"occupied_slots"`
	TotalSlots    int                                 `json:"total_slots"`
	Started       bool                                `json:"started"`
}

// ListRooms returns directory entries for every open room.
func (l *Lobby) ListRooms() []RoomInfo {
	l.mu.RLock()
	actors := make([]*room.Actor, 0, len(l.rooms))
	for _, a := range l.rooms {
		actors = append(actors, a)
	}
	l.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(actors))
	for _, a := range actors {
		if a.IsClosed() {
			continue
		}
		infos = append(infos, buildRoomInfo(a))
	}
	return infos
}

func buildRoomInfo(a *room.Actor) RoomInfo {
	snap := a.Snapshot()
	info := RoomInfo{
		RoomID:     snap.RoomID,
		Players:    codec.SparsePlayers(snap),
		TotalSlots: castellan.NumSeats,
		Started:    snap.Phase != castellan.PhaseWaiting,
	}
	for seat := 0; seat < castellan.NumSeats; seat++ {
		s := snap.Seats[seat]
		if !s.Occupied() {
			continue
		}
		info.OccupiedSlots++
		if s.Host {
			info.HostName = s.Name
		}
	}
	return info
}

// RemoveRoom stops a room and drops its persisted journal.
func (l *Lobby) RemoveRoom(roomID string) {
	l.mu.Lock()
	a := l.rooms[roomID]
	delete(l.rooms, roomID)
	l.mu.Unlock()

	if a == nil {
		return
	}
	a.Stop()
	if l.store != nil {
		if err := l.store.DeleteRoom(context.Background(), roomID); err != nil {
			log.Printf("[Lobby] Failed to drop stored journal for %s: %v", roomID, err)
		}
	}
	log.Printf("[Lobby] Room %s removed", roomID)

	l.mu.RLock()
	onRemove := l.onRemove
	l.mu.RUnlock()
	if onRemove != nil {
		onRemove(roomID)
	}
	l.notifyChange()
}

// StartSweeper evicts idle rooms periodically until Close.
func (l *Lobby) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-l.done:
				return
			}
		}
	}()
}

func (l *Lobby) sweep() {
	l.mu.RLock()
	candidates := make([]string, 0)
	for id, a := range l.rooms {
		if a.IsIdleFor(l.idleTTL) {
			candidates = append(candidates, id)
		}
	}
	l.mu.RUnlock()

	for _, id := range candidates {
		log.Printf("[Lobby] Evicting idle room %s", id)
		l.RemoveRoom(id)
	}
}

// Close stops the sweeper and every room.
func (l *Lobby) Close() {
	l.stopOnce.Do(func() { close(l.done) })

	l.mu.Lock()
	actors := make([]*room.Actor, 0, len(l.rooms))
	for _, a := range l.rooms {
		actors = append(actors, a)
	}
	l.rooms = make(map[string]*room.Actor)
	l.mu.Unlock()

	for _, a := range actors {
		a.Stop()
	}
}
