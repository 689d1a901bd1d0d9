package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"liap-tui/apps/server/internal/codec"
	"liap-tui/apps/server/internal/eventstore"
	"liap-tui/castellan"
	"liap-tui/castellan/bot"
	"liap-tui/piece"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames [castellan.NumSeats][][]byte
}

func (fr *frameRecorder) sink(seat int, frame []byte) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	buf := make([]byte, len(frame))
	copy(buf, frame)
	fr.frames[seat] = append(fr.frames[seat], buf)
}

func (fr *frameRecorder) count(seat int) int {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return len(fr.frames[seat])
}

func (fr *frameRecorder) seat(seat int) [][]byte {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	out := make([][]byte, len(fr.frames[seat]))
	copy(out, fr.frames[seat])
	return out
}

type wireFrame struct {
	Event   string         `json:"event"`
	Data    map[string]any `json:"data"`
	Version uint64         `json:"version"`
}

func decodeFrames(t *testing.T, raw [][]byte) []wireFrame {
	t.Helper()
	out := make([]wireFrame, 0, len(raw))
	for _, buf := range raw {
		var f wireFrame
		require.NoError(t, json.Unmarshal(buf, &f))
		out = append(out, f)
	}
	return out
}

func strongDeck() []piece.Piece {
	hands := [4][]piece.Piece{
		{piece.RedGeneral, piece.RedChariot, piece.RedChariot, piece.RedSoldier, piece.RedSoldier, piece.RedSoldier, piece.RedSoldier, piece.RedSoldier},
		{piece.BlackGeneral, piece.BlackChariot, piece.BlackChariot, piece.BlackSoldier, piece.BlackSoldier, piece.BlackSoldier, piece.BlackSoldier, piece.BlackSoldier},
		{piece.RedAdvisor, piece.RedAdvisor, piece.RedElephant, piece.RedElephant, piece.RedHorse, piece.RedHorse, piece.RedCannon, piece.RedCannon},
		{piece.BlackAdvisor, piece.BlackAdvisor, piece.BlackElephant, piece.BlackElephant, piece.BlackHorse, piece.BlackHorse, piece.BlackCannon, piece.BlackCannon},
	}
	deck := make([]piece.Piece, 0, piece.DeckSize)
	for _, hand := range hands {
		deck = append(deck, hand...)
	}
	return deck
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Engine.Seed = 1
	cfg.Engine.DeckOverride = strongDeck()
	return cfg
}

func joinFour(t *testing.T, a *Actor) {
	t.Helper()
	for seat := 0; seat < castellan.NumSeats; seat++ {
		err := a.SubmitEvent(Event{
			Type:     EventJoin,
			Seat:     seat,
			PlayerID: codec.PlayerID(a.ID, seat),
			Name:     fmt.Sprintf("P%d", seat),
		})
		require.NoError(t, err, "join seat %d", seat)
	}
}

func TestActorStartCommitsOneVersionPerBatch(t *testing.T) {
	rec := &frameRecorder{}
	store := eventstore.NewMemoryService()
	a, err := New("room1", testConfig(), rec.sink, nil, store)
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	joinFour(t, a)
	require.Equal(t, uint64(4), a.Version(), "one room_update per join")

	err = a.SubmitEvent(Event{Type: EventAction, Seat: 0, Action: castellan.Action{Seat: 0, Kind: castellan.ActionStartGame}})
	require.NoError(t, err)

	// game_started, deal, declaration_start
	require.Equal(t, uint64(7), a.Version())
	require.Equal(t, castellan.PhaseDeclaration, a.Snapshot().Phase)

	// Every committed version landed in the store, in order.
	stored, err := store.LoadChanges(context.Background(), "room1")
	require.NoError(t, err)
	require.Len(t, stored, 7)
	for i, sc := range stored {
		require.Equal(t, uint64(i+1), sc.Version)
	}

	// Versioned broadcasts reach every seat monotonically.
	for seat := 0; seat < castellan.NumSeats; seat++ {
		last := uint64(0)
		for _, f := range decodeFrames(t, rec.seat(seat)) {
			if f.Event == "error" {
				continue
			}
			require.GreaterOrEqual(t, f.Version, last, "seat %d versions out of order", seat)
			last = f.Version
		}
	}
}

func TestActorDealSendsPrivateHandsOnly(t *testing.T) {
	rec := &frameRecorder{}
	a, err := New("room1", testConfig(), rec.sink, nil, nil)
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	joinFour(t, a)
	require.NoError(t, a.SubmitEvent(Event{Type: EventAction, Seat: 0, Action: castellan.Action{Seat: 0, Kind: castellan.ActionStartGame}}))

	sawOwnHand := false
	for _, f := range decodeFrames(t, rec.seat(1)) {
		if f.Event != "phase_change" {
			continue
		}
		players, _ := f.Data["players"].([]any)
		for i, entry := range players {
			p, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			hand, has := p["hand"]
			if i == 1 && has {
				sawOwnHand = true
				require.Len(t, hand.([]any), piece.HandSize)
			}
			if i != 1 {
				require.False(t, has, "seat 1 must never see seat %d's hand", i)
			}
		}
	}
	require.True(t, sawOwnHand, "seat 1 never received its hand")
}

func TestActorDuplicateRequestIDIsIdempotent(t *testing.T) {
	rec := &frameRecorder{}
	a, err := New("room1", testConfig(), rec.sink, nil, nil)
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	joinFour(t, a)
	require.NoError(t, a.SubmitEvent(Event{Type: EventAction, Seat: 0, Action: castellan.Action{Seat: 0, Kind: castellan.ActionStartGame}}))

	declare := Event{
		Type:      EventAction,
		Seat:      0,
		Action:    castellan.Action{Seat: 0, Kind: castellan.ActionDeclare, Value: 3},
		RequestID: "x",
	}
	require.NoError(t, a.SubmitEvent(declare))
	version := a.Version()
	broadcasts := rec.count(1)
	acted := rec.count(0)

	// Same frame again: same outcome, no journal growth, no rebroadcast.
	// The acting seat gets the committed frame replayed byte-identically
	// as its confirmation.
	require.NoError(t, a.SubmitEvent(declare))
	require.Equal(t, version, a.Version())
	require.Equal(t, broadcasts, rec.count(1))
	require.Equal(t, acted+1, rec.count(0))
	own := rec.seat(0)
	require.Equal(t, own[len(own)-2], own[len(own)-1])
	require.Equal(t, 3, a.Snapshot().Seats[0].Declared)

	// A rejected action replays its error frame on duplicates.
	bad := Event{
		Type:      EventAction,
		Seat:      3,
		Action:    castellan.Action{Seat: 3, Kind: castellan.ActionDeclare, Value: 2},
		RequestID: "y",
	}
	require.Error(t, a.SubmitEvent(bad), "seat 3 is not the declarer yet")
	errorFrames := rec.count(3)
	require.NoError(t, a.SubmitEvent(bad), "duplicate returns the remembered outcome")
	require.Equal(t, version, a.Version())
	require.Equal(t, errorFrames+1, rec.count(3), "the original error frame is replayed")
}

func TestActorSyncReplaysMissedVersionsThenSnapshot(t *testing.T) {
	rec := &frameRecorder{}
	a, err := New("room1", testConfig(), rec.sink, nil, nil)
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	joinFour(t, a)
	require.NoError(t, a.SubmitEvent(Event{Type: EventAction, Seat: 0, Action: castellan.Action{Seat: 0, Kind: castellan.ActionStartGame}}))
	version := a.Version()

	before := rec.count(2)
	require.NoError(t, a.SubmitEvent(Event{Type: EventSync, Seat: 2, LastAck: version - 3}))

	replayed := decodeFrames(t, rec.seat(2))[before:]
	require.Len(t, replayed, 4, "three missed versions plus the snapshot")
	require.Equal(t, version-2, replayed[0].Version)
	require.Equal(t, version-1, replayed[1].Version)
	require.Equal(t, version, replayed[2].Version)

	snapshot := replayed[3]
	require.Equal(t, "phase_change", snapshot.Event)
	require.Equal(t, version, snapshot.Version)
	require.Equal(t, "snapshot", snapshot.Data["reason"])
}

func TestActorSyncBelowFloorForcesFullResync(t *testing.T) {
	cfg := testConfig()
	cfg.JournalCap = 3
	rec := &frameRecorder{}
	a, err := New("room1", cfg, rec.sink, nil, nil)
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	joinFour(t, a)
	require.NoError(t, a.SubmitEvent(Event{Type: EventAction, Seat: 0, Action: castellan.Action{Seat: 0, Kind: castellan.ActionStartGame}}))

	before := rec.count(2)
	require.NoError(t, a.SubmitEvent(Event{Type: EventSync, Seat: 2, LastAck: 1}))

	replayed := decodeFrames(t, rec.seat(2))[before:]
	require.Len(t, replayed, 1)
	require.Equal(t, "phase_change", replayed[0].Event)
	require.Equal(t, "full_resync", replayed[0].Data["reason"])
}

func TestActorGraceExpiryHandsSeatToBot(t *testing.T) {
	cfg := testConfig()
	cfg.GraceToTakeover = 100 * time.Millisecond
	rec := &frameRecorder{}
	bots := bot.NewManager(bot.NewRegistry())
	a, err := New("room1", cfg, rec.sink, bots, nil)
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	joinFour(t, a)
	require.NoError(t, a.SubmitEvent(Event{Type: EventConnLost, Seat: 1}))
	require.Equal(t, castellan.SeatDisconnected, a.Snapshot().Seats[1].Conn)

	// Grace expires on the next actor tick.
	require.Eventually(t, func() bool {
		return a.Snapshot().Seats[1].Conn == castellan.SeatBotTakeover
	}, 3*time.Second, 50*time.Millisecond)
	require.True(t, bots.IsBot(codec.PlayerID("room1", 1)))

	// The human returns: takeover instance despawns, seat reconnects.
	require.NoError(t, a.SubmitEvent(Event{Type: EventConnResume, Seat: 1, LastAck: a.Version()}))
	require.Equal(t, castellan.SeatConnected, a.Snapshot().Seats[1].Conn)
	require.False(t, bots.IsBot(codec.PlayerID("room1", 1)))
}

func TestActorRemovePlayerDespawnsBot(t *testing.T) {
	rec := &frameRecorder{}
	bots := bot.NewManager(bot.NewRegistry())
	a, err := New("room1", testConfig(), rec.sink, bots, nil)
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	require.NoError(t, a.SubmitEvent(Event{Type: EventJoin, Seat: 0, PlayerID: codec.PlayerID(a.ID, 0), Name: "Host"}))
	require.NoError(t, a.SubmitEvent(Event{Type: EventAction, Seat: 0, Action: castellan.Action{Seat: 0, Kind: castellan.ActionAddBot, TargetSeat: 1}}))
	require.True(t, bots.IsBot(codec.PlayerID("room1", 1)))

	require.NoError(t, a.SubmitEvent(Event{Type: EventAction, Seat: 0, Action: castellan.Action{Seat: 0, Kind: castellan.ActionRemovePlayer, TargetSeat: 1}}))
	require.False(t, bots.IsBot(codec.PlayerID("room1", 1)), "removing a bot seat must release its instance")
	require.False(t, a.Snapshot().Seats[1].Occupied())
}

func TestActorBotTimerFailureClearsSlot(t *testing.T) {
	rec := &frameRecorder{}
	a, err := New("room1", testConfig(), rec.sink, bot.NewManager(bot.NewRegistry()), nil)
	require.NoError(t, err)
	a.Stop()

	tmr := time.AfterFunc(time.Hour, func() {})
	t.Cleanup(func() { tmr.Stop() })
	a.mu.Lock()
	a.botTimers[2] = tmr
	a.mu.Unlock()

	// The submit fails on the closed room; the slot must not stay armed
	// or the seat could never be rescheduled.
	a.fireBotTimer(2)

	a.mu.Lock()
	_, armed := a.botTimers[2]
	a.mu.Unlock()
	require.False(t, armed)
}

func TestActorTickRearmsLostBotTimers(t *testing.T) {
	rec := &frameRecorder{}
	bots := bot.NewManager(bot.NewRegistry())
	a, err := New("room1", testConfig(), rec.sink, bots, nil)
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	require.NoError(t, a.SubmitEvent(Event{Type: EventJoin, Seat: 0, PlayerID: codec.PlayerID(a.ID, 0), Name: "Host"}))
	for seat := 1; seat < castellan.NumSeats; seat++ {
		require.NoError(t, a.SubmitEvent(Event{Type: EventAction, Seat: 0, Action: castellan.Action{Seat: 0, Kind: castellan.ActionAddBot, TargetSeat: seat}}))
	}
	require.NoError(t, a.SubmitEvent(Event{Type: EventAction, Seat: 0, Action: castellan.Action{Seat: 0, Kind: castellan.ActionStartGame}}))
	require.NoError(t, a.SubmitEvent(Event{Type: EventAction, Seat: 0, Action: castellan.Action{Seat: 0, Kind: castellan.ActionDeclare, Value: 2}}))

	// Drop the armed think timers as if their submits had been rejected;
	// only the tick can reschedule the bots now.
	a.mu.Lock()
	a.cancelAllBotTimersLocked()
	a.mu.Unlock()

	require.Eventually(t, func() bool {
		return a.Snapshot().Phase == castellan.PhaseTurn
	}, 20*time.Second, 100*time.Millisecond, "bots never declared after their timers were lost")
}

func TestActorRejectsEventsAfterStop(t *testing.T) {
	rec := &frameRecorder{}
	a, err := New("room1", testConfig(), rec.sink, nil, nil)
	require.NoError(t, err)

	a.Stop()
	err = a.SubmitEvent(Event{Type: EventGetState, Seat: 0})
	require.ErrorIs(t, err, ErrRoomClosed)
}

func TestActorIsIdleFor(t *testing.T) {
	rec := &frameRecorder{}
	a, err := New("room1", testConfig(), rec.sink, nil, nil)
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	// Empty room: idle since creation.
	require.False(t, a.IsIdleFor(time.Hour))
	require.True(t, a.IsIdleFor(0))

	joinFour(t, a)
	require.False(t, a.IsIdleFor(0), "connected humans are never idle")

	for seat := 0; seat < castellan.NumSeats; seat++ {
		require.NoError(t, a.SubmitEvent(Event{Type: EventConnLost, Seat: seat}))
	}
	require.True(t, a.IsIdleFor(0), "all humans gone counts as idle")
}
