package room

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"liap-tui/apps/server/internal/codec"
	"liap-tui/apps/server/internal/eventstore"
	"liap-tui/castellan"
	"liap-tui/castellan/bot"
)

// Sink delivers one encoded frame to one seat's channel. The gateway
// buffers frames for disconnected seats; delivery must not block.
type Sink func(seat int, frame []byte)

// Config holds the per-room server tunables around the engine config.
type Config struct {
	Engine castellan.Config

	// TurnResultsDelay is how long the turn_results display lingers
	// before the room auto-advances.
	TurnResultsDelay time.Duration
	// GraceToTakeover is how long a disconnected human seat waits
	// before a bot takes it over.
	GraceToTakeover time.Duration

	JournalCap int
	DedupSize  int
}

func DefaultConfig() Config {
	return Config{
		Engine:           castellan.DefaultConfig(),
		TurnResultsDelay: 5 * time.Second,
		GraceToTakeover:  30 * time.Second,
	}
}

// Event types for the actor message queue
type EventType int

const (
	EventJoin EventType = iota
	EventAction
	EventConnLost
	EventConnResume
	EventSync
	EventGetState
	EventBotDecision
	EventClose
)

// Event represents a message to the room actor
type Event struct {
	Type      EventType
	Seat      int
	PlayerID  string
	Name      string
	Action    castellan.Action
	RequestID string
	LastAck   uint64
	Timestamp time.Time
	Response  chan error
}

var (
	ErrRoomClosed = errors.New("room closed")
	ErrQueueFull  = errors.New("room action queue full")
)

// Actor owns one room: the engine aggregate, the journal, the dedup
// window and the bot timers. All mutations run on the actor goroutine.
type Actor struct {
	ID string

	mu       sync.RWMutex
	cfg      Config
	engine   *castellan.Room
	journal  *Journal
	dedup    *dedupWindow
	bots     *bot.Manager
	store    eventstore.Service
	send     Sink
	closed   bool
	stopOnce sync.Once

	events chan Event
	done   chan struct{}

	// Timer state, checked from the actor tick.
	resultsDeadline time.Time
	disconnectAt    [castellan.NumSeats]time.Time
	botTimers       map[int]*time.Timer
	botTimerPhase   castellan.Phase
	emptySince      time.Time
	gameOverAt      time.Time
}

// New creates a room actor and starts its goroutine.
func New(id string, cfg Config, sendFn Sink, bots *bot.Manager, store eventstore.Service) (*Actor, error) {
	engine, err := castellan.NewRoom(id, cfg.Engine)
	if err != nil {
		return nil, err
	}
	if cfg.TurnResultsDelay <= 0 {
		cfg.TurnResultsDelay = 5 * time.Second
	}
	if cfg.GraceToTakeover <= 0 {
		cfg.GraceToTakeover = 30 * time.Second
	}
	a := &Actor{
		ID:         id,
		cfg:        cfg,
		engine:     engine,
		journal:    NewJournal(cfg.JournalCap),
		dedup:      newDedupWindow(cfg.DedupSize),
		bots:       bots,
		store:      store,
		send:       sendFn,
		events:     make(chan Event, 256),
		done:       make(chan struct{}),
		botTimers:  make(map[int]*time.Timer),
		emptySince: time.Now(),
	}

	go a.run()

	log.Printf("[Room %s] Created (win=%d, weak<=%d)", id, cfg.Engine.WinThreshold, cfg.Engine.WeakThreshold)
	return a, nil
}

// run is the main actor loop
func (a *Actor) run() {
	// Sub-second heartbeat for display timers and takeover grace.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event := <-a.events:
			err := a.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			a.tick()
		case <-a.done:
			log.Printf("[Room %s] Actor stopped", a.ID)
			return
		}
	}
}

// SubmitEvent sends an event to the actor and waits for the result.
// A full queue rejects immediately; senders report OVERLOAD upstream.
func (a *Actor) SubmitEvent(e Event) error {
	e.Timestamp = time.Now()
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return ErrRoomClosed
	}

	select {
	case a.events <- e:
	case <-a.done:
		return ErrRoomClosed
	default:
		return ErrQueueFull
	}

	select {
	case err := <-e.Response:
		return err
	case <-a.done:
		return ErrRoomClosed
	}
}

func (a *Actor) handleEvent(e Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed && e.Type != EventClose {
		return ErrRoomClosed
	}

	switch e.Type {
	case EventJoin:
		return a.handleJoin(e.Seat, e.PlayerID, e.Name)
	case EventAction:
		return a.handleAction(e.Action, e.RequestID)
	case EventConnLost:
		return a.handleConnLost(e.Seat, e.Timestamp)
	case EventConnResume:
		return a.handleConnResume(e.Seat, e.LastAck)
	case EventSync:
		return a.handleSync(e.Seat, e.LastAck)
	case EventGetState:
		a.sendSnapshot(e.Seat)
		return nil
	case EventBotDecision:
		return a.handleBotDecision(e.Seat)
	case EventClose:
		a.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (a *Actor) handleJoin(seat int, playerID, name string) error {
	cs, err := a.engine.SeatPlayer(seat, playerID, name)
	if err != nil {
		return err
	}
	a.commit([]castellan.ChangeSet{*cs}, "")
	a.disconnectAt[seat] = time.Time{}
	a.emptySince = time.Time{}
	a.sendSnapshot(seat)
	log.Printf("[Room %s] Player %s joined seat %d", a.ID, playerID, seat)
	return nil
}

// handleAction runs one engine action through the dedup window, the
// engine, and the journal chokepoint.
func (a *Actor) handleAction(action castellan.Action, requestID string) error {
	if prev, dup := a.dedup.lookup(action.Seat, requestID); dup {
		// Duplicate request_id: replay the original reply, change nothing.
		if prev.Reply != nil {
			a.send(action.Seat, prev.Reply)
		}
		log.Printf("[Room %s] Duplicate request %q from seat %d replayed", a.ID, requestID, action.Seat)
		return nil
	}

	batches, err := a.engine.Apply(action)
	if err != nil {
		frame := codec.EncodeError(kindOf(err), err.Error(), nil)
		a.send(action.Seat, frame)
		a.dedup.remember(action.Seat, requestID, dedupResult{OK: false, Reply: frame})
		return err
	}

	before := a.journal.Version()
	a.commit(batches, requestID)
	res := dedupResult{OK: true}
	if a.journal.Version() > before {
		// Remember the final committed frame so a duplicate gets the
		// same bytes back as a positive confirmation.
		if rec, ok := a.journal.Last(); ok {
			res.Reply = rec.Frame
		}
	}
	a.dedup.remember(action.Seat, requestID, res)

	if a.bots != nil {
		switch action.Kind {
		case castellan.ActionAddBot:
			a.bots.Spawn(codec.PlayerID(a.ID, action.TargetSeat), action.TargetSeat, action.Name, false)
		case castellan.ActionRemovePlayer:
			a.bots.Despawn(codec.PlayerID(a.ID, action.TargetSeat))
		}
	}
	a.postApplyLocked(batches)
	return nil
}

func kindOf(err error) string {
	if errors.Is(err, ErrQueueFull) {
		return string(castellan.ErrKindOverload)
	}
	return string(castellan.KindOf(err))
}

// commit is the single chokepoint: every ChangeSet becomes exactly one
// journal record and one public broadcast frame.
func (a *Actor) commit(batches []castellan.ChangeSet, actionID string) {
	for _, cs := range batches {
		version := a.journal.Version() + 1

		event, body := a.frameFor(cs)
		frame, err := codec.Encode(event, body, version)
		if err != nil {
			log.Printf("[Room %s] Failed to encode %q broadcast: %v", a.ID, cs.Reason, err)
			continue
		}

		rec := a.journal.Append(ChangeRecord{
			Phase:     cs.Phase,
			Reason:    cs.Reason,
			Changes:   cs.Map(),
			AppliedAt: time.Now(),
			ActionID:  actionID,
			Frame:     frame,
		})
		if a.store != nil {
			if err := a.store.AppendChange(a.ID, rec.Version, rec.Reason, frame, rec.AppliedAt); err != nil {
				log.Printf("[Room %s] Event store append failed at v%d: %v", a.ID, rec.Version, err)
			}
		}

		a.broadcast(frame)

		// Deals carry hands, which never enter the journal; each seat
		// gets its private view right after the public record.
		if cs.Reason == "deal" || cs.Reason == "redeal" {
			a.sendPrivateSnapshots()
		}
	}
}

// frameFor maps a ChangeSet to its wire event. Granular reasons go out
// verbatim; phase entries go out as phase_change with the public body.
func (a *Actor) frameFor(cs castellan.ChangeSet) (string, map[string]any) {
	switch cs.Reason {
	case "room_update", "game_started", "declare", "play",
		"turn_complete", "round_complete", "game_over":
		body := cs.Map()
		body["room_id"] = a.ID
		return cs.Reason, body
	default:
		// deal, redeal, and any other phase-entry reason
		snap := a.engine.Snapshot()
		return "phase_change", codec.PhaseChangeBody(snap, castellan.InvalidSeat, cs.Reason)
	}
}

func (a *Actor) broadcast(frame []byte) {
	for seat := 0; seat < castellan.NumSeats; seat++ {
		a.send(seat, frame)
	}
}

// sendSnapshot sends one seat its private phase_change view at the
// current journal version.
func (a *Actor) sendSnapshot(seat int) {
	snap := a.engine.Snapshot()
	body := codec.PhaseChangeBody(snap, seat, "snapshot")
	frame, err := codec.Encode("phase_change", body, a.journal.Version())
	if err != nil {
		log.Printf("[Room %s] Failed to encode snapshot for seat %d: %v", a.ID, seat, err)
		return
	}
	a.send(seat, frame)
}

func (a *Actor) sendPrivateSnapshots() {
	snap := a.engine.Snapshot()
	for seat := 0; seat < castellan.NumSeats; seat++ {
		if !snap.Seats[seat].Occupied() || snap.Seats[seat].Bot {
			continue
		}
		body := codec.PhaseChangeBody(snap, seat, "hand")
		frame, err := codec.Encode("phase_change", body, a.journal.Version())
		if err != nil {
			continue
		}
		a.send(seat, frame)
	}
}

// --- connection lifecycle ---

func (a *Actor) handleConnLost(seat int, ts time.Time) error {
	cs, err := a.engine.SetConnState(seat, castellan.SeatDisconnected)
	if err != nil {
		return nil // seat empty; nothing to mark
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	a.disconnectAt[seat] = ts
	if cs != nil {
		a.commit([]castellan.ChangeSet{*cs}, "")
	}
	log.Printf("[Room %s] Seat %d connection lost", a.ID, seat)
	return nil
}

func (a *Actor) handleConnResume(seat int, lastAck uint64) error {
	a.cancelBotTimerLocked(seat)
	playerID := codec.PlayerID(a.ID, seat)
	if a.bots != nil {
		if inst := a.bots.Get(playerID); inst != nil && inst.Takeover {
			a.bots.Despawn(playerID)
		}
	}

	cs, err := a.engine.SetConnState(seat, castellan.SeatConnected)
	if err != nil {
		return err
	}
	a.disconnectAt[seat] = time.Time{}
	if cs != nil {
		a.commit([]castellan.ChangeSet{*cs}, "")
	}

	// Replay what the seat missed, then the current snapshot. The
	// gateway flushes these before any new live broadcast.
	if err := a.handleSync(seat, lastAck); err != nil {
		return err
	}
	log.Printf("[Room %s] Seat %d reconnected (last_ack=%d)", a.ID, seat, lastAck)
	return nil
}

func (a *Actor) handleSync(seat int, lastAck uint64) error {
	records, ok := a.journal.Since(lastAck)
	if !ok {
		// Below the retention floor: the client discards local history.
		snap := a.engine.Snapshot()
		body := codec.PhaseChangeBody(snap, seat, "full_resync")
		frame, err := codec.Encode("phase_change", body, a.journal.Version())
		if err != nil {
			return err
		}
		a.send(seat, frame)
		return nil
	}
	for _, rec := range records {
		a.send(seat, rec.Frame)
	}
	a.sendSnapshot(seat)
	return nil
}

// --- bot scheduling ---

// postApplyLocked refreshes timers and bot schedules after a commit.
func (a *Actor) postApplyLocked(batches []castellan.ChangeSet) {
	phase := a.engine.Phase()
	if phase != a.botTimerPhase {
		a.cancelAllBotTimersLocked()
		a.botTimerPhase = phase
	}

	if phase == castellan.PhaseTurnResults {
		if a.resultsDeadline.IsZero() {
			a.resultsDeadline = time.Now().Add(a.cfg.TurnResultsDelay)
		}
	} else {
		a.resultsDeadline = time.Time{}
	}
	if a.engine.Ended() && a.gameOverAt.IsZero() {
		a.gameOverAt = time.Now()
	}

	a.scheduleBotsLocked()
}

// scheduleBotsLocked arms a think-delay timer for every bot-controlled
// seat the room is blocked on. Timers are cancelled on phase change or
// human reconnect.
func (a *Actor) scheduleBotsLocked() {
	if a.bots == nil {
		return
	}
	snap := a.engine.Snapshot()

	pending := a.engine.PendingRedealSeats()
	if seat := a.engine.ActionableSeat(); seat != castellan.InvalidSeat {
		pending = append(pending, seat)
	}

	for _, seat := range pending {
		s := snap.Seats[seat]
		if !s.Occupied() {
			continue
		}
		if !s.Bot && s.Conn != castellan.SeatBotTakeover {
			continue
		}
		if _, armed := a.botTimers[seat]; armed {
			continue
		}
		playerID := codec.PlayerID(a.ID, seat)
		delay := a.bots.ThinkDelay(playerID)
		seat := seat
		a.botTimers[seat] = time.AfterFunc(delay, func() {
			a.fireBotTimer(seat)
		})
	}
}

// fireBotTimer runs off the actor goroutine when a think delay elapses.
// If the submit fails the timer slot must be cleared, or the seat would
// stay marked armed and never be rescheduled.
func (a *Actor) fireBotTimer(seat int) {
	if err := a.SubmitEvent(Event{Type: EventBotDecision, Seat: seat}); err != nil {
		a.mu.Lock()
		delete(a.botTimers, seat)
		a.mu.Unlock()
	}
}

func (a *Actor) handleBotDecision(seat int) error {
	delete(a.botTimers, seat)
	if a.bots == nil {
		return nil
	}

	snap := a.engine.Snapshot()
	s := snap.Seats[seat]
	if !s.Occupied() || (!s.Bot && s.Conn != castellan.SeatBotTakeover) {
		return nil // human reclaimed the seat while the timer ran
	}

	playerID := codec.PlayerID(a.ID, seat)
	action := a.bots.Decide(playerID, snap, a.cfg.Engine.WeakThreshold)
	if action == nil {
		return nil
	}

	if err := a.applyBotAction(*action); err != nil {
		log.Printf("[Room %s] Bot action rejected for seat %d: %v", a.ID, seat, err)
		a.applyBotFallback(seat, snap)
	}
	a.scheduleBotsLocked()
	return nil
}

func (a *Actor) applyBotAction(action castellan.Action) error {
	batches, err := a.engine.Apply(action)
	if err != nil {
		return err
	}
	a.commit(batches, "")
	a.postApplyLocked(batches)
	return nil
}

// applyBotFallback keeps the room moving when a strategy produced an
// illegal decision.
func (a *Actor) applyBotFallback(seat int, snap castellan.Snapshot) {
	var action castellan.Action
	switch snap.Phase {
	case castellan.PhasePreparation:
		action = castellan.Action{Seat: seat, Kind: castellan.ActionDeclineRedeal}
	case castellan.PhaseDeclaration:
		allowed := a.engine.AllowedDeclarations(seat)
		if len(allowed) == 0 {
			return
		}
		action = castellan.Action{Seat: seat, Kind: castellan.ActionDeclare, Value: allowed[0]}
	case castellan.PhaseTurn:
		action = castellan.Action{Seat: seat, Kind: castellan.ActionPlay, Pieces: bot.FallbackPlay(snap, seat)}
	default:
		return
	}
	if err := a.applyBotAction(action); err != nil {
		log.Printf("[Room %s] Bot fallback also rejected for seat %d: %v", a.ID, seat, err)
	}
}

func (a *Actor) cancelBotTimerLocked(seat int) {
	if timer, ok := a.botTimers[seat]; ok {
		timer.Stop()
		delete(a.botTimers, seat)
	}
}

func (a *Actor) cancelAllBotTimersLocked() {
	for seat, timer := range a.botTimers {
		timer.Stop()
		delete(a.botTimers, seat)
	}
}

// --- timers ---

func (a *Actor) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	now := time.Now()

	// turn_results display window elapsed
	if !a.resultsDeadline.IsZero() && !now.Before(a.resultsDeadline) {
		a.resultsDeadline = time.Time{}
		batches := a.engine.Advance()
		if len(batches) > 0 {
			a.commit(batches, "")
			a.postApplyLocked(batches)
		}
	}

	// disconnect grace expired: the bot takes the seat over
	for seat := 0; seat < castellan.NumSeats; seat++ {
		at := a.disconnectAt[seat]
		if at.IsZero() || now.Sub(at) < a.cfg.GraceToTakeover {
			continue
		}
		a.disconnectAt[seat] = time.Time{}
		cs, err := a.engine.SetConnState(seat, castellan.SeatBotTakeover)
		if err != nil || cs == nil {
			continue
		}
		a.commit([]castellan.ChangeSet{*cs}, "")
		if a.bots != nil {
			a.bots.Spawn(codec.PlayerID(a.ID, seat), seat, "", true)
		}
		log.Printf("[Room %s] Seat %d grace expired, bot takeover", a.ID, seat)
	}

	// Re-arm any bot seat whose timer slot was cleared after a failed
	// submit; with no pending commits nothing else would reschedule it.
	a.scheduleBotsLocked()
}

// --- lifecycle / projections ---

// Stop shuts down the room actor
func (a *Actor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Actor) stopLocked() {
	a.closed = true
	a.resultsDeadline = time.Time{}
	a.cancelAllBotTimersLocked()
	if a.bots != nil {
		for seat := 0; seat < castellan.NumSeats; seat++ {
			a.bots.Despawn(codec.PlayerID(a.ID, seat))
		}
	}
	a.stopOnce.Do(func() {
		close(a.done)
	})
}

func (a *Actor) IsClosed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.closed
}

// IsIdleFor reports whether the room has been evictable for ttl: either
// game over, or every human seat disconnected, for at least that long.
func (a *Actor) IsIdleFor(ttl time.Duration) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return true
	}
	if !a.gameOverAt.IsZero() {
		return time.Since(a.gameOverAt) >= ttl
	}

	snap := a.engine.Snapshot()
	anyHuman := false
	allGone := true
	sinceDisconnect := time.Duration(0)
	for seat := 0; seat < castellan.NumSeats; seat++ {
		s := snap.Seats[seat]
		if !s.Occupied() || s.Bot {
			continue
		}
		anyHuman = true
		if s.Conn == castellan.SeatConnected {
			allGone = false
			break
		}
		if at := a.disconnectAt[seat]; !at.IsZero() {
			if d := time.Since(at); sinceDisconnect == 0 || d < sinceDisconnect {
				sinceDisconnect = d
			}
		}
	}
	if anyHuman {
		return allGone && sinceDisconnect >= ttl
	}
	// No humans ever seated, or an all-bot room: use creation idleness.
	if a.emptySince.IsZero() {
		return false
	}
	return time.Since(a.emptySince) >= ttl
}

// Snapshot returns the current engine state (thread-safe).
func (a *Actor) Snapshot() castellan.Snapshot {
	return a.engine.Snapshot()
}

// Version returns the committed journal version.
func (a *Actor) Version() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.journal.Version()
}

// FirstOpenSeat proxies the engine's seat scan for the lobby.
func (a *Actor) FirstOpenSeat() int {
	return a.engine.FirstOpenSeat()
}
