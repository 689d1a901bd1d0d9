package castellan

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"liap-tui/piece"
)

// phaseState is the closed phase interface. Exactly one implementation is
// active per room; transitions only happen through runTransitionsLocked.
type phaseState interface {
	phase() Phase
	// onEnter may deal, compute winners, etc. and returns the broadcast
	// batch describing the entry, or nil for silent phases.
	onEnter(r *Room) *ChangeSet
	allowedActions(r *Room, seat int) []ActionKind
	validate(r *Room, a Action) error
	// apply mutates the room and returns the resulting batch. It must be
	// all-or-nothing: on error no state has changed.
	apply(r *Room, a Action) (*ChangeSet, error)
	// checkTransition returns the next phase state, or nil to stay.
	checkTransition(r *Room) phaseState
	onExit(r *Room)
}

// Room is the aggregate root for one game. All mutations flow through
// Apply (or the explicit lifecycle helpers) and come back as ChangeSets so
// the server layer can journal and broadcast them from a single chokepoint.
type Room struct {
	mu sync.Mutex

	cfg Config
	rng *rand.Rand
	id  string

	seats [NumSeats]Seat
	state phaseState

	round      int
	turnNumber int
	multiplier int
	starter    int

	ended bool
}

func NewRoom(id string, cfg Config) (*Room, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("empty room id")
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := &Room{
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(seed)),
		id:         id,
		state:      &waitingState{},
		multiplier: 1,
	}
	for i := range r.seats {
		r.seats[i].declared = -1
	}
	return r, nil
}

func (r *Room) ID() string { return r.id }

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.phase()
}

func (r *Room) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// SeatPlayer seats a human. Only legal while waiting for the game to
// start; the first seated player becomes host.
func (r *Room) SeatPlayer(seat int, playerID, name string) (*ChangeSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.phase() != PhaseWaiting {
		return nil, ruleErr(ErrKindIllegalPhase, "game already started")
	}
	if seat < 0 || seat >= NumSeats {
		return nil, fmt.Errorf("invalid seat %d", seat)
	}
	if r.seats[seat].Occupied() {
		return nil, fmt.Errorf("seat %d already occupied", seat)
	}
	host := true
	for i := range r.seats {
		if r.seats[i].Occupied() && r.seats[i].Host {
			host = false
			break
		}
	}
	r.seats[seat] = Seat{
		PlayerID: playerID,
		Name:     name,
		Host:     host,
		Conn:     SeatConnected,
		declared: -1,
	}
	cs := newChangeSet(PhaseWaiting, "room_update").
		add("seat", seat).
		add("players", r.playerSummariesLocked())
	return cs, nil
}

// FirstOpenSeat returns the lowest empty seat index, or InvalidSeat.
func (r *Room) FirstOpenSeat() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.seats {
		if !r.seats[i].Occupied() {
			return i
		}
	}
	return InvalidSeat
}

// SetConnState flips a seat's connection state and reports it as a change
// batch (nil if it was already in that state).
func (r *Room) SetConnState(seat int, state ConnState) (*ChangeSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seat < 0 || seat >= NumSeats || !r.seats[seat].Occupied() {
		return nil, ErrSeatEmpty
	}
	if r.seats[seat].Conn == state {
		return nil, nil
	}
	r.seats[seat].Conn = state
	cs := newChangeSet(r.state.phase(), "room_update").
		add("seat", seat).
		add("connection_state", state.String())
	return cs, nil
}

// Apply validates and applies one action, then drives any resulting phase
// transitions. The returned batches are in broadcast order.
func (r *Room) Apply(a Action) ([]ChangeSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended && a.Kind != ActionLeaveGame {
		return nil, ruleErr(ErrKindIllegalPhase, "game is over")
	}
	if a.Seat < 0 || a.Seat >= NumSeats {
		return nil, ruleErr(ErrKindValidation, fmt.Sprintf("invalid seat %d", a.Seat))
	}
	if !r.seats[a.Seat].Occupied() {
		return nil, ruleErr(ErrKindValidation, fmt.Sprintf("seat %d is empty", a.Seat))
	}
	if !r.actionAllowedLocked(a.Seat, a.Kind) {
		return nil, ruleErr(ErrKindIllegalPhase,
			fmt.Sprintf("%s not accepted in phase %s", a.Kind, r.state.phase()))
	}
	if err := r.state.validate(r, a); err != nil {
		return nil, err
	}

	cs, err := r.state.apply(r, a)
	if err != nil {
		return nil, err
	}
	var out []ChangeSet
	if cs != nil {
		out = append(out, *cs)
	}
	out = append(out, r.runTransitionsLocked()...)
	return out, nil
}

// AllowedActions is a pure projection of what seat may do right now.
func (r *Room) AllowedActions(seat int) []ActionKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seat < 0 || seat >= NumSeats || !r.seats[seat].Occupied() {
		return nil
	}
	return r.state.allowedActions(r, seat)
}

func (r *Room) actionAllowedLocked(seat int, kind ActionKind) bool {
	for _, k := range r.state.allowedActions(r, seat) {
		if k == kind {
			return true
		}
	}
	return false
}

// ActionableSeat returns the seat whose decision the room is blocked on
// (weak-hand decider, declarer, or player to act), or InvalidSeat.
func (r *Room) ActionableSeat() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.actionableSeatLocked()
}

func (r *Room) actionableSeatLocked() int {
	switch st := r.state.(type) {
	case *preparationState:
		return st.currentWeak
	case *declarationState:
		return st.currentDeclarer()
	case *turnState:
		return st.currentSeat
	}
	return InvalidSeat
}

// PendingRedealSeats returns every weak seat the room is waiting on:
// one seat in sequential mode, all undecided weak seats in simultaneous
// mode, empty outside preparation.
func (r *Room) PendingRedealSeats() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.state.(*preparationState)
	if !ok || st.done {
		return nil
	}
	if !r.cfg.SimultaneousRedeal {
		if st.currentWeak == InvalidSeat {
			return nil
		}
		return []int{st.currentWeak}
	}
	pending := make([]int, 0, len(st.weakSeats))
	for _, seat := range st.weakSeats {
		if _, decided := st.decisions[seat]; !decided {
			pending = append(pending, seat)
		}
	}
	return pending
}

// Advance forces the room out of a timed display phase (turn results).
// The server actor calls this from its tick; players reach the same path
// through ActionPlayerReady.
func (r *Room) Advance() []ChangeSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.state.(*turnResultsState)
	if !ok {
		return nil
	}
	st.advance = true
	return r.runTransitionsLocked()
}

func (r *Room) runTransitionsLocked() []ChangeSet {
	var out []ChangeSet
	for {
		next := r.state.checkTransition(r)
		if next == nil {
			return out
		}
		r.state.onExit(r)
		r.state = next
		if cs := next.onEnter(r); cs != nil {
			out = append(out, *cs)
		}
	}
}

// --- shared helpers used by phase states (callers hold r.mu) ---

func (r *Room) dealLocked() {
	deck := r.cfg.DeckOverride
	var hands [4][]piece.Piece
	if deck != nil {
		for seat := 0; seat < NumSeats; seat++ {
			hand := make([]piece.Piece, piece.HandSize)
			copy(hand, deck[seat*piece.HandSize:(seat+1)*piece.HandSize])
			hands[seat] = hand
		}
		// Deterministic decks are single-shot: a redeal falls back to RNG.
		r.cfg.DeckOverride = nil
	} else {
		hands = piece.Deal(r.rng, piece.NewDeck())
	}
	for seat := range r.seats {
		r.seats[seat].setHand(hands[seat])
	}
}

func (r *Room) weakSeatsLocked() []int {
	weak := make([]int, 0, NumSeats)
	for seat := range r.seats {
		if piece.IsWeak(r.seats[seat].hand, r.cfg.WeakThreshold) {
			weak = append(weak, seat)
		}
	}
	return weak
}

// clockwiseFrom 从 start 起顺时针的完整座位序
func clockwiseFrom(start int) []int {
	order := make([]int, 0, NumSeats)
	for i := 0; i < NumSeats; i++ {
		order = append(order, (start+i)%NumSeats)
	}
	return order
}

func (r *Room) handSizesLocked() []int {
	sizes := make([]int, NumSeats)
	for i := range r.seats {
		sizes[i] = len(r.seats[i].hand)
	}
	return sizes
}

func (r *Room) pileCountsLocked() []int {
	counts := make([]int, NumSeats)
	for i := range r.seats {
		counts[i] = r.seats[i].captured
	}
	return counts
}

func (r *Room) playerSummariesLocked() []map[string]any {
	out := make([]map[string]any, NumSeats)
	for i := range r.seats {
		s := &r.seats[i]
		if !s.Occupied() {
			continue
		}
		out[i] = map[string]any{
			"player_id":        s.PlayerID,
			"name":             s.Name,
			"is_bot":           s.Bot,
			"is_host":          s.Host,
			"connection_state": s.Conn.String(),
		}
	}
	return out
}
