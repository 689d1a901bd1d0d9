package castellan

import "liap-tui/piece"

type SeatSnapshot struct {
	PlayerID   string
	Name       string
	Bot        bool
	Host       bool
	Conn       ConnState
	Score      int
	Declared   int
	Captured   int
	ZeroStreak int
	HandSize   int
	// Hand is present for every occupied seat; the broadcast layer is
	// responsible for filtering it down to the viewing seat.
	Hand []piece.Piece
}

func (s SeatSnapshot) Occupied() bool { return s.PlayerID != "" }

type PlaySnapshot struct {
	Seat   int
	Pieces []piece.Piece
	Type   piece.PlayType
	Value  int
}

// Snapshot is a full, detached projection of the room. It is safe to hold
// across goroutines; nothing in it aliases live room state.
type Snapshot struct {
	RoomID     string
	Phase      Phase
	Round      int
	TurnNumber int
	Multiplier int
	Starter    int
	Ended      bool

	Seats [NumSeats]SeatSnapshot

	// Preparation
	WeakSeats   []int
	CurrentWeak int

	// Declaration
	CurrentDeclarer     int
	DeclaredTotal       int
	AllowedDeclarations []int

	// Turn
	RequiredCount int
	LeadType      piece.PlayType
	CurrentPlayer int
	Plays         []PlaySnapshot

	// Turn results
	LastWinner int
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		RoomID:          r.id,
		Phase:           r.state.phase(),
		Round:           r.round,
		TurnNumber:      r.turnNumber,
		Multiplier:      r.multiplier,
		Starter:         r.starter,
		Ended:           r.ended,
		CurrentWeak:     InvalidSeat,
		CurrentDeclarer: InvalidSeat,
		CurrentPlayer:   InvalidSeat,
		LastWinner:      InvalidSeat,
	}

	for i := range r.seats {
		s := &r.seats[i]
		snap.Seats[i] = SeatSnapshot{
			PlayerID:   s.PlayerID,
			Name:       s.Name,
			Bot:        s.Bot,
			Host:       s.Host,
			Conn:       s.Conn,
			Score:      s.Score,
			Declared:   s.declared,
			Captured:   s.captured,
			ZeroStreak: s.ZeroStreak,
			HandSize:   len(s.hand),
			Hand:       s.Hand(),
		}
	}

	switch st := r.state.(type) {
	case *preparationState:
		snap.WeakSeats = append([]int{}, st.weakSeats...)
		snap.CurrentWeak = st.currentWeak
	case *declarationState:
		snap.CurrentDeclarer = st.currentDeclarer()
		snap.DeclaredTotal = st.declaredTotal(r)
		snap.AllowedDeclarations = st.allowedDeclarations(r)
	case *turnState:
		snap.RequiredCount = st.requiredCount
		snap.LeadType = st.leadType
		snap.CurrentPlayer = st.currentSeat
		snap.Plays = playSnapshots(st.plays)
	case *turnResultsState:
		snap.LastWinner = st.winner
		snap.RequiredCount = st.turn.requiredCount
		snap.LeadType = st.turn.leadType
		snap.Plays = playSnapshots(st.turn.plays)
	}
	return snap
}

func playSnapshots(plays []PlayRecord) []PlaySnapshot {
	out := make([]PlaySnapshot, 0, len(plays))
	for _, play := range plays {
		out = append(out, PlaySnapshot{
			Seat:   play.Seat,
			Pieces: append([]piece.Piece{}, play.Pieces...),
			Type:   play.Type,
			Value:  play.Value,
		})
	}
	return out
}

// AllowedDeclarations is a pure projection for the acting declarer
// (empty outside the declaration phase).
func (r *Room) AllowedDeclarations(seat int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.state.(*declarationState)
	if !ok || st.currentDeclarer() != seat {
		return nil
	}
	return st.allowedDeclarations(r)
}
