package castellan

// turnResultsState shows the resolved pile. It advances on a server timer
// (Room.Advance) or an explicit player_ready from any seated player.
type turnResultsState struct {
	turn    *turnState
	winner  int
	advance bool
}

func newTurnResultsState(turn *turnState) *turnResultsState {
	return &turnResultsState{turn: turn, winner: turn.winner()}
}

func (st *turnResultsState) phase() Phase { return PhaseTurnResults }

func (st *turnResultsState) onEnter(r *Room) *ChangeSet {
	r.seats[st.winner].captured++

	plays := make([]map[string]any, 0, len(st.turn.plays))
	for _, play := range st.turn.plays {
		names := make([]string, len(play.Pieces))
		for i, p := range play.Pieces {
			names[i] = p.Name()
		}
		plays = append(plays, map[string]any{
			"seat":       play.Seat,
			"pieces":     names,
			"play_type":  play.Type.String(),
			"play_value": play.Value,
		})
	}
	return newChangeSet(PhaseTurnResults, "turn_complete").
		add("turn_number", r.turnNumber).
		add("winner", st.winner).
		add("plays", plays).
		add("pile_counts", r.pileCountsLocked())
}

func (st *turnResultsState) allowedActions(r *Room, seat int) []ActionKind {
	return []ActionKind{ActionPlayerReady}
}

func (st *turnResultsState) validate(r *Room, a Action) error { return nil }

func (st *turnResultsState) apply(r *Room, a Action) (*ChangeSet, error) {
	st.advance = true
	return nil, nil
}

func (st *turnResultsState) checkTransition(r *Room) phaseState {
	if !st.advance {
		return nil
	}
	// Followers always match the lead count, so hands drain evenly; the
	// round runs until they are empty, not a fixed number of piles.
	if r.seats[st.winner].HandSize() > 0 {
		r.starter = st.winner
		r.turnNumber++
		return newTurnState(r)
	}
	return &scoringState{lastTurnWinner: st.winner}
}

func (st *turnResultsState) onExit(r *Room) {}
