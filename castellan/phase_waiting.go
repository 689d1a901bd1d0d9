package castellan

import "fmt"

// waitingState accepts seat management and the host's start_game.
type waitingState struct {
	started bool
}

func (st *waitingState) phase() Phase { return PhaseWaiting }

func (st *waitingState) onEnter(r *Room) *ChangeSet { return nil }

func (st *waitingState) allowedActions(r *Room, seat int) []ActionKind {
	acts := []ActionKind{ActionRemovePlayer, ActionLeaveGame}
	if r.seats[seat].Host {
		acts = append(acts, ActionAddBot, ActionStartGame)
	}
	return acts
}

func (st *waitingState) validate(r *Room, a Action) error {
	switch a.Kind {
	case ActionAddBot:
		if !r.seats[a.Seat].Host {
			return ruleErr(ErrKindUnauthorized, "only the host may add bots")
		}
		if a.TargetSeat < 0 || a.TargetSeat >= NumSeats {
			return ruleErr(ErrKindValidation, fmt.Sprintf("invalid seat %d", a.TargetSeat))
		}
		if r.seats[a.TargetSeat].Occupied() {
			return ruleErr(ErrKindIllegalAction, fmt.Sprintf("seat %d is occupied", a.TargetSeat))
		}
	case ActionRemovePlayer:
		if a.TargetSeat < 0 || a.TargetSeat >= NumSeats {
			return ruleErr(ErrKindValidation, fmt.Sprintf("invalid seat %d", a.TargetSeat))
		}
		target := &r.seats[a.TargetSeat]
		if !target.Occupied() {
			return ruleErr(ErrKindIllegalAction, fmt.Sprintf("seat %d is empty", a.TargetSeat))
		}
		if a.TargetSeat != a.Seat && !r.seats[a.Seat].Host {
			return ruleErr(ErrKindUnauthorized, "only the host may remove other players")
		}
	case ActionStartGame:
		if !r.seats[a.Seat].Host {
			return ruleErr(ErrKindUnauthorized, "only the host may start the game")
		}
		for i := range r.seats {
			if !r.seats[i].Occupied() {
				return ruleErr(ErrKindIllegalAction, fmt.Sprintf("seat %d is still empty", i))
			}
		}
	case ActionLeaveGame:
		// always allowed
	}
	return nil
}

func (st *waitingState) apply(r *Room, a Action) (*ChangeSet, error) {
	switch a.Kind {
	case ActionAddBot:
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("Bot %d", a.TargetSeat+1)
		}
		r.seats[a.TargetSeat] = Seat{
			PlayerID: fmt.Sprintf("%s_p%d", r.id, a.TargetSeat),
			Name:     name,
			Bot:      true,
			Conn:     SeatConnected,
			declared: -1,
		}
	case ActionRemovePlayer:
		wasHost := r.seats[a.TargetSeat].Host
		r.seats[a.TargetSeat].clear()
		if wasHost {
			// Host migrates to the earliest occupied human seat.
			for i := range r.seats {
				if r.seats[i].Occupied() && !r.seats[i].Bot {
					r.seats[i].Host = true
					break
				}
			}
		}
	case ActionLeaveGame:
		return st.apply(r, Action{Seat: a.Seat, Kind: ActionRemovePlayer, TargetSeat: a.Seat})
	case ActionStartGame:
		st.started = true
		return newChangeSet(PhaseWaiting, "game_started").
			add("round", 1).
			add("players", r.playerSummariesLocked()), nil
	}
	return newChangeSet(PhaseWaiting, "room_update").
		add("players", r.playerSummariesLocked()), nil
}

func (st *waitingState) checkTransition(r *Room) phaseState {
	if !st.started {
		return nil
	}
	r.round = 1
	r.turnNumber = 0
	r.multiplier = 1
	r.starter = 0
	return &preparationState{currentWeak: InvalidSeat}
}

func (st *waitingState) onExit(r *Room) {}
