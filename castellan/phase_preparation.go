package castellan

import "fmt"

// preparationState deals hands and runs the weak-hand redeal negotiation.
//
// Sequential mode (default): weak seats decide one at a time in seat
// order. Simultaneous mode: every weak seat answers independently and the
// round redeals once if anyone accepted.
type preparationState struct {
	weakSeats   []int
	currentWeak int // sequential mode; InvalidSeat when none
	decisions   map[int]bool
	redeals     int
	done        bool
}

func (st *preparationState) phase() Phase { return PhasePreparation }

func (st *preparationState) onEnter(r *Room) *ChangeSet {
	for i := range r.seats {
		r.seats[i].resetForNewRound()
	}
	r.turnNumber = 0
	r.dealLocked()
	return st.afterDeal(r, "deal")
}

// afterDeal recomputes the weak set and builds the public batch for a
// fresh deal or a redeal. Hand contents never enter the journal; only
// sizes and the weak flags are public.
func (st *preparationState) afterDeal(r *Room, reason string) *ChangeSet {
	st.weakSeats = r.weakSeatsLocked()
	st.decisions = make(map[int]bool, len(st.weakSeats))
	st.currentWeak = InvalidSeat
	if !r.cfg.SimultaneousRedeal && len(st.weakSeats) > 0 && st.redealAllowed(r) {
		st.currentWeak = st.weakSeats[0]
	}
	st.done = len(st.weakSeats) == 0 || !st.redealAllowed(r)

	cs := newChangeSet(PhasePreparation, reason).
		add("round", r.round).
		add("hand_sizes", r.handSizesLocked()).
		add("weak_hands", append([]int{}, st.weakSeats...)).
		add("redeal_multiplier", r.multiplier)
	if st.currentWeak != InvalidSeat {
		cs.add("current_weak_player", st.currentWeak)
	}
	return cs
}

// redealAllowed 当 MaxRedeals>0 且已达上限时不再询问
func (st *preparationState) redealAllowed(r *Room) bool {
	return r.cfg.MaxRedeals == 0 || st.redeals < r.cfg.MaxRedeals
}

func (st *preparationState) allowedActions(r *Room, seat int) []ActionKind {
	if st.done || !st.redealAllowed(r) {
		return nil
	}
	if r.cfg.SimultaneousRedeal {
		for _, w := range st.weakSeats {
			if w == seat {
				if _, decided := st.decisions[seat]; !decided {
					return []ActionKind{ActionAcceptRedeal, ActionDeclineRedeal}
				}
			}
		}
		return nil
	}
	if seat == st.currentWeak {
		return []ActionKind{ActionAcceptRedeal, ActionDeclineRedeal}
	}
	return nil
}

func (st *preparationState) validate(r *Room, a Action) error {
	// allowedActions already gates seat and phase; nothing further.
	return nil
}

func (st *preparationState) apply(r *Room, a Action) (*ChangeSet, error) {
	accepted := a.Kind == ActionAcceptRedeal

	if r.cfg.SimultaneousRedeal {
		st.decisions[a.Seat] = accepted
		if len(st.decisions) < len(st.weakSeats) {
			return newChangeSet(PhasePreparation, "redeal_decision").
				add("seat", a.Seat).
				add("accepted", accepted), nil
		}
		anyAccepted := false
		for _, v := range st.decisions {
			if v {
				anyAccepted = true
				break
			}
		}
		if anyAccepted {
			return st.redeal(r)
		}
		st.done = true
		return newChangeSet(PhasePreparation, "redeal_decision").
			add("seat", a.Seat).
			add("accepted", false), nil
	}

	if accepted {
		return st.redeal(r)
	}

	// decline: drop the seat from the weak set, move to the next.
	st.weakSeats = st.weakSeats[1:]
	st.currentWeak = InvalidSeat
	if len(st.weakSeats) > 0 {
		st.currentWeak = st.weakSeats[0]
	} else {
		st.done = true
	}
	cs := newChangeSet(PhasePreparation, "redeal_decision").
		add("seat", a.Seat).
		add("accepted", false).
		add("weak_hands", append([]int{}, st.weakSeats...))
	if st.currentWeak != InvalidSeat {
		cs.add("current_weak_player", st.currentWeak)
	}
	return cs, nil
}

func (st *preparationState) redeal(r *Room) (*ChangeSet, error) {
	st.redeals++
	r.multiplier *= 2
	r.dealLocked()
	cs := st.afterDeal(r, "redeal")
	return cs, nil
}

func (st *preparationState) checkTransition(r *Room) phaseState {
	if !st.done {
		return nil
	}
	return newDeclarationState(r)
}

func (st *preparationState) onExit(r *Room) {}

func (st *preparationState) String() string {
	return fmt.Sprintf("preparation(weak=%v redeals=%d)", st.weakSeats, st.redeals)
}
