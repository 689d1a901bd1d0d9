package castellan

import "sort"

// scoringState settles the round, applies the redeal multiplier, updates
// streaks and either starts the next round or ends the game. It chains
// straight through checkTransition: the post-round pause belongs to the
// final turn_results display.
type scoringState struct {
	lastTurnWinner int
	winners        []int
}

func (st *scoringState) phase() Phase { return PhaseScoring }

func (st *scoringState) onEnter(r *Room) *ChangeSet {
	scores := make([]map[string]any, 0, NumSeats)
	for i := range r.seats {
		s := &r.seats[i]
		base := RoundScore(s.declared, s.captured)
		delta := base * r.multiplier
		s.Score += delta

		if s.declared == 0 {
			s.ZeroStreak++
		} else {
			s.ZeroStreak = 0
		}

		scores = append(scores, map[string]any{
			"seat":       i,
			"declared":   s.declared,
			"captured":   s.captured,
			"base_score": base,
			"multiplier": r.multiplier,
			"delta":      delta,
			"score":      s.Score,
		})
	}

	for i := range r.seats {
		if r.seats[i].Score >= r.cfg.WinThreshold {
			st.winners = append(st.winners, i)
		}
	}

	return newChangeSet(PhaseScoring, "round_complete").
		add("round", r.round).
		add("redeal_multiplier", r.multiplier).
		add("scores", scores).
		add("game_over", len(st.winners) > 0)
}

func (st *scoringState) allowedActions(r *Room, seat int) []ActionKind { return nil }

func (st *scoringState) validate(r *Room, a Action) error {
	return ruleErr(ErrKindIllegalPhase, "scoring accepts no actions")
}

func (st *scoringState) apply(r *Room, a Action) (*ChangeSet, error) {
	return nil, ruleErr(ErrKindIllegalPhase, "scoring accepts no actions")
}

func (st *scoringState) checkTransition(r *Room) phaseState {
	if len(st.winners) > 0 {
		return &gameOverState{}
	}

	// Next round: the seat that captured the most piles starts
	// (earliest seat on ties), multiplier resets, counters clear.
	r.starter = st.roundWinner(r)
	r.multiplier = 1
	r.round++
	return &preparationState{currentWeak: InvalidSeat}
}

func (st *scoringState) roundWinner(r *Room) int {
	best := 0
	for i := 1; i < NumSeats; i++ {
		if r.seats[i].captured > r.seats[best].captured {
			best = i
		}
	}
	return best
}

func (st *scoringState) onExit(r *Room) {}

// gameOverState accepts no further game actions; the room lives on only
// until the lobby evicts it.
type gameOverState struct{}

func (st *gameOverState) phase() Phase { return PhaseGameOver }

func (st *gameOverState) onEnter(r *Room) *ChangeSet {
	r.ended = true

	type standing struct {
		seat  int
		score int
	}
	ranked := make([]standing, 0, NumSeats)
	for i := range r.seats {
		ranked = append(ranked, standing{seat: i, score: r.seats[i].Score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	standings := make([]map[string]any, 0, NumSeats)
	for rank, entry := range ranked {
		standings = append(standings, map[string]any{
			"rank":  rank + 1,
			"seat":  entry.seat,
			"name":  r.seats[entry.seat].Name,
			"score": entry.score,
		})
	}
	return newChangeSet(PhaseGameOver, "game_over").
		add("round", r.round).
		add("standings", standings).
		add("winner", ranked[0].seat)
}

func (st *gameOverState) allowedActions(r *Room, seat int) []ActionKind { return nil }

func (st *gameOverState) validate(r *Room, a Action) error {
	return ruleErr(ErrKindIllegalPhase, "game is over")
}

func (st *gameOverState) apply(r *Room, a Action) (*ChangeSet, error) {
	return nil, ruleErr(ErrKindIllegalPhase, "game is over")
}

func (st *gameOverState) checkTransition(r *Room) phaseState { return nil }

func (st *gameOverState) onExit(r *Room) {}
