package castellan

import (
	"fmt"

	"liap-tui/piece"
)

// PlayRecord is one seat's play within a pile.
type PlayRecord struct {
	Seat   int
	Pieces []piece.Piece
	Type   piece.PlayType
	Value  int
}

// turnState resolves one pile: the starter leads 1..6 pieces, everyone
// else matches the count in clockwise order. Followers may dump an
// unclassifiable set; it just cannot win.
type turnState struct {
	order         []int
	idx           int
	currentSeat   int
	requiredCount int
	leadType      piece.PlayType
	plays         []PlayRecord
}

func newTurnState(r *Room) *turnState {
	order := clockwiseFrom(r.starter)
	return &turnState{
		order:       order,
		currentSeat: order[0],
	}
}

func (st *turnState) phase() Phase { return PhaseTurn }

func (st *turnState) onEnter(r *Room) *ChangeSet {
	return newChangeSet(PhaseTurn, "turn_start").
		add("turn_number", r.turnNumber).
		add("starter", r.starter).
		add("current_player", st.currentSeat)
}

func (st *turnState) allowedActions(r *Room, seat int) []ActionKind {
	if seat == st.currentSeat {
		return []ActionKind{ActionPlay}
	}
	return nil
}

func (st *turnState) isLeader() bool { return st.idx == 0 }

func (st *turnState) validate(r *Room, a Action) error {
	if a.Seat != st.currentSeat {
		return ruleErr(ErrKindNotYourTurn, "not your turn to play")
	}
	k := len(a.Pieces)
	if st.isLeader() {
		if k < 1 || k > MaxLeadCount {
			return ruleErr(ErrKindWrongCount,
				fmt.Sprintf("the starter must play 1..%d pieces, got %d", MaxLeadCount, k))
		}
	} else if k != st.requiredCount {
		return ruleErr(ErrKindWrongCount,
			fmt.Sprintf("must play exactly %d pieces, got %d", st.requiredCount, k))
	}
	if _, ok := piece.Remove(r.seats[a.Seat].Hand(), a.Pieces); !ok {
		return ruleErr(ErrKindIllegalPieces, "pieces not in hand")
	}
	return nil
}

func (st *turnState) apply(r *Room, a Action) (*ChangeSet, error) {
	if !r.seats[a.Seat].removeFromHand(a.Pieces) {
		return nil, ErrInvalidState("validated pieces vanished from hand")
	}
	playType, value := piece.Classify(a.Pieces)
	if st.isLeader() {
		st.requiredCount = len(a.Pieces)
		st.leadType = playType
	}
	st.plays = append(st.plays, PlayRecord{
		Seat:   a.Seat,
		Pieces: append([]piece.Piece{}, a.Pieces...),
		Type:   playType,
		Value:  value,
	})
	st.idx++
	st.currentSeat = InvalidSeat
	if st.idx < len(st.order) {
		st.currentSeat = st.order[st.idx]
	}

	pieceNames := make([]string, len(a.Pieces))
	for i, p := range a.Pieces {
		pieceNames[i] = p.Name()
	}
	cs := newChangeSet(PhaseTurn, "play").
		add("seat", a.Seat).
		add("pieces", pieceNames).
		add("play_type", playType.String()).
		add("play_value", value).
		add("hand_sizes", r.handSizesLocked())
	if st.isLeaderPlay(a.Seat) {
		cs.add("required_count", st.requiredCount)
		cs.add("lead_type", st.leadType.String())
	}
	if st.currentSeat != InvalidSeat {
		cs.add("current_player", st.currentSeat)
	}
	return cs, nil
}

func (st *turnState) isLeaderPlay(seat int) bool {
	return len(st.plays) > 0 && st.plays[0].Seat == seat
}

// winner 赢家判定：与首家同型的最高分值；先手顺位优先；
// 全部无效时首家默认获胜（leader privilege）。
func (st *turnState) winner() int {
	winner := st.order[0]
	best := -1
	for _, play := range st.plays {
		if play.Type == piece.PlayInvalid || play.Type != st.leadType {
			continue
		}
		if play.Value > best {
			best = play.Value
			winner = play.Seat
		}
	}
	return winner
}

func (st *turnState) checkTransition(r *Room) phaseState {
	if st.idx < len(st.order) {
		return nil
	}
	return newTurnResultsState(st)
}

func (st *turnState) onExit(r *Room) {}
