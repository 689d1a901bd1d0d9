package castellan

import "fmt"

// declarationState collects one pile target per seat, starter first then
// clockwise. The sum across all four may not equal the pile count.
type declarationState struct {
	order []int
	idx   int
}

func newDeclarationState(r *Room) *declarationState {
	return &declarationState{order: clockwiseFrom(r.starter)}
}

func (st *declarationState) phase() Phase { return PhaseDeclaration }

func (st *declarationState) currentDeclarer() int {
	if st.idx >= len(st.order) {
		return InvalidSeat
	}
	return st.order[st.idx]
}

func (st *declarationState) isLastDeclarer() bool {
	return st.idx == len(st.order)-1
}

func (st *declarationState) declaredTotal(r *Room) int {
	total := 0
	for i := range r.seats {
		if r.seats[i].declared >= 0 {
			total += r.seats[i].declared
		}
	}
	return total
}

// allowedDeclarations 最后一家不得令总和等于 8
func (st *declarationState) allowedDeclarations(r *Room) []int {
	forbidden := -1
	if st.isLastDeclarer() {
		forbidden = PilesPerRound - st.declaredTotal(r)
	}
	out := make([]int, 0, PilesPerRound+1)
	for d := 0; d <= PilesPerRound; d++ {
		if d != forbidden {
			out = append(out, d)
		}
	}
	return out
}

func (st *declarationState) onEnter(r *Room) *ChangeSet {
	return newChangeSet(PhaseDeclaration, "declaration_start").
		add("declaration_order", append([]int{}, st.order...)).
		add("current_declarer", st.currentDeclarer()).
		add("allowed_declarations", st.allowedDeclarations(r))
}

func (st *declarationState) allowedActions(r *Room, seat int) []ActionKind {
	if seat == st.currentDeclarer() {
		return []ActionKind{ActionDeclare}
	}
	return nil
}

func (st *declarationState) validate(r *Room, a Action) error {
	if a.Seat != st.currentDeclarer() {
		return ruleErr(ErrKindNotYourTurn, "not your turn to declare")
	}
	if a.Value < 0 || a.Value > PilesPerRound {
		return ruleErr(ErrKindValidation,
			fmt.Sprintf("declaration %d out of range 0..%d", a.Value, PilesPerRound))
	}
	if st.isLastDeclarer() && st.declaredTotal(r)+a.Value == PilesPerRound {
		return ruleErr(ErrKindIllegalDeclaration,
			fmt.Sprintf("declarations may not sum to %d", PilesPerRound))
	}
	return nil
}

func (st *declarationState) apply(r *Room, a Action) (*ChangeSet, error) {
	r.seats[a.Seat].declared = a.Value
	st.idx++

	cs := newChangeSet(PhaseDeclaration, "declare").
		add("seat", a.Seat).
		add("value", a.Value).
		add("declared_total", st.declaredTotal(r))
	if next := st.currentDeclarer(); next != InvalidSeat {
		cs.add("current_declarer", next)
		cs.add("allowed_declarations", st.allowedDeclarations(r))
	}
	return cs, nil
}

func (st *declarationState) checkTransition(r *Room) phaseState {
	if st.idx < len(st.order) {
		return nil
	}
	r.turnNumber = 1
	return newTurnState(r)
}

func (st *declarationState) onExit(r *Room) {}
