package castellan

import "liap-tui/piece"

// Action is one player verb, already resolved to a seat.
// Idempotency (request_id) and enqueue ordering live at the server layer;
// the engine treats every Apply call as a fresh action.
type Action struct {
	Seat int
	Kind ActionKind

	// Declaration value (ActionDeclare).
	Value int

	// Pieces being played (ActionPlay).
	Pieces []piece.Piece

	// Target seat for ActionAddBot / ActionRemovePlayer.
	TargetSeat int

	// Display name for ActionAddBot.
	Name string
}

// Change is one mutated field in a change batch.
type Change struct {
	Field string
	Value any
}

// ChangeSet is the atomic unit the journal records: every applied action
// and every phase transition funnels through exactly one of these per
// broadcast. Reason doubles as the outbound event name.
type ChangeSet struct {
	Reason  string
	Phase   Phase
	Changes []Change
}

func newChangeSet(phase Phase, reason string) *ChangeSet {
	return &ChangeSet{Reason: reason, Phase: phase}
}

func (cs *ChangeSet) add(field string, value any) *ChangeSet {
	cs.Changes = append(cs.Changes, Change{Field: field, Value: value})
	return cs
}

// Map flattens the changes into a field→value map for serialization.
func (cs *ChangeSet) Map() map[string]any {
	out := make(map[string]any, len(cs.Changes))
	for _, c := range cs.Changes {
		out[c.Field] = c.Value
	}
	return out
}

// Get returns the value recorded for field, if present.
func (cs *ChangeSet) Get(field string) (any, bool) {
	for _, c := range cs.Changes {
		if c.Field == field {
			return c.Value, true
		}
	}
	return nil, false
}
