package bot

import (
	"liap-tui/castellan"
	"liap-tui/piece"
)

// SeatView is a read-only projection of the room state visible to one
// bot seat. It never contains another seat's hand.
type SeatView struct {
	Phase      castellan.Phase
	Seat       int
	Hand       []piece.Piece
	WeakHand   bool
	Multiplier int
	Score      int

	// Declaration
	AllowedDeclarations []int
	DeclaredTotal       int

	// Turn
	RequiredCount int // 0 when leading
	LeadType      piece.PlayType
	Plays         []castellan.PlaySnapshot
}

// Leading reports whether the seat opens the pile.
func (v SeatView) Leading() bool { return v.RequiredCount == 0 }

// Strategy is the core interface all bot types implement. The scheduler
// calls exactly one method per actionable transition.
type Strategy interface {
	// DecideRedeal answers the weak-hand prompt.
	DecideRedeal(view SeatView) bool
	// DecideDeclaration picks a pile target from the allowed set.
	DecideDeclaration(view SeatView) int
	// DecidePlay picks the pieces to play. As leader any legal 1..6
	// combination; as follower exactly view.RequiredCount pieces.
	DecidePlay(view SeatView) []piece.Piece
	// Name returns a human-readable identifier for debugging.
	Name() string
}

// ViewFor builds the SeatView for seat from an engine snapshot.
func ViewFor(snap castellan.Snapshot, seat int, weakThreshold int) SeatView {
	view := SeatView{
		Phase:         snap.Phase,
		Seat:          seat,
		Multiplier:    snap.Multiplier,
		RequiredCount: snap.RequiredCount,
		LeadType:      snap.LeadType,
		Plays:         snap.Plays,
		DeclaredTotal: snap.DeclaredTotal,
	}
	if seat >= 0 && seat < castellan.NumSeats {
		view.Hand = snap.Seats[seat].Hand
		view.Score = snap.Seats[seat].Score
		view.WeakHand = piece.IsWeak(view.Hand, weakThreshold)
	}
	if snap.CurrentDeclarer == seat {
		view.AllowedDeclarations = snap.AllowedDeclarations
	}
	if snap.CurrentPlayer == seat && snap.CurrentPlayer == snap.Starter && len(snap.Plays) == 0 {
		view.RequiredCount = 0
	}
	return view
}
