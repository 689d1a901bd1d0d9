package castellan

import "liap-tui/piece"

// Seat 固定四座中的一席。空座位 PlayerID 为空串。
type Seat struct {
	PlayerID string
	Name     string
	Bot      bool
	Host     bool
	Conn     ConnState

	Score      int
	ZeroStreak int

	hand     []piece.Piece
	declared int // -1 = not declared this round
	captured int
}

func (s *Seat) Occupied() bool { return s.PlayerID != "" }

func (s *Seat) Hand() []piece.Piece {
	out := make([]piece.Piece, len(s.hand))
	copy(out, s.hand)
	return out
}

func (s *Seat) HandSize() int { return len(s.hand) }
func (s *Seat) Declared() int { return s.declared }
func (s *Seat) Captured() int { return s.captured }

func (s *Seat) resetForNewRound() {
	s.hand = nil
	s.declared = -1
	s.captured = 0
}

func (s *Seat) setHand(hand []piece.Piece) {
	s.hand = hand
}

// removeFromHand removes pieces from the hand, all-or-nothing.
func (s *Seat) removeFromHand(pieces []piece.Piece) bool {
	rest, ok := piece.Remove(s.hand, pieces)
	if !ok {
		return false
	}
	s.hand = rest
	return true
}

func (s *Seat) clear() {
	*s = Seat{declared: -1}
}
