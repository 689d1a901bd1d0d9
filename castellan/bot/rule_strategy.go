package bot

import (
	"math/rand"
	"sort"

	"liap-tui/piece"
)

// RuleStrategy makes decisions from a Profile with tunable parameters.
// It is deliberately heuristic; it must only ever return legal decisions.
type RuleStrategy struct {
	Persona *Persona
	rng     *rand.Rand
}

// NewRuleStrategy creates a RuleStrategy from a persona definition.
func NewRuleStrategy(persona *Persona, seed int64) *RuleStrategy {
	if persona == nil {
		persona = DefaultPersona
	}
	return &RuleStrategy{
		Persona: persona,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (s *RuleStrategy) Name() string { return s.Persona.Name }

// DecideRedeal: a weak hand is worth reshuffling unless the multiplier is
// already high and the persona is cautious about doubling the stakes.
func (s *RuleStrategy) DecideRedeal(view SeatView) bool {
	if !view.WeakHand {
		return false
	}
	if view.Multiplier >= 4 && s.rng.Float64() < s.Persona.Brain.Caution {
		return false
	}
	return true
}

// DecideDeclaration estimates winnable piles from hand strength and snaps
// the target to the nearest allowed value.
func (s *RuleStrategy) DecideDeclaration(view SeatView) int {
	target := 0
	for _, p := range view.Hand {
		if p.Point() >= 11 {
			target++
		}
	}
	for _, pair := range pairsIn(view.Hand) {
		if pair[0].Point() >= 8 {
			target++
		}
	}
	if target > 0 && s.rng.Float64() < s.Persona.Brain.Aggression*0.3 {
		target++
	}
	if target > piece.HandSize {
		target = piece.HandSize
	}

	allowed := view.AllowedDeclarations
	if len(allowed) == 0 {
		return target
	}
	best := allowed[0]
	for _, d := range allowed {
		if abs(d-target) < abs(best-target) {
			best = d
		}
	}
	return best
}

// DecidePlay picks a lead or a follow. As follower it prefers the
// cheapest winning set, then the cheapest dump.
func (s *RuleStrategy) DecidePlay(view SeatView) []piece.Piece {
	if view.Leading() {
		return s.lead(view)
	}
	return s.follow(view)
}

func (s *RuleStrategy) lead(view SeatView) []piece.Piece {
	hand := view.Hand
	if len(hand) == 0 {
		return nil
	}

	// Prefer multi-piece combinations; aggression controls whether the
	// bot breaks them up to save strong singles.
	best := bestCombination(hand)
	if best != nil && (len(best) > 2 || s.rng.Float64() < 0.5+s.Persona.Brain.Aggression*0.5) {
		return best
	}

	// Lead the strongest single.
	strongest := hand[0]
	for _, p := range hand {
		if p.Point() > strongest.Point() {
			strongest = p
		}
	}
	return []piece.Piece{strongest}
}

func (s *RuleStrategy) follow(view SeatView) []piece.Piece {
	k := view.RequiredCount
	hand := view.Hand
	if len(hand) < k {
		// Engine guarantees 8 plays per round; this cannot happen.
		return hand
	}

	// Current value to beat among plays matching the lead type.
	toBeat := -1
	for _, play := range view.Plays {
		if play.Type == view.LeadType && play.Value > toBeat {
			toBeat = play.Value
		}
	}

	var cheapestWin []piece.Piece
	cheapestWinValue := 0
	forEachCombination(hand, k, func(combo []piece.Piece) {
		t, v := piece.Classify(combo)
		if t != view.LeadType || v <= toBeat {
			return
		}
		if cheapestWin == nil || v < cheapestWinValue {
			cheapestWin = append([]piece.Piece{}, combo...)
			cheapestWinValue = v
		}
	})
	if cheapestWin != nil {
		// Cautious personas occasionally hold a strong hand back when
		// the pile is already expensive to win.
		if cheapestWinValue > 20 && s.rng.Float64() < s.Persona.Brain.Caution*0.3 {
			return lowestPieces(hand, k)
		}
		return cheapestWin
	}

	// Cannot win: dump the lowest pieces.
	return lowestPieces(hand, k)
}

// bestCombination returns the highest-value non-single play in hand, or
// nil when only singles exist.
func bestCombination(hand []piece.Piece) []piece.Piece {
	var best []piece.Piece
	bestValue := -1
	for k := 2; k <= piece.HandSize && k <= len(hand); k++ {
		forEachCombination(hand, k, func(combo []piece.Piece) {
			t, v := piece.Classify(combo)
			if t == piece.PlayInvalid {
				return
			}
			if v > bestValue {
				best = append([]piece.Piece{}, combo...)
				bestValue = v
			}
		})
	}
	return best
}

func pairsIn(hand []piece.Piece) [][2]piece.Piece {
	var out [][2]piece.Piece
	seen := make(map[piece.Piece]int, len(hand))
	for _, p := range hand {
		seen[p]++
	}
	for p, n := range seen {
		for i := 0; i < n/2; i++ {
			out = append(out, [2]piece.Piece{p, p})
		}
	}
	return out
}

func lowestPieces(hand []piece.Piece, k int) []piece.Piece {
	sorted := append([]piece.Piece{}, hand...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Point() < sorted[j].Point() })
	return sorted[:k]
}

// forEachCombination visits every k-subset of hand. Hands hold at most 8
// pieces, so the worst case is C(8,4)=70 visits.
func forEachCombination(hand []piece.Piece, k int, fn func([]piece.Piece)) {
	if k <= 0 || k > len(hand) {
		return
	}
	combo := make([]piece.Piece, k)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == k {
			fn(combo)
			return
		}
		for i := start; i <= len(hand)-(k-depth); i++ {
			combo[depth] = hand[i]
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
