package piece

import "math/rand"

// DeckSize 一副牌 32 张
const DeckSize = 32

// HandSize 每人 8 张
const HandSize = 8

// countPerKind 每色的兵种分布（传统象棋分布）
var countPerKind = map[Kind]int{
	General:  1,
	Advisor:  2,
	Elephant: 2,
	Chariot:  2,
	Horse:    2,
	Cannon:   2,
	Soldier:  5,
}

// NewDeck returns the full 32-piece deck in canonical order
// (red first, strongest kind first).
func NewDeck() []Piece {
	deck := make([]Piece, 0, DeckSize)
	for _, color := range []Color{Red, Black} {
		for k := General; k <= Soldier; k++ {
			p := Piece(byte(color)<<4 | byte(k))
			for i := 0; i < countPerKind[k]; i++ {
				deck = append(deck, p)
			}
		}
	}
	return deck
}

// Deal shuffles deck with rng and splits it into 4 hands of 8.
// The input deck is not modified.
func Deal(rng *rand.Rand, deck []Piece) [4][]Piece {
	shuffled := make([]Piece, len(deck))
	copy(shuffled, deck)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var hands [4][]Piece
	for seat := 0; seat < 4; seat++ {
		hand := make([]Piece, HandSize)
		copy(hand, shuffled[seat*HandSize:(seat+1)*HandSize])
		hands[seat] = hand
	}
	return hands
}

// IsWeak reports whether no piece in hand has a point strictly greater
// than threshold. A hand whose best piece equals the threshold is weak.
func IsWeak(hand []Piece, threshold int) bool {
	for _, p := range hand {
		if p.Point() > threshold {
			return false
		}
	}
	return true
}

// Contains 工具：判断牌是否在切片里
func Contains(pieces []Piece, target Piece) bool {
	for _, p := range pieces {
		if p == target {
			return true
		}
	}
	return false
}

// Remove deletes one occurrence of each element of targets from hand and
// reports whether every target was present. hand is not modified on failure.
func Remove(hand []Piece, targets []Piece) ([]Piece, bool) {
	out := make([]Piece, len(hand))
	copy(out, hand)
	for _, target := range targets {
		found := -1
		for i, p := range out {
			if p == target {
				found = i
				break
			}
		}
		if found < 0 {
			return hand, false
		}
		out = append(out[:found], out[found+1:]...)
	}
	return out, true
}
