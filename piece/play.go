package piece

// PlayType 牌型
type PlayType byte

const (
	PlayInvalid PlayType = iota
	PlaySingle
	PlayPair
	PlayTriple
	PlayStraight
	PlayFourOfKind
	PlayExtendedStraight
	PlayFiveOfKind
	PlayExtendedStraightFive
	PlayDoubleStraight
)

var PlayTypeDictionary = map[PlayType]string{
	PlayInvalid:              "INVALID",
	PlaySingle:               "SINGLE",
	PlayPair:                 "PAIR",
	PlayTriple:               "TRIPLE",
	PlayStraight:             "STRAIGHT",
	PlayFourOfKind:           "FOUR_OF_KIND",
	PlayExtendedStraight:     "EXTENDED_STRAIGHT",
	PlayFiveOfKind:           "FIVE_OF_KIND",
	PlayExtendedStraightFive: "EXTENDED_STRAIGHT_5",
	PlayDoubleStraight:       "DOUBLE_STRAIGHT",
}

func (t PlayType) String() string {
	if s, ok := PlayTypeDictionary[t]; ok {
		return s
	}
	return "?"
}

// Play is a classified set of pieces.
type Play struct {
	Pieces []Piece
	Type   PlayType
	Value  int
}

// Classify is the pure play-type classifier.
//
// 牌型规则（同色为前提，单张除外）:
// - SINGLE: 任意 1 张
// - PAIR: 2 张同兵种同色
// - TRIPLE: 3 张同色兵
// - STRAIGHT: 车马炮各 1 张同色
// - FOUR_OF_KIND: 4 张同色兵
// - EXTENDED_STRAIGHT: 车马炮同色 4 张（必含全部三种）
// - FIVE_OF_KIND: 5 张同色兵
// - EXTENDED_STRAIGHT_5: 车马炮同色 5 张（必含全部三种）
// - DOUBLE_STRAIGHT: 车车马马炮炮同色 6 张
//
// Everything else is INVALID with value 0.
func Classify(pieces []Piece) (PlayType, int) {
	n := len(pieces)
	if n < 1 || n > 6 {
		return PlayInvalid, 0
	}

	total := 0
	sameColor := true
	kinds := make(map[Kind]int, n)
	for _, p := range pieces {
		if p.Kind() < General || p.Kind() > Soldier {
			return PlayInvalid, 0
		}
		total += p.Point()
		kinds[p.Kind()]++
		if p.Color() != pieces[0].Color() {
			sameColor = false
		}
	}

	switch n {
	case 1:
		return PlaySingle, total
	case 2:
		if sameColor && len(kinds) == 1 {
			return PlayPair, total
		}
	case 3:
		if !sameColor {
			break
		}
		if kinds[Soldier] == 3 {
			return PlayTriple, total
		}
		if kinds[Chariot] == 1 && kinds[Horse] == 1 && kinds[Cannon] == 1 {
			return PlayStraight, total
		}
	case 4:
		if !sameColor {
			break
		}
		if kinds[Soldier] == 4 {
			return PlayFourOfKind, total
		}
		if isStraightGroup(kinds, 4) {
			return PlayExtendedStraight, total
		}
	case 5:
		if !sameColor {
			break
		}
		if kinds[Soldier] == 5 {
			return PlayFiveOfKind, total
		}
		if isStraightGroup(kinds, 5) {
			return PlayExtendedStraightFive, total
		}
	case 6:
		if sameColor && kinds[Chariot] == 2 && kinds[Horse] == 2 && kinds[Cannon] == 2 {
			return PlayDoubleStraight, total
		}
	}
	return PlayInvalid, 0
}

// isStraightGroup 车马炮扩展顺：n 张全部来自车/马/炮且三种都在场
func isStraightGroup(kinds map[Kind]int, n int) bool {
	straight := kinds[Chariot] + kinds[Horse] + kinds[Cannon]
	if straight != n {
		return false
	}
	return kinds[Chariot] >= 1 && kinds[Horse] >= 1 && kinds[Cannon] >= 1
}

// NewPlay classifies pieces and wraps them in a Play.
func NewPlay(pieces []Piece) Play {
	t, v := Classify(pieces)
	return Play{Pieces: pieces, Type: t, Value: v}
}

// Beats reports whether challenger beats incumbent under the lead of
// leadType with the given required count. A play only competes when it
// matches the required count and the leader's type; ties do not beat.
func Beats(challenger, incumbent Play, leadType PlayType, requiredCount int) bool {
	if len(challenger.Pieces) != requiredCount {
		return false
	}
	if challenger.Type == PlayInvalid || challenger.Type != leadType {
		return false
	}
	if incumbent.Type != leadType {
		return true
	}
	return challenger.Value > incumbent.Value
}
