package piece

import "fmt"

// Piece 棋子枚举
//
// 编码规则:
// - 高4位: 颜色 (0:Red, 1:Black)
// - 低4位: 兵种 (1:General .. 7:Soldier)
type Piece byte

const PieceInvalid Piece = 0

// Kind 兵种
type Kind byte

const (
	General Kind = iota + 1
	Advisor
	Elephant
	Chariot
	Horse
	Cannon
	Soldier
)

func (k Kind) String() string {
	switch k {
	case General:
		return "GENERAL"
	case Advisor:
		return "ADVISOR"
	case Elephant:
		return "ELEPHANT"
	case Chariot:
		return "CHARIOT"
	case Horse:
		return "HORSE"
	case Cannon:
		return "CANNON"
	case Soldier:
		return "SOLDIER"
	}
	return "?"
}

// Color 颜色
type Color byte

const (
	Red Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "BLACK"
	}
	return "RED"
}

// Red 红方
const (
	RedGeneral Piece = iota + 0x01
	RedAdvisor
	RedElephant
	RedChariot
	RedHorse
	RedCannon
	RedSoldier
)

// Black 黑方
const (
	BlackGeneral Piece = iota + 0x11
	BlackAdvisor
	BlackElephant
	BlackChariot
	BlackHorse
	BlackCannon
	BlackSoldier
)

// Kind 获取兵种
func (p Piece) Kind() Kind {
	return Kind(p & 0x0F)
}

// Color 获取颜色
func (p Piece) Color() Color {
	return Color(p >> 4)
}

// Point 返回用于比较大小的点数:
// - RED GENERAL 最强 (14), BLACK SOLDIER 最弱 (1)
// - 同兵种红方永远比黑方高一点
func (p Piece) Point() int {
	k := int(p & 0x0F)
	if k < 1 || k > 7 {
		return 0
	}
	if p.Color() == Red {
		return 16 - 2*k
	}
	return 15 - 2*k
}

func (p Piece) String() string {
	if p == PieceInvalid {
		return "Invalid"
	}
	return fmt.Sprintf("%s_%s(%d)", p.Kind(), p.Color(), p.Point())
}

// FromName parses pieces in the "GENERAL_RED" wire format used by clients.
func FromName(name string) (Piece, error) {
	for _, p := range AllPieces {
		if fmt.Sprintf("%s_%s", p.Kind(), p.Color()) == name {
			return p, nil
		}
	}
	return PieceInvalid, fmt.Errorf("invalid piece name: %s", name)
}

// Name returns the client-facing identifier, e.g. "SOLDIER_BLACK".
func (p Piece) Name() string {
	return fmt.Sprintf("%s_%s", p.Kind(), p.Color())
}

// AllPieces 去重后的 14 种棋子（每色 7 种）
var AllPieces = []Piece{
	RedGeneral, RedAdvisor, RedElephant, RedChariot, RedHorse, RedCannon, RedSoldier,
	BlackGeneral, BlackAdvisor, BlackElephant, BlackChariot, BlackHorse, BlackCannon, BlackSoldier,
}
