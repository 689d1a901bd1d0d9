package castellan

import (
	"fmt"

	"liap-tui/piece"
)

type Config struct {
	// Scoring
	WinThreshold int

	// Redeal
	WeakThreshold      int
	MaxRedeals         int  // per round; 0 = unlimited
	SimultaneousRedeal bool // all weak seats decide concurrently

	// RNG seed (0 => time-based)
	Seed int64

	// DeckOverride replaces the shuffled deck for deterministic tests.
	// It must be a valid 32-piece deck; hands are dealt from it in order.
	DeckOverride []piece.Piece
}

func (c Config) validate() error {
	if c.WinThreshold <= 0 {
		return fmt.Errorf("WinThreshold must be > 0")
	}
	if c.WeakThreshold < 0 {
		return fmt.Errorf("WeakThreshold must be >= 0")
	}
	if c.MaxRedeals < 0 {
		return fmt.Errorf("MaxRedeals must be >= 0")
	}
	if c.DeckOverride != nil {
		if len(c.DeckOverride) != piece.DeckSize {
			return fmt.Errorf("DeckOverride must hold %d pieces, got %d", piece.DeckSize, len(c.DeckOverride))
		}
		counts := make(map[piece.Piece]int, 14)
		for _, p := range c.DeckOverride {
			counts[p]++
		}
		for _, p := range piece.NewDeck() {
			counts[p]--
		}
		for p, n := range counts {
			if n != 0 {
				return fmt.Errorf("DeckOverride is not a permutation of the deck (off by %d on %s)", n, p)
			}
		}
	}
	return nil
}

// DefaultConfig 标准对局参数
func DefaultConfig() Config {
	return Config{
		WinThreshold:  50,
		WeakThreshold: 9,
	}
}
