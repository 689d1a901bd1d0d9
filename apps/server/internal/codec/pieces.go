package codec

import (
	"fmt"

	"liap-tui/piece"
)

func pieceNames(pieces []piece.Piece) []string {
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, p.Name())
	}
	return out
}

// ParsePieces converts wire piece names ("GENERAL_RED") to engine values.
func ParsePieces(names []string) ([]piece.Piece, error) {
	out := make([]piece.Piece, 0, len(names))
	for _, name := range names {
		p, err := piece.FromName(name)
		if err != nil {
			return nil, fmt.Errorf("piece %q: %w", name, err)
		}
		out = append(out, p)
	}
	return out, nil
}
