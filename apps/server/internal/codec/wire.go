package codec

import (
	"fmt"

	"liap-tui/castellan"
)

// Player is the wire player object. Field names are frozen for frontend
// compatibility: "name", not "player_name".
type Player struct {
	PlayerID     string  `json:"player_id"` // "{room_id}_p{seat}"
	Name         string  `json:"name"`
	IsBot        bool    `json:"is_bot"`
	IsHost       bool    `json:"is_host"`
	SeatPosition int     `json:"seat_position"` // 0-indexed
	AvatarColor  *string `json:"avatar_color"`
}

// PlayerID renders the canonical player id for a seat.
func PlayerID(roomID string, seat int) string {
	return fmt.Sprintf("%s_p%d", roomID, seat)
}

// SparsePlayers renders the room's seats as a length-4 array with nulls
// in empty slots, indexed by seat position.
func SparsePlayers(snap castellan.Snapshot) [castellan.NumSeats]*Player {
	var out [castellan.NumSeats]*Player
	for seat := 0; seat < castellan.NumSeats; seat++ {
		s := snap.Seats[seat]
		if !s.Occupied() {
			continue
		}
		out[seat] = &Player{
			PlayerID:     PlayerID(snap.RoomID, seat),
			Name:         s.Name,
			IsBot:        s.Bot,
			IsHost:       s.Host,
			SeatPosition: seat,
		}
	}
	return out
}

// SeatRef carries the two slot addressing styles clients use: 1-based
// slot_id and 0-based seat_position. Either may be present.
type SeatRef struct {
	SlotID       *int `json:"slot_id,omitempty"`
	SeatPosition *int `json:"seat_position,omitempty"`
}

// Seat normalizes to a 0-based seat index.
func (r SeatRef) Seat() (int, error) {
	switch {
	case r.SeatPosition != nil:
		seat := *r.SeatPosition
		if seat < 0 || seat >= castellan.NumSeats {
			return 0, fmt.Errorf("seat_position %d out of range", seat)
		}
		return seat, nil
	case r.SlotID != nil:
		slot := *r.SlotID
		if slot < 1 || slot > castellan.NumSeats {
			return 0, fmt.Errorf("slot_id %d out of range", slot)
		}
		return slot - 1, nil
	}
	return 0, fmt.Errorf("missing slot_id or seat_position")
}

// --- inbound payloads ---

type ClientReadyPayload struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
}

type AckPayload struct {
	Version uint64 `json:"version"`
}

type SyncRequestPayload struct {
	RoomID         string `json:"room_id"`
	LastAckVersion uint64 `json:"last_ack_version"`
}

type CreateRoomPayload struct {
	PlayerName string `json:"player_name"`
}

type JoinRoomPayload struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
	SeatRef
}

type RoomIDPayload struct {
	RoomID string `json:"room_id"`
}

type AddBotPayload struct {
	Name string `json:"name"`
	SeatRef
}

type RemovePlayerPayload struct {
	SeatRef
}

type DeclarePayload struct {
	Value int `json:"value"`
}

type PlayPayload struct {
	// Pieces in "GENERAL_RED" wire format.
	Pieces []string `json:"pieces"`
}

type RedealDecisionPayload struct {
	Accept bool `json:"accept"`
}

// --- outbound bodies ---

// PhasePlayer is the per-seat entry inside phase_change frames.
type PhasePlayer struct {
	SeatID   int      `json:"seat_id"`
	Name     string   `json:"name"`
	IsBot    bool     `json:"is_bot"`
	IsHost   bool     `json:"is_host"`
	Score    int      `json:"score"`
	Captured int      `json:"captured"`
	Declared int      `json:"declared"`
	HandSize int      `json:"hand_size"`
	Hand     []string `json:"hand,omitempty"`
}

// PhaseChangeBody builds the phase_change data for one viewing seat.
// Only the viewer's entry carries hand contents; pass an out-of-range
// viewer for a fully public body.
func PhaseChangeBody(snap castellan.Snapshot, viewer int, reason string) map[string]any {
	players := make([]*PhasePlayer, 0, castellan.NumSeats)
	for seat := 0; seat < castellan.NumSeats; seat++ {
		s := snap.Seats[seat]
		if !s.Occupied() {
			players = append(players, nil)
			continue
		}
		p := &PhasePlayer{
			SeatID:   seat,
			Name:     s.Name,
			IsBot:    s.Bot,
			IsHost:   s.Host,
			Score:    s.Score,
			Captured: s.Captured,
			Declared: s.Declared,
			HandSize: s.HandSize,
		}
		if seat == viewer {
			p.Hand = pieceNames(s.Hand)
		}
		players = append(players, p)
	}
	return map[string]any{
		"phase":      snap.Phase.String(),
		"phase_data": phaseData(snap),
		"players":    players,
		"round":      snap.Round,
		"reason":     reason,
	}
}

func phaseData(snap castellan.Snapshot) map[string]any {
	data := map[string]any{}
	switch snap.Phase {
	case castellan.PhasePreparation:
		data["weak_hands"] = snap.WeakSeats
		data["current_weak_player"] = snap.CurrentWeak
		data["redeal_multiplier"] = snap.Multiplier
	case castellan.PhaseDeclaration:
		data["current_declarer"] = snap.CurrentDeclarer
		data["declared_total"] = snap.DeclaredTotal
		data["allowed_declarations"] = snap.AllowedDeclarations
	case castellan.PhaseTurn:
		data["turn_number"] = snap.TurnNumber
		data["current_player"] = snap.CurrentPlayer
		data["required_count"] = snap.RequiredCount
		data["lead_type"] = snap.LeadType.String()
		data["plays"] = playBodies(snap.Plays)
	case castellan.PhaseTurnResults:
		data["turn_number"] = snap.TurnNumber
		data["winner"] = snap.LastWinner
		data["plays"] = playBodies(snap.Plays)
	case castellan.PhaseScoring, castellan.PhaseGameOver:
		data["redeal_multiplier"] = snap.Multiplier
	}
	return data
}

func playBodies(plays []castellan.PlaySnapshot) []map[string]any {
	out := make([]map[string]any, 0, len(plays))
	for _, play := range plays {
		out = append(out, map[string]any{
			"seat":       play.Seat,
			"pieces":     pieceNames(play.Pieces),
			"play_type":  play.Type.String(),
			"play_value": play.Value,
		})
	}
	return out
}
