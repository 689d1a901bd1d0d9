package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"liap-tui/castellan"
	"liap-tui/piece"
)

func TestChecksumStableAcrossKeyOrder(t *testing.T) {
	a := map[string]any{"phase": "turn", "round": 2, "players": []any{nil, "x"}}
	b := map[string]any{"players": []any{nil, "x"}, "round": 2, "phase": "turn"}

	sumA, err := Checksum(a)
	require.NoError(t, err)
	sumB, err := Checksum(b)
	require.NoError(t, err)
	require.Equal(t, sumA, sumB)
	require.Len(t, sumA, 16)
}

func TestChecksumChangesWithData(t *testing.T) {
	sumA, err := Checksum(map[string]any{"round": 1})
	require.NoError(t, err)
	sumB, err := Checksum(map[string]any{"round": 2})
	require.NoError(t, err)
	require.NotEqual(t, sumA, sumB)
}

func TestEncodeFrameShape(t *testing.T) {
	raw, err := Encode("room_update", map[string]any{"seat": 1}, 7)
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(raw, &frame))
	require.Equal(t, "room_update", frame["event"])
	require.EqualValues(t, 7, frame["version"])
	require.NotEmpty(t, frame["checksum"])
	require.Greater(t, frame["timestamp"].(float64), 0.0)

	wantSum, err := Checksum(map[string]any{"seat": 1})
	require.NoError(t, err)
	require.Equal(t, wantSum, frame["checksum"])
}

func TestDecodeInbound(t *testing.T) {
	in, err := DecodeInbound([]byte(`{"event":"declare","data":{"value":3},"request_id":"x","sequence":9}`))
	require.NoError(t, err)
	require.Equal(t, "declare", in.Event)
	require.Equal(t, "x", in.RequestID)
	require.EqualValues(t, 9, in.Sequence)

	var payload DeclarePayload
	require.NoError(t, json.Unmarshal(in.Data, &payload))
	require.Equal(t, 3, payload.Value)

	_, err = DecodeInbound([]byte(`{"data":{}}`))
	require.Error(t, err)
	_, err = DecodeInbound([]byte(`not json`))
	require.Error(t, err)
}

func TestSeatRefNormalization(t *testing.T) {
	one := 1
	three := 3
	five := 5

	seat, err := SeatRef{SlotID: &one}.Seat()
	require.NoError(t, err)
	require.Equal(t, 0, seat, "slot_id is 1-based")

	seat, err = SeatRef{SeatPosition: &three}.Seat()
	require.NoError(t, err)
	require.Equal(t, 3, seat, "seat_position is 0-based")

	// seat_position wins when both are present
	seat, err = SeatRef{SlotID: &one, SeatPosition: &three}.Seat()
	require.NoError(t, err)
	require.Equal(t, 3, seat)

	_, err = SeatRef{SlotID: &five}.Seat()
	require.Error(t, err)
	_, err = SeatRef{}.Seat()
	require.Error(t, err)
}

func testSnapshot(t *testing.T) castellan.Snapshot {
	t.Helper()
	room, err := castellan.NewRoom("r9", castellan.DefaultConfig())
	require.NoError(t, err)
	_, err = room.SeatPlayer(0, "r9_p0", "alice")
	require.NoError(t, err)
	_, err = room.SeatPlayer(2, "r9_p2", "bob")
	require.NoError(t, err)
	return room.Snapshot()
}

func TestSparsePlayersArray(t *testing.T) {
	players := SparsePlayers(testSnapshot(t))

	raw, err := json.Marshal(players)
	require.NoError(t, err)
	var arr []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &arr))
	require.Len(t, arr, 4)
	require.Equal(t, "null", string(arr[1]))
	require.Equal(t, "null", string(arr[3]))

	require.Equal(t, "r9_p0", players[0].PlayerID)
	require.Equal(t, "alice", players[0].Name)
	require.True(t, players[0].IsHost)
	require.Equal(t, 2, players[2].SeatPosition)
	require.False(t, players[2].IsHost)

	// "name", never "player_name"
	var obj map[string]any
	require.NoError(t, json.Unmarshal(arr[0], &obj))
	require.Contains(t, obj, "name")
	require.NotContains(t, obj, "player_name")
	require.Contains(t, obj, "avatar_color")
}

func TestPhaseChangeBodyHandVisibility(t *testing.T) {
	cfg := castellan.DefaultConfig()
	cfg.Seed = 5
	room, err := castellan.NewRoom("r1", cfg)
	require.NoError(t, err)
	_, err = room.SeatPlayer(0, "r1_p0", "host")
	require.NoError(t, err)
	for seat := 1; seat < castellan.NumSeats; seat++ {
		_, err = room.Apply(castellan.Action{Seat: 0, Kind: castellan.ActionAddBot, TargetSeat: seat})
		require.NoError(t, err)
	}
	_, err = room.Apply(castellan.Action{Seat: 0, Kind: castellan.ActionStartGame})
	require.NoError(t, err)

	snap := room.Snapshot()
	body := PhaseChangeBody(snap, 0, "deal")
	players := body["players"].([]*PhasePlayer)
	require.Len(t, players, 4)
	require.Len(t, players[0].Hand, piece.HandSize)
	for seat := 1; seat < castellan.NumSeats; seat++ {
		require.Empty(t, players[seat].Hand, "seat %d hand must be hidden from seat 0", seat)
		require.Equal(t, piece.HandSize, players[seat].HandSize)
	}
}

func TestParsePieces(t *testing.T) {
	pieces, err := ParsePieces([]string{"GENERAL_RED", "SOLDIER_BLACK"})
	require.NoError(t, err)
	require.Equal(t, []piece.Piece{piece.RedGeneral, piece.BlackSoldier}, pieces)

	_, err = ParsePieces([]string{"WIZARD_RED"})
	require.Error(t, err)
}
