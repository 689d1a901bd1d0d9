package castellan

import "testing"

func TestRoundScore(t *testing.T) {
	cases := []struct {
		declared, actual, want int
	}{
		{0, 0, 3},   // 宣零命中
		{0, 2, -2},  // 破零
		{0, 8, -8},
		{3, 3, 8},   // 宣数命中: declared + 5
		{1, 1, 6},
		{8, 8, 13},
		{3, 1, -2},  // 偏差
		{2, 5, -3},
		{5, 0, -5},
	}
	for _, tc := range cases {
		if got := RoundScore(tc.declared, tc.actual); got != tc.want {
			t.Errorf("RoundScore(%d, %d) = %d, want %d", tc.declared, tc.actual, got, tc.want)
		}
	}
}

func TestZeroStreakTracksConsecutiveZeroDeclares(t *testing.T) {
	r := newStartedRoom(t, Config{WinThreshold: 1000, WeakThreshold: 9, Seed: 1, DeckOverride: sweepDeck()})

	for _, seat := range []int{1, 2, 3} {
		if _, err := r.Apply(Action{Seat: seat, Kind: ActionDeclineRedeal}); err != nil {
			t.Fatalf("decline err: %v", err)
		}
	}
	for seat, value := range []int{8, 0, 0, 1} {
		if _, err := r.Apply(Action{Seat: seat, Kind: ActionDeclare, Value: value}); err != nil {
			t.Fatalf("declare err: %v", err)
		}
	}
	for turn := 1; turn <= PilesPerRound; turn++ {
		for i := 0; i < NumSeats; i++ {
			snap := r.Snapshot()
			hand := snap.Seats[snap.CurrentPlayer].Hand
			if _, err := r.Apply(Action{Seat: snap.CurrentPlayer, Kind: ActionPlay, Pieces: hand[:1]}); err != nil {
				t.Fatalf("play err: %v", err)
			}
		}
		if _, err := r.Apply(Action{Seat: 0, Kind: ActionPlayerReady}); err != nil {
			t.Fatalf("player_ready err: %v", err)
		}
	}

	snap := r.Snapshot()
	if snap.Seats[1].ZeroStreak != 1 || snap.Seats[2].ZeroStreak != 1 {
		t.Fatalf("zero streaks = %d/%d, want 1/1",
			snap.Seats[1].ZeroStreak, snap.Seats[2].ZeroStreak)
	}
	if snap.Seats[0].ZeroStreak != 0 || snap.Seats[3].ZeroStreak != 0 {
		t.Fatalf("nonzero declarers must reset the streak, got %d/%d",
			snap.Seats[0].ZeroStreak, snap.Seats[3].ZeroStreak)
	}
}
