package bot

import (
	"testing"

	"liap-tui/castellan"
	"liap-tui/piece"
)

func cautiousPersona(caution float64) *Persona {
	return &Persona{
		ID:   "test",
		Name: "TEST",
		Brain: Profile{
			Aggression: 0.5,
			Caution:    caution,
			Randomness: 0.0,
		},
	}
}

func TestRuleStrategyFollowPicksCheapestWinningSet(t *testing.T) {
	strat := NewRuleStrategy(cautiousPersona(0.0), 42)

	view := SeatView{
		Phase:         castellan.PhaseTurn,
		Seat:          1,
		Hand:          []piece.Piece{piece.RedHorse, piece.RedHorse, piece.RedSoldier, piece.RedSoldier, piece.BlackGeneral},
		RequiredCount: 2,
		LeadType:      piece.PlayPair,
		Plays: []castellan.PlaySnapshot{
			{Seat: 0, Pieces: []piece.Piece{piece.BlackCannon, piece.BlackCannon}, Type: piece.PlayPair, Value: 6},
		},
	}

	got := strat.DecidePlay(view)
	pt, pv := piece.Classify(got)
	if pt != piece.PlayPair || pv <= 6 {
		t.Fatalf("expected a winning pair, got %v (type=%v value=%d)", got, pt, pv)
	}
	// The soldier pair (value 4) cannot win, so the horse pair is the
	// cheapest winner; the general must stay in hand.
	if pv != 12 {
		t.Fatalf("expected horse pair value 12, got %d", pv)
	}
}

func TestRuleStrategyFollowDumpsLowestWhenCannotWin(t *testing.T) {
	strat := NewRuleStrategy(cautiousPersona(0.0), 7)

	view := SeatView{
		Phase:         castellan.PhaseTurn,
		Seat:          2,
		Hand:          []piece.Piece{piece.BlackAdvisor, piece.BlackSoldier, piece.RedCannon, piece.BlackHorse},
		RequiredCount: 1,
		LeadType:      piece.PlaySingle,
		Plays: []castellan.PlaySnapshot{
			{Seat: 0, Pieces: []piece.Piece{piece.RedGeneral}, Type: piece.PlaySingle, Value: 14},
		},
	}

	got := strat.DecidePlay(view)
	if len(got) != 1 || got[0] != piece.BlackSoldier {
		t.Fatalf("expected lowest dump [BlackSoldier], got %v", got)
	}
}

func TestRuleStrategyDeclarationStaysInAllowedSet(t *testing.T) {
	allowed := []int{0, 1, 2, 3, 5, 6, 7, 8} // 4 forbidden for the last declarer
	hand := []piece.Piece{
		piece.RedGeneral, piece.RedAdvisor, piece.BlackGeneral, piece.BlackAdvisor,
		piece.RedHorse, piece.RedHorse, piece.BlackSoldier, piece.BlackSoldier,
	}

	for seed := int64(0); seed < 50; seed++ {
		strat := NewRuleStrategy(cautiousPersona(0.5), seed)
		got := strat.DecideDeclaration(SeatView{
			Hand:                hand,
			AllowedDeclarations: allowed,
		})
		ok := false
		for _, d := range allowed {
			if d == got {
				ok = true
				break
			}
		}
		if !ok {
			t.Fatalf("seed %d: declaration %d not in allowed set %v", seed, got, allowed)
		}
	}
}

func TestRuleStrategyRedealDecision(t *testing.T) {
	strong := NewRuleStrategy(cautiousPersona(0.0), 1)
	if strong.DecideRedeal(SeatView{WeakHand: false, Multiplier: 1}) {
		t.Fatal("strong hand must never request a redeal")
	}
	if !strong.DecideRedeal(SeatView{WeakHand: true, Multiplier: 1}) {
		t.Fatal("fearless persona should redeal a weak hand")
	}

	// Full caution always declines once the stakes are already x4.
	timid := NewRuleStrategy(cautiousPersona(1.0), 1)
	if timid.DecideRedeal(SeatView{WeakHand: true, Multiplier: 4}) {
		t.Fatal("cautious persona should keep a weak hand at high multiplier")
	}
}

func TestRuleStrategyLeadNeverEmpty(t *testing.T) {
	strat := NewRuleStrategy(cautiousPersona(0.3), 11)
	hand := []piece.Piece{piece.RedChariot, piece.RedHorse, piece.RedCannon, piece.BlackSoldier}

	got := strat.DecidePlay(SeatView{Hand: hand, RequiredCount: 0})
	if len(got) == 0 {
		t.Fatal("leader must play at least one piece")
	}
	if pt, _ := piece.Classify(got); pt == piece.PlayInvalid {
		t.Fatalf("leader produced an invalid combination: %v", got)
	}
}

func TestPersonaRegistryLoadFromJSON(t *testing.T) {
	reg := NewRegistry()
	err := reg.LoadFromJSON([]byte(`[
		{"id":"rock","name":"Rock","tagline":"never folds","brain":{"aggression":0.2,"caution":0.9,"randomness":0.1}},
		{"id":"gambler","name":"Gambler","brain":{"aggression":0.9,"caution":0.1,"randomness":0.4}},
		{"id":"","name":"nameless"}
	]`))
	if err != nil {
		t.Fatalf("LoadFromJSON: %v", err)
	}
	if reg.Count() != 2 {
		t.Fatalf("expected 2 personas (empty id skipped), got %d", reg.Count())
	}
	rock := reg.Get("rock")
	if rock == nil || rock.Brain.Caution != 0.9 {
		t.Fatalf("rock persona not loaded correctly: %+v", rock)
	}
	if all := reg.All(); len(all) != 2 || all[0].ID != "rock" {
		t.Fatalf("All() should preserve load order, got %v", all)
	}
}
