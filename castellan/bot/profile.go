package bot

// Profile defines the tunable parameters for a RuleStrategy.
type Profile struct {
	Aggression float64 `json:"aggression"` // 0.0–1.0: declare high, lead big combinations
	Caution    float64 `json:"caution"`    // 0.0–1.0: decline risky redeals, hold strong pieces
	Randomness float64 `json:"randomness"` // 0.0–1.0: decision noise
}

// Persona defines a named bot character.
type Persona struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Tagline   string  `json:"tagline"`
	AvatarKey string  `json:"avatarKey"`
	Brain     Profile `json:"brain"`
}

// DefaultPersona is the fallback used when no registry is loaded.
var DefaultPersona = &Persona{
	ID:      "baseline",
	Name:    "Bot",
	Tagline: "plays by the book",
	Brain: Profile{
		Aggression: 0.5,
		Caution:    0.5,
		Randomness: 0.2,
	},
}
