package bot

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"liap-tui/castellan"
	"liap-tui/piece"
)

// Instance represents an active bot bound to one seat in one room.
type Instance struct {
	PlayerID   string
	Seat       int
	Persona    *Persona
	Strategy   Strategy
	ThinkDelay time.Duration
	// Takeover marks a bot standing in for a disconnected human. It is
	// released when the human reconnects.
	Takeover bool
}

// Manager manages bot lifecycle and decision-making across rooms.
type Manager struct {
	registry  *PersonaRegistry
	instances map[string]*Instance // keyed by PlayerID
	mu        sync.RWMutex
	rng       *rand.Rand
}

// NewManager creates a bot manager with the given persona registry.
// Registry may be empty; spawns then use DefaultPersona.
func NewManager(registry *PersonaRegistry) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		registry:  registry,
		instances: make(map[string]*Instance),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Manager) Registry() *PersonaRegistry { return m.registry }

// Spawn binds a brain to the given playerID/seat. personaID may be empty
// to pick a random registered persona.
func (m *Manager) Spawn(playerID string, seat int, personaID string, takeover bool) *Instance {
	m.mu.Lock()
	defer m.mu.Unlock()

	persona := m.registry.Get(personaID)
	if persona == nil {
		if all := m.registry.All(); len(all) > 0 {
			persona = all[m.rng.Intn(len(all))]
		} else {
			persona = DefaultPersona
		}
	}
	seed := m.rng.Int63()

	// Think delay: 1–3 seconds base plus jitter, so bot pacing feels
	// natural when several act in a row.
	baseMs := 1000 + int(persona.Brain.Randomness*1500)
	jitterMs := m.rng.Intn(1000)

	inst := &Instance{
		PlayerID:   playerID,
		Seat:       seat,
		Persona:    persona,
		Strategy:   NewRuleStrategy(persona, seed),
		ThinkDelay: time.Duration(baseMs+jitterMs) * time.Millisecond,
		Takeover:   takeover,
	}
	m.instances[playerID] = inst
	log.Printf("[Bot] Spawned %s (%s) at seat %d takeover=%v", persona.Name, playerID, seat, takeover)
	return inst
}

// Despawn removes a bot from tracking.
func (m *Manager) Despawn(playerID string) {
	m.mu.Lock()
	inst := m.instances[playerID]
	delete(m.instances, playerID)
	m.mu.Unlock()

	if inst != nil {
		log.Printf("[Bot] Despawned %s (%s)", inst.Persona.Name, playerID)
	}
}

// Get returns the bot instance for a playerID, or nil.
func (m *Manager) Get(playerID string) *Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[playerID]
}

// IsBot checks whether a playerID belongs to an active bot.
func (m *Manager) IsBot(playerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[playerID] != nil
}

// ThinkDelay returns the simulated thinking delay for a bot.
func (m *Manager) ThinkDelay(playerID string) time.Duration {
	m.mu.RLock()
	inst := m.instances[playerID]
	m.mu.RUnlock()
	if inst == nil {
		return time.Second
	}
	return inst.ThinkDelay
}

// Decide produces the bot's action for the given snapshot, or nil when
// the phase needs no decision from this seat.
func (m *Manager) Decide(playerID string, snap castellan.Snapshot, weakThreshold int) *castellan.Action {
	m.mu.RLock()
	inst := m.instances[playerID]
	m.mu.RUnlock()
	if inst == nil {
		log.Printf("[Bot] Decide called for unknown player %s", playerID)
		return nil
	}

	view := ViewFor(snap, inst.Seat, weakThreshold)
	switch snap.Phase {
	case castellan.PhasePreparation:
		accept := inst.Strategy.DecideRedeal(view)
		kind := castellan.ActionDeclineRedeal
		if accept {
			kind = castellan.ActionAcceptRedeal
		}
		log.Printf("[Bot] %s redeal decision: accept=%v", inst.Persona.Name, accept)
		return &castellan.Action{Seat: inst.Seat, Kind: kind}
	case castellan.PhaseDeclaration:
		value := inst.Strategy.DecideDeclaration(view)
		log.Printf("[Bot] %s declares %d", inst.Persona.Name, value)
		return &castellan.Action{Seat: inst.Seat, Kind: castellan.ActionDeclare, Value: value}
	case castellan.PhaseTurn:
		pieces := inst.Strategy.DecidePlay(view)
		log.Printf("[Bot] %s plays %d pieces", inst.Persona.Name, len(pieces))
		return &castellan.Action{Seat: inst.Seat, Kind: castellan.ActionPlay, Pieces: pieces}
	case castellan.PhaseTurnResults:
		return &castellan.Action{Seat: inst.Seat, Kind: castellan.ActionPlayerReady}
	}
	return nil
}

// FallbackPlay returns the lowest legal dump for a seat. The room actor
// uses it when a strategy decision is rejected by the engine, so a bot
// can never wedge a turn.
func FallbackPlay(snap castellan.Snapshot, seat int) []piece.Piece {
	hand := snap.Seats[seat].Hand
	k := snap.RequiredCount
	if k <= 0 {
		k = 1
	}
	if len(hand) < k {
		return hand
	}
	return lowestPieces(hand, k)
}
