// Package engine runs simulation rounds over a trader population and
// accumulates their welfare features.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/cdasim/internal/agents"
	"github.com/talgya/cdasim/internal/market"
)

// Player is one agent's reported outcome for a round.
type Player struct {
	Role     string  `json:"role"`
	Strategy string  `json:"strategy"`
	Payoff   float64 `json:"payoff"`
}

// Observation is the full record of one round.
type Observation struct {
	Round    int      `json:"-"`
	Players  []Player `json:"players"`
	Features Features `json:"features"`
}

// Simulation holds one spec's population and runs its rounds sequentially.
// Rounds mutate the shared population, so a Simulation must not be used from
// more than one goroutine.
type Simulation struct {
	ID        uuid.UUID
	Agents    []*agents.Agent
	Mechanism market.Mechanism
	Seed      int64
	Rounds    int // Rounds completed

	Stats Summary

	rng *rand.Rand
}

// NewSimulation creates a Simulation with its own RNG seeded from seed.
func NewSimulation(pop []*agents.Agent, mech market.Mechanism, seed int64) *Simulation {
	return &Simulation{
		ID:        uuid.New(),
		Agents:    pop,
		Mechanism: mech,
		Seed:      seed,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Round runs one round and returns its observation.
func (s *Simulation) Round() (Observation, error) {
	f, err := RunRound(s.Agents, s.Mechanism, s.rng)
	if err != nil {
		return Observation{}, fmt.Errorf("round %d: %w", s.Rounds, err)
	}

	obs := Observation{
		Round:    s.Rounds,
		Players:  make([]Player, len(s.Agents)),
		Features: f,
	}
	for i, a := range s.Agents {
		obs.Players[i] = Player{
			Role:     a.Role.String(),
			Strategy: a.Strategy,
			Payoff:   a.Utility,
		}
	}

	s.Rounds++
	s.Stats.Add(f)

	slog.Debug("round complete",
		"sim", s.ID,
		"round", obs.Round,
		"surplus", f.Surplus,
		"ce_surplus", f.CESurplus,
		"trades", f.Trades,
	)
	return obs, nil
}

// Run runs n rounds, handing each observation to emit in order. It stops at
// the first error from a round or from emit.
func (s *Simulation) Run(n int, emit func(Observation) error) error {
	for i := 0; i < n; i++ {
		obs, err := s.Round()
		if err != nil {
			return err
		}
		if err := emit(obs); err != nil {
			return fmt.Errorf("emit round %d: %w", obs.Round, err)
		}
	}
	return nil
}
