// Package agents provides the trader data model, the bidding model, and
// population construction from strategy labels.
package agents

import (
	"math"
	"math/rand"
)

// Role is a trader's side of the market.
type Role uint8

const (
	RoleBuyer  Role = 0
	RoleSeller Role = 1
)

// String returns the plural role name used in observation output.
func (r Role) String() string {
	if r == RoleBuyer {
		return "buyers"
	}
	return "sellers"
}

// Sign is +1 for buyers and -1 for sellers. Payoffs and bids are both
// expressed through it so the two sides share comparison logic.
func (r Role) Sign() float64 {
	if r == RoleBuyer {
		return 1
	}
	return -1
}

// Agent is one trader. It is created once per spec and reused every round.
type Agent struct {
	Role     Role
	Strategy string // Reporting only
	Style    Style
	Shading  float64

	// Round-scoped state.
	Value    float64 // Private valuation in [0, 1)
	Bid      float64 // Signed: sellers bid the negative of their ask
	Utility  float64
	Traded   bool
	CETraded bool // Traded in the truthful benchmark clearing
}

// New creates an agent with zeroed round state.
func New(role Role, strategy string, style Style, shading float64) *Agent {
	return &Agent{
		Role:     role,
		Strategy: strategy,
		Style:    style,
		Shading:  shading,
	}
}

// IsBuyer reports whether the agent is on the buy side.
func (a *Agent) IsBuyer() bool {
	return a.Role == RoleBuyer
}

// Sign returns the agent's role sign.
func (a *Agent) Sign() float64 {
	return a.Role.Sign()
}

// Ask returns the price a seller is willing to accept.
func (a *Agent) Ask() float64 {
	return -a.Bid
}

// Transact records a trade at price.
func (a *Agent) Transact(price float64) {
	a.Utility = (a.Value - price) * a.Sign()
	a.Traded = true
}

func (a *Agent) reset() {
	a.Utility = 0
	a.Traded = false
}

// Resample draws a fresh value from rng and sets a truthful bid.
// Any previous trade outcome is discarded.
func (a *Agent) Resample(rng *rand.Rand) {
	a.Value = rng.Float64()
	a.Bid = a.Value * a.Sign()
	a.reset()
}

// Shade replaces the bid with the strategic bid for the agent's style and
// discards any previous trade outcome.
func (a *Agent) Shade() {
	a.Bid = ShadedBid(a.Role, a.Style, a.Shading, a.Value)
	a.reset()
}

// ShadedBid computes the signed bid for a valuation. For every style and
// shading in [0, 1] the result never exceeds sign*value.
func ShadedBid(role Role, style Style, shading, value float64) float64 {
	sign := role.Sign()
	switch {
	case style == StyleStandard, style == StyleCorrect && role == RoleBuyer:
		return value * (sign - shading)
	case style == StyleCorrect:
		return (value-1)*shading - value
	case style == StyleExponential:
		return sign * value * math.Exp(-sign*shading)
	case style == StyleShift:
		return sign*value - shading
	default:
		return math.NaN()
	}
}
