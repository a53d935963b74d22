// Package market provides the two clearing mechanisms: a uniform-price call
// market and a continuous double auction.
package market

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/talgya/cdasim/internal/agents"
)

// ErrInvalidBid is returned when a NaN or infinite bid reaches clearing.
// No agent is mutated when it is returned.
var ErrInvalidBid = errors.New("invalid bid")

// Outcome is the result of one clearing. Price is meaningful only when
// Cleared is true: the uniform price for a call market, the mean trade price
// for a CDA.
type Outcome struct {
	Price   float64
	Trades  int
	Cleared bool
}

// PricePtr returns the price, or nil when nothing traded.
func (o Outcome) PricePtr() *float64 {
	if !o.Cleared {
		return nil
	}
	p := o.Price
	return &p
}

// Mechanism clears a population whose bids are already set.
type Mechanism interface {
	Name() string
	Clear(pop []*agents.Agent, rng *rand.Rand) (Outcome, error)
}

// ForConfig returns the CDA when cda is true, else the call market.
func ForConfig(cda bool) Mechanism {
	if cda {
		return CDA{}
	}
	return Call{}
}

// checkBids rejects populations that have no total order by bid.
func checkBids(pop []*agents.Agent) error {
	for i, a := range pop {
		if math.IsNaN(a.Bid) || math.IsInf(a.Bid, 0) {
			return fmt.Errorf("%w: agent %d (%s %s) bid %v", ErrInvalidBid, i, a.Role, a.Strategy, a.Bid)
		}
	}
	return nil
}

// higher orders two agents by bid, strongest first.
func higher(a, b *agents.Agent) bool {
	return a.Bid > b.Bid
}
