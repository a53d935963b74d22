// Round resolution: benchmark clearing, strategic clearing, and the welfare
// decomposition between them.
package engine

import (
	"fmt"
	"math/rand"

	"github.com/talgya/cdasim/internal/agents"
	"github.com/talgya/cdasim/internal/market"
)

// Features are the aggregate welfare metrics of one round.
type Features struct {
	Surplus   float64  `json:"surplus"`
	CESurplus float64  `json:"ce_surplus"`
	IMSurplus float64  `json:"im_surplus"` // Lost to missed efficient trades
	EMSurplus float64  `json:"em_surplus"` // Lost to trades the benchmark would not make
	CEPrice   *float64 `json:"ce_price"`   // nil when the benchmark had no trades

	// Trade counts are not part of the observation record.
	CETrades int `json:"-"`
	Trades   int `json:"-"`
}

// RunRound runs one full round on pop:
//
//	resample → truthful call clearing → shade → clear with mech → decompose
//
// The order matters: the benchmark allocation is captured in each agent's
// CETraded before shading resets the trade outcome. A round that fails leaves
// the population in an unspecified round state; nothing from it should be
// reported.
func RunRound(pop []*agents.Agent, mech market.Mechanism, rng *rand.Rand) (Features, error) {
	for _, a := range pop {
		a.Resample(rng)
	}

	ce, err := market.Call{}.Clear(pop, rng)
	if err != nil {
		return Features{}, fmt.Errorf("benchmark clearing: %w", err)
	}
	ceSurplus := 0.0
	for _, a := range pop {
		a.CETraded = a.Traded
		ceSurplus += a.Utility
	}

	for _, a := range pop {
		a.Shade()
	}

	out, err := mech.Clear(pop, rng)
	if err != nil {
		return Features{}, fmt.Errorf("%s clearing: %w", mech.Name(), err)
	}
	surplus := 0.0
	for _, a := range pop {
		surplus += a.Utility
	}

	f := Features{
		Surplus:   surplus,
		CESurplus: ceSurplus,
		CEPrice:   ce.PricePtr(),
		CETrades:  ce.Trades,
		Trades:    out.Trades,
	}
	f.IMSurplus, f.EMSurplus = decompose(pop, ce, ceSurplus, surplus)
	return f, nil
}

// decompose attributes the gap between benchmark and actual surplus. With a
// benchmark price, each misallocated agent is valued against that price.
// Without one the whole gap is reported as extramarginal.
func decompose(pop []*agents.Agent, ce market.Outcome, ceSurplus, surplus float64) (im, em float64) {
	if !ce.Cleared {
		return 0, ceSurplus - surplus
	}
	for _, a := range pop {
		switch {
		case a.Traded && !a.CETraded:
			em += a.Sign() * (ce.Price - a.Value)
		case !a.Traded && a.CETraded:
			im += a.Sign() * (a.Value - ce.Price)
		}
	}
	return im, em
}
