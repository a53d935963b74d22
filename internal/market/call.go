package market

import (
	"math/rand"
	"sort"

	"github.com/talgya/cdasim/internal/agents"
)

// Call is a uniform-price batch auction. It is also the competitive
// equilibrium oracle when run on truthful bids.
type Call struct{}

// Name implements Mechanism.
func (Call) Name() string { return "call" }

// Clear matches the k strongest buyers against the k strongest sellers, where
// k is the longest prefix in which every buyer bid covers the paired ask. All
// matched agents trade at the midpoint of the marginal pair. rng is unused.
func (Call) Clear(pop []*agents.Agent, _ *rand.Rand) (Outcome, error) {
	if err := checkBids(pop); err != nil {
		return Outcome{}, err
	}

	var buys, sells []*agents.Agent
	for _, a := range pop {
		if a.IsBuyer() {
			buys = append(buys, a)
		} else {
			sells = append(sells, a)
		}
	}
	sort.Slice(buys, func(i, j int) bool { return higher(buys[i], buys[j]) })
	sort.Slice(sells, func(i, j int) bool { return higher(sells[i], sells[j]) })

	matched := 0
	for matched < len(buys) && matched < len(sells) && sells[matched].Ask() <= buys[matched].Bid {
		matched++
	}
	if matched == 0 {
		return Outcome{}, nil
	}

	price := (buys[matched-1].Bid - sells[matched-1].Bid) / 2
	for i := 0; i < matched; i++ {
		buys[i].Transact(price)
		sells[i].Transact(price)
	}

	return Outcome{Price: price, Trades: matched, Cleared: true}, nil
}
