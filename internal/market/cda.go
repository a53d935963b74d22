package market

import (
	"container/heap"
	"math/rand"

	"github.com/talgya/cdasim/internal/agents"
)

// CDA is a continuous double auction. Agents arrive in a random order and
// trade immediately against the best resting order on the other side.
type CDA struct{}

// Name implements Mechanism.
func (CDA) Name() string { return "cda" }

// book is a max-heap of population indices ordered by bid.
type book struct {
	pop []*agents.Agent
	idx []int
}

func (b *book) Len() int           { return len(b.idx) }
func (b *book) Less(i, j int) bool { return higher(b.pop[b.idx[i]], b.pop[b.idx[j]]) }
func (b *book) Swap(i, j int)      { b.idx[i], b.idx[j] = b.idx[j], b.idx[i] }
func (b *book) Push(x any)         { b.idx = append(b.idx, x.(int)) }
func (b *book) Pop() any {
	n := len(b.idx)
	i := b.idx[n-1]
	b.idx = b.idx[:n-1]
	return i
}

func (b *book) top() *agents.Agent {
	if len(b.idx) == 0 {
		return nil
	}
	return b.pop[b.idx[0]]
}

// Clear processes the population in a shuffled order drawn from rng. Each
// trade executes at the resting order's price: the seller's ask when a buyer
// arrives, the buyer's bid when a seller arrives. The outcome price is the
// mean over all trades.
func (CDA) Clear(pop []*agents.Agent, rng *rand.Rand) (Outcome, error) {
	if err := checkBids(pop); err != nil {
		return Outcome{}, err
	}

	buys := &book{pop: pop}
	sells := &book{pop: pop}

	var out Outcome
	trade := func(buyer, seller *agents.Agent, price float64) {
		buyer.Transact(price)
		seller.Transact(price)
		out.Trades++
		out.Price += (price - out.Price) / float64(out.Trades)
	}

	for _, i := range rng.Perm(len(pop)) {
		a := pop[i]
		if a.IsBuyer() {
			if s := sells.top(); s != nil && s.Ask() <= a.Bid {
				heap.Pop(sells)
				trade(a, s, s.Ask())
			} else {
				heap.Push(buys, i)
			}
		} else {
			if b := buys.top(); b != nil && a.Ask() <= b.Bid {
				heap.Pop(buys)
				trade(b, a, b.Bid)
			} else {
				heap.Push(sells, i)
			}
		}
	}

	out.Cleared = out.Trades > 0
	return out, nil
}
