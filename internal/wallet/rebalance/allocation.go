package rebalance

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// CalculateAllocations annotates balances with their share of the pool
// total. Ordering and amounts are preserved; a zero total yields zero
// percentages.
func CalculateAllocations(balances []Balance) []Balance {
	total := Total(balances)

	out := make([]Balance, len(balances))
	for i, b := range balances {
		amount := new(big.Int)
		if b.Amount != nil {
			amount.Set(b.Amount)
		}

		pct := decimal.Zero
		if total.Sign() > 0 {
			pct = decimal.NewFromBigInt(amount, 0).
				Mul(hundred).
				Div(decimal.NewFromBigInt(total, 0))
		}

		out[i] = Balance{Chain: b.Chain, Amount: amount, Percentage: pct}
	}

	return out
}

// Total sums the amounts of balances.
func Total(balances []Balance) *big.Int {
	total := new(big.Int)
	for _, b := range balances {
		if b.Amount != nil {
			total.Add(total, b.Amount)
		}
	}
	return total
}
