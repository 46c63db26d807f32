package rebalance

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

type workingBalance struct {
	deviation Deviation
	balance   *big.Int
	target    *big.Int
}

// Plan returns the ordered transfers that bring every chain whose deviation
// exceeds threshold back toward its target. Chains within ±threshold are
// never touched and no chain is moved past its target amount. balances is
// not modified.
func Plan(balances []Balance, targets []TargetAllocation, threshold decimal.Decimal) []Action {
	allocations := CalculateAllocations(balances)

	total := Total(allocations)
	if total.Sign() == 0 {
		return nil
	}

	deviations := CalculateDeviations(allocations, targets)
	totalDec := decimal.NewFromBigInt(total, 0)

	over := make([]*workingBalance, 0, len(deviations))
	under := make([]*workingBalance, 0, len(deviations))

	for i, d := range deviations {
		entry := &workingBalance{
			deviation: d,
			balance:   new(big.Int).Set(allocations[i].Amount),
			target:    totalDec.Mul(d.Target).Div(hundred).Floor().BigInt(),
		}

		switch {
		case d.rounded().GreaterThan(threshold):
			over = append(over, entry)
		case d.rounded().LessThan(threshold.Neg()):
			under = append(under, entry)
		}
	}

	if len(over) == 0 || len(under) == 0 {
		return nil
	}

	sort.SliceStable(over, func(i, j int) bool {
		return over[i].deviation.Deviation.GreaterThan(over[j].deviation.Deviation)
	})
	sort.SliceStable(under, func(i, j int) bool {
		return under[i].deviation.Deviation.LessThan(under[j].deviation.Deviation)
	})

	actions := make([]Action, 0, len(over)+len(under))

	oi, ui := 0, 0
	for oi < len(over) && ui < len(under) {
		donor := over[oi]
		receiver := under[ui]

		excess := new(big.Int).Sub(donor.balance, donor.target)
		if excess.Sign() <= 0 {
			oi++
			continue
		}

		deficit := new(big.Int).Sub(receiver.target, receiver.balance)
		if deficit.Sign() <= 0 {
			ui++
			continue
		}

		amount := excess
		if deficit.Cmp(excess) < 0 {
			amount = deficit
		}

		actions = append(actions, NewAction(donor.deviation.Chain, receiver.deviation.Chain, amount))

		donor.balance.Sub(donor.balance, amount)
		receiver.balance.Add(receiver.balance, amount)

		switch excess.Cmp(deficit) {
		case 0:
			oi++
			ui++
		case 1:
			ui++
		default:
			oi++
		}
	}

	return actions
}

// Project applies actions to a copy of balances and recomputes allocations.
func Project(balances []Balance, actions []Action) []Balance {
	out := CalculateAllocations(balances)

	index := make(map[string]int, len(out))
	for i, b := range out {
		index[b.Chain.Name] = i
	}

	for _, a := range actions {
		amount := a.Amount()
		if i, ok := index[a.From().Name]; ok {
			out[i].Amount.Sub(out[i].Amount, amount)
		}
		if i, ok := index[a.To().Name]; ok {
			out[i].Amount.Add(out[i].Amount, amount)
		}
	}

	return CalculateAllocations(out)
}
