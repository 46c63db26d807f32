package rebalance

import "github.com/shopspring/decimal"

// CalculateDeviations compares allocations against targets by chain name.
// A chain without a target is treated as a 0% target.
func CalculateDeviations(allocations []Balance, targets []TargetAllocation) []Deviation {
	byChain := make(map[string]decimal.Decimal, len(targets))
	for _, t := range targets {
		byChain[t.Chain] = t.Percentage
	}

	out := make([]Deviation, len(allocations))
	for i, a := range allocations {
		target := byChain[a.Chain.Name] // zero value when missing
		out[i] = Deviation{
			Chain:     a.Chain,
			Current:   a.Percentage,
			Target:    target,
			Deviation: a.Percentage.Sub(target),
		}
	}

	return out
}

// NeedsRebalancing reports whether any |deviation| is strictly greater than
// threshold.
func NeedsRebalancing(deviations []Deviation, threshold decimal.Decimal) bool {
	for _, d := range deviations {
		if d.rounded().Abs().GreaterThan(threshold) {
			return true
		}
	}
	return false
}
