package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
)

// ErrInvalidTargets is wrapped by every target parsing error.
var ErrInvalidTargets = errors.New("invalid target allocations")

var (
	hundred       = decimal.NewFromInt(100)
	sumTolerance  = decimal.NewFromFloat(0.01)
	errCount      = errors.New("value count mismatch")
	errSum        = errors.New("does not sum to 100%")
	errNotNumeric = errors.New("not a number")
	errNegative   = errors.New("negative percentage")
)

// ParseTargets parses a comma separated percentage list such as "40,30,30",
// assigning values to chains by position. An empty string splits 100% evenly,
// with the rounding remainder given to the first chain.
func ParseTargets(s string, chains []chain.Handle) ([]rebalance.TargetAllocation, error) {
	if strings.TrimSpace(s) == "" {
		return evenTargets(chains), nil
	}

	values := strings.Split(s, ",")
	if len(values) != len(chains) {
		return nil, errors.Wrapf(ErrInvalidTargets, "%v: %d values for %d chains", errCount, len(values), len(chains))
	}

	out := make([]rebalance.TargetAllocation, len(chains))
	sum := decimal.Zero

	for i, raw := range values {
		raw = strings.TrimSpace(raw)

		pct, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidTargets, "%v: %q for %s", errNotNumeric, raw, chains[i].Name)
		}
		if pct.IsNegative() {
			return nil, errors.Wrapf(ErrInvalidTargets, "%v: %s for %s", errNegative, raw, chains[i].Name)
		}

		out[i] = rebalance.TargetAllocation{Chain: chains[i].Name, Percentage: pct}
		sum = sum.Add(pct)
	}

	if sum.Sub(hundred).Abs().GreaterThan(sumTolerance) {
		return nil, errors.Wrapf(ErrInvalidTargets, "%v: got %s", errSum, sum.String())
	}

	return out, nil
}

func evenTargets(chains []chain.Handle) []rebalance.TargetAllocation {
	if len(chains) == 0 {
		return nil
	}

	n := decimal.NewFromInt(int64(len(chains)))
	share := hundred.Div(n).Truncate(2)
	first := hundred.Sub(share.Mul(n.Sub(decimal.NewFromInt(1))))

	out := make([]rebalance.TargetAllocation, len(chains))
	for i, h := range chains {
		pct := share
		if i == 0 {
			pct = first
		}
		out[i] = rebalance.TargetAllocation{Chain: h.Name, Percentage: pct}
	}
	return out
}
