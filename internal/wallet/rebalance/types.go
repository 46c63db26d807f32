package rebalance

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

// displayPlaces is the precision percentages are shown and compared at.
const displayPlaces = 2

var hundred = decimal.NewFromInt(100)

// Balance is the USDC balance of one chain and its share of the pool.
type Balance struct {
	Chain  chain.Handle
	Amount *big.Int // base units (USDC has 6 decimals)
	// Percentage is kept at full precision; use Display for output.
	Percentage decimal.Decimal
}

// Display returns the percentage rounded to two decimal places.
func (b Balance) Display() string {
	return b.Percentage.StringFixed(displayPlaces)
}

// TargetAllocation is the desired share of one chain in percent.
type TargetAllocation struct {
	Chain      string
	Percentage decimal.Decimal
}

// Deviation is current minus target allocation. Positive means the chain
// holds more than its target.
type Deviation struct {
	Chain     chain.Handle
	Current   decimal.Decimal
	Target    decimal.Decimal
	Deviation decimal.Decimal
}

// rounded is the deviation at comparison precision.
func (d Deviation) rounded() decimal.Decimal {
	return d.Deviation.Round(displayPlaces)
}

// Action is a point-to-point USDC transfer.
type Action struct {
	id     uuid.UUID
	from   chain.Handle
	to     chain.Handle
	amount *big.Int
}

// NewAction creates an action. The amount is copied.
func NewAction(from, to chain.Handle, amount *big.Int) Action {
	return Action{
		id:     uuid.New(),
		from:   from,
		to:     to,
		amount: new(big.Int).Set(amount),
	}
}

func (a Action) ID() uuid.UUID {
	return a.id
}

func (a Action) From() chain.Handle {
	return a.from
}

func (a Action) To() chain.Handle {
	return a.to
}

// Amount returns a copy of the transfer amount in base units.
func (a Action) Amount() *big.Int {
	return new(big.Int).Set(a.amount)
}

func (a Action) String() string {
	return fmt.Sprintf("%s -> %s amount=%s", a.from.Name, a.to.Name, a.amount)
}
