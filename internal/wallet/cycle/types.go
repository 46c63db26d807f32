package cycle

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github/chapool/cctp-rebalancer/internal/wallet/balance"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
	"github/chapool/cctp-rebalancer/internal/wallet/transfer"
)

var (
	// ErrCycleInProgress is returned by Trigger while another cycle runs.
	ErrCycleInProgress = errors.New("rebalance cycle already in progress")
	// ErrStopping is returned by Trigger once the service is shutting down.
	ErrStopping = errors.New("rebalance service is stopping")
	// ErrCycleFailed is returned by Run in once mode when an action failed.
	ErrCycleFailed = errors.New("rebalance cycle had failed actions")
)

// Balances reads balances for the cycle. balance.Service implements it.
type Balances interface {
	ReadBalances(ctx context.Context, chains []chain.Handle, owner common.Address) ([]balance.Reading, error)
}

// Executor runs one action. *transfer.Pipeline implements it.
type Executor interface {
	Execute(ctx context.Context, action rebalance.Action) transfer.Outcome
}

// Config is the fixed input of every cycle.
type Config struct {
	Chains    []chain.Handle
	Targets   []rebalance.TargetAllocation
	Threshold decimal.Decimal
	// Owner is the account whose balances are rebalanced.
	Owner common.Address
}

// Report summarizes one cycle.
type Report struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	Balances   []rebalance.Balance
	Deviations []rebalance.Deviation
	// Degraded lists chains whose balance read failed and were counted as zero.
	Degraded []string

	// NoAction is set when no deviation exceeded the threshold.
	NoAction bool
	Actions  []rebalance.Action
	Outcomes []transfer.Outcome
	// Failed is set when at least one action failed.
	Failed bool
}

// Duration is the wall time of the cycle.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
