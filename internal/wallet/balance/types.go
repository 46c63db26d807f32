package balance

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

// FailurePolicy decides what a failed read does to the cycle.
type FailurePolicy string

const (
	// FailurePolicyZero substitutes a zero balance and logs a warning.
	FailurePolicyZero FailurePolicy = "zero"
	// FailurePolicyAbort fails the whole read when any chain fails.
	FailurePolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy parses a policy name.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case FailurePolicyZero, FailurePolicyAbort:
		return FailurePolicy(s), nil
	case "":
		return FailurePolicyZero, nil
	default:
		return "", errors.Errorf("unknown balance failure policy %q", s)
	}
}

var (
	// ErrAllReadsFailed is returned when no chain balance could be read.
	ErrAllReadsFailed = errors.New("balance read failed for every chain")
	// ErrReadFailed is returned under FailurePolicyAbort when any read fails.
	ErrReadFailed = errors.New("balance read failed")
)

// Reading is the USDC balance of one chain.
type Reading struct {
	Chain  chain.Handle
	Amount *big.Int
	// Err is set when the read failed and Amount was substituted with zero.
	Err error
}

// Reader performs read-only calls on one chain.
type Reader interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Readers resolves a Reader for a chain.
type Readers interface {
	Reader(ctx context.Context, h chain.Handle) (Reader, error)
}

// ReadersFunc adapts a function to Readers.
type ReadersFunc func(ctx context.Context, h chain.Handle) (Reader, error)

func (f ReadersFunc) Reader(ctx context.Context, h chain.Handle) (Reader, error) {
	return f(ctx, h)
}

// Service reads token balances across chains.
type Service interface {
	// ReadBalance reads the USDC balance of owner on one chain.
	ReadBalance(ctx context.Context, h chain.Handle, owner common.Address) (*big.Int, error)

	// ReadBalances reads the USDC balance of owner on every chain concurrently.
	// The result keeps the order of chains.
	ReadBalances(ctx context.Context, chains []chain.Handle, owner common.Address) ([]Reading, error)
}
