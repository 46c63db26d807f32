package test

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github/chapool/cctp-rebalancer/internal/wallet/balance"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

// StaticBalances serves fixed balances by chain name. Chains listed in
// Failed return an error reading. Unknown chains read as zero.
type StaticBalances struct {
	mu      sync.Mutex
	Amounts map[string]*big.Int
	Failed  map[string]bool
	// Err fails ReadBalances as a whole.
	Err error
}

func NewStaticBalances(amounts map[string]*big.Int) *StaticBalances {
	return &StaticBalances{Amounts: amounts, Failed: map[string]bool{}}
}

// Set replaces the balance of one chain.
func (b *StaticBalances) Set(name string, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Amounts[name] = amount
}

func (b *StaticBalances) ReadBalance(_ context.Context, h chain.Handle, _ common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Failed[h.Name] {
		return nil, errors.Errorf("balance read failed for %s", h.Name)
	}
	if amount, ok := b.Amounts[h.Name]; ok {
		return new(big.Int).Set(amount), nil
	}
	return new(big.Int), nil
}

func (b *StaticBalances) ReadBalances(ctx context.Context, chains []chain.Handle, owner common.Address) ([]balance.Reading, error) {
	if b.Err != nil {
		return nil, b.Err
	}

	out := make([]balance.Reading, len(chains))
	for i, h := range chains {
		amount, err := b.ReadBalance(ctx, h, owner)
		if err != nil {
			amount = new(big.Int)
		}
		out[i] = balance.Reading{Chain: h, Amount: amount, Err: err}
	}
	return out, nil
}

// USDC converts whole USDC to base units.
func USDC(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}
