package session

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

const (
	defaultReceiptPollInterval = 3 * time.Second
	defaultReceiptTimeout      = 5 * time.Minute
	defaultBaseFeeMultiplier   = 2
)

// ErrReadOnly is returned by signing operations on a session without a key.
var ErrReadOnly = errors.New("session has no signing key")

// Backend is the subset of the RPC client a session uses. *rpc.Client
// implements it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	PendingNonceAt(ctx context.Context, address common.Address) (uint64, error)
	Close()
}

// BackendFactory opens a backend for a chain.
type BackendFactory func(ctx context.Context, h chain.Handle) (Backend, error)

// Config configures sessions created by a Registry.
type Config struct {
	// ReceiptPollInterval is the delay between receipt lookups.
	ReceiptPollInterval time.Duration
	// ReceiptTimeout bounds a single WaitMined call.
	ReceiptTimeout time.Duration
	// BaseFeeMultiplier scales the latest base fee into the max fee cap.
	BaseFeeMultiplier int64
	// WatchAddress is used as the account of read-only sessions.
	WatchAddress common.Address
}

func (c Config) withDefaults() Config {
	if c.ReceiptPollInterval <= 0 {
		c.ReceiptPollInterval = defaultReceiptPollInterval
	}
	if c.ReceiptTimeout <= 0 {
		c.ReceiptTimeout = defaultReceiptTimeout
	}
	if c.BaseFeeMultiplier <= 0 {
		c.BaseFeeMultiplier = defaultBaseFeeMultiplier
	}
	return c
}
