package session

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/signer"
)

// Session is the cached connection and signing identity for one chain.
type Session struct {
	handle  chain.Handle
	backend Backend
	signer  signer.Service // nil for read-only sessions
	address common.Address
	cfg     Config

	// mu serializes nonce reservation so two signs never share a nonce.
	mu sync.Mutex
}

func newSession(h chain.Handle, backend Backend, sig signer.Service, cfg Config) *Session {
	address := cfg.WatchAddress
	if sig != nil {
		address = sig.Address()
	}

	return &Session{
		handle:  h,
		backend: backend,
		signer:  sig,
		address: address,
		cfg:     cfg,
	}
}

// Chain returns the chain this session is bound to.
func (s *Session) Chain() chain.Handle {
	return s.handle
}

// Address returns the account of this session.
func (s *Session) Address() common.Address {
	return s.address
}

// Call executes a read-only contract call from the session account.
func (s *Session) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return s.backend.CallContract(ctx, ethereum.CallMsg{From: s.address, To: &to, Data: data})
}

// EstimateGas estimates gas for calling to with data from the session account.
func (s *Session) EstimateGas(ctx context.Context, to common.Address, data []byte) (uint64, error) {
	return s.backend.EstimateGas(ctx, ethereum.CallMsg{From: s.address, To: &to, Data: data})
}

// SignTx builds and signs an EIP-1559 contract call using the pending nonce.
// The fee cap is BaseFeeMultiplier × latest base fee + suggested tip.
func (s *Session) SignTx(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Transaction, error) {
	if s.signer == nil {
		return nil, ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tipCap, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to suggest gas tip cap")
	}

	header, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch latest block header")
	}

	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}

	maxFee := new(big.Int).Add(
		new(big.Int).Mul(baseFee, big.NewInt(s.cfg.BaseFeeMultiplier)),
		tipCap,
	)

	nonce, err := s.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch pending nonce")
	}

	signResp, err := s.signer.SignEVMTransaction(ctx, &signer.SignEVMRequest{
		ChainID:              s.handle.ChainID,
		To:                   to.Hex(),
		Value:                "0",
		GasLimit:             gasLimit,
		MaxFeePerGas:         maxFee.String(),
		MaxPriorityFeePerGas: tipCap.String(),
		Nonce:                nonce,
		Data:                 data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	txObj := new(types.Transaction)
	if err := txObj.UnmarshalBinary(signResp.RawTransaction); err != nil {
		return nil, errors.Wrap(err, "failed to decode signed transaction")
	}

	return txObj, nil
}

// Broadcast sends a signed transaction. Re-sending a transaction the node
// already holds is not an error, so a broadcast can be retried safely.
func (s *Session) Broadcast(ctx context.Context, tx *types.Transaction) error {
	err := s.backend.SendTransaction(ctx, tx)
	if err == nil {
		return nil
	}

	if strings.Contains(strings.ToLower(err.Error()), "already known") {
		log.Debug().
			Str("chain", s.handle.Name).
			Str("tx_hash", tx.Hash().Hex()).
			Msg("Session: transaction already known to node")
		return nil
	}

	return errors.Wrap(err, "failed to broadcast transaction")
}

// Receipt returns the receipt of a mined transaction.
func (s *Session) Receipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return s.backend.TransactionReceipt(ctx, txHash)
}

// WaitMined polls for the receipt of txHash until it is mined, ctx is done or
// ReceiptTimeout elapses.
func (s *Session) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	localCtx, cancel := context.WithTimeout(ctx, s.cfg.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(localCtx, txHash)
		if err == nil {
			return receipt, nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, errors.Wrap(err, "timed out waiting for receipt")
		}

		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-localCtx.Done():
			return nil, errors.Wrap(localCtx.Err(), "timed out waiting for receipt")
		case <-ticker.C:
			continue
		}
	}
}

// Close releases the backend.
func (s *Session) Close() {
	s.backend.Close()
}
