package test

import (
	"bytes"
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github/chapool/cctp-rebalancer/internal/wallet/cctp"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

var (
	selectorAllowance  = mustSelector(cctp.PackAllowance(common.Address{}, common.Address{}))
	selectorBalanceOf  = mustSelector(cctp.PackBalanceOf(common.Address{}))
	selectorUsedNonces = mustSelector(cctp.PackUsedNonces([32]byte{}))
)

func mustSelector(data []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return data[:4]
}

// FakeSession is an in-memory chain session. Scripted error slices are
// consumed one entry per call; a nil entry means success.
type FakeSession struct {
	Handle  chain.Handle
	Account common.Address

	Balance   *big.Int
	Allowance *big.Int
	UsedNonce bool

	Estimate      uint64
	CallErrs      []error
	EstimateErrs  []error
	SignErrs      []error
	BroadcastErrs []error
	WaitErrs      []error

	// ReceiptFor builds the receipt of a mined transaction. The default is a
	// successful receipt without logs.
	ReceiptFor func(tx *types.Transaction) *types.Receipt

	// MineOnBroadcastError records a receipt for transactions whose broadcast
	// failed, as if the node had accepted them anyway.
	MineOnBroadcastError bool

	// Receipts are returned by Receipt for previously mined transactions.
	Receipts map[common.Hash]*types.Receipt

	mu         sync.Mutex
	nonce      uint64
	Signed     []*types.Transaction
	Broadcasts []*types.Transaction
	GasLimits  []uint64
}

// NewFakeSession creates a session for h with a generous allowance.
func NewFakeSession(h chain.Handle, account common.Address) *FakeSession {
	return &FakeSession{
		Handle:    h,
		Account:   account,
		Balance:   big.NewInt(0),
		Allowance: big.NewInt(0),
		Estimate:  100_000,
		Receipts:  make(map[common.Hash]*types.Receipt),
	}
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (s *FakeSession) Chain() chain.Handle {
	return s.Handle
}

func (s *FakeSession) Address() common.Address {
	return s.Account
}

func (s *FakeSession) Call(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := pop(&s.CallErrs); err != nil {
		return nil, err
	}

	switch {
	case bytes.HasPrefix(data, selectorAllowance):
		return math.U256Bytes(new(big.Int).Set(s.Allowance)), nil
	case bytes.HasPrefix(data, selectorBalanceOf):
		return math.U256Bytes(new(big.Int).Set(s.Balance)), nil
	case bytes.HasPrefix(data, selectorUsedNonces):
		if s.UsedNonce {
			return math.U256Bytes(big.NewInt(1)), nil
		}
		return make([]byte, 32), nil
	default:
		return nil, errors.Errorf("fake session: unexpected call %x", data)
	}
}

func (s *FakeSession) EstimateGas(context.Context, common.Address, []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := pop(&s.EstimateErrs); err != nil {
		return 0, err
	}
	return s.Estimate, nil
}

func (s *FakeSession) SignTx(_ context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := pop(&s.SignErrs); err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(s.Handle.ChainID),
		Nonce:     s.nonce,
		To:        &to,
		Gas:       gasLimit,
		GasFeeCap: big.NewInt(2),
		GasTipCap: big.NewInt(1),
		Data:      common.CopyBytes(data),
	})
	s.nonce++
	s.Signed = append(s.Signed, tx)
	s.GasLimits = append(s.GasLimits, gasLimit)

	return tx, nil
}

func (s *FakeSession) Broadcast(_ context.Context, tx *types.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Broadcasts = append(s.Broadcasts, tx)
	err := pop(&s.BroadcastErrs)
	if err != nil && s.MineOnBroadcastError {
		s.mine(tx)
	}
	return err
}

func (s *FakeSession) Receipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipt, ok := s.Receipts[txHash]
	if !ok {
		return nil, errors.Errorf("fake session: receipt %s not found", txHash.Hex())
	}
	return receipt, nil
}

func (s *FakeSession) WaitMined(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := pop(&s.WaitErrs); err != nil {
		return nil, err
	}

	var tx *types.Transaction
	for _, signed := range s.Signed {
		if signed.Hash() == txHash {
			tx = signed
			break
		}
	}
	if tx == nil {
		return nil, errors.Errorf("fake session: transaction %s was never signed", txHash.Hex())
	}

	return s.mine(tx), nil
}

func (s *FakeSession) mine(tx *types.Transaction) *types.Receipt {
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	if s.ReceiptFor != nil {
		receipt = s.ReceiptFor(tx)
	}
	receipt.TxHash = tx.Hash()
	s.Receipts[tx.Hash()] = receipt

	return receipt
}

// Selector returns the 4-byte method selector of a signed transaction.
func Selector(tx *types.Transaction) string {
	if len(tx.Data()) < 4 {
		return ""
	}
	return common.Bytes2Hex(tx.Data()[:4])
}
