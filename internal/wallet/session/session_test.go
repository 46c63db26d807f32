package session

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

type fakeBackend struct {
	chainID      int64
	baseFee      *big.Int
	tip          *big.Int
	nonce        uint64
	sendErr      error
	notFoundLeft int32
	receipt      *types.Receipt
	sent         []*types.Transaction
	closed       bool
	// block delays ChainID until closed or ctx is done
	block chan struct{}
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return big.NewInt(f.chainID), nil
}

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if atomic.AddInt32(&f.notFoundLeft, -1) >= 0 {
		return nil, errors.Wrap(ethereum.NotFound, "failed to get transaction receipt")
	}
	return f.receipt, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return f.sendErr
}

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return f.tip, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 50000, nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return msg.Data, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) Close() {
	f.closed = true
}

var sepolia = chain.Handle{Name: "sepolia", ChainID: 11155111}

func newTestRegistry(t *testing.T, backend *fakeBackend, withKey bool) (*Registry, *int) {
	t.Helper()

	calls := 0
	factory := func(context.Context, chain.Handle) (Backend, error) {
		calls++
		return backend, nil
	}

	cfg := Config{ReceiptPollInterval: time.Millisecond, WatchAddress: common.HexToAddress("0x02")}
	if !withKey {
		return NewRegistry(nil, cfg, WithBackendFactory(factory)), &calls
	}

	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	return NewRegistry(pk, cfg, WithBackendFactory(factory)), &calls
}

func TestRegistryCachesSessions(t *testing.T) {
	backend := &fakeBackend{chainID: sepolia.ChainID}
	reg, calls := newTestRegistry(t, backend, true)

	s1, err := reg.Get(context.Background(), sepolia)
	require.NoError(t, err)
	s2, err := reg.Get(context.Background(), sepolia)
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, *calls)

	reg.Close()
	assert.True(t, backend.closed)
}

func TestRegistrySlowChainDoesNotBlockOthers(t *testing.T) {
	polygonAmoy := chain.Handle{Name: "polygonAmoy", ChainID: 80002}
	slow := &fakeBackend{chainID: sepolia.ChainID, block: make(chan struct{})}
	fast := &fakeBackend{chainID: polygonAmoy.ChainID}

	reg := NewRegistry(nil, Config{}, WithBackendFactory(func(_ context.Context, h chain.Handle) (Backend, error) {
		if h.Name == sepolia.Name {
			return slow, nil
		}
		return fast, nil
	}))
	defer reg.Close()

	slowDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()
		_, err := reg.Get(ctx, sepolia)
		slowDone <- err
	}()

	// let the slow chain start dialing first
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	s, err := reg.Get(ctx, polygonAmoy)
	require.NoError(t, err)
	assert.Equal(t, polygonAmoy.Name, s.Chain().Name)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	require.ErrorIs(t, <-slowDone, context.DeadlineExceeded)
	assert.True(t, slow.closed)
}

func TestRegistryDialsOncePerChain(t *testing.T) {
	backend := &fakeBackend{chainID: sepolia.ChainID, block: make(chan struct{})}

	var dials int32
	reg := NewRegistry(nil, Config{}, WithBackendFactory(func(context.Context, chain.Handle) (Backend, error) {
		atomic.AddInt32(&dials, 1)
		return backend, nil
	}))

	results := make(chan *Session, 3)
	for range 3 {
		go func() {
			s, err := reg.Get(context.Background(), sepolia)
			assert.NoError(t, err)
			results <- s
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(backend.block)

	first := <-results
	assert.Same(t, first, <-results)
	assert.Same(t, first, <-results)
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))

	reg.Close()
	_, err := reg.Get(context.Background(), sepolia)
	require.ErrorIs(t, err, ErrRegistryClosed)
}

func TestRegistryRejectsChainIDMismatch(t *testing.T) {
	backend := &fakeBackend{chainID: 1}
	reg, _ := newTestRegistry(t, backend, true)

	_, err := reg.Get(context.Background(), sepolia)
	require.ErrorIs(t, err, ErrChainIDMismatch)
	assert.True(t, backend.closed)
}

func TestReadOnlySession(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeBackend{chainID: sepolia.ChainID}, false)

	s, err := reg.Get(context.Background(), sepolia)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x02"), s.Address())

	_, err = s.SignTx(context.Background(), common.HexToAddress("0x03"), nil, 21000)
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestSignTxFees(t *testing.T) {
	backend := &fakeBackend{
		chainID: sepolia.ChainID,
		baseFee: big.NewInt(10),
		tip:     big.NewInt(3),
		nonce:   7,
	}
	reg, _ := newTestRegistry(t, backend, true)

	s, err := reg.Get(context.Background(), sepolia)
	require.NoError(t, err)

	tx, err := s.SignTx(context.Background(), common.HexToAddress("0x03"), []byte{1}, 65000)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(65000), tx.Gas())
	assert.Equal(t, int64(23), tx.GasFeeCap().Int64()) // 2 * 10 + 3
	assert.Equal(t, int64(3), tx.GasTipCap().Int64())
	assert.Equal(t, []byte{1}, tx.Data())
}

func TestBroadcastAlreadyKnown(t *testing.T) {
	backend := &fakeBackend{chainID: sepolia.ChainID, sendErr: errors.New("already known")}
	reg, _ := newTestRegistry(t, backend, true)

	s, err := reg.Get(context.Background(), sepolia)
	require.NoError(t, err)

	tx := types.NewTx(&types.DynamicFeeTx{})
	require.NoError(t, s.Broadcast(context.Background(), tx))

	backend.sendErr = errors.New("insufficient funds for gas * price + value")
	require.Error(t, s.Broadcast(context.Background(), tx))
}

func TestWaitMined(t *testing.T) {
	want := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	backend := &fakeBackend{chainID: sepolia.ChainID, notFoundLeft: 2, receipt: want}
	reg, _ := newTestRegistry(t, backend, true)

	s, err := reg.Get(context.Background(), sepolia)
	require.NoError(t, err)

	got, err := s.WaitMined(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestWaitMinedTimeout(t *testing.T) {
	backend := &fakeBackend{chainID: sepolia.ChainID, notFoundLeft: 1 << 30}
	reg := NewRegistry(nil, Config{ReceiptPollInterval: time.Millisecond, ReceiptTimeout: 5 * time.Millisecond},
		WithBackendFactory(func(context.Context, chain.Handle) (Backend, error) { return backend, nil }))

	s, err := reg.Get(context.Background(), sepolia)
	require.NoError(t, err)

	_, err = s.WaitMined(context.Background(), common.HexToHash("0x01"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
