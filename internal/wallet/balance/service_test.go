package balance_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/wallet/balance"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

type staticReader struct {
	amount *big.Int
	err    error
}

func (r staticReader) Call(context.Context, common.Address, []byte) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return math.U256Bytes(new(big.Int).Set(r.amount)), nil
}

func readers(byChain map[string]staticReader) balance.Readers {
	return balance.ReadersFunc(func(_ context.Context, h chain.Handle) (balance.Reader, error) {
		return byChain[h.Name], nil
	})
}

var chains = []chain.Handle{{Name: "sepolia"}, {Name: "polygonAmoy"}, {Name: "arbitrumSepolia"}}

func TestReadBalancesKeepsOrder(t *testing.T) {
	svc := balance.NewService(readers(map[string]staticReader{
		"sepolia":         {amount: big.NewInt(60_000_000)},
		"polygonAmoy":     {amount: big.NewInt(20_000_000)},
		"arbitrumSepolia": {amount: big.NewInt(20_000_001)},
	}), balance.FailurePolicyZero)

	got, err := svc.ReadBalances(context.Background(), chains, common.HexToAddress("0x01"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "sepolia", got[0].Chain.Name)
	assert.Equal(t, int64(60_000_000), got[0].Amount.Int64())
	assert.Equal(t, "arbitrumSepolia", got[2].Chain.Name)
	assert.Equal(t, int64(20_000_001), got[2].Amount.Int64())
}

func TestReadBalancesZeroPolicy(t *testing.T) {
	svc := balance.NewService(readers(map[string]staticReader{
		"sepolia":         {amount: big.NewInt(5)},
		"polygonAmoy":     {err: errors.New("i/o timeout")},
		"arbitrumSepolia": {amount: big.NewInt(7)},
	}), balance.FailurePolicyZero)

	got, err := svc.ReadBalances(context.Background(), chains, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, 0, got[1].Amount.Sign())
	require.Error(t, got[1].Err)
}

func TestReadBalancesAbortPolicy(t *testing.T) {
	svc := balance.NewService(readers(map[string]staticReader{
		"sepolia":         {amount: big.NewInt(5)},
		"polygonAmoy":     {err: errors.New("i/o timeout")},
		"arbitrumSepolia": {amount: big.NewInt(7)},
	}), balance.FailurePolicyAbort)

	_, err := svc.ReadBalances(context.Background(), chains, common.Address{})
	require.ErrorIs(t, err, balance.ErrReadFailed)
}

type blockingReader struct{}

func (blockingReader) Call(ctx context.Context, _ common.Address, _ []byte) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestReadBalancesAbortCancelsPendingReads(t *testing.T) {
	svc := balance.NewService(balance.ReadersFunc(func(_ context.Context, h chain.Handle) (balance.Reader, error) {
		if h.Name == "polygonAmoy" {
			return staticReader{err: errors.New("execution reverted")}, nil
		}
		return blockingReader{}, nil
	}), balance.FailurePolicyAbort)

	start := time.Now()
	_, err := svc.ReadBalances(context.Background(), chains, common.Address{})
	require.ErrorIs(t, err, balance.ErrReadFailed)
	assert.Contains(t, err.Error(), "polygonAmoy")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestReadBalancesAllFailed(t *testing.T) {
	down := staticReader{err: errors.New("connection refused")}
	svc := balance.NewService(readers(map[string]staticReader{
		"sepolia": down, "polygonAmoy": down, "arbitrumSepolia": down,
	}), balance.FailurePolicyZero)

	_, err := svc.ReadBalances(context.Background(), chains, common.Address{})
	require.ErrorIs(t, err, balance.ErrAllReadsFailed)
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := balance.ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, balance.FailurePolicyZero, p)

	p, err = balance.ParseFailurePolicy("abort")
	require.NoError(t, err)
	assert.Equal(t, balance.FailurePolicyAbort, p)

	_, err = balance.ParseFailurePolicy("skip")
	require.Error(t, err)
}
