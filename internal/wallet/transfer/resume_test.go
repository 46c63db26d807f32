package transfer_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/test"
	"github/chapool/cctp-rebalancer/internal/wallet/cctp"
	"github/chapool/cctp-rebalancer/internal/wallet/transfer"
)

var burnTx = common.HexToHash("0xb0b0")

func TestResumeMint(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	f.src.Receipts[burnTx] = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: burnTx,
		Logs:   []*types.Log{test.MessageSentLog(sepolia.MessageTransmitter, f.message)},
	}

	out := f.pipeline.ResumeMint(context.Background(), sepolia, polygonAmoy, burnTx)
	require.Nil(t, out.Err)
	assert.True(t, out.Success)
	assert.False(t, out.AlreadyMinted)
	assert.Equal(t, burnTx, out.SourceTx)
	assert.Equal(t, cctp.MessageHash(f.message), out.MessageID)
	assert.Equal(t, amount.String(), out.Action.Amount().String())

	assert.Empty(t, f.src.Signed)
	assert.Equal(t, []string{selectorReceiveMessage}, selectors(f.dst.Signed))
}

func TestResumeMintAlreadyReceived(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	f.dst.UsedNonce = true
	f.src.Receipts[burnTx] = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: burnTx,
		Logs:   []*types.Log{test.MessageSentLog(sepolia.MessageTransmitter, f.message)},
	}

	out := f.pipeline.ResumeMint(context.Background(), sepolia, polygonAmoy, burnTx)
	assert.True(t, out.Success)
	assert.True(t, out.AlreadyMinted)
	assert.Empty(t, f.dst.Signed)
	assert.Empty(t, f.awaiter.keys)
}

func TestResumeMintDegradedChecksReceived(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	f.dst.UsedNonce = true
	f.awaiter.att.Message = f.message
	f.src.Receipts[burnTx] = &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: burnTx}

	out := f.pipeline.ResumeMint(context.Background(), sepolia, polygonAmoy, burnTx)
	assert.True(t, out.Success)
	assert.True(t, out.DegradedLookup)
	assert.True(t, out.AlreadyMinted)
	require.Len(t, f.awaiter.keys, 1)
	assert.Equal(t, burnTx, f.awaiter.keys[0].TxHash)
	assert.Empty(t, f.dst.Signed)
}

func TestResumeMintRevertedBurn(t *testing.T) {
	f := newFixture(t, transfer.Config{})
	f.src.Receipts[burnTx] = &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: burnTx}

	out := f.pipeline.ResumeMint(context.Background(), sepolia, polygonAmoy, burnTx)
	require.NotNil(t, out.Err)
	assert.Equal(t, transfer.KindRejected, out.Err.Kind)
	require.ErrorIs(t, out.Err, transfer.ErrReverted)
}
