package cctp_test

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/wallet/cctp"
)

var (
	transmitter = common.HexToAddress("0x7865fAfC2db2093669d92c0F33AeEF291086BEFD")
	recipient   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	usdc        = common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
)

func testMessage(sourceDomain, destDomain uint32, nonce uint64) []byte {
	msg := make([]byte, 116+32)
	binary.BigEndian.PutUint32(msg[4:8], sourceDomain)
	binary.BigEndian.PutUint32(msg[8:12], destDomain)
	binary.BigEndian.PutUint64(msg[12:20], nonce)
	return msg
}

func TestSelectors(t *testing.T) {
	data, err := cctp.PackApprove(recipient, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "095ea7b3", common.Bytes2Hex(data[:4]))

	data, err = cctp.PackAllowance(recipient, transmitter)
	require.NoError(t, err)
	assert.Equal(t, "dd62ed3e", common.Bytes2Hex(data[:4]))

	data, err = cctp.PackBalanceOf(recipient)
	require.NoError(t, err)
	assert.Equal(t, "70a08231", common.Bytes2Hex(data[:4]))

	data, err = cctp.PackDepositForBurn(big.NewInt(10_000_000), 7, recipient, usdc)
	require.NoError(t, err)
	assert.Equal(t, "6fd3504e", common.Bytes2Hex(data[:4]))
	assert.Len(t, data, 4+32*4)
	// mintRecipient is the third word, left padded.
	assert.Equal(t, common.LeftPadBytes(recipient.Bytes(), 32), data[4+64:4+96])

	data, err = cctp.PackReceiveMessage([]byte{1, 2}, []byte{3})
	require.NoError(t, err)
	assert.Equal(t, "57ecfd28", common.Bytes2Hex(data[:4]))
}

func TestUnpackUint256(t *testing.T) {
	raw := math.U256Bytes(big.NewInt(42_000_000))
	value, err := cctp.UnpackUint256("allowance", raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42_000_000), value.Int64())

	_, err = cctp.UnpackUint256("allowance", []byte{1})
	require.Error(t, err)
}

func TestParseMessageSent(t *testing.T) {
	msg := testMessage(0, 7, 99)
	data, err := cctp.PackMessageSentData(msg)
	require.NoError(t, err)

	logs := []*types.Log{
		{Address: usdc, Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))}},
		{Address: common.HexToAddress("0x01"), Topics: []common.Hash{cctp.MessageSentTopic}, Data: data},
		{Address: transmitter, Topics: []common.Hash{cctp.MessageSentTopic}, Data: data},
	}

	got, ok, err := cctp.ParseMessageSent(logs, transmitter)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, msg, got)
	assert.Equal(t, crypto.Keccak256Hash(msg), cctp.MessageHash(got))

	_, ok, err = cctp.ParseMessageSent(logs[:2], transmitter)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeHeader(t *testing.T) {
	h, err := cctp.DecodeHeader(testMessage(3, 6, 1234))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), h.SourceDomain)
	assert.Equal(t, uint32(6), h.DestinationDomain)
	assert.Equal(t, uint64(1234), h.Nonce)

	var packed [12]byte
	binary.BigEndian.PutUint32(packed[0:4], 3)
	binary.BigEndian.PutUint64(packed[4:12], 1234)
	assert.Equal(t, [32]byte(crypto.Keccak256Hash(packed[:])), h.NonceKey())

	_, err = cctp.DecodeHeader(make([]byte, 10))
	require.ErrorIs(t, err, cctp.ErrMessageTooShort)
}

func TestUsedNonces(t *testing.T) {
	data, err := cctp.PackUsedNonces([32]byte{1})
	require.NoError(t, err)
	assert.Len(t, data, 4+32)

	used, err := cctp.UnpackUsedNonces(math.U256Bytes(big.NewInt(1)))
	require.NoError(t, err)
	assert.True(t, used)

	used, err = cctp.UnpackUsedNonces(make([]byte, 32))
	require.NoError(t, err)
	assert.False(t, used)
}

func TestDecodeBurnBody(t *testing.T) {
	msg := testMessage(0, 7, 5)
	body := make([]byte, 132)
	copy(body[4+12:36], usdc.Bytes())
	copy(body[36+12:68], recipient.Bytes())
	copy(body[68:100], math.U256Bytes(big.NewInt(10_000_000)))
	msg = append(msg[:116], body...)

	got, err := cctp.DecodeBurnBody(msg)
	require.NoError(t, err)
	assert.Equal(t, usdc, got.BurnToken)
	assert.Equal(t, recipient, got.MintRecipient)
	assert.Equal(t, int64(10_000_000), got.Amount.Int64())

	_, err = cctp.DecodeBurnBody(testMessage(0, 7, 5))
	require.ErrorIs(t, err, cctp.ErrMessageTooShort)
}
