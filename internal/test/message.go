package test

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"

	"github/chapool/cctp-rebalancer/internal/wallet/cctp"
)

// BurnMessage builds a version 0 message carrying a burn of amount.
func BurnMessage(sourceDomain, destDomain uint32, nonce uint64, token, recipient common.Address, amount *big.Int) []byte {
	msg := make([]byte, 116+132)
	binary.BigEndian.PutUint32(msg[4:8], sourceDomain)
	binary.BigEndian.PutUint32(msg[8:12], destDomain)
	binary.BigEndian.PutUint64(msg[12:20], nonce)

	body := msg[116:]
	copy(body[16:36], token.Bytes())
	copy(body[48:68], recipient.Bytes())
	copy(body[68:100], math.U256Bytes(new(big.Int).Set(amount)))
	copy(body[112:132], recipient.Bytes())

	return msg
}

// MessageSentLog wraps message in a MessageSent log emitted by transmitter.
func MessageSentLog(transmitter common.Address, message []byte) *types.Log {
	data, err := cctp.PackMessageSentData(message)
	if err != nil {
		panic(err)
	}

	return &types.Log{
		Address: transmitter,
		Topics:  []common.Hash{cctp.MessageSentTopic},
		Data:    data,
	}
}
