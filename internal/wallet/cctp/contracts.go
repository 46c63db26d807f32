// Package cctp encodes calls to the USDC token and the CCTP TokenMessenger /
// MessageTransmitter contracts and decodes what they emit.
package cctp

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

const tokenMessengerABIJSON = `[
	{"type":"function","name":"depositForBurn","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"amount","type":"uint256"},
		{"name":"destinationDomain","type":"uint32"},
		{"name":"mintRecipient","type":"bytes32"},
		{"name":"burnToken","type":"address"}],
	 "outputs":[{"name":"_nonce","type":"uint64"}]}
]`

const messageTransmitterABIJSON = `[
	{"type":"function","name":"receiveMessage","stateMutability":"nonpayable",
	 "inputs":[{"name":"message","type":"bytes"},{"name":"attestation","type":"bytes"}],
	 "outputs":[{"name":"success","type":"bool"}]},
	{"type":"function","name":"usedNonces","stateMutability":"view",
	 "inputs":[{"name":"","type":"bytes32"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"MessageSent","anonymous":false,
	 "inputs":[{"name":"message","type":"bytes","indexed":false}]}
]`

var (
	erc20ABI              = mustParseABI(erc20ABIJSON)
	tokenMessengerABI     = mustParseABI(tokenMessengerABIJSON)
	messageTransmitterABI = mustParseABI(messageTransmitterABIJSON)

	// MessageSentTopic is topic[0] of MessageSent(bytes).
	MessageSentTopic = messageTransmitterABI.Events["MessageSent"].ID
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// PackBalanceOf encodes balanceOf(account).
func PackBalanceOf(account common.Address) ([]byte, error) {
	data, err := erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf")
	}
	return data, nil
}

// PackAllowance encodes allowance(owner, spender).
func PackAllowance(owner, spender common.Address) ([]byte, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack allowance")
	}
	return data, nil
}

// PackApprove encodes approve(spender, amount).
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack approve")
	}
	return data, nil
}

// UnpackUint256 decodes the single uint256 returned by balanceOf or allowance.
func UnpackUint256(method string, data []byte) (*big.Int, error) {
	out, err := erc20ABI.Unpack(method, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %s", method)
	}
	if len(out) != 1 {
		return nil, errors.Errorf("unexpected %s output length %d", method, len(out))
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected %s output type %T", method, out[0])
	}
	return value, nil
}

// PackDepositForBurn encodes depositForBurn(amount, destinationDomain, mintRecipient, burnToken).
func PackDepositForBurn(amount *big.Int, destinationDomain uint32, recipient common.Address, burnToken common.Address) ([]byte, error) {
	data, err := tokenMessengerABI.Pack("depositForBurn", amount, destinationDomain, AddressToBytes32(recipient), burnToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack depositForBurn")
	}
	return data, nil
}

// PackReceiveMessage encodes receiveMessage(message, attestation).
func PackReceiveMessage(message, attestation []byte) ([]byte, error) {
	data, err := messageTransmitterABI.Pack("receiveMessage", message, attestation)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack receiveMessage")
	}
	return data, nil
}

// PackUsedNonces encodes usedNonces(key).
func PackUsedNonces(key [32]byte) ([]byte, error) {
	data, err := messageTransmitterABI.Pack("usedNonces", key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack usedNonces")
	}
	return data, nil
}

// UnpackUsedNonces decodes the usedNonces result; non-zero means the message was received.
func UnpackUsedNonces(data []byte) (bool, error) {
	out, err := messageTransmitterABI.Unpack("usedNonces", data)
	if err != nil {
		return false, errors.Wrap(err, "failed to unpack usedNonces")
	}
	if len(out) != 1 {
		return false, errors.Errorf("unexpected usedNonces output length %d", len(out))
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return false, errors.Errorf("unexpected usedNonces output type %T", out[0])
	}
	return value.Sign() != 0, nil
}

// AddressToBytes32 left pads an address to the bytes32 recipient format.
func AddressToBytes32(addr common.Address) [32]byte {
	var out [32]byte
	copy(out[12:], addr.Bytes())
	return out
}
