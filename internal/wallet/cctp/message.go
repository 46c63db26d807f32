package cctp

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Message header layout: version(4) | sourceDomain(4) | destinationDomain(4) |
// nonce(8) | sender(32) | recipient(32) | destinationCaller(32) | body.
const messageHeaderLength = 116

// ErrMessageTooShort is returned for payloads shorter than the fixed header.
var ErrMessageTooShort = errors.New("message shorter than header")

// Header is the fixed prefix of a cross-chain message.
type Header struct {
	Version           uint32
	SourceDomain      uint32
	DestinationDomain uint32
	Nonce             uint64
}

// DecodeHeader reads the fixed header fields of message.
func DecodeHeader(message []byte) (Header, error) {
	if len(message) < messageHeaderLength {
		return Header{}, errors.Wrapf(ErrMessageTooShort, "length=%d", len(message))
	}

	return Header{
		Version:           binary.BigEndian.Uint32(message[0:4]),
		SourceDomain:      binary.BigEndian.Uint32(message[4:8]),
		DestinationDomain: binary.BigEndian.Uint32(message[8:12]),
		Nonce:             binary.BigEndian.Uint64(message[12:20]),
	}, nil
}

// NonceKey is the key of MessageTransmitter.usedNonces for a header:
// keccak256(abi.encodePacked(sourceDomain, nonce)).
func (h Header) NonceKey() [32]byte {
	var packed [12]byte
	binary.BigEndian.PutUint32(packed[0:4], h.SourceDomain)
	binary.BigEndian.PutUint64(packed[4:12], h.Nonce)
	return crypto.Keccak256Hash(packed[:])
}

// Burn message body layout: version(4) | burnToken(32) | mintRecipient(32) |
// amount(32) | messageSender(32).
const burnBodyLength = 132

// BurnBody is the token messenger payload carried in a message body.
type BurnBody struct {
	Version       uint32
	BurnToken     common.Address
	MintRecipient common.Address
	Amount        *big.Int
	MessageSender common.Address
}

// DecodeBurnBody reads the burn payload that follows the message header.
func DecodeBurnBody(message []byte) (BurnBody, error) {
	if len(message) < messageHeaderLength+burnBodyLength {
		return BurnBody{}, errors.Wrapf(ErrMessageTooShort, "length=%d", len(message))
	}

	body := message[messageHeaderLength:]
	return BurnBody{
		Version:       binary.BigEndian.Uint32(body[0:4]),
		BurnToken:     common.BytesToAddress(body[4:36]),
		MintRecipient: common.BytesToAddress(body[36:68]),
		Amount:        new(big.Int).SetBytes(body[68:100]),
		MessageSender: common.BytesToAddress(body[100:132]),
	}, nil
}

// MessageHash is the identifier the attestation service keys messages by.
func MessageHash(message []byte) common.Hash {
	return crypto.Keccak256Hash(message)
}

// ParseMessageSent returns the payload of the first MessageSent event emitted
// by transmitter in logs. ok is false when no such event exists.
func ParseMessageSent(logs []*types.Log, transmitter common.Address) (message []byte, ok bool, err error) {
	for _, lg := range logs {
		if lg == nil || lg.Address != transmitter || len(lg.Topics) == 0 || lg.Topics[0] != MessageSentTopic {
			continue
		}

		out, err := messageTransmitterABI.Unpack("MessageSent", lg.Data)
		if err != nil {
			return nil, false, errors.Wrap(err, "failed to unpack MessageSent")
		}
		if len(out) != 1 {
			return nil, false, errors.Errorf("unexpected MessageSent field count %d", len(out))
		}
		payload, isBytes := out[0].([]byte)
		if !isBytes {
			return nil, false, errors.Errorf("unexpected MessageSent field type %T", out[0])
		}
		return payload, true, nil
	}

	return nil, false, nil
}

// PackMessageSentData ABI encodes a MessageSent payload as it appears in log data.
func PackMessageSentData(message []byte) ([]byte, error) {
	data, err := messageTransmitterABI.Events["MessageSent"].Inputs.Pack(message)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack MessageSent data")
	}
	return data, nil
}
