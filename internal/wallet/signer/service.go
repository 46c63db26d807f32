package signer

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// ErrChainMismatch is returned when a request targets another chain.
var ErrChainMismatch = errors.New("signer is bound to a different chain")

type service struct {
	chainID    int64
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewService creates a signer for chainID from a hex encoded private key.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(chainID int64, privateKeyHex string) (Service, error) {
	if chainID <= 0 {
		return nil, errors.New("chain id must be positive")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}

	return NewServiceFromKey(chainID, key)
}

// NewServiceFromKey creates a signer for chainID from an already parsed key.
//
//nolint:ireturn
func NewServiceFromKey(chainID int64, key *ecdsa.PrivateKey) (Service, error) {
	if key == nil {
		return nil, errors.New("private key is nil")
	}

	return &service{
		chainID:    chainID,
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *service) Address() common.Address {
	return s.address
}

func (s *service) ChainID() int64 {
	return s.chainID
}

// SignEVMTransaction signs an EVM transaction (EIP-1559)
func (s *service) SignEVMTransaction(ctx context.Context, req *SignEVMRequest) (*SignEVMResponse, error) {
	if req == nil {
		return nil, errors.New("sign request is nil")
	}
	if req.ChainID != s.chainID {
		return nil, errors.Wrapf(ErrChainMismatch, "signer=%d request=%d", s.chainID, req.ChainID)
	}

	return s.signEIP1559Transaction(ctx, req)
}
