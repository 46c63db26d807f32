package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// signEIP1559Transaction signs an EIP-1559 transaction
func (s *service) signEIP1559Transaction(_ context.Context, req *SignEVMRequest) (*SignEVMResponse, error) {
	toAddress := common.HexToAddress(req.To)

	const base10 = 10
	value := big.NewInt(0)
	if req.Value != "" {
		var ok bool
		value, ok = new(big.Int).SetString(req.Value, base10)
		if !ok {
			return nil, errors.New("invalid value format")
		}
	}

	maxFeePerGas, ok := new(big.Int).SetString(req.MaxFeePerGas, base10)
	if !ok {
		return nil, errors.New("invalid maxFeePerGas format")
	}

	maxPriorityFeePerGas, ok := new(big.Int).SetString(req.MaxPriorityFeePerGas, base10)
	if !ok {
		return nil, errors.New("invalid maxPriorityFeePerGas format")
	}

	//nolint:varnamelen // tx is a common abbreviation for transaction
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(req.ChainID),
		Nonce:     req.Nonce,
		GasTipCap: maxPriorityFeePerGas,
		GasFeeCap: maxFeePerGas,
		Gas:       req.GasLimit,
		To:        &toAddress,
		Value:     value,
		Data:      req.Data,
	})

	signer := types.NewLondonSigner(big.NewInt(req.ChainID))
	signedTx, err := types.SignTx(tx, signer, s.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	txBytes, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal transaction")
	}

	return &SignEVMResponse{
		RawTransaction: txBytes,
		TxHash:         signedTx.Hash().Hex(),
	}, nil
}
