package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Service is a signing capability scoped to exactly one chain.
type Service interface {
	// Address returns the account that signs transactions.
	Address() common.Address

	// ChainID returns the chain this signer is bound to.
	ChainID() int64

	// SignEVMTransaction signs an EVM transaction (EIP-1559)
	SignEVMTransaction(ctx context.Context, req *SignEVMRequest) (*SignEVMResponse, error)
}

// SignEVMRequest represents a request to sign an EVM transaction
type SignEVMRequest struct {
	ChainID              int64  // Must match the signer's chain
	To                   string // Recipient address (hex string with 0x prefix)
	Value                string // Amount in wei (as string to avoid precision loss)
	GasLimit             uint64 // Gas limit
	MaxFeePerGas         string // Max fee per gas (EIP-1559, in wei, as string)
	MaxPriorityFeePerGas string // Max priority fee per gas (EIP-1559, in wei, as string)
	Nonce                uint64 // Transaction nonce
	Data                 []byte // Transaction data (for contract calls)
}

// SignEVMResponse represents a signed EVM transaction
type SignEVMResponse struct {
	RawTransaction []byte // RLP-encoded signed transaction
	TxHash         string // Transaction hash (hex string with 0x prefix)
}
