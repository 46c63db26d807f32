package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Handle identifies one chain taking part in rebalancing. Handles are loaded
// once at startup and never mutated.
type Handle struct {
	Name               string         // Symbolic name, e.g. "sepolia"
	ChainID            int64          // Native EVM chain id
	Domain             uint32         // CCTP domain id used by the messaging layer
	USDC               common.Address // USDC token contract
	TokenMessenger     common.Address // CCTP TokenMessenger (burn side)
	MessageTransmitter common.Address // CCTP MessageTransmitter (mint side, emits MessageSent)
	RPCURLs            []string       // Failover RPC endpoints
}

func (h Handle) String() string {
	return h.Name
}

// Service resolves configured chain handles.
type Service interface {
	// GetChain returns the handle with the given symbolic name.
	GetChain(ctx context.Context, name string) (Handle, error)

	// GetChainByID returns the handle with the given native chain id.
	GetChainByID(ctx context.Context, chainID int64) (Handle, error)

	// GetActiveChains returns the handles selected for rebalancing, in configuration order.
	GetActiveChains(ctx context.Context) ([]Handle, error)

	// ParseRPCURLs splits a comma separated RPC URL list.
	ParseRPCURLs(rpcURL string) []string
}
