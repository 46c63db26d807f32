package config

import (
	"context"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

// DefaultAttestationURL is the Circle sandbox attestation service.
const DefaultAttestationURL = "https://iris-api-sandbox.circle.com"

// CCTP v1 testnet contracts share one address on every EVM chain.
var (
	testnetTokenMessenger     = common.HexToAddress("0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5")
	testnetMessageTransmitter = common.HexToAddress("0x7865fAfC2db2093669d92c0F33AeEF291086BEFD")
)

var ErrNoChains = errors.New("no chains selected")

// DefaultChains returns the built-in testnet handles.
func DefaultChains() []chain.Handle {
	return []chain.Handle{
		testnet("sepolia", 11155111, 0, "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", "https://ethereum-sepolia-rpc.publicnode.com"),
		testnet("polygonAmoy", 80002, 7, "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582", "https://rpc-amoy.polygon.technology"),
		testnet("arbitrumSepolia", 421614, 3, "0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d", "https://sepolia-rollup.arbitrum.io/rpc"),
		testnet("baseSepolia", 84532, 6, "0x036CbD53842c5426634e7929541eC2318f3dCF7e", "https://sepolia.base.org"),
		testnet("avalancheFuji", 43113, 1, "0x5425890298aed601595a70AB815c96711a31Bc65", "https://api.avax-test.network/ext/bc/C/rpc"),
		testnet("optimismSepolia", 11155420, 2, "0x5fd84259d66Cd46123540766Be93DFE6D43130D7", "https://sepolia.optimism.io"),
	}
}

// DefaultChainNames returns the names of DefaultChains in order.
func DefaultChainNames() []string {
	chains := DefaultChains()
	names := make([]string, len(chains))
	for i, h := range chains {
		names[i] = h.Name
	}
	return names
}

func testnet(name string, chainID int64, domain uint32, usdc, rpcURL string) chain.Handle {
	return chain.Handle{
		Name:               name,
		ChainID:            chainID,
		Domain:             domain,
		USDC:               common.HexToAddress(usdc),
		TokenMessenger:     testnetTokenMessenger,
		MessageTransmitter: testnetMessageTransmitter,
		RPCURLs:            []string{rpcURL},
	}
}

type chainsFile struct {
	Chains []chainEntry `toml:"chains"`
}

type chainEntry struct {
	Name               string   `toml:"name"`
	ChainID            int64    `toml:"chain_id"`
	Domain             uint32   `toml:"domain"`
	USDC               string   `toml:"usdc"`
	TokenMessenger     string   `toml:"token_messenger"`
	MessageTransmitter string   `toml:"message_transmitter"`
	RPCURLs            []string `toml:"rpc_urls"`
}

// LoadChainsFile reads chain handles from a TOML file of [[chains]] tables.
// It replaces the built-in handles entirely.
func LoadChainsFile(path string) ([]chain.Handle, error) {
	var f chainsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to decode chains file %s", path)
	}

	return f.handles()
}

// ParseChains is LoadChainsFile over an in-memory document.
func ParseChains(doc string) ([]chain.Handle, error) {
	var f chainsFile
	if _, err := toml.Decode(doc, &f); err != nil {
		return nil, errors.Wrap(err, "failed to decode chains")
	}

	return f.handles()
}

func (f chainsFile) handles() ([]chain.Handle, error) {
	if len(f.Chains) == 0 {
		return nil, ErrNoChains
	}

	out := make([]chain.Handle, 0, len(f.Chains))
	for _, e := range f.Chains {
		h := chain.Handle{
			Name:    e.Name,
			ChainID: e.ChainID,
			Domain:  e.Domain,
			RPCURLs: e.RPCURLs,
		}

		for _, a := range []struct {
			field string
			value string
			dst   *common.Address
		}{
			{"usdc", e.USDC, &h.USDC},
			{"token_messenger", e.TokenMessenger, &h.TokenMessenger},
			{"message_transmitter", e.MessageTransmitter, &h.MessageTransmitter},
		} {
			if !common.IsHexAddress(a.value) {
				return nil, errors.Wrapf(ErrInvalidAddress, "chain %q %s %q", e.Name, a.field, a.value)
			}
			*a.dst = common.HexToAddress(a.value)
		}

		out = append(out, h)
	}

	return out, nil
}

// LookupRPCEnv returns REBALANCER_RPC_<NAME>, e.g. REBALANCER_RPC_POLYGONAMOY.
func LookupRPCEnv(name string) (string, bool) {
	return os.LookupEnv(EnvPrefix + "_RPC_" + strings.ToUpper(name))
}

// ApplyRPCOverrides replaces the RPC URLs of every handle for which lookup
// returns a non-empty list.
func ApplyRPCOverrides(handles []chain.Handle, lookup func(name string) (string, bool)) []chain.Handle {
	out := make([]chain.Handle, len(handles))
	for i, h := range handles {
		if raw, ok := lookup(h.Name); ok {
			if urls := chain.ParseRPCURLs(raw); len(urls) > 0 {
				h.RPCURLs = urls
			}
		}
		out[i] = h
	}
	return out
}

// ResolveChains selects the named handles from all, in the order of names.
func ResolveChains(all []chain.Handle, names []string) ([]chain.Handle, error) {
	if len(names) == 0 {
		return nil, ErrNoChains
	}

	registry, err := chain.NewService(all)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(names))
	out := make([]chain.Handle, 0, len(names))

	for _, name := range names {
		if seen[name] {
			return nil, errors.Errorf("chain %q selected twice", name)
		}
		seen[name] = true

		h, err := registry.GetChain(context.Background(), name)
		if err != nil {
			return nil, errors.Wrap(err, "unknown chain")
		}
		if len(h.RPCURLs) == 0 {
			return nil, errors.Errorf("chain %q has no RPC URL", name)
		}
		out = append(out, h)
	}

	return out, nil
}
