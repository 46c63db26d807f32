package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

const chainsDoc = `
[[chains]]
name = "sepolia"
chain_id = 11155111
domain = 0
usdc = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
token_messenger = "0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5"
message_transmitter = "0x7865fAfC2db2093669d92c0F33AeEF291086BEFD"
rpc_urls = ["http://localhost:8545", "http://localhost:8546"]

[[chains]]
name = "local"
chain_id = 31337
domain = 9
usdc = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
token_messenger = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
message_transmitter = "0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"
rpc_urls = ["http://localhost:9545"]
`

func TestDefaultChains(t *testing.T) {
	chains := config.DefaultChains()
	require.Len(t, chains, 6)

	svc, err := chain.NewService(chains)
	require.NoError(t, err)

	amoy, err := svc.GetChainByID(t.Context(), 80002)
	require.NoError(t, err)
	assert.Equal(t, "polygonAmoy", amoy.Name)
	assert.Equal(t, uint32(7), amoy.Domain)

	for _, h := range chains {
		assert.NotEmpty(t, h.RPCURLs, h.Name)
		assert.NotEqual(t, common.Address{}, h.USDC, h.Name)
	}
}

func TestLoadChainsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.toml")
	require.NoError(t, os.WriteFile(path, []byte(chainsDoc), 0o600))

	chains, err := config.LoadChainsFile(path)
	require.NoError(t, err)
	require.Len(t, chains, 2)

	assert.Equal(t, "local", chains[1].Name)
	assert.Equal(t, int64(31337), chains[1].ChainID)
	assert.Equal(t, uint32(9), chains[1].Domain)
	assert.Equal(t, common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"), chains[1].MessageTransmitter)
	assert.Equal(t, []string{"http://localhost:8545", "http://localhost:8546"}, chains[0].RPCURLs)
}

func TestParseChainsRejectsBadAddress(t *testing.T) {
	_, err := config.ParseChains(`
[[chains]]
name = "broken"
usdc = "0x1234"
token_messenger = "0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5"
message_transmitter = "0x7865fAfC2db2093669d92c0F33AeEF291086BEFD"
`)
	require.ErrorIs(t, err, config.ErrInvalidAddress)

	_, err = config.ParseChains("")
	require.ErrorIs(t, err, config.ErrNoChains)
}

func TestResolveChains(t *testing.T) {
	chains, err := config.ResolveChains(config.DefaultChains(), []string{"baseSepolia", "sepolia"})
	require.NoError(t, err)
	require.Len(t, chains, 2)
	assert.Equal(t, "baseSepolia", chains[0].Name)
	assert.Equal(t, "sepolia", chains[1].Name)

	_, err = config.ResolveChains(config.DefaultChains(), []string{"sepolia", "moonbase"})
	require.ErrorIs(t, err, chain.ErrChainNotFound)

	_, err = config.ResolveChains(config.DefaultChains(), []string{"sepolia", "sepolia"})
	require.Error(t, err)

	_, err = config.ResolveChains(config.DefaultChains(), nil)
	require.ErrorIs(t, err, config.ErrNoChains)
}

func TestApplyRPCOverrides(t *testing.T) {
	env := map[string]string{"sepolia": "http://a, http://b", "polygonAmoy": " "}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	defaults := config.DefaultChains()
	chains := config.ApplyRPCOverrides(defaults, lookup)

	assert.Equal(t, []string{"http://a", "http://b"}, chains[0].RPCURLs)
	assert.Equal(t, defaults[1].RPCURLs, chains[1].RPCURLs)
	assert.Equal(t, []string{"https://ethereum-sepolia-rpc.publicnode.com"}, defaults[0].RPCURLs, "input not mutated")
}

func TestLookupRPCEnv(t *testing.T) {
	t.Setenv("REBALANCER_RPC_POLYGONAMOY", "http://amoy")

	v, ok := config.LookupRPCEnv("polygonAmoy")
	require.True(t, ok)
	assert.Equal(t, "http://amoy", v)
}
