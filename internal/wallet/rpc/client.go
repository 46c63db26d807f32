package rpc

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNoClients is returned when none of the configured endpoints is reachable.
var ErrNoClients = errors.New("all RPC clients are unavailable")

// Client wraps go-ethereum RPC clients for one chain with failover across
// several URLs. The first healthy endpoint stays current until it fails.
type Client struct {
	urls    []string
	clients []*ethclient.Client
	mu      sync.Mutex
	current int
	dial    func(ctx context.Context, url string) (*ethclient.Client, error)
}

// NewClient dials every URL. Unreachable endpoints are retried lazily on use.
func NewClient(ctx context.Context, urls []string) (*Client, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}

	c := &Client{
		urls:    append([]string(nil), urls...),
		clients: make([]*ethclient.Client, len(urls)),
		dial:    ethclient.DialContext,
	}

	connected := 0
	for i, url := range urls {
		client, err := c.dial(ctx, url)
		if err != nil {
			log.Warn().
				Str("url", url).
				Err(err).
				Msg("Failed to connect to RPC node, will retry on use")
			continue
		}
		c.clients[i] = client
		connected++
	}

	if connected == 0 {
		return nil, errors.New("failed to connect to any RPC node")
	}

	return c, nil
}

// Close closes all client connections.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, client := range c.clients {
		if client != nil {
			client.Close()
			c.clients[i] = nil
		}
	}
}

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain ID")
	}

	return chainID, nil
}

// HeaderByNumber returns a block header; nil number means latest.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}

	header, err := client.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get block header")
	}

	return header, nil
}

// TransactionReceipt returns the receipt of a mined transaction. A pending
// or unknown transaction yields an error matching ethereum.NotFound.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}

	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction receipt")
	}

	return receipt, nil
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	client, err := c.getClient(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get RPC client")
	}

	if err := client.SendTransaction(ctx, tx); err != nil {
		return errors.Wrap(err, "failed to send transaction")
	}

	return nil
}

// SuggestGasTipCap suggests an EIP-1559 priority fee.
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}

	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to suggest gas tip cap")
	}

	return tipCap, nil
}

// EstimateGas estimates the gas needed for msg.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get RPC client")
	}

	gas, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, errors.Wrap(err, "failed to estimate gas")
	}

	return gas, nil
}

// CallContract executes a read-only call at the latest block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}

	resp, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call contract")
	}

	return resp, nil
}

// PendingNonceAt returns the pending nonce for the given address.
func (c *Client) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get RPC client")
	}

	nonce, err := client.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get pending nonce")
	}

	return nonce, nil
}

// getClient returns the current healthy client, moving on to the next
// endpoint (and redialing dropped ones) when the current one fails.
func (c *Client) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < len(c.clients); i++ {
		idx := (c.current + i) % len(c.clients)

		if c.clients[idx] == nil {
			client, err := c.dial(ctx, c.urls[idx])
			if err != nil {
				log.Warn().
					Str("url", c.urls[idx]).
					Err(err).
					Msg("RPC client reconnect failed")
				continue
			}
			c.clients[idx] = client
		}

		// Cheap health check before handing the client out.
		if _, err := c.clients[idx].ChainID(ctx); err != nil {
			log.Warn().
				Str("url", c.urls[idx]).
				Err(err).
				Msg("RPC client health check failed, will try to reconnect")
			c.clients[idx].Close()
			c.clients[idx] = nil
			continue
		}

		c.current = idx
		return c.clients[idx], nil
	}

	return nil, ErrNoClients
}
