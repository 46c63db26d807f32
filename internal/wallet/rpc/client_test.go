package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonRPCRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

func newNodeServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		result, ok := results[req.Method]
		if !ok {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32601,"message":"method not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestClientFailover(t *testing.T) {
	live := newNodeServer(t, map[string]string{
		"eth_chainId":  `"0xaa36a7"`,
		"eth_gasPrice": `"0x1"`,
	})

	client, err := NewClient(context.Background(), []string{deadURL(t), live.URL})
	require.NoError(t, err)
	defer client.Close()

	chainID, err := client.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), chainID.Int64())
	assert.Equal(t, 1, client.current)
}

func TestClientAllEndpointsDown(t *testing.T) {
	client, err := NewClient(context.Background(), []string{deadURL(t)})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.ChainID(context.Background())
	require.ErrorIs(t, err, ErrNoClients)
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(context.Background(), nil)
	require.Error(t, err)
}
