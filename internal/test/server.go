package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/api/router"
	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/util"
)

// DefaultTestConfig is a dry-run configuration over three testnets with
// targets 40/30/30 and a 5% threshold.
func DefaultTestConfig() config.Rebalancer {
	cfg := config.DefaultRebalancerConfigFromEnv()
	cfg.Chains = "sepolia,polygonAmoy,arbitrumSepolia"
	cfg.Targets = "40,30,30"
	cfg.Threshold = "5"
	cfg.DryRun = true
	cfg.PrivateKey = ""
	cfg.APIToken = ""
	cfg.WatchAddress = "0x00000000000000000000000000000000000000aa"
	cfg.Logger.PrettyPrintConsole = false
	return cfg
}

// WithTestServer runs closure against a fully initialized dry-run server
// whose balances are served by StaticBalances (60/20/20 USDC).
func WithTestServer(t *testing.T, closure func(s *api.Server, balances *StaticBalances)) {
	t.Helper()

	WithTestServerConfigurable(t, DefaultTestConfig(), closure)
}

func WithTestServerConfigurable(t *testing.T, cfg config.Rebalancer, closure func(s *api.Server, balances *StaticBalances)) {
	t.Helper()

	s, err := api.InitNewServer(cfg)
	require.NoError(t, err)

	balances := NewStaticBalances(map[string]*big.Int{
		"sepolia":         USDC(60),
		"polygonAmoy":     USDC(20),
		"arbitrumSepolia": USDC(20),
	})
	s.Balance = balances
	s.Cycle = api.NewCycle(s.Resolved, s.Balance, s.Pipeline)

	router.Init(s)

	t.Cleanup(func() {
		s.Shutdown(context.Background())
	})

	closure(s, balances)
}

// PerformRequest runs a request against the server's echo instance. A
// non-nil body is encoded as JSON.
func PerformRequest(t *testing.T, s *api.Server, method string, path string, body any, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header[k] = v
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)

	return res
}

// ParseResponseAndValidate decodes a JSON response body into v and runs its
// Validate method when it has one.
func ParseResponseAndValidate(t *testing.T, res *httptest.ResponseRecorder, v any) {
	t.Helper()

	require.NoError(t, json.NewDecoder(res.Body).Decode(v))

	if m, ok := v.(util.Validatable); ok {
		require.NoError(t, m.Validate(strfmt.Default))
	}
}
