package common_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/test"
)

func TestGetReadyReadiness(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, _ *test.StaticBalances) {
		res := test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		require.Equal(t, "Ready.", res.Body.String())
	})
}

func TestGetReadyReadinessBroken(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, _ *test.StaticBalances) {
		// forcefully remove an initialized component to check if ready state works
		s.Pipeline = nil

		res := test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		require.Equal(t, 521, res.Result().StatusCode)
		require.Equal(t, "Not ready.", res.Body.String())
	})
}
