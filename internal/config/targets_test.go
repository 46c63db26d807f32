package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

func handles(names ...string) []chain.Handle {
	out := make([]chain.Handle, len(names))
	for i, n := range names {
		out[i] = chain.Handle{Name: n}
	}
	return out
}

func TestParseTargets(t *testing.T) {
	targets, err := config.ParseTargets("40, 30,30", handles("sepolia", "polygonAmoy", "arbitrumSepolia"))
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.Equal(t, "sepolia", targets[0].Chain)
	assert.Equal(t, "40", targets[0].Percentage.String())
	assert.Equal(t, "arbitrumSepolia", targets[2].Chain)
	assert.Equal(t, "30", targets[2].Percentage.String())
}

func TestParseTargetsCountMismatch(t *testing.T) {
	_, err := config.ParseTargets("40,30,30", handles("sepolia", "polygonAmoy"))
	require.ErrorIs(t, err, config.ErrInvalidTargets)
	assert.Contains(t, err.Error(), "value count mismatch")
}

func TestParseTargetsSum(t *testing.T) {
	_, err := config.ParseTargets("40,40,40", handles("sepolia", "polygonAmoy", "arbitrumSepolia"))
	require.ErrorIs(t, err, config.ErrInvalidTargets)
	assert.Contains(t, err.Error(), "does not sum to 100%")

	_, err = config.ParseTargets("33.33,33.33,33.33", handles("sepolia", "polygonAmoy", "arbitrumSepolia"))
	require.NoError(t, err, "within 0.01 of 100")

	_, err = config.ParseTargets("33.3,33.3,33.3", handles("sepolia", "polygonAmoy", "arbitrumSepolia"))
	require.ErrorIs(t, err, config.ErrInvalidTargets)
}

func TestParseTargetsRejectsInvalidValues(t *testing.T) {
	_, err := config.ParseTargets("forty,60", handles("sepolia", "polygonAmoy"))
	require.ErrorIs(t, err, config.ErrInvalidTargets)

	_, err = config.ParseTargets("120,-20", handles("sepolia", "polygonAmoy"))
	require.ErrorIs(t, err, config.ErrInvalidTargets)
	assert.Contains(t, err.Error(), "negative")

	_, err = config.ParseTargets("100,", handles("sepolia", "polygonAmoy"))
	require.ErrorIs(t, err, config.ErrInvalidTargets)
}

func TestParseTargetsEmptySplitsEvenly(t *testing.T) {
	targets, err := config.ParseTargets("", handles("sepolia", "polygonAmoy", "arbitrumSepolia"))
	require.NoError(t, err)

	assert.Equal(t, "33.34", targets[0].Percentage.String())
	assert.Equal(t, "33.33", targets[1].Percentage.String())
	assert.Equal(t, "33.33", targets[2].Percentage.String())
}
