package command_test

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/util/command"
)

func TestBindRebalanceFlags(t *testing.T) {
	t.Setenv("REBALANCER_THRESHOLD", "7.5")
	t.Setenv("REBALANCER_TARGETS", "50,50")

	v := config.NewViper()
	cmd := &cobra.Command{Use: "rebalance", RunE: func(*cobra.Command, []string) error { return nil }}
	command.BindRebalanceFlags(cmd, v)

	require.NoError(t, cmd.ParseFlags([]string{"--targets", "60,40", "--dry-run", "--interval", "1m"}))

	cfg := config.FromViper(v)
	assert.Equal(t, "60,40", cfg.Targets, "flag wins over env")
	assert.Equal(t, "7.5", cfg.Threshold, "env wins over default")
	assert.True(t, cfg.DryRun)
	assert.Equal(t, time.Minute, cfg.Interval)
}

func TestBindRebalanceFlagsSubset(t *testing.T) {
	v := config.NewViper()
	cmd := &cobra.Command{Use: "plan"}
	command.BindRebalanceFlags(cmd, v, "chains", "targets")

	assert.NotNil(t, cmd.Flags().Lookup("chains"))
	assert.NotNil(t, cmd.Flags().Lookup("targets"))
	assert.Nil(t, cmd.Flags().Lookup("once"))
}
