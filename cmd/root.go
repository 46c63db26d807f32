package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github/chapool/cctp-rebalancer/cmd/env"
	"github/chapool/cctp-rebalancer/cmd/health"
	"github/chapool/cctp-rebalancer/cmd/keystore"
	"github/chapool/cctp-rebalancer/cmd/plan"
	"github/chapool/cctp-rebalancer/cmd/rebalance"
	"github/chapool/cctp-rebalancer/cmd/resume"
	"github/chapool/cctp-rebalancer/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "app",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

Keeps USDC allocated across chains at target ratios by burning on
over-allocated chains and minting on under-allocated ones through CCTP.
Requires configuration through ENV or flags.`, config.ModuleName),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	config.LoadDotEnv()

	// attach the subcommands
	rootCmd.AddCommand(
		env.New(),
		keystore.New(),
		plan.New(),
		health.New(),
		rebalance.New(),
		resume.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}
