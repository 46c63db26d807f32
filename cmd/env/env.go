package env

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github/chapool/cctp-rebalancer/internal/config"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Prints the env",
		Long: `Prints the currently applied env

Secrets such as the private key are never printed.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runEnv()
		},
	}
}

func runEnv() error {
	cfg := config.DefaultRebalancerConfigFromEnv()

	c, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal the env: %w", err)
	}

	fmt.Println(string(c))

	return nil
}
