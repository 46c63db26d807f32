package health

import "github.com/spf13/cobra"

func newLiveness() *cobra.Command {
	return newCheck("liveness", "Checks that the rebalancer is alive", "/-/healthy")
}
