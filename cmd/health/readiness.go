package health

import "github.com/spf13/cobra"

func newReadiness() *cobra.Command {
	return newCheck("readiness", "Checks that the rebalancer is ready", "/-/ready")
}
