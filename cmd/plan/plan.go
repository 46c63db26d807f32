package plan

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/util/command"
	"github/chapool/cctp-rebalancer/internal/wallet/cycle"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
)

func New() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Prints the actions the next cycle would run",
		Long: `Reads live balances and prints allocations, the planned actions and
the allocations they would leave behind. Nothing is signed or sent, no
private key is needed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromViper(v)
			cfg.DryRun = true
			return runPlan(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	command.BindRebalanceFlags(cmd, v, "chains", "chains-file", "targets", "threshold")

	return cmd
}

func runPlan(ctx context.Context, cfg config.Rebalancer, out io.Writer) error {
	return command.WithRebalancer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		report, err := s.Cycle.Plan(ctx)
		if err != nil {
			return err
		}

		return PrintReport(out, report)
	})
}

// PrintReport writes a plain text rendering of a planned cycle.
func PrintReport(out io.Writer, report *cycle.Report) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "CHAIN\tBALANCE\tCURRENT %\tTARGET %\tDEVIATION %\t")
	for i, b := range report.Balances {
		d := report.Deviations[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			b.Chain.Name, b.Amount, b.Display(), d.Target.StringFixed(2), d.Deviation.StringFixed(2))
	}
	for _, name := range report.Degraded {
		fmt.Fprintf(w, "warning: balance of %s could not be read and counts as 0\t\n", name)
	}

	if report.NoAction {
		fmt.Fprintln(w, "\nAll chains within threshold, no action.")
		return w.Flush()
	}

	fmt.Fprintln(w, "\nFROM\tTO\tAMOUNT\t")
	for _, a := range report.Actions {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", a.From().Name, a.To().Name, a.Amount())
	}

	fmt.Fprintln(w, "\nCHAIN\tPROJECTED BALANCE\tPROJECTED %\t")
	for _, b := range rebalance.Project(report.Balances, report.Actions) {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", b.Chain.Name, b.Amount, b.Display())
	}

	return w.Flush()
}

