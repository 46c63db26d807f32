package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/util/command"
)

const (
	verboseFlag string = "verbose"
	checkTimeout       = 5 * time.Second
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("health",
		newLiveness(),
		newReadiness(),
	)
}

func newCheck(use, short, path string) *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: fmt.Sprintf(`%s

Requests %s on the running rebalancer (--listen) and exits non-zero unless
it answers 200.`, short, path),
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cmd.OutOrStdout(), config.FromViper(v).Listen, path, verbose)
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")
	command.BindRebalanceFlags(cmd, v, "listen")

	return cmd
}

func runCheck(ctx context.Context, out io.Writer, listen, path string, verbose bool) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	url := CheckURL(listen, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create health request")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "health check %s failed", url)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	if verbose {
		fmt.Fprintf(out, "%s %d %s\n", url, res.StatusCode, strings.TrimSpace(string(body)))
	}

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("health check %s returned %d", url, res.StatusCode)
	}

	return nil
}

// CheckURL turns a listen address such as ":8080" into a local URL.
func CheckURL(listen, path string) string {
	host := listen
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return "http://" + host + path
}
