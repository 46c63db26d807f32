package resume

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github/chapool/cctp-rebalancer/internal/api"
	"github/chapool/cctp-rebalancer/internal/config"
	"github/chapool/cctp-rebalancer/internal/util/command"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
)

const (
	fromFlag   = "from"
	toFlag     = "to"
	burnTxFlag = "burn-tx"
)

var ErrInvalidBurnTx = errors.New("invalid burn transaction hash")

func New() *cobra.Command {
	v := config.NewViper()

	var (
		from   string
		to     string
		burnTx string
	)

	cmd := &cobra.Command{
		Use:   "resume-mint",
		Short: "Completes the mint of an already burned transfer",
		Long: `Waits for the attestation of a confirmed burn and submits the mint on the
destination chain. Use it after an action failed past the burn step; the
failure report carries the burn transaction hash. A message that was
already received on the destination is reported and not minted again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromViper(v)
			// both chains must be resolvable, whatever the active set is
			cfg.Chains = from + "," + to
			cfg.Targets = ""
			return runResume(cmd.Context(), cfg, from, to, burnTx)
		},
	}

	cmd.Flags().StringVar(&from, fromFlag, "", "source chain name of the burn")
	cmd.Flags().StringVar(&to, toFlag, "", "destination chain name")
	cmd.Flags().StringVar(&burnTx, burnTxFlag, "", "burn transaction hash on the source chain")
	for _, f := range []string{fromFlag, toFlag, burnTxFlag} {
		_ = cmd.MarkFlagRequired(f)
	}
	command.BindRebalanceFlags(cmd, v, "chains-file")

	return cmd
}

func runResume(ctx context.Context, cfg config.Rebalancer, from, to, burnTx string) error {
	if b := common.FromHex(burnTx); len(b) != common.HashLength {
		return errors.Wrapf(ErrInvalidBurnTx, "%q", burnTx)
	}
	hash := common.HexToHash(burnTx)

	return command.WithRebalancer(ctx, cfg, func(ctx context.Context, s *api.Server) error {
		src, dst, err := endpoints(s.Resolved.Chains, from, to)
		if err != nil {
			return err
		}

		out := s.Pipeline.ResumeMint(ctx, src, dst, hash)
		if !out.Success {
			return out.Err
		}

		log.Info().
			Str("from", src.Name).
			Str("to", dst.Name).
			Str("amount", out.Action.Amount().String()).
			Str("source_tx", out.SourceTx.Hex()).
			Str("dest_tx", out.DestTx.Hex()).
			Str("message_id", out.MessageID.Hex()).
			Bool("already_minted", out.AlreadyMinted).
			Msg("Resume: mint complete")

		return nil
	})
}

func endpoints(chains []chain.Handle, from, to string) (chain.Handle, chain.Handle, error) {
	svc, err := chain.NewService(chains)
	if err != nil {
		return chain.Handle{}, chain.Handle{}, err
	}

	src, err := svc.GetChain(context.Background(), from)
	if err != nil {
		return chain.Handle{}, chain.Handle{}, err
	}
	dst, err := svc.GetChain(context.Background(), to)
	if err != nil {
		return chain.Handle{}, chain.Handle{}, err
	}

	return src, dst, nil
}
