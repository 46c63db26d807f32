package transfer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github/chapool/cctp-rebalancer/internal/retry"
	"github/chapool/cctp-rebalancer/internal/wallet/cctp"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
)

// ResumeMint completes a transfer whose burn is already confirmed on from,
// typically after an attestation timeout. The message is re-read from the
// burn receipt; if the destination already received it no mint is sent.
func (p *Pipeline) ResumeMint(ctx context.Context, from, to chain.Handle, burnTx common.Hash) Outcome {
	src, srcErr := p.sessions.Session(ctx, from)
	dst, dstErr := p.sessions.Session(ctx, to)

	var (
		receipt *types.Receipt
		err     error
	)
	if srcErr == nil {
		receipt, err = retry.DoWithData(ctx, p.retrier(StateBurning, from.Name), func(ctx context.Context) (*types.Receipt, error) {
			return src.Receipt(ctx, burnTx)
		})
	}

	// The amount is only known once the message is decoded.
	r := newRun(rebalance.NewAction(from, to, resumedAmount(receipt, from)))
	r.out.SourceTx = burnTx
	r.enter(StateBurning)

	switch {
	case srcErr != nil:
		return r.fail(errors.Wrap(srcErr, "failed to get source session"))
	case dstErr != nil:
		return r.fail(errors.Wrap(dstErr, "failed to get destination session"))
	case err != nil:
		return r.fail(errors.Wrap(err, "failed to read burn receipt"))
	case receipt.Status != types.ReceiptStatusSuccessful:
		return r.fail(retry.Terminal(errors.Wrapf(ErrReverted, "burn tx=%s", burnTx.Hex())))
	}

	message, key := p.messageKey(src, burnTx, receipt, r)

	if len(message) > 0 {
		used, err := p.messageReceived(ctx, dst, message)
		if err != nil {
			r.enter(StateMinting)
			return r.fail(err)
		}
		if used {
			log.Info().
				Str("burn_tx", burnTx.Hex()).
				Str("message_id", r.out.MessageID.Hex()).
				Str("to", to.Name).
				Msg("TransferPipeline: message already received on destination, nothing to mint")
			r.out.AlreadyMinted = true
			return r.complete()
		}
	}

	// A degraded lookup only learns the message from the attestation, so
	// the received check runs after it.
	return p.attestAndMint(ctx, r, dst, message, key, len(message) == 0)
}

func (p *Pipeline) messageReceived(ctx context.Context, dst ChainSession, message []byte) (bool, error) {
	header, err := cctp.DecodeHeader(message)
	if err != nil {
		return false, err
	}

	data, err := cctp.PackUsedNonces(header.NonceKey())
	if err != nil {
		return false, err
	}

	h := dst.Chain()
	resp, err := retry.DoWithData(ctx, p.retrier(StateMinting, h.Name), func(ctx context.Context) ([]byte, error) {
		return dst.Call(ctx, h.MessageTransmitter, data)
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to read used nonces")
	}

	return cctp.UnpackUsedNonces(resp)
}

func resumedAmount(receipt *types.Receipt, from chain.Handle) *big.Int {
	if receipt == nil {
		return new(big.Int)
	}

	message, ok, err := cctp.ParseMessageSent(receipt.Logs, from.MessageTransmitter)
	if err != nil || !ok {
		return new(big.Int)
	}

	body, err := cctp.DecodeBurnBody(message)
	if err != nil {
		return new(big.Int)
	}

	return body.Amount
}
