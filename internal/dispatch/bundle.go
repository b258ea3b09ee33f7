package dispatch

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-migrator/internal/assembler"
	"github.com/rovshanmuradov/pump-migrator/internal/types"
)

func (d *Dispatcher) validateBundle(plan *assembler.Plan, opts Options) error {
	if d.relay == nil {
		return ErrNoRelay
	}
	if n := len(plan.Groups) + 1; n > MaxBundleTransactions {
		return fmt.Errorf("%w: %d transactions including tip, max %d", ErrBundleTooManyTransactions, n, MaxBundleTransactions)
	}
	if opts.TipLamports < MinTipLamports {
		return fmt.Errorf("%w: %d < %d lamports", ErrTipTooLow, opts.TipLamports, MinTipLamports)
	}
	return nil
}

// buildBundle подписывает по транзакции на группу и добавляет в конец
// перевод чаевых. Все транзакции делят один blockhash.
func (d *Dispatcher) buildBundle(ctx context.Context, plan *assembler.Plan, opts Options) ([]*solana.Transaction, error) {
	tipAccount, err := d.relay.TipAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tip account: %w", err)
	}

	blockhash, err := d.ledger.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	txs := make([]*solana.Transaction, 0, len(plan.Groups)+1)
	for i, group := range plan.Groups {
		tx, err := d.newSignedTransaction(group, blockhash)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		txs = append(txs, tx)
	}

	tip := system.NewTransferInstruction(opts.TipLamports, d.signer.Payer(), tipAccount).Build()
	tipTx, err := d.newSignedTransaction([]solana.Instruction{tip}, blockhash)
	if err != nil {
		return nil, fmt.Errorf("tip: %w", err)
	}
	return append(txs, tipTx), nil
}

func (d *Dispatcher) submitBundle(ctx context.Context, plan *assembler.Plan, opts Options, receipt *Receipt) error {
	txs, err := d.buildBundle(ctx, plan, opts)
	if err != nil {
		return err
	}

	bundleID, err := d.relay.SendBundle(ctx, txs)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &types.BundleRejectedError{Reason: err.Error()}
	}

	receipt.ID = bundleID
	receipt.Signatures = make([]solana.Signature, len(txs))
	for i, tx := range txs {
		receipt.Signatures[i] = tx.Signatures[0]
	}
	d.logger.Debug("Bundle sent",
		zap.String("bundle_id", bundleID),
		zap.Int("transactions", len(txs)),
		zap.Uint64("tip_lamports", opts.TipLamports),
		zap.Int("attempt", receipt.Attempts))

	return d.awaitBundle(ctx, bundleID, receipt)
}
