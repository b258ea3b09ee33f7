package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-migrator/internal/blockchain"
	"github.com/rovshanmuradov/pump-migrator/internal/types"
)

// awaitSignature опрашивает статус подписи до нужного уровня подтверждения.
func (d *Dispatcher) awaitSignature(ctx context.Context, sig solana.Signature, receipt *Receipt) error {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(d.config.ConfirmTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &types.SubmissionTimeoutError{ID: sig.String(), Attempts: receipt.Attempts}
		case <-ticker.C:
			status, err := d.ledger.GetSignatureStatus(ctx, sig)
			if err != nil {
				d.logger.Warn("Signature status check failed", zap.String("signature", sig.String()), zap.Error(err))
				continue
			}
			if status == nil {
				continue
			}
			if status.Err != nil {
				return &types.OnChainRejectionError{
					Signature: sig.String(),
					Reason:    d.analyzer.Reason(status.Err, nil),
				}
			}
			if status.Level >= d.config.Commitment {
				receipt.Slot = status.Slot
				receipt.Level = status.Level
				return nil
			}
		}
	}
}

// awaitBundle опрашивает relay. Бандл, который висел в очереди и пропал,
// считается отброшенным. Пропажа уже приземлившегося бандла (relay забыл его
// раньше, чем дошло нужное подтверждение) ничего не доказывает: ждём до
// таймаута и не переотправляем, исход такого бандла неизвестен.
func (d *Dispatcher) awaitBundle(ctx context.Context, bundleID string, receipt *Receipt) error {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(d.config.ConfirmTimeout)
	defer deadline.Stop()

	pending, landed := false, false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			timeout := &types.SubmissionTimeoutError{ID: bundleID, Attempts: receipt.Attempts}
			if landed {
				// бандл уже в блоке: повторная отправка может исполнить его дважды
				return &types.IndeterminateOutcomeError{ID: bundleID, Err: timeout}
			}
			return timeout
		case <-ticker.C:
			status, err := d.relay.GetBundleStatus(ctx, bundleID)
			if err != nil {
				d.logger.Warn("Bundle status check failed", zap.String("bundle_id", bundleID), zap.Error(err))
				continue
			}

			switch status.State {
			case blockchain.BundleLanded:
				if len(status.TxErrors) > 0 {
					return &types.OnChainRejectionError{
						Signature: bundleID,
						Reason:    strings.Join(status.TxErrors, "; "),
					}
				}
				landed = true
				if status.Level >= d.config.Commitment {
					receipt.Slot = status.Slot
					receipt.Level = status.Level
					return nil
				}
			case blockchain.BundleFailed:
				return &types.BundleRejectedError{BundleID: bundleID, Reason: status.Reason}
			case blockchain.BundlePending:
				pending = true
			case blockchain.BundleUnknown:
				if pending && !landed {
					return &types.BundleRejectedError{BundleID: bundleID, Reason: "bundle dropped by relay"}
				}
			}
		}
	}
}
