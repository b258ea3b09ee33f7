// Package dispatch отправляет собранный план в сеть: одна группа уходит
// обычной транзакцией через RPC, несколько групп уходят бандлом через relay.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-migrator/internal/assembler"
	"github.com/rovshanmuradov/pump-migrator/internal/blockchain"
	"github.com/rovshanmuradov/pump-migrator/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pump-migrator/internal/types"
	"github.com/rovshanmuradov/pump-migrator/internal/utils/metrics"
)

const (
	KindSingle = "single"
	KindBundle = "bundle"

	// MaxBundleTransactions: лимит relay, включая транзакцию с чаевыми.
	MaxBundleTransactions = 5
	// MinTipLamports: минимальные чаевые, которые принимает relay.
	MinTipLamports uint64 = 1000
)

var (
	ErrBundleTooManyTransactions = errors.New("bundle exceeds relay transaction limit")
	ErrTipTooLow                 = errors.New("bundle tip below relay minimum")
	ErrNoRelay                   = errors.New("bundle submission requires a relay")
)

// Ledger: RPC-узел: blockhash, отправка, статус подписи, симуляция.
type Ledger interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetSignatureStatus(ctx context.Context, signature solana.Signature) (*blockchain.SignatureStatus, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error)
}

// Relay: приёмник бандлов.
type Relay interface {
	TipAccount(ctx context.Context) (solana.PublicKey, error)
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
	GetBundleStatus(ctx context.Context, bundleID string) (*blockchain.BundleStatus, error)
}

// Signer: владелец ключа плательщика.
type Signer interface {
	Payer() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// Config: параметры ожидания подтверждения и повторов.
type Config struct {
	Commitment     blockchain.ConfirmationLevel
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	MaxAttempts    int
	RetryBase      time.Duration // пауза перед n-й повторной отправкой = RetryBase * n
}

func DefaultConfig() Config {
	return Config{
		Commitment:     blockchain.ConfirmationConfirmed,
		PollInterval:   500 * time.Millisecond,
		ConfirmTimeout: 30 * time.Second,
		MaxAttempts:    3,
		RetryBase:      time.Second,
	}
}

// Options: параметры одной отправки.
type Options struct {
	UseBundle   bool
	TipLamports uint64
}

// Receipt описывает последнюю отправку плана.
type Receipt struct {
	ID         string // подпись транзакции или идентификатор бандла
	Kind       string
	Signatures []solana.Signature
	Slot       uint64
	Level      blockchain.ConfirmationLevel
	Attempts   int
}

type Dispatcher struct {
	ledger   Ledger
	relay    Relay
	signer   Signer
	analyzer *solbc.ErrorAnalyzer
	metrics  *metrics.Collector
	config   Config
	logger   *zap.Logger
}

// New создаёт Dispatcher. relay может быть nil, тогда бандлы недоступны;
// collector может быть nil. Нулевые поля config берутся из DefaultConfig.
func New(ledger Ledger, relay Relay, signer Signer, config Config, collector *metrics.Collector, logger *zap.Logger) *Dispatcher {
	def := DefaultConfig()
	if config.Commitment == blockchain.ConfirmationNone {
		config.Commitment = def.Commitment
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.ConfirmTimeout <= 0 {
		config.ConfirmTimeout = def.ConfirmTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.RetryBase <= 0 {
		config.RetryBase = def.RetryBase
	}

	return &Dispatcher{
		ledger:   ledger,
		relay:    relay,
		signer:   signer,
		analyzer: solbc.NewErrorAnalyzer(logger),
		metrics:  collector,
		config:   config,
		logger:   logger.Named("dispatcher"),
	}
}

// Validate проверяет план и опции без обращения к сети: пустой план,
// наличие relay, лимит транзакций в бандле и минимальные чаевые.
func (d *Dispatcher) Validate(plan *assembler.Plan, opts Options) error {
	if plan == nil || len(plan.Groups) == 0 {
		return assembler.ErrEmptyPlan
	}
	if submissionKind(plan, opts) == KindBundle {
		return d.validateBundle(plan, opts)
	}
	return nil
}

func submissionKind(plan *assembler.Plan, opts Options) string {
	if opts.UseBundle {
		return KindBundle
	}
	return plan.Kind()
}

// Submit отправляет план и ждёт подтверждения. Повторяется только
// SubmissionTimeoutError, каждая попытка заново подписывает транзакции
// со свежим blockhash. Если ctx отменён после отправки, возвращается
// IndeterminateOutcomeError. Receipt возвращается и вместе с ошибкой,
// если хотя бы одна отправка состоялась.
func (d *Dispatcher) Submit(ctx context.Context, plan *assembler.Plan, opts Options) (*Receipt, error) {
	if err := d.Validate(plan, opts); err != nil {
		return nil, err
	}
	kind := submissionKind(plan, opts)

	receipt := &Receipt{Kind: kind}
	logger := d.logger.With(zap.String("kind", kind), zap.Int("groups", len(plan.Groups)))

	operation := func() (*Receipt, error) {
		receipt.Attempts++
		var err error
		if kind == KindBundle {
			err = d.submitBundle(ctx, plan, opts, receipt)
		} else {
			err = d.submitSingle(ctx, plan.Groups[0], receipt)
		}
		if err == nil {
			return receipt, nil
		}

		var indeterminate *types.IndeterminateOutcomeError
		if errors.As(err, &indeterminate) {
			return nil, backoff.Permanent(err)
		}
		var timeout *types.SubmissionTimeoutError
		if errors.As(err, &timeout) && ctx.Err() == nil {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		d.metrics.RecordRetry(kind)
		logger.Warn("Submission not confirmed, resubmitting",
			zap.Int("attempt", receipt.Attempts),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(newLinearBackOff(d.config.RetryBase)),
		backoff.WithMaxTries(uint(d.config.MaxAttempts)),
		backoff.WithNotify(notify))
	if err != nil {
		d.metrics.RecordSubmission(kind, false)
		if receipt.ID == "" {
			return nil, err
		}
		var indeterminate *types.IndeterminateOutcomeError
		if ctx.Err() != nil && !errors.As(err, &indeterminate) {
			err = &types.IndeterminateOutcomeError{ID: receipt.ID, Err: err}
		}
		logger.Error("Submission failed", zap.String("id", receipt.ID), zap.Int("attempts", receipt.Attempts), zap.Error(err))
		return receipt, err
	}

	d.metrics.RecordSubmission(kind, true)
	logger.Info("Submission confirmed",
		zap.String("id", receipt.ID),
		zap.Uint64("slot", receipt.Slot),
		zap.Stringer("level", receipt.Level),
		zap.Int("attempts", receipt.Attempts))
	return receipt, nil
}

func (d *Dispatcher) submitSingle(ctx context.Context, group assembler.InstructionSet, receipt *Receipt) error {
	blockhash, err := d.ledger.GetRecentBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := d.newSignedTransaction(group, blockhash)
	if err != nil {
		return err
	}

	sig, err := d.ledger.SendTransaction(ctx, tx)
	if err != nil {
		if reason, logs, ok := d.analyzer.PreflightFailure(err); ok {
			return &types.OnChainRejectionError{
				Signature: tx.Signatures[0].String(),
				Simulated: true,
				Reason:    reason,
				Logs:      logs,
			}
		}
		return fmt.Errorf("failed to send transaction: %w", err)
	}

	receipt.ID = sig.String()
	receipt.Signatures = []solana.Signature{sig}
	d.logger.Debug("Transaction sent", zap.String("signature", receipt.ID), zap.Int("attempt", receipt.Attempts))

	return d.awaitSignature(ctx, sig, receipt)
}

// Simulate прогоняет каждую группу плана через симуляцию без отправки.
// Группы симулируются независимо, в исходном порядке.
func (d *Dispatcher) Simulate(ctx context.Context, plan *assembler.Plan) (*blockchain.SimulationResult, error) {
	if plan == nil || len(plan.Groups) == 0 {
		return nil, assembler.ErrEmptyPlan
	}

	blockhash, err := d.ledger.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	total := &blockchain.SimulationResult{}
	for i, group := range plan.Groups {
		tx, err := d.newSignedTransaction(group, blockhash)
		if err != nil {
			return nil, err
		}

		res, err := d.ledger.SimulateTransaction(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("failed to simulate group %d: %w", i, err)
		}
		total.UnitsConsumed += res.UnitsConsumed
		total.Logs = append(total.Logs, res.Logs...)

		if res.Err != nil {
			reason := d.analyzer.Reason(res.Err, res.Logs)
			d.logger.Warn("Simulation rejected", zap.Int("group", i), zap.String("reason", reason))
			return nil, &types.OnChainRejectionError{Simulated: true, Reason: reason, Logs: res.Logs}
		}
	}

	d.logger.Debug("Simulation passed", zap.Int("groups", len(plan.Groups)), zap.Uint64("units", total.UnitsConsumed))
	return total, nil
}

func (d *Dispatcher) newSignedTransaction(instructions []solana.Instruction, blockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(d.signer.Payer()))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := d.signer.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}
