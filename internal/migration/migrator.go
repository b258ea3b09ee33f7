// Package migration проводит одну попытку переноса позиции с bonding curve
// pump.fun в пул PumpSwap: проверка, котировка, сборка, отправка.
package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pump-migrator/internal/assembler"
	"github.com/rovshanmuradov/pump-migrator/internal/blockchain"
	"github.com/rovshanmuradov/pump-migrator/internal/dex"
	"github.com/rovshanmuradov/pump-migrator/internal/dispatch"
	"github.com/rovshanmuradov/pump-migrator/internal/quote"
	"github.com/rovshanmuradov/pump-migrator/internal/types"
	"github.com/rovshanmuradov/pump-migrator/internal/utils/logger"
	"github.com/rovshanmuradov/pump-migrator/internal/utils/metrics"
)

// DefaultTipLamports: чаевые relay, если Options.TipAmount не задан.
const DefaultTipLamports uint64 = 10_000

// Dispatcher: отправка и симуляция собранного плана.
type Dispatcher interface {
	Validate(plan *assembler.Plan, opts dispatch.Options) error
	Submit(ctx context.Context, plan *assembler.Plan, opts dispatch.Options) (*dispatch.Receipt, error)
	Simulate(ctx context.Context, plan *assembler.Plan) (*blockchain.SimulationResult, error)
}

// Options: параметры одной миграции.
type Options struct {
	UseBundle        bool
	ComputeUnitPrice uint64 // micro-lamports за compute unit, 0: без приоритета
	ComputeUnitLimit uint32 // 0: types.DefaultComputeUnits
	TipAmount        uint64 // lamports, только для бандла
	SimulateOnly     bool
}

// Request: все входные данные попытки.
type Request struct {
	TokenID      string
	BuyAmount    uint64 // lamports, вырученные на источнике и вложенные в назначение
	SlippageBps  uint16
	MaxFeeBudget uint64 // в единицах токена, сравнивается с ImpliedFee входа
	Options      Options
}

// Result: итог успешной попытки (или её симуляции).
type Result struct {
	AttemptID           string
	SignatureOrBundleID string
	Kind                string
	ExecutedPrice       float64 // lamports за единицу токена при наихудшем допустимом выходе
	DestinationPool     solana.PublicKey
	FeePaid             uint64
	Simulated           bool
	UnitsConsumed       uint64
	Slot                uint64
	Entry               types.Quote
	Exit                types.Quote
}

// Config: параметры, общие для всех попыток.
type Config struct {
	SizeCeiling int // 0: assembler.DefaultCeiling
}

// Migrator не хранит состояния между попытками: площадки создаются
// фабрикой заново для каждого вызова.
type Migrator struct {
	venues     dex.VenueFactory
	dispatcher Dispatcher
	trader     solana.PublicKey
	priority   *types.PriorityManager
	config     Config
	metrics    *metrics.Collector
	logger     *zap.Logger
}

func New(venues dex.VenueFactory, dispatcher Dispatcher, trader solana.PublicKey, config Config, collector *metrics.Collector, logger *zap.Logger) *Migrator {
	if config.SizeCeiling <= 0 {
		config.SizeCeiling = assembler.DefaultCeiling
	}
	return &Migrator{
		venues:     venues,
		dispatcher: dispatcher,
		trader:     trader,
		priority:   types.NewPriorityManager(logger),
		config:     config,
		metrics:    collector,
		logger:     logger.Named("migrator"),
	}
}

// Migrate: позиционная форма MigrateRequest.
func (m *Migrator) Migrate(ctx context.Context, tokenID string, buyAmount uint64, slippageBps uint16, maxFeeBudget uint64, opts Options) (*Result, error) {
	return m.MigrateRequest(ctx, Request{
		TokenID:      tokenID,
		BuyAmount:    buyAmount,
		SlippageBps:  slippageBps,
		MaxFeeBudget: maxFeeBudget,
		Options:      opts,
	})
}

// attempt: состояние одного вызова; не переживает его.
type attempt struct {
	id      string
	req     Request
	state   State
	started time.Time
	logger  *zap.Logger

	pair        *dex.Pair
	source      *types.PoolReserves
	destination *types.PoolReserves
	entry       *types.Quote
	exit        *types.Quote
	plan        *assembler.Plan
}

func (a *attempt) advance(next State) {
	a.logger.Debug("State transition", zap.Stringer("from", a.state), zap.Stringer("to", next))
	a.state = next
}

func (a *attempt) fail(err error) error {
	return &Error{AttemptID: a.id, State: a.state, Err: err}
}

// MigrateRequest проходит Idle -> Checked -> Quoted -> Assembled -> Submitted
// -> Confirmed. Любой отказ возвращается как *Error с состоянием, в котором
// он произошёл; причина от площадок, котировки и диспетчера не меняется.
func (m *Migrator) MigrateRequest(ctx context.Context, req Request) (res *Result, err error) {
	a := &attempt{
		id:      uuid.NewString(),
		req:     req,
		state:   StateIdle,
		started: time.Now(),
	}
	a.logger = logger.WithAttempt(m.logger, a.id, req.TokenID)

	defer func() {
		outcome := "confirmed"
		switch {
		case err != nil:
			outcome = "failed"
			var indeterminate *types.IndeterminateOutcomeError
			if errors.As(err, &indeterminate) {
				outcome = "indeterminate"
			}
		case res != nil && res.Simulated:
			outcome = "simulated"
		}
		m.metrics.RecordAttempt(a.state.String(), outcome, time.Since(a.started))
	}()

	if err := validate(req); err != nil {
		return nil, a.fail(err)
	}

	a.logger.Info("Migration started",
		zap.Uint64("buy_amount", req.BuyAmount),
		zap.Uint16("slippage_bps", req.SlippageBps),
		zap.Uint64("max_fee_budget", req.MaxFeeBudget),
		zap.Bool("simulate_only", req.Options.SimulateOnly))

	if err := m.check(ctx, a); err != nil {
		return nil, a.fail(err)
	}
	a.advance(StateChecked)

	if err := m.quote(a); err != nil {
		return nil, a.fail(err)
	}
	a.advance(StateQuoted)

	if err := m.assemble(a); err != nil {
		return nil, a.fail(err)
	}
	a.advance(StateAssembled)

	if req.Options.SimulateOnly {
		return m.simulate(ctx, a)
	}

	dispatchOpts := dispatch.Options{
		UseBundle:   req.Options.UseBundle,
		TipLamports: tipAmount(req.Options),
	}
	// ошибки проверки детерминированы и возникают до отправки
	if err := m.dispatcher.Validate(a.plan, dispatchOpts); err != nil {
		return nil, a.fail(err)
	}

	a.advance(StateSubmitted)
	receipt, err := m.dispatcher.Submit(ctx, a.plan, dispatchOpts)
	if err != nil {
		a.logger.Error("Submission failed", zap.Error(err))
		return nil, a.fail(err)
	}
	a.advance(StateConfirmed)

	res = m.result(a)
	res.SignatureOrBundleID = receipt.ID
	res.Kind = receipt.Kind
	res.Slot = receipt.Slot

	a.logger.Info("Migration confirmed",
		zap.String("id", receipt.ID),
		zap.String("kind", receipt.Kind),
		zap.Int("attempts", receipt.Attempts),
		zap.Float64("executed_price", res.ExecutedPrice),
		zap.Duration("elapsed", time.Since(a.started)))
	return res, nil
}

func validate(req Request) error {
	if _, err := solana.PublicKeyFromBase58(req.TokenID); err != nil {
		return fmt.Errorf("%w: %q: %v", types.ErrInvalidToken, req.TokenID, err)
	}
	if req.BuyAmount == 0 {
		return fmt.Errorf("%w: buy amount must be positive", types.ErrInvalidAmount)
	}
	return types.ValidateSlippage(req.SlippageBps)
}

// check создаёт свежие площадки и читает резервы обеих параллельно.
func (m *Migrator) check(ctx context.Context, a *attempt) error {
	pair, err := m.venues(a.req.TokenID)
	if err != nil {
		return fmt.Errorf("failed to create venues: %w", err)
	}
	a.pair = pair

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := pair.Source.FetchReserves(gctx)
		if err != nil {
			return fmt.Errorf("%s: %w", pair.Source.Name(), err)
		}
		a.source = r
		return nil
	})
	g.Go(func() error {
		r, err := pair.Destination.FetchReserves(gctx)
		if err != nil {
			return fmt.Errorf("%s: %w", pair.Destination.Name(), err)
		}
		a.destination = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Debug("Reserves fetched",
		zap.Uint64("source_base", a.source.ReserveBase),
		zap.Uint64("source_quote", a.source.ReserveQuote),
		zap.Uint64("destination_base", a.destination.ReserveBase),
		zap.Uint64("destination_quote", a.destination.ReserveQuote))
	return nil
}

// quote: вход на назначении за BuyAmount lamports и выход с источника,
// дающий те же BuyAmount lamports. Бюджет проверяется до сборки.
func (m *Migrator) quote(a *attempt) error {
	entry, err := quote.ComputeQuote(*a.destination, types.QuoteToBase, a.req.BuyAmount, a.req.SlippageBps)
	if err != nil {
		return fmt.Errorf("entry quote: %w", err)
	}
	if err := quote.WithinBudget(entry, a.req.MaxFeeBudget); err != nil {
		return err
	}

	exit, err := quote.QuoteForOutput(*a.source, types.BaseToQuote, a.req.BuyAmount, a.source.FeeBasisPoints, a.req.SlippageBps)
	if err != nil {
		return fmt.Errorf("exit quote: %w", err)
	}

	a.entry, a.exit = entry, exit
	a.logger.Debug("Quoted",
		zap.Uint64("entry_expected_out", entry.ExpectedOut),
		zap.Uint64("entry_worst_out", entry.WorstAcceptableOut),
		zap.Uint64("implied_fee", entry.ImpliedFee),
		zap.Uint64("exit_tokens_in", exit.TradeAmount))
	return nil
}

// assemble: compute budget, выход с источника, подготовка назначения, вход.
func (m *Migrator) assemble(a *attempt) error {
	limit := a.req.Options.ComputeUnitLimit
	if limit == 0 {
		limit = types.DefaultComputeUnits
	}

	exitIxs, err := a.pair.Source.BuildExitInstruction(a.exit, m.trader)
	if err != nil {
		return fmt.Errorf("build exit: %w", err)
	}
	migrationIxs, err := a.pair.Destination.BuildMigrationInstruction(a.entry, m.trader)
	if err != nil {
		return fmt.Errorf("build migration: %w", err)
	}
	entryIxs, err := a.pair.Destination.BuildEntryInstruction(a.entry, m.trader)
	if err != nil {
		return fmt.Errorf("build entry: %w", err)
	}

	sets := []assembler.InstructionSet{
		m.priority.CreateCustomPriorityInstructions(a.req.Options.ComputeUnitPrice, limit),
		exitIxs,
		migrationIxs,
		entryIxs,
	}

	plan, err := assembler.New(m.config.SizeCeiling, m.trader).Assemble(sets)
	if err != nil {
		return err
	}
	a.plan = plan

	a.logger.Debug("Plan assembled", zap.String("kind", plan.Kind()), zap.Ints("sizes", plan.Sizes))
	return nil
}

func (m *Migrator) simulate(ctx context.Context, a *attempt) (*Result, error) {
	sim, err := m.dispatcher.Simulate(ctx, a.plan)
	if err != nil {
		return nil, a.fail(err)
	}

	res := m.result(a)
	res.Simulated = true
	res.Kind = a.plan.Kind()
	res.UnitsConsumed = sim.UnitsConsumed

	a.logger.Info("Migration simulated",
		zap.String("kind", res.Kind),
		zap.Uint64("units", sim.UnitsConsumed),
		zap.Float64("executed_price", res.ExecutedPrice))
	return res, nil
}

func (m *Migrator) result(a *attempt) *Result {
	return &Result{
		AttemptID:       a.id,
		ExecutedPrice:   a.entry.ExecutedPrice(),
		DestinationPool: a.destination.Address,
		FeePaid:         a.entry.ImpliedFee,
		Entry:           *a.entry,
		Exit:            *a.exit,
	}
}

func tipAmount(opts Options) uint64 {
	if opts.TipAmount == 0 {
		return DefaultTipLamports
	}
	return opts.TipAmount
}
