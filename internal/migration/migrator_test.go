package migration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pump-migrator/internal/assembler"
	"github.com/rovshanmuradov/pump-migrator/internal/blockchain"
	"github.com/rovshanmuradov/pump-migrator/internal/dex"
	"github.com/rovshanmuradov/pump-migrator/internal/dispatch"
	"github.com/rovshanmuradov/pump-migrator/internal/types"
	"github.com/rovshanmuradov/pump-migrator/internal/utils/metrics"
)

type fakeVenue struct {
	name     string
	program  solana.PublicKey
	reserves types.PoolReserves
	err      error
	dataLen  int
}

func (v *fakeVenue) Name() string { return v.name }

func (v *fakeVenue) FetchReserves(context.Context) (*types.PoolReserves, error) {
	if v.err != nil {
		return nil, v.err
	}
	r := v.reserves
	return &r, nil
}

func (v *fakeVenue) ix(tag byte) []solana.Instruction {
	data := make([]byte, v.dataLen+1)
	data[0] = tag
	return []solana.Instruction{solana.NewInstruction(v.program, solana.AccountMetaSlice{
		solana.Meta(solana.NewWallet().PublicKey()).WRITE(),
	}, data)}
}

func (v *fakeVenue) BuildExitInstruction(*types.Quote, solana.PublicKey) ([]solana.Instruction, error) {
	return v.ix('x'), nil
}

func (v *fakeVenue) BuildEntryInstruction(*types.Quote, solana.PublicKey) ([]solana.Instruction, error) {
	return v.ix('e'), nil
}

func (v *fakeVenue) BuildMigrationInstruction(*types.Quote, solana.PublicKey) ([]solana.Instruction, error) {
	return v.ix('m'), nil
}

type fakeDispatcher struct {
	mu          sync.Mutex
	plans       []*assembler.Plan
	opts        []dispatch.Options
	simulations int
	submitErr   error
	validateErr error
	waitCancel  bool
}

func (d *fakeDispatcher) Validate(*assembler.Plan, dispatch.Options) error {
	return d.validateErr
}

func (d *fakeDispatcher) Submit(ctx context.Context, plan *assembler.Plan, opts dispatch.Options) (*dispatch.Receipt, error) {
	d.mu.Lock()
	d.plans = append(d.plans, plan)
	d.opts = append(d.opts, opts)
	d.mu.Unlock()

	if d.waitCancel {
		<-ctx.Done()
		return &dispatch.Receipt{ID: "sig-1"}, &types.IndeterminateOutcomeError{ID: "sig-1", Err: ctx.Err()}
	}
	if d.submitErr != nil {
		return nil, d.submitErr
	}
	return &dispatch.Receipt{ID: "sig-1", Kind: plan.Kind(), Slot: 77, Attempts: 1}, nil
}

func (d *fakeDispatcher) Simulate(_ context.Context, plan *assembler.Plan) (*blockchain.SimulationResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plans = append(d.plans, plan)
	d.simulations++
	return &blockchain.SimulationResult{UnitsConsumed: 150_000}, nil
}

func (d *fakeDispatcher) submits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.opts)
}

type fixture struct {
	source      *fakeVenue
	destination *fakeVenue
	dispatcher  *fakeDispatcher
	factoryHits int32
	collector   *metrics.Collector
	migrator    *Migrator
	token       string
}

// newFixture: источник с глубокой кривой, назначение 500_000 токенов / 1_000_000 lamports.
func newFixture(t *testing.T) *fixture {
	f := &fixture{
		source: &fakeVenue{
			name:    "pump.fun",
			program: solana.NewWallet().PublicKey(),
			reserves: types.PoolReserves{
				VenueID:        "pump.fun",
				ReserveBase:    1_000_000_000,
				ReserveQuote:   30_000_000_000,
				FeeBasisPoints: 100,
			},
		},
		destination: &fakeVenue{
			name:    "pump.swap",
			program: solana.NewWallet().PublicKey(),
			reserves: types.PoolReserves{
				VenueID:        "pump.swap",
				Address:        solana.NewWallet().PublicKey(),
				ReserveBase:    500_000,
				ReserveQuote:   1_000_000,
				FeeBasisPoints: 25,
			},
		},
		dispatcher: &fakeDispatcher{},
		collector:  metrics.NewCollector(),
		token:      solana.NewWallet().PublicKey().String(),
	}

	factory := func(string) (*dex.Pair, error) {
		atomic.AddInt32(&f.factoryHits, 1)
		return &dex.Pair{Source: f.source, Destination: f.destination}, nil
	}
	f.migrator = New(factory, f.dispatcher, solana.NewWallet().PublicKey(), Config{}, f.collector, zaptest.NewLogger(t))
	return f
}

func requireMigrationError(t *testing.T, err error, state State) *Error {
	t.Helper()
	var me *Error
	require.ErrorAs(t, err, &me)
	assert.Equal(t, state, me.State)
	assert.NotEmpty(t, me.AttemptID)
	return me
}

func TestMigrate_FeeBudgetExceededBeforeSubmission(t *testing.T) {
	f := newFixture(t)

	// out = floor(500000*1000/1001000) = 499, worst = floor(499*0.7) = 349,
	// linear = 500, implied fee = 151
	_, err := f.migrator.Migrate(context.Background(), f.token, 1000, 3000, 100, Options{})

	var budget *types.FeeBudgetExceededError
	require.ErrorAs(t, err, &budget)
	assert.Equal(t, uint64(151), budget.ImpliedFee)
	assert.Equal(t, uint64(100), budget.Budget)

	me := requireMigrationError(t, err, StateChecked)
	assert.False(t, me.TouchedChain())
	assert.True(t, SafeToRetry(err))
	assert.Zero(t, f.dispatcher.submits())
	assert.Zero(t, f.dispatcher.simulations)
}

func TestMigrate_Confirmed(t *testing.T) {
	f := newFixture(t)

	res, err := f.migrator.Migrate(context.Background(), f.token, 1000, 3000, 200, Options{ComputeUnitPrice: 5000})
	require.NoError(t, err)

	assert.Equal(t, "sig-1", res.SignatureOrBundleID)
	assert.Equal(t, "single", res.Kind)
	assert.Equal(t, uint64(77), res.Slot)
	assert.False(t, res.Simulated)
	assert.Equal(t, f.destination.reserves.Address, res.DestinationPool)
	assert.Equal(t, uint64(151), res.FeePaid)
	assert.Equal(t, uint64(499), res.Entry.ExpectedOut)
	assert.Equal(t, uint64(349), res.Entry.WorstAcceptableOut)
	assert.InDelta(t, 1000.0/349.0, res.ExecutedPrice, 1e-9)
	assert.Equal(t, uint64(1000), res.Exit.ExpectedOut)

	require.Equal(t, 1, f.dispatcher.submits())
	assert.Equal(t, DefaultTipLamports, f.dispatcher.opts[0].TipLamports)

	// compute budget, выход, подготовка, вход
	ixs := f.dispatcher.plans[0].Flatten()
	require.Len(t, ixs, 5)
	assert.Equal(t, computebudget.ProgramID, ixs[0].ProgramID())
	assert.Equal(t, computebudget.ProgramID, ixs[1].ProgramID())
	assert.Equal(t, f.source.program, ixs[2].ProgramID())
	assert.Equal(t, f.destination.program, ixs[3].ProgramID())
	assert.Equal(t, f.destination.program, ixs[4].ProgramID())
	data, err := ixs[3].Data()
	require.NoError(t, err)
	assert.Equal(t, byte('m'), data[0])

	count, err := testutil.GatherAndCount(f.collector.Registry(), "pump_migrator_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrate_SimulateOnlyIsIdempotent(t *testing.T) {
	f := newFixture(t)
	opts := Options{SimulateOnly: true}

	first, err := f.migrator.Migrate(context.Background(), f.token, 1000, 3000, 200, opts)
	require.NoError(t, err)
	second, err := f.migrator.Migrate(context.Background(), f.token, 1000, 3000, 200, opts)
	require.NoError(t, err)

	assert.True(t, first.Simulated)
	assert.Empty(t, first.SignatureOrBundleID)
	assert.Equal(t, uint64(150_000), first.UnitsConsumed)
	assert.Equal(t, first.ExecutedPrice, second.ExecutedPrice)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)

	assert.Zero(t, f.dispatcher.submits())
	assert.Equal(t, 2, f.dispatcher.simulations)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.factoryHits))
}

func TestMigrate_VenueFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		check func(t *testing.T, err error)
	}{
		{
			name: "destination pool not found",
			setup: func(f *fixture) {
				f.destination.err = &types.PoolNotFoundError{Venue: "pump.swap", Token: f.token}
			},
			check: func(t *testing.T, err error) {
				var nf *types.PoolNotFoundError
				assert.ErrorAs(t, err, &nf)
			},
		},
		{
			name: "source curve completed",
			setup: func(f *fixture) {
				f.source.err = &types.PoolCompletedError{Venue: "pump.fun", Token: f.token}
			},
			check: func(t *testing.T, err error) {
				var completed *types.PoolCompletedError
				assert.ErrorAs(t, err, &completed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.migrator.Migrate(context.Background(), f.token, 1000, 3000, 200, Options{})
			tt.check(t, err)
			requireMigrationError(t, err, StateIdle)
			assert.True(t, SafeToRetry(err))
			assert.Zero(t, f.dispatcher.submits())
		})
	}
}

func TestMigrate_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		buy      uint64
		slippage uint16
		want     error
	}{
		{"zero buy amount", "", 0, 100, types.ErrInvalidAmount},
		{"slippage above 100%", "", 1000, 10_001, types.ErrInvalidSlippage},
		{"bad token", "not-a-mint", 1000, 100, types.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			token := tt.token
			if token == "" {
				token = f.token
			}

			_, err := f.migrator.Migrate(context.Background(), token, tt.buy, tt.slippage, 200, Options{})
			assert.ErrorIs(t, err, tt.want)
			requireMigrationError(t, err, StateIdle)
			assert.Zero(t, atomic.LoadInt32(&f.factoryHits))
		})
	}
}

func TestMigrate_InsufficientLiquidity(t *testing.T) {
	f := newFixture(t)

	_, err := f.migrator.Migrate(context.Background(), f.token, 1_000_000, 100, 1_000_000, Options{})

	var liquidity *types.InsufficientLiquidityError
	require.ErrorAs(t, err, &liquidity)
	requireMigrationError(t, err, StateChecked)
}

func TestMigrate_CurveRealLiquidityLimitsExit(t *testing.T) {
	f := newFixture(t)
	// виртуальных 30 SOL хватает, реально на кривой 500 lamports
	f.source.reserves.Capped = true
	f.source.reserves.RealBase = f.source.reserves.ReserveBase
	f.source.reserves.RealQuote = 500

	_, err := f.migrator.Migrate(context.Background(), f.token, 1000, 3000, 200, Options{})

	var liquidity *types.InsufficientLiquidityError
	require.ErrorAs(t, err, &liquidity)
	requireMigrationError(t, err, StateChecked)
	assert.True(t, SafeToRetry(err))
	assert.Zero(t, f.dispatcher.submits())
}

func TestMigrate_DispatchValidationBeforeSubmission(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.validateErr = dispatch.ErrTipTooLow

	_, err := f.migrator.Migrate(context.Background(), f.token, 1000, 3000, 200, Options{UseBundle: true, TipAmount: 1})
	require.ErrorIs(t, err, dispatch.ErrTipTooLow)

	me := requireMigrationError(t, err, StateAssembled)
	assert.False(t, me.TouchedChain())
	assert.True(t, SafeToRetry(err))
	assert.Zero(t, f.dispatcher.submits())
}

func TestMigrate_BundleWithoutRelayNeverTouchesChain(t *testing.T) {
	f := newFixture(t)
	pair := func(string) (*dex.Pair, error) {
		return &dex.Pair{Source: f.source, Destination: f.destination}, nil
	}
	dispatcher := dispatch.New(nil, nil, nil, dispatch.Config{}, nil, zaptest.NewLogger(t))
	m := New(pair, dispatcher, solana.NewWallet().PublicKey(), Config{}, nil, zaptest.NewLogger(t))

	_, err := m.Migrate(context.Background(), f.token, 1000, 3000, 200, Options{UseBundle: true})
	require.ErrorIs(t, err, dispatch.ErrNoRelay)
	requireMigrationError(t, err, StateAssembled)
	assert.True(t, SafeToRetry(err))
}

func TestMigrate_LargePlanBecomesBundle(t *testing.T) {
	f := newFixture(t)
	f.source.dataLen = 500
	f.destination.dataLen = 450

	_, err := f.migrator.Migrate(context.Background(), f.token, 1000, 3000, 200, Options{TipAmount: 20_000})
	require.NoError(t, err)

	require.Equal(t, 1, f.dispatcher.submits())
	plan := f.dispatcher.plans[0]
	require.True(t, plan.IsBundle())
	assert.GreaterOrEqual(t, len(plan.Groups), 2)
	for _, size := range plan.Sizes {
		assert.LessOrEqual(t, size, assembler.DefaultCeiling)
	}
	assert.Equal(t, uint64(20_000), f.dispatcher.opts[0].TipLamports)

	ixs := plan.Flatten()
	require.Len(t, ixs, 5)
	assert.Equal(t, f.source.program, ixs[2].ProgramID())
	assert.Equal(t, f.destination.program, ixs[4].ProgramID())
}

func TestMigrate_DispatchErrorsPassThrough(t *testing.T) {
	rejection := &types.OnChainRejectionError{Signature: "sig-1", Reason: "slippage exceeded (6004)"}

	f := newFixture(t)
	f.dispatcher.submitErr = rejection

	_, err := f.migrator.Migrate(context.Background(), f.token, 1000, 3000, 200, Options{})

	var got *types.OnChainRejectionError
	require.ErrorAs(t, err, &got)
	assert.Same(t, rejection, got)

	me := requireMigrationError(t, err, StateSubmitted)
	assert.True(t, me.TouchedChain())
	assert.False(t, SafeToRetry(err))
}

func TestMigrate_CancelAfterSubmissionIsIndeterminate(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.waitCancel = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.migrator.Migrate(ctx, f.token, 1000, 3000, 200, Options{})
		done <- err
	}()

	require.Eventually(t, func() bool { return f.dispatcher.submits() == 1 }, testTimeout, testTick)
	cancel()
	err := <-done

	var indeterminate *types.IndeterminateOutcomeError
	require.ErrorAs(t, err, &indeterminate)
	assert.True(t, errors.Is(err, context.Canceled))
	requireMigrationError(t, err, StateSubmitted)
	assert.False(t, SafeToRetry(err))

	count, gerr := testutil.GatherAndCount(f.collector.Registry(), "pump_migrator_attempts_total")
	require.NoError(t, gerr)
	assert.Equal(t, 1, count)
}

func TestSafeToRetry_PlainError(t *testing.T) {
	assert.False(t, SafeToRetry(errors.New("boom")))
	assert.True(t, SafeToRetry(&Error{State: StateAssembled, Err: errors.New("x")}))
}
