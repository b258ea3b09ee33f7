// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-migrator/internal/blockchain/jito"
	"github.com/rovshanmuradov/pump-migrator/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pump-migrator/internal/config"
	"github.com/rovshanmuradov/pump-migrator/internal/dex"
	"github.com/rovshanmuradov/pump-migrator/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pump-migrator/internal/dex/pumpswap"
	"github.com/rovshanmuradov/pump-migrator/internal/dispatch"
	"github.com/rovshanmuradov/pump-migrator/internal/migration"
	"github.com/rovshanmuradov/pump-migrator/internal/task"
	"github.com/rovshanmuradov/pump-migrator/internal/utils/metrics"
	"github.com/rovshanmuradov/pump-migrator/internal/wallet"
)

var (
	ErrUnknownWallet  = errors.New("unknown wallet")
	ErrWalletRequired = errors.New("wallet name required when more than one wallet is configured")
)

// Runner связывает конфигурацию, RPC, relay и кошельки с мигратором.
// Мигратор создаётся лениво, по одному на кошелёк.
type Runner struct {
	logger      *zap.Logger
	config      *config.Config
	client      *solbc.Client
	relay       *jito.Client
	venues      dex.VenueFactory
	wallets     map[string]*wallet.Wallet
	taskManager *task.Manager
	metrics     *metrics.Collector

	mu        sync.Mutex
	migrators map[string]*migration.Migrator
}

// NewRunner загружает кошельки и создаёт клиентов. Сеть не трогается.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	wallets, err := wallet.LoadWallets(cfg.WalletsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	collector := metrics.NewCollector()
	client, err := solbc.NewClient(cfg.RPCList, logger, solbc.Options{
		RequestTimeout: cfg.RPCTimeout(),
		RateLimit:      cfg.RPCRateLimit,
		Metrics:        collector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	relay := jito.NewClient(jito.Options{
		Endpoint:  cfg.Jito.Endpoint,
		AuthUUID:  cfg.Jito.AuthUUID,
		RateLimit: cfg.Jito.RateLimit,
	}, logger)

	poolOpts := pumpswap.DefaultPoolManagerOptions()
	if cfg.PoolRetries > 0 {
		poolOpts.MaxRetries = cfg.PoolRetries
		poolOpts.RetryDelay = cfg.PoolRetryDelayDuration()
	}
	if cfg.RPCTimeoutMS > 0 {
		poolOpts.RPCTimeout = cfg.RPCTimeout()
	}

	logger.Info("Runner initialized",
		zap.Int("wallets", len(wallets)),
		zap.Int("rpc_nodes", len(cfg.RPCList)),
		zap.String("commitment", cfg.Commitment))

	return &Runner{
		logger:      logger,
		config:      cfg,
		client:      client,
		relay:       relay,
		venues:      dex.NewFactory(client, logger, pumpfun.VenueName, pumpswap.VenueName, poolOpts),
		wallets:     wallets,
		taskManager: task.NewManager(logger),
		metrics:     collector,
		migrators:   make(map[string]*migration.Migrator),
	}, nil
}

// Metrics возвращает счётчики всех попыток этого Runner.
func (r *Runner) Metrics() *metrics.Collector {
	return r.metrics
}

// resolveWallet: пустое имя допустимо, только если кошелёк один.
func (r *Runner) resolveWallet(name string) (string, *wallet.Wallet, error) {
	if name == "" {
		if len(r.wallets) != 1 {
			return "", nil, ErrWalletRequired
		}
		for n, w := range r.wallets {
			return n, w, nil
		}
	}
	w, ok := r.wallets[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownWallet, name)
	}
	return name, w, nil
}

func (r *Runner) migrator(walletName string) (*migration.Migrator, error) {
	name, w, err := r.resolveWallet(walletName)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.migrators[name]; ok {
		return m, nil
	}

	logger := r.logger.With(zap.String("wallet", name))
	dispatcher := dispatch.New(r.client, r.relay, w, dispatch.Config{
		Commitment:     r.config.CommitmentLevel(),
		PollInterval:   r.config.PollInterval(),
		ConfirmTimeout: r.config.ConfirmTimeout(),
		MaxAttempts:    r.config.Retries,
		RetryBase:      r.config.RetryBase(),
	}, r.metrics, logger)

	m := migration.New(r.venues, dispatcher, w.PublicKey, migration.Config{
		SizeCeiling: r.config.SizeCeiling,
	}, r.metrics, logger)
	r.migrators[name] = m
	return m, nil
}

// Migrate выполняет одну миграцию от имени кошелька walletName.
// Нулевые чаевые заменяются значением из конфигурации.
func (r *Runner) Migrate(ctx context.Context, walletName string, req migration.Request) (*migration.Result, error) {
	m, err := r.migrator(walletName)
	if err != nil {
		return nil, err
	}
	if req.Options.TipAmount == 0 {
		req.Options.TipAmount = r.config.DefaultTip
	}
	return m.MigrateRequest(ctx, req)
}

// RunTasks выполняет задачи пулом из config.Concurrency воркеров.
func (r *Runner) RunTasks(ctx context.Context, tasks []*task.Task) []Outcome {
	r.logger.Info("Starting execution",
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", r.config.Concurrency))
	outcomes := runPool(ctx, r.logger, r.config.Concurrency, r.Migrate, tasks)
	r.logger.Info("All workers finished")
	return outcomes
}

// Run загружает задачи из config.TasksFile и выполняет их до завершения
// или до SIGINT/SIGTERM.
func (r *Runner) Run(ctx context.Context) ([]Outcome, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	go func() {
		select {
		case sig := <-shutdownCh:
			r.logger.Info("Signal received", zap.String("signal", sig.String()))
			cancel()
		case <-shutdownCtx.Done():
		}
	}()

	tasks, err := r.taskManager.LoadTasksYAML(r.config.TasksFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	return r.RunTasks(shutdownCtx, tasks), nil
}
