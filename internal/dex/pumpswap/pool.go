// =============================
// File: internal/dex/pumpswap/pool.go
// =============================
package pumpswap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoPool возвращается, когда для пары mint'ов нет ни одного пула с ликвидностью.
var ErrNoPool = errors.New("no pool with liquidity found")

// AccountReader: часть RPC клиента, нужная для поиска пулов.
type AccountReader interface {
	GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error)
	GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}

// PoolManager отвечает за операции с пулами PumpSwap.
type PoolManager struct {
	reader     AccountReader
	logger     *zap.Logger
	programID  solana.PublicKey
	maxRetries int
	retryDelay time.Duration
	rpcTimeout time.Duration

	// кеш глобальной конфигурации
	cfgMu sync.Mutex
	cfg   *GlobalConfig
}

// PoolManagerOptions содержит опции для создания нового PoolManager.
type PoolManagerOptions struct {
	MaxRetries int
	RetryDelay time.Duration
	RPCTimeout time.Duration
	ProgramID  solana.PublicKey
}

// DefaultPoolManagerOptions возвращает настройки по умолчанию.
func DefaultPoolManagerOptions() PoolManagerOptions {
	return PoolManagerOptions{
		MaxRetries: 3,
		RetryDelay: time.Second,
		RPCTimeout: 5 * time.Second,
		ProgramID:  PumpSwapProgramID,
	}
}

// NewPoolManager создаёт новый PoolManager с заданными опциями.
func NewPoolManager(reader AccountReader, logger *zap.Logger, opts ...PoolManagerOptions) *PoolManager {
	options := DefaultPoolManagerOptions()
	if len(opts) > 0 {
		o := opts[0]
		if o.MaxRetries > 0 {
			options.MaxRetries = o.MaxRetries
		}
		if o.RetryDelay > 0 {
			options.RetryDelay = o.RetryDelay
		}
		if o.RPCTimeout > 0 {
			options.RPCTimeout = o.RPCTimeout
		}
		if !o.ProgramID.IsZero() {
			options.ProgramID = o.ProgramID
		}
	}

	return &PoolManager{
		reader:     reader,
		logger:     logger.Named("pool_manager"),
		programID:  options.ProgramID,
		maxRetries: options.MaxRetries,
		retryDelay: options.RetryDelay,
		rpcTimeout: options.RPCTimeout,
	}
}

// GlobalConfig возвращает (и кеширует) GlobalConfig. Ошибки не кешируются.
func (pm *PoolManager) GlobalConfig(ctx context.Context) (*GlobalConfig, error) {
	pm.cfgMu.Lock()
	defer pm.cfgMu.Unlock()

	if pm.cfg != nil {
		return pm.cfg, nil
	}
	cfg, err := pm.fetchGlobalConfig(ctx)
	if err != nil {
		return nil, err
	}
	pm.cfg = cfg
	return cfg, nil
}

// getAccountsData читает несколько аккаунтов одним запросом; отсутствующие дают nil.
func (pm *PoolManager) getAccountsData(ctx context.Context, accounts []solana.PublicKey) ([][]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, pm.rpcTimeout)
	defer cancel()

	resp, err := pm.reader.GetMultipleAccounts(cctx, accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to get multiple accounts info: %w", err)
	}
	if resp == nil || len(resp.Value) != len(accounts) {
		return nil, fmt.Errorf("unexpected multiple accounts response for %d accounts", len(accounts))
	}

	data := make([][]byte, len(accounts))
	for i, info := range resp.Value {
		if info != nil && info.Data != nil {
			data[i] = info.Data.GetBinary()
		}
	}
	return data, nil
}

// FindPool ищет пул в прямом и обратном порядке параллельно.
// Найденный пул приводится к порядку (baseMint, quoteMint).
func (pm *PoolManager) FindPool(ctx context.Context, baseMint, quoteMint solana.PublicKey) (*PoolInfo, error) {
	var (
		direct, reversed *PoolInfo
		errDirect, errRev error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		direct, errDirect = pm.findPoolByProgramAccounts(gctx, baseMint, quoteMint)
		return nil
	})
	g.Go(func() error {
		reversed, errRev = pm.findPoolByProgramAccounts(gctx, quoteMint, baseMint)
		return nil
	})
	_ = g.Wait()

	switch {
	case direct != nil:
		return direct, nil
	case reversed != nil:
		reversed.reverse()
		return reversed, nil
	case errDirect != nil && !errors.Is(errDirect, ErrNoPool):
		return nil, errDirect
	case errRev != nil && !errors.Is(errRev, ErrNoPool):
		return nil, errRev
	}
	return nil, fmt.Errorf("%w: %s / %s", ErrNoPool, baseMint, quoteMint)
}

// findPoolByProgramAccounts ищет пул по паре mint'ов с минимальным числом RPC.
func (pm *PoolManager) findPoolByProgramAccounts(ctx context.Context, baseMint, quoteMint solana.PublicKey) (*PoolInfo, error) {
	cctx, cancel := context.WithTimeout(ctx, pm.rpcTimeout)
	defer cancel()

	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: PoolDiscriminator}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: offsetBaseMint, Bytes: baseMint.Bytes()}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: offsetQuoteMint, Bytes: quoteMint.Bytes()}},
		},
	}

	accounts, err := pm.reader.GetProgramAccountsWithOpts(cctx, pm.programID, opts)
	if err != nil {
		return nil, fmt.Errorf("GetProgramAccountsWithOpts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoPool
	}

	cfg, err := pm.GlobalConfig(ctx)
	if err != nil {
		return nil, err
	}

	// перебираем кандидатов
	for _, acc := range accounts {
		if acc == nil || acc.Account == nil || acc.Account.Data == nil {
			continue
		}
		pool, err := ParsePool(acc.Account.Data.GetBinary())
		if err != nil {
			continue
		}

		info, err := pm.poolInfo(ctx, acc.Pubkey, pool, cfg)
		if err != nil {
			return nil, err
		}
		if info.BaseReserves == 0 || info.QuoteReserves == 0 {
			pm.logger.Debug("Skipping pool without liquidity", zap.String("pool", acc.Pubkey.String()))
			continue
		}
		return info, nil
	}

	return nil, ErrNoPool
}

// poolInfo дочитывает резервы пула (два токен-аккаунта за один запрос).
func (pm *PoolManager) poolInfo(ctx context.Context, address solana.PublicKey, pool *Pool, cfg *GlobalConfig) (*PoolInfo, error) {
	tokRaw, err := pm.getAccountsData(ctx, []solana.PublicKey{pool.PoolBaseTokenAccount, pool.PoolQuoteTokenAccount})
	if err != nil {
		return nil, err
	}

	return &PoolInfo{
		Address:               address,
		BaseMint:              pool.BaseMint,
		QuoteMint:             pool.QuoteMint,
		BaseReserves:          parseTokenAccountAmount(tokRaw[0]),
		QuoteReserves:         parseTokenAccountAmount(tokRaw[1]),
		LPSupply:              pool.LPSupply,
		FeesBasisPoints:       cfg.LPFeeBasisPoints,
		ProtocolFeeBPS:        cfg.ProtocolFeeBasisPoints,
		LPMint:                pool.LPMint,
		PoolBaseTokenAccount:  pool.PoolBaseTokenAccount,
		PoolQuoteTokenAccount: pool.PoolQuoteTokenAccount,
		CoinCreator:           pool.CoinCreator,
	}, nil
}

// fetchGlobalConfig получает глобальную конфигурацию программы PumpSwap.
func (pm *PoolManager) fetchGlobalConfig(ctx context.Context) (*GlobalConfig, error) {
	globalConfig, _, err := solana.FindProgramAddress([][]byte{[]byte("global_config")}, pm.programID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive global config address: %w", err)
	}

	raw, err := pm.getAccountsData(ctx, []solana.PublicKey{globalConfig})
	if err != nil {
		return nil, fmt.Errorf("failed to get global config account: %w", err)
	}
	if raw[0] == nil {
		return nil, fmt.Errorf("global config account not found: %s", globalConfig)
	}

	config, err := ParseGlobalConfig(raw[0])
	if err != nil {
		pm.logger.Error("Не удалось разобрать глобальную конфигурацию", zap.String("global_config", globalConfig.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to parse global config: %w", err)
	}

	return config, nil
}

// FindPoolWithRetry ищет пул для пары токенов с повторными попытками.
// Отсутствие пула не повторяется: повторяются только ошибки RPC.
func (pm *PoolManager) FindPoolWithRetry(ctx context.Context, baseMint, quoteMint solana.PublicKey) (*PoolInfo, error) {
	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = pm.retryDelay
	backoffPolicy.MaxInterval = pm.retryDelay * 10

	notify := func(err error, duration time.Duration) {
		pm.logger.Info("Повтор попытки после ошибки", zap.Error(err), zap.Duration("backoff", duration))
	}

	operation := func() (*PoolInfo, error) {
		pool, err := pm.FindPool(ctx, baseMint, quoteMint)
		if errors.Is(err, ErrNoPool) {
			return nil, backoff.Permanent(err)
		}
		return pool, err
	}

	pool, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(uint(pm.maxRetries)),
		backoff.WithNotify(notify))
	if err != nil {
		pm.logger.Debug("Пул не найден",
			zap.String("base_mint", baseMint.String()),
			zap.String("quote_mint", quoteMint.String()),
			zap.Error(err))
		return nil, err
	}

	return pool, nil
}
