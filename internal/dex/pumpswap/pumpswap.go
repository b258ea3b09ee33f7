// =============================
// File: internal/dex/pumpswap/pumpswap.go
// =============================
package pumpswap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-migrator/internal/types"
	"github.com/rovshanmuradov/pump-migrator/internal/wallet"
)

// VenueName: идентификатор площадки.
const VenueName = "pump.swap"

var errNotFetched = errors.New("pump.swap: reserves were not fetched")

// DEX: пул PumpSwap для пары токен/wSOL. Экземпляр живёт одну попытку миграции.
type DEX struct {
	logger      *zap.Logger
	config      *Config
	poolManager *PoolManager

	pool         *PoolInfo
	globalConfig *GlobalConfig
}

// NewDEX создаёт площадку для токена, описанного config.
func NewDEX(reader AccountReader, logger *zap.Logger, config *Config, opts ...PoolManagerOptions) (*DEX, error) {
	if reader == nil {
		return nil, fmt.Errorf("account reader cannot be nil")
	}
	if config == nil || config.TokenMint.IsZero() || config.GlobalConfig.IsZero() {
		return nil, fmt.Errorf("pump.swap config is not set up for a token")
	}

	if len(opts) == 0 {
		opts = []PoolManagerOptions{DefaultPoolManagerOptions()}
	}
	opts[0].ProgramID = config.ProgramID

	return &DEX{
		logger:      logger.Named("pumpswap"),
		config:      config,
		poolManager: NewPoolManager(reader, logger, opts[0]),
	}, nil
}

func (d *DEX) Name() string { return VenueName }

// FetchReserves находит пул токен/wSOL и возвращает его резервы (base = токен, quote = wSOL).
func (d *DEX) FetchReserves(ctx context.Context) (*types.PoolReserves, error) {
	token := d.config.TokenMint.String()

	pool, err := d.poolManager.FindPoolWithRetry(ctx, d.config.TokenMint, d.config.QuoteMint)
	if err != nil {
		if errors.Is(err, ErrNoPool) {
			return nil, &types.PoolNotFoundError{Venue: VenueName, Token: token, Err: err}
		}
		return nil, fmt.Errorf("failed to find pool: %w", err)
	}

	globalConfig, err := d.poolManager.GlobalConfig(ctx)
	if err != nil {
		return nil, err
	}

	d.pool, d.globalConfig = pool, globalConfig

	reserves := &types.PoolReserves{
		VenueID:        VenueName,
		Address:        pool.Address,
		ReserveBase:    pool.BaseReserves,
		ReserveQuote:   pool.QuoteReserves,
		FeeBasisPoints: pool.FeesBasisPoints + pool.ProtocolFeeBPS,
	}

	d.logger.Debug("Получены данные пула",
		zap.String("pool_address", pool.Address.String()),
		zap.Bool("reversed", pool.Reversed),
		zap.Uint64("base_reserves", reserves.ReserveBase),
		zap.Uint64("quote_reserves", reserves.ReserveQuote),
		zap.Uint64("fee_bps", reserves.FeeBasisPoints))

	return reserves, nil
}

// PoolAddress возвращает адрес найденного пула (нулевой до FetchReserves).
func (d *DEX) PoolAddress() solana.PublicKey {
	if d.pool == nil {
		return solana.PublicKey{}
	}
	return d.pool.Address
}

// swapAccounts собирает аккаунты свапа в порядке самого пула.
func (d *DEX) swapAccounts(trader solana.PublicKey) (*swapAccounts, error) {
	if d.pool == nil || d.globalConfig == nil {
		return nil, errNotFetched
	}

	pool := *d.pool
	if pool.Reversed {
		pool.reverse()
	}

	userBase, _, err := solana.FindAssociatedTokenAddress(trader, pool.BaseMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user base ATA: %w", err)
	}
	userQuote, _, err := solana.FindAssociatedTokenAddress(trader, pool.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user quote ATA: %w", err)
	}

	feeRecipient := d.globalConfig.ProtocolFeeRecipients[0]
	feeRecipientATA, _, err := solana.FindAssociatedTokenAddress(feeRecipient, pool.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive protocol fee recipient ATA: %w", err)
	}

	vaultAuthority, err := DeriveCoinCreatorVaultAuthority(pool.CoinCreator, d.config.ProgramID)
	if err != nil {
		return nil, err
	}
	vaultATA, _, err := solana.FindAssociatedTokenAddress(vaultAuthority, pool.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive coin creator vault ATA: %w", err)
	}

	return &swapAccounts{
		pool:              pool.Address,
		user:              trader,
		globalConfig:      d.config.GlobalConfig,
		baseMint:          pool.BaseMint,
		quoteMint:         pool.QuoteMint,
		userBase:          userBase,
		userQuote:         userQuote,
		poolBase:          pool.PoolBaseTokenAccount,
		poolQuote:         pool.PoolQuoteTokenAccount,
		feeRecipient:      feeRecipient,
		feeRecipientQuote: feeRecipientATA,
		eventAuthority:    d.config.EventAuthority,
		program:           d.config.ProgramID,
		creatorVaultQuote: vaultATA,
		creatorVault:      vaultAuthority,
	}, nil
}

// swap строит одну инструкцию свапа. tokenIn: продаём токен за wSOL.
// Для перевёрнутого пула buy и sell меняются местами.
func (d *DEX) swap(trader solana.PublicKey, tokenIn bool, amountIn, minOut uint64) (solana.Instruction, error) {
	accounts, err := d.swapAccounts(trader)
	if err != nil {
		return nil, err
	}

	if tokenIn != d.pool.Reversed {
		return swapInstruction(accounts, sideSell, amountIn, minOut), nil
	}
	return swapInstruction(accounts, sideBuy, minOut, amountIn), nil
}

// BuildMigrationInstruction готовит кошелёк к входу в пул: ATA токена и wSOL,
// перевод q.TradeAmount лампортов в wSOL.
func (d *DEX) BuildMigrationInstruction(q *types.Quote, trader solana.PublicKey) ([]solana.Instruction, error) {
	if q == nil || q.Direction != types.QuoteToBase {
		return nil, fmt.Errorf("pump.swap migration requires a quote-to-base quote")
	}
	if d.pool == nil {
		return nil, errNotFetched
	}

	ixs := []solana.Instruction{
		wallet.CreateAssociatedTokenAccountIdempotentInstruction(trader, trader, d.config.TokenMint),
		wallet.CreateAssociatedTokenAccountIdempotentInstruction(trader, trader, d.config.QuoteMint),
	}
	return append(ixs, wallet.WrapSOLInstructions(trader, q.TradeAmount)...), nil
}

// BuildEntryInstruction покупает не меньше q.WorstAcceptableOut токенов за q.TradeAmount wSOL
// и закрывает wSOL ATA.
func (d *DEX) BuildEntryInstruction(q *types.Quote, trader solana.PublicKey) ([]solana.Instruction, error) {
	if q == nil || q.Direction != types.QuoteToBase {
		return nil, fmt.Errorf("pump.swap entry requires a quote-to-base quote")
	}
	ix, err := d.swap(trader, false, q.TradeAmount, q.WorstAcceptableOut)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{ix, wallet.CloseWSOLInstruction(trader)}, nil
}

// BuildExitInstruction продаёт q.TradeAmount токенов не дешевле q.WorstAcceptableOut wSOL.
func (d *DEX) BuildExitInstruction(q *types.Quote, trader solana.PublicKey) ([]solana.Instruction, error) {
	if q == nil || q.Direction != types.BaseToQuote {
		return nil, fmt.Errorf("pump.swap exit requires a base-to-quote quote")
	}
	ix, err := d.swap(trader, true, q.TradeAmount, q.WorstAcceptableOut)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{
		wallet.CreateAssociatedTokenAccountIdempotentInstruction(trader, trader, d.config.QuoteMint),
		ix,
		wallet.CloseWSOLInstruction(trader),
	}, nil
}
