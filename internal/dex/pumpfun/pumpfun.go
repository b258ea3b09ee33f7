// ==============================================
// File: internal/dex/pumpfun/pumpfun.go
// ==============================================
package pumpfun

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
const VenueName = "pump.fun"

var errNotFetched = errors.New("pump.fun: reserves were not fetched")

// DEX: bonding curve одного токена. Экземпляр живёт одну попытку миграции.
type DEX struct {
	reader AccountReader
	logger *zap.Logger
	config *Config

	global *GlobalAccount
	curve  *BondingCurve
}

// NewDEX создаёт площадку для токена, описанного config.
func NewDEX(reader AccountReader, logger *zap.Logger, config *Config) (*DEX, error) {
	if reader == nil {
		return nil, fmt.Errorf("account reader cannot be nil")
	}
	if config == nil || config.Mint.IsZero() || config.BondingCurve.IsZero() {
		return nil, fmt.Errorf("pump.fun config is not set up for a token")
	}
	return &DEX{
		reader: reader,
		logger: logger.Named("pumpfun"),
		config: config,
	}, nil
}

func (d *DEX) Name() string { return VenueName }

// FetchReserves читает global и bonding curve и возвращает виртуальные резервы.
func (d *DEX) FetchReserves(ctx context.Context) (*types.PoolReserves, error) {
	global, curve, err := fetchState(ctx, d.reader, d.config.Global, d.config.BondingCurve, d.config.ContractAddress)
	if err != nil {
		return nil, err
	}

	token := d.config.Mint.String()
	if curve == nil {
		return nil, &types.PoolNotFoundError{Venue: VenueName, Token: token}
	}
	if curve.Complete {
		return nil, &types.PoolCompletedError{Venue: VenueName, Token: token}
	}
	if curve.VirtualTokenReserves == 0 || curve.VirtualSolReserves == 0 {
		return nil, &types.PoolNotFoundError{Venue: VenueName, Token: token, Err: errors.New("bonding curve has zero reserves")}
	}
	if global == nil {
		return nil, fmt.Errorf("global account not found: %s", d.config.Global)
	}

	d.global, d.curve = global, curve

	reserves := &types.PoolReserves{
		VenueID:        VenueName,
		Address:        d.config.BondingCurve,
		ReserveBase:    curve.VirtualTokenReserves,
		ReserveQuote:   curve.VirtualSolReserves,
		FeeBasisPoints: global.FeeBasisPoints,
		Capped:         true,
		RealBase:       curve.RealTokenReserves,
		RealQuote:      curve.RealSolReserves,
	}

	d.logger.Debug("Bonding curve reserves",
		zap.String("bonding_curve", reserves.Address.String()),
		zap.Uint64("virtual_token_reserves", reserves.ReserveBase),
		zap.Uint64("virtual_sol_reserves", reserves.ReserveQuote),
		zap.Uint64("real_sol_reserves", reserves.RealQuote),
		zap.Uint64("fee_bps", reserves.FeeBasisPoints))

	return reserves, nil
}

func (d *DEX) instructionAccounts(trader solana.PublicKey) (InstructionAccounts, error) {
	if d.global == nil || d.curve == nil {
		return InstructionAccounts{}, errNotFetched
	}

	associatedUser, _, err := solana.FindAssociatedTokenAddress(trader, d.config.Mint)
	if err != nil {
		return InstructionAccounts{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}

	creatorVault, err := DeriveCreatorVault(d.curve.Creator, d.config.ContractAddress)
	if err != nil {
		return InstructionAccounts{}, err
	}

	return InstructionAccounts{
		Global:                 d.config.Global,
		FeeRecipient:           d.global.FeeRecipient,
		Mint:                   d.config.Mint,
		BondingCurve:           d.config.BondingCurve,
		AssociatedBondingCurve: d.config.AssociatedBondingCurve,
		AssociatedUser:         associatedUser,
		User:                   trader,
		CreatorVault:           creatorVault,
		EventAuthority:         d.config.EventAuthority,
		Program:                d.config.ContractAddress,
	}, nil
}

// BuildExitInstruction продаёт q.TradeAmount токенов на кривой с минимумом q.WorstAcceptableOut SOL.
func (d *DEX) BuildExitInstruction(q *types.Quote, trader solana.PublicKey) ([]solana.Instruction, error) {
	if q == nil || q.Direction != types.BaseToQuote {
		return nil, fmt.Errorf("pump.fun exit requires a base-to-quote quote")
	}
	accounts, err := d.instructionAccounts(trader)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{
		BuildSellTokenInstruction(accounts, q.TradeAmount, q.WorstAcceptableOut),
	}, nil
}

// BuildEntryInstruction покупает не меньше q.WorstAcceptableOut токенов за не больше q.TradeAmount SOL.
func (d *DEX) BuildEntryInstruction(q *types.Quote, trader solana.PublicKey) ([]solana.Instruction, error) {
	if q == nil || q.Direction != types.QuoteToBase {
		return nil, fmt.Errorf("pump.fun entry requires a quote-to-base quote")
	}
	accounts, err := d.instructionAccounts(trader)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{
		wallet.CreateAssociatedTokenAccountIdempotentInstruction(trader, trader, d.config.Mint),
		BuildBuyTokenInstruction(accounts, q.WorstAcceptableOut, q.TradeAmount),
	}, nil
}

// BuildMigrationInstruction: кривой не нужна подготовка, набор пуст.
func (d *DEX) BuildMigrationInstruction(_ *types.Quote, _ solana.PublicKey) ([]solana.Instruction, error) {
	return nil, nil
}
