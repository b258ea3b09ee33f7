// =============================
// File: internal/dex/pumpswap/config.go
// =============================
package pumpswap

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// PumpSwapProgramID: программа AMM PumpSwap.
var PumpSwapProgramID = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")

// Config хранит конфигурацию для взаимодействия с PumpSwap.
type Config struct {
	ProgramID      solana.PublicKey
	GlobalConfig   solana.PublicKey
	EventAuthority solana.PublicKey

	TokenMint solana.PublicKey // Токен, мигрирующий с bonding curve
	QuoteMint solana.PublicKey // wSOL
}

// GetDefaultConfig возвращает конфигурацию по умолчанию для PumpSwap.
func GetDefaultConfig() *Config {
	return &Config{
		ProgramID: PumpSwapProgramID,
		QuoteMint: solana.WrappedSol,
	}
}

// SetupForToken настраивает экземпляр PumpSwap для определённого токена.
func (cfg *Config) SetupForToken(tokenMint string, logger *zap.Logger) error {
	if tokenMint == "" {
		return fmt.Errorf("token mint address is required")
	}

	var err error
	cfg.TokenMint, err = solana.PublicKeyFromBase58(tokenMint)
	if err != nil {
		return fmt.Errorf("invalid token mint address: %w", err)
	}

	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = PumpSwapProgramID
	}
	if cfg.QuoteMint.IsZero() {
		cfg.QuoteMint = solana.WrappedSol
	}

	cfg.GlobalConfig, _, err = cfg.DeriveGlobalConfigAddress()
	if err != nil {
		return fmt.Errorf("failed to derive global config address: %w", err)
	}

	if cfg.EventAuthority.IsZero() {
		cfg.EventAuthority, _, err = solana.FindProgramAddress(
			[][]byte{[]byte("__event_authority")},
			cfg.ProgramID,
		)
		if err != nil {
			return fmt.Errorf("failed to derive event authority: %w", err)
		}
	}

	logger.Debug("PumpSwap configuration prepared",
		zap.String("program_id", cfg.ProgramID.String()),
		zap.String("global_config", cfg.GlobalConfig.String()),
		zap.String("token_mint", cfg.TokenMint.String()),
		zap.String("quote_mint", cfg.QuoteMint.String()),
		zap.String("event_authority", cfg.EventAuthority.String()))

	return nil
}

// DeriveGlobalConfigAddress вычисляет PDA для глобального аккаунта конфигурации.
func (cfg *Config) DeriveGlobalConfigAddress() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte("global_config")},
		cfg.ProgramID,
	)
}

// DeriveCoinCreatorVaultAuthority вычисляет PDA, которому принадлежит хранилище комиссий создателя.
func DeriveCoinCreatorVaultAuthority(coinCreator, programID solana.PublicKey) (solana.PublicKey, error) {
	authority, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("creator_vault"), coinCreator.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive coin creator vault authority: %w", err)
	}
	return authority, nil
}
