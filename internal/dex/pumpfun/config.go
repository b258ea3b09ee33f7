// =============================
// File: internal/dex/pumpfun/config.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Known PumpFun protocol addresses
var (
	// Program ID for Pump.fun protocol
	PumpFunProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// Event authority for the Pump.fun protocol
	PumpFunEventAuth = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
)

// Config holds the addresses the venue needs for one token.
type Config struct {
	ContractAddress solana.PublicKey
	Global          solana.PublicKey
	EventAuthority  solana.PublicKey

	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
}

// GetDefaultConfig creates a default configuration for the Pump.fun venue
func GetDefaultConfig() *Config {
	return &Config{
		ContractAddress: PumpFunProgramID,
		EventAuthority:  PumpFunEventAuth,
	}
}

// SetupForToken configures the Config instance for a specific token
func (cfg *Config) SetupForToken(tokenMint string, logger *zap.Logger) error {
	if tokenMint == "" {
		return fmt.Errorf("token mint address is required")
	}

	var err error
	cfg.Mint, err = solana.PublicKeyFromBase58(tokenMint)
	if err != nil {
		return fmt.Errorf("invalid token mint address: %w", err)
	}

	if cfg.ContractAddress.IsZero() {
		cfg.ContractAddress = PumpFunProgramID
	}
	if cfg.EventAuthority.IsZero() {
		cfg.EventAuthority = PumpFunEventAuth
	}

	cfg.Global, _, err = solana.FindProgramAddress(
		[][]byte{[]byte("global")},
		cfg.ContractAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to derive global account: %w", err)
	}

	cfg.BondingCurve, cfg.AssociatedBondingCurve, err = DeriveBondingCurveAccounts(cfg.Mint, cfg.ContractAddress)
	if err != nil {
		return err
	}

	logger.Debug("PumpFun configuration prepared",
		zap.String("program_id", cfg.ContractAddress.String()),
		zap.String("global_account", cfg.Global.String()),
		zap.String("bonding_curve", cfg.BondingCurve.String()),
		zap.String("token_mint", cfg.Mint.String()))

	return nil
}
