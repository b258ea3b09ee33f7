// =============================
// File: internal/dex/factory.go
// =============================
package dex

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-migrator/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pump-migrator/internal/dex/pumpswap"
)

// Reader: чтение аккаунтов, нужное обеим площадкам. Реализуется solbc.Client.
type Reader interface {
	pumpswap.AccountReader
}

// VenueFactory создаёт свежую пару площадок для токена.
// Экземпляры не разделяются между попытками.
type VenueFactory func(tokenMint string) (*Pair, error)

// GetVenueByName создаёт площадку по имени.
func GetVenueByName(name string, reader Reader, tokenMint string, logger *zap.Logger, poolOpts pumpswap.PoolManagerOptions) (Venue, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case pumpfun.VenueName:
		config := pumpfun.GetDefaultConfig()
		if err := config.SetupForToken(tokenMint, logger); err != nil {
			return nil, fmt.Errorf("could not set up pump.fun for %s: %w", tokenMint, err)
		}
		venue, err := pumpfun.NewDEX(reader, logger, config)
		if err != nil {
			return nil, err
		}
		return venue, nil

	case pumpswap.VenueName:
		config := pumpswap.GetDefaultConfig()
		if err := config.SetupForToken(tokenMint, logger); err != nil {
			return nil, fmt.Errorf("could not set up pump.swap for %s: %w", tokenMint, err)
		}
		venue, err := pumpswap.NewDEX(reader, logger, config, poolOpts)
		if err != nil {
			return nil, err
		}
		return venue, nil

	default:
		return nil, fmt.Errorf("venue %s is not supported", name)
	}
}

// NewFactory возвращает фабрику пар source -> destination.
func NewFactory(reader Reader, logger *zap.Logger, source, destination string, poolOpts pumpswap.PoolManagerOptions) VenueFactory {
	return func(tokenMint string) (*Pair, error) {
		src, err := GetVenueByName(source, reader, tokenMint, logger, poolOpts)
		if err != nil {
			return nil, err
		}
		dst, err := GetVenueByName(destination, reader, tokenMint, logger, poolOpts)
		if err != nil {
			return nil, err
		}
		return &Pair{Source: src, Destination: dst}, nil
	}
}
