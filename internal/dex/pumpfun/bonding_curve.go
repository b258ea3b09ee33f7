// ==============================================
// File: internal/dex/pumpfun/bonding_curve.go
// ==============================================
package pumpfun

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// discriminator + пять u64 + флаг complete
	bondingCurveMinSize = 8 + 5*8 + 1
	creatorSize         = 32
)

// bondingCurveLayout: фиксированная часть аккаунта кривой.
type bondingCurveLayout struct {
	Discriminator        [8]byte
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// BondingCurve: состояние кривой токена.
type BondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	// Creator пуст у кривых, созданных до появления комиссий создателя.
	Creator solana.PublicKey
}

// ParseBondingCurve разбирает данные аккаунта bonding curve.
func ParseBondingCurve(data []byte) (*BondingCurve, error) {
	if len(data) < bondingCurveMinSize {
		return nil, fmt.Errorf("invalid bonding curve data: insufficient length %d", len(data))
	}

	var layout bondingCurveLayout
	if err := bin.NewBorshDecoder(data[:bondingCurveMinSize]).Decode(&layout); err != nil {
		return nil, fmt.Errorf("failed to decode bonding curve: %w", err)
	}

	curve := &BondingCurve{
		VirtualTokenReserves: layout.VirtualTokenReserves,
		VirtualSolReserves:   layout.VirtualSolReserves,
		RealTokenReserves:    layout.RealTokenReserves,
		RealSolReserves:      layout.RealSolReserves,
		TokenTotalSupply:     layout.TokenTotalSupply,
		Complete:             layout.Complete,
	}
	if len(data) >= bondingCurveMinSize+creatorSize {
		curve.Creator = solana.PublicKeyFromBytes(data[bondingCurveMinSize : bondingCurveMinSize+creatorSize])
	}

	return curve, nil
}
