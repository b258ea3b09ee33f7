// =============================================
// File: internal/dex/pumpfun/global_account.go
// =============================================
package pumpfun

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// globalAccountMinSize: discriminator + flag + два ключа + пять u64.
const globalAccountMinSize = 8 + 1 + 32 + 32 + 5*8

// GlobalAccount represents the structure of the PumpFun global account data
type GlobalAccount struct {
	Discriminator               [8]byte
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// ParseGlobalAccount разбирает данные глобального аккаунта.
// Поля после FeeBasisPoints (добавленные позднее) игнорируются.
func ParseGlobalAccount(data []byte) (*GlobalAccount, error) {
	if len(data) < globalAccountMinSize {
		return nil, fmt.Errorf("global account data too short: %d bytes", len(data))
	}

	account := &GlobalAccount{}
	if err := bin.NewBorshDecoder(data[:globalAccountMinSize]).Decode(account); err != nil {
		return nil, fmt.Errorf("failed to decode global account: %w", err)
	}
	return account, nil
}
