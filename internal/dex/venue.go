// =============================
// File: internal/dex/venue.go
// =============================
package dex

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pump-migrator/internal/types"
)

// Venue: площадка, с которой или на которую мигрирует позиция.
// Build* не ходят в сеть: они работают со снимком последнего FetchReserves.
type Venue interface {
	// Name возвращает идентификатор площадки.
	Name() string
	// FetchReserves читает текущие резервы.
	// Ошибки: *types.PoolNotFoundError, *types.PoolCompletedError.
	FetchReserves(ctx context.Context) (*types.PoolReserves, error)
	// BuildExitInstruction продаёт токен на площадке (BaseToQuote).
	BuildExitInstruction(q *types.Quote, trader solana.PublicKey) ([]solana.Instruction, error)
	// BuildEntryInstruction покупает токен на площадке (QuoteToBase).
	BuildEntryInstruction(q *types.Quote, trader solana.PublicKey) ([]solana.Instruction, error)
	// BuildMigrationInstruction готовит аккаунты трейдера к входу; может вернуть пустой набор.
	BuildMigrationInstruction(q *types.Quote, trader solana.PublicKey) ([]solana.Instruction, error)
}

// Pair: источник и назначение одной попытки миграции.
type Pair struct {
	Source      Venue
	Destination Venue
}
