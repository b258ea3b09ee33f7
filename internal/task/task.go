// =============================================
// File: internal/task/task.go
// =============================================
package task

import (
	"fmt"
	"math"
	"time"

	"github.com/rovshanmuradov/pump-migrator/internal/migration"
	"github.com/rovshanmuradov/pump-migrator/internal/types"
)

// LamportsPerSOL: лампортов в одном SOL.
const LamportsPerSOL = 1_000_000_000

// Task: одна задача миграции из YAML.
type Task struct {
	ID               int
	TaskName         string
	WalletName       string
	TokenMint        string
	AmountSol        float64 // SOL, вырученные на кривой и вложенные в пул
	SlippagePercent  float64 // Slippage tolerance in percent (0-100)
	MaxFeeBudget     uint64  // в единицах токена
	PriorityFeeMicro uint64  // micro-lamports за compute unit
	ComputeUnits     uint32  // Compute units for the transaction
	UseBundle        bool
	TipSol           float64
	SimulateOnly     bool
	CreatedAt        time.Time
}

// Validate checks if the task has valid parameters
func (t *Task) Validate() error {
	if t.TaskName == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if t.WalletName == "" {
		return fmt.Errorf("wallet name cannot be empty")
	}
	if t.TokenMint == "" {
		return fmt.Errorf("token mint cannot be empty")
	}
	if t.AmountSol <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	if t.SlippagePercent < 0 || t.SlippagePercent > 100 {
		return fmt.Errorf("slippage must be between 0 and 100")
	}
	if t.TipSol < 0 {
		return fmt.Errorf("tip cannot be negative")
	}
	return nil
}

// ToRequest переводит задачу в запрос миграции: SOL в lamports, проценты в bps.
func (t *Task) ToRequest() (migration.Request, error) {
	if err := t.Validate(); err != nil {
		return migration.Request{}, err
	}
	bps, err := types.SlippageBpsFromPercent(t.SlippagePercent)
	if err != nil {
		return migration.Request{}, err
	}

	return migration.Request{
		TokenID:      t.TokenMint,
		BuyAmount:    SolToLamports(t.AmountSol),
		SlippageBps:  bps,
		MaxFeeBudget: t.MaxFeeBudget,
		Options: migration.Options{
			UseBundle:        t.UseBundle,
			ComputeUnitPrice: t.PriorityFeeMicro,
			ComputeUnitLimit: t.ComputeUnits,
			TipAmount:        SolToLamports(t.TipSol),
			SimulateOnly:     t.SimulateOnly,
		},
	}, nil
}

// SolToLamports округляет до ближайшего lamport.
func SolToLamports(sol float64) uint64 {
	return uint64(math.Round(sol * LamportsPerSOL))
}
