package types

import (
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"
)

// DefaultComputeUnits хватает на sell + создание ATA + buy в одной транзакции.
const DefaultComputeUnits uint32 = 400_000

type PriorityConfig struct {
	ComputeUnits uint32 // Number of compute units
	PriorityFee  uint64 // Priority fee in micro-lamports
}

type PriorityManager struct {
	logger *zap.Logger
}

func NewPriorityManager(logger *zap.Logger) *PriorityManager {
	return &PriorityManager{logger: logger.Named("priority")}
}

// CreateCustomPriorityInstructions строит лимит и цену compute units.
// Нулевые значения пропускаются.
func (pm *PriorityManager) CreateCustomPriorityInstructions(priorityFee uint64, units uint32) []solana.Instruction {
	return pm.createInstructions(&PriorityConfig{
		ComputeUnits: units,
		PriorityFee:  priorityFee,
	})
}

func (pm *PriorityManager) createInstructions(config *PriorityConfig) []solana.Instruction {
	var instructions []solana.Instruction

	if config.ComputeUnits > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(config.ComputeUnits).Build())
	}
	if config.PriorityFee > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(config.PriorityFee).Build())
	}

	pm.logger.Debug("Priority instructions prepared",
		zap.Uint32("compute_units", config.ComputeUnits),
		zap.Uint64("priority_fee", config.PriorityFee),
		zap.Int("count", len(instructions)))

	return instructions
}
