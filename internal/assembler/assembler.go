// Package assembler раскладывает наборы инструкций по транзакциям с учётом лимита размера.
package assembler

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pump-migrator/internal/types"
)

// ErrEmptyPlan: нечего собирать.
var ErrEmptyPlan = errors.New("no instructions to assemble")

// Plan: результат сборки: одна группа (Single) или несколько (Bundle).
// Конкатенация групп по порядку даёт исходную последовательность инструкций.
type Plan struct {
	Groups []InstructionSet
	Sizes  []int
}

// IsBundle сообщает, что план требует нескольких транзакций.
func (p *Plan) IsBundle() bool {
	return len(p.Groups) > 1
}

// Flatten возвращает инструкции всех групп в исходном порядке.
func (p *Plan) Flatten() InstructionSet {
	var out InstructionSet
	for _, g := range p.Groups {
		out = append(out, g...)
	}
	return out
}

// Kind: "single" или "bundle".
func (p *Plan) Kind() string {
	if p.IsBundle() {
		return "bundle"
	}
	return "single"
}

// Assembler собирает план. Payer, если задан, учитывается в каждой группе:
// плательщик комиссии входит в таблицу ключей любой транзакции.
type Assembler struct {
	Ceiling int
	Payer   solana.PublicKey
}

// New создаёт Assembler; ceiling <= 0 означает DefaultCeiling.
func New(ceiling int, payer solana.PublicKey) *Assembler {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Assembler{Ceiling: ceiling, Payer: payer}
}

// Assemble: сборка без учёта плательщика.
func Assemble(sets []InstructionSet, ceiling int) (*Plan, error) {
	return New(ceiling, solana.PublicKey{}).Assemble(sets)
}

// Assemble склеивает наборы в исходном порядке. Если всё помещается в лимит,
// возвращается одна группа. Иначе инструкции жадно раскладываются по
// последовательным группам: стоимость монотонна при добавлении, поэтому
// жадное заполнение даёт минимальное число групп.
func (a *Assembler) Assemble(sets []InstructionSet) (*Plan, error) {
	var all InstructionSet
	for _, s := range sets {
		all = append(all, s...)
	}
	if len(all) == 0 {
		return nil, ErrEmptyPlan
	}

	// одиночная инструкция сверх лимита: ошибка независимо от остальных
	for i, ix := range all {
		size, err := a.cost(InstructionSet{ix})
		if err != nil {
			return nil, err
		}
		if size > a.Ceiling {
			return nil, &types.InstructionTooLargeError{Index: i, Size: size, Ceiling: a.Ceiling}
		}
	}

	total, err := a.cost(all)
	if err != nil {
		return nil, err
	}
	if total <= a.Ceiling {
		return &Plan{Groups: []InstructionSet{all}, Sizes: []int{total}}, nil
	}

	plan := &Plan{}
	current := InstructionSet{}
	currentSize := 0
	for _, ix := range all {
		candidate := append(current[:len(current):len(current)], ix)
		size, err := a.cost(candidate)
		if err != nil {
			return nil, err
		}
		if size <= a.Ceiling {
			current, currentSize = candidate, size
			continue
		}
		plan.Groups = append(plan.Groups, current)
		plan.Sizes = append(plan.Sizes, currentSize)

		current = InstructionSet{ix}
		if currentSize, err = a.cost(current); err != nil {
			return nil, err
		}
	}
	plan.Groups = append(plan.Groups, current)
	plan.Sizes = append(plan.Sizes, currentSize)

	return plan, nil
}

// cost: EstimateSize с обязательным ключом плательщика.
func (a *Assembler) cost(set InstructionSet) (int, error) {
	size, err := EstimateSize(set)
	if err != nil {
		return 0, fmt.Errorf("estimate size: %w", err)
	}
	if a.Payer.IsZero() || containsKey(set, a.Payer) {
		return size, nil
	}
	return size + PublicKeySize, nil
}

func containsKey(set InstructionSet, key solana.PublicKey) bool {
	for _, ix := range set {
		if ix.ProgramID().Equals(key) {
			return true
		}
		for _, meta := range ix.Accounts() {
			if meta != nil && meta.PublicKey.Equals(key) {
				return true
			}
		}
	}
	return false
}
