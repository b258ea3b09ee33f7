package assembler

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Раскладка legacy-транзакции с одним подписантом.
const (
	signatureCountSize = 1
	signatureSize      = 64
	messageHeaderSize  = 3
	accountCountSize   = 1
	blockhashSize      = 32
	ixCountSize        = 1

	// HeaderCost: постоянная часть транзакции, не зависящая от инструкций.
	HeaderCost = signatureCountSize + signatureSize + messageHeaderSize +
		accountCountSize + blockhashSize + ixCountSize

	// PublicKeySize: стоимость каждого уникального ключа в таблице аккаунтов.
	PublicKeySize = 32

	// DefaultCeiling: лимит пакета Solana для одной транзакции.
	DefaultCeiling = 1232
)

// InstructionSet: упорядоченный набор инструкций.
type InstructionSet []solana.Instruction

// EstimateSize оценивает размер сериализованной транзакции из набора.
// Ключи (программы и аккаунты) считаются один раз; заголовок учитывается один раз.
func EstimateSize(set InstructionSet) (int, error) {
	keys := make(map[solana.PublicKey]struct{})
	body := 0
	for i, ix := range set {
		n, err := instructionBody(ix)
		if err != nil {
			return 0, fmt.Errorf("instruction %d: %w", i, err)
		}
		body += n
		collectKeys(keys, ix)
	}
	return HeaderCost + PublicKeySize*len(keys) + body, nil
}

// InstructionSize: размер транзакции из одной инструкции.
func InstructionSize(ix solana.Instruction) (int, error) {
	return EstimateSize(InstructionSet{ix})
}

// instructionBody считает compiled-инструкцию: индекс программы, индексы аккаунтов и данные.
func instructionBody(ix solana.Instruction) (int, error) {
	data, err := ix.Data()
	if err != nil {
		return 0, fmt.Errorf("encode data: %w", err)
	}
	accounts := len(ix.Accounts())
	return 1 + compactLen(accounts) + accounts + compactLen(len(data)) + len(data), nil
}

func collectKeys(keys map[solana.PublicKey]struct{}, ix solana.Instruction) {
	keys[ix.ProgramID()] = struct{}{}
	for _, meta := range ix.Accounts() {
		if meta == nil {
			continue
		}
		keys[meta.PublicKey] = struct{}{}
	}
}

// compactLen: длина compact-u16 кодирования n.
func compactLen(n int) int {
	switch {
	case n < 0x80:
		return 1
	case n < 0x4000:
		return 2
	default:
		return 3
	}
}
