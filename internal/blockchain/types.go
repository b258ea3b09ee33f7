// internal/blockchain/types.go
package blockchain

// SimulationResult представляет результат симуляции транзакции.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// ConfirmationLevel: уровень подтверждения подписи в леджере.
type ConfirmationLevel int

const (
	ConfirmationNone ConfirmationLevel = iota
	ConfirmationProcessed
	ConfirmationConfirmed
	ConfirmationFinalized
)

func (l ConfirmationLevel) String() string {
	switch l {
	case ConfirmationProcessed:
		return "processed"
	case ConfirmationConfirmed:
		return "confirmed"
	case ConfirmationFinalized:
		return "finalized"
	default:
		return "none"
	}
}

// ParseConfirmationLevel разбирает имя уровня подтверждения.
func ParseConfirmationLevel(s string) (ConfirmationLevel, bool) {
	switch s {
	case "processed":
		return ConfirmationProcessed, true
	case "confirmed":
		return ConfirmationConfirmed, true
	case "finalized":
		return ConfirmationFinalized, true
	}
	return ConfirmationNone, false
}

// SignatureStatus: статус одной подписи.
type SignatureStatus struct {
	Level ConfirmationLevel
	Slot  uint64
	Err   interface{} // ошибка исполнения, nil если транзакция прошла
}
