// internal/types/types.go
package types

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// Direction задаёт сторону обмена относительно пары base/quote пула.
type Direction int

const (
	// BaseToQuote: продаём base (токен), получаем quote (SOL).
	BaseToQuote Direction = iota
	// QuoteToBase: платим quote (SOL), получаем base (токен).
	QuoteToBase
)

func (d Direction) String() string {
	switch d {
	case BaseToQuote:
		return "base_to_quote"
	case QuoteToBase:
		return "quote_to_base"
	default:
		return "unknown"
	}
}

// PoolReserves: снимок резервов одной площадки. Читается заново на каждую попытку.
type PoolReserves struct {
	VenueID        string
	Address        solana.PublicKey
	ReserveBase    uint64
	ReserveQuote   uint64
	FeeBasisPoints uint64

	// Capped: цена считается по виртуальным резервам, а вывести можно не
	// больше реальных RealBase/RealQuote (bonding curve).
	Capped    bool
	RealBase  uint64
	RealQuote uint64
}

// Oriented возвращает (reserveIn, reserveOut) для направления обмена.
func (r PoolReserves) Oriented(dir Direction) (uint64, uint64) {
	if dir == BaseToQuote {
		return r.ReserveBase, r.ReserveQuote
	}
	return r.ReserveQuote, r.ReserveBase
}

// AvailableOut возвращает, сколько выходного актива площадка может отдать
// при обмене в направлении dir.
func (r PoolReserves) AvailableOut(dir Direction) uint64 {
	_, reserveOut := r.Oriented(dir)
	if !r.Capped {
		return reserveOut
	}
	if dir == BaseToQuote {
		return min(reserveOut, r.RealQuote)
	}
	return min(reserveOut, r.RealBase)
}

// Quote: результат расчёта по формуле постоянного произведения.
// Инвариант: WorstAcceptableOut <= ExpectedOut.
type Quote struct {
	Direction          Direction
	TradeAmount        uint64
	ExpectedOut        uint64
	WorstAcceptableOut uint64
	ImpliedFee         uint64
	SlippageBps        uint16
}

// ExecutedPrice возвращает цену исполнения в единицах входа за единицу выхода
// при наихудшем допустимом результате.
func (q *Quote) ExecutedPrice() float64 {
	if q == nil || q.WorstAcceptableOut == 0 {
		return 0
	}
	price, _ := new(big.Rat).SetFrac(
		new(big.Int).SetUint64(q.TradeAmount),
		new(big.Int).SetUint64(q.WorstAcceptableOut),
	).Float64()
	return price
}
