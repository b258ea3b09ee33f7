// Package quote считает котировки по формуле постоянного произведения.
// Пакет не ходит в сеть и не применяет бюджет комиссии: это решение вызывающего.
package quote

import (
	"fmt"
	"math/big"

	"github.com/rovshanmuradov/pump-migrator/internal/types"
)

var bpsDenominator = big.NewInt(types.MaxSlippageBps)

// ComputeQuote считает выход сделки размером tradeAmount в направлении dir.
//
//	out   = reserveOut - ceil(reserveIn*reserveOut / (reserveIn+t)) = floor(reserveOut*t / (reserveIn+t))
//	worst = floor(out * (10000-bps) / 10000)
//	fee   = floor(t*reserveOut/reserveIn) - worst
//
// Округление всегда в пользу пула.
func ComputeQuote(r types.PoolReserves, dir types.Direction, tradeAmount uint64, slippageBps uint16) (*types.Quote, error) {
	if err := types.ValidateSlippage(slippageBps); err != nil {
		return nil, err
	}
	if tradeAmount == 0 {
		return nil, fmt.Errorf("%w: trade amount must be positive", types.ErrInvalidAmount)
	}

	reserveIn, reserveOut := r.Oriented(dir)
	liquidityErr := &types.InsufficientLiquidityError{
		TradeAmount: tradeAmount,
		ReserveIn:   reserveIn,
		ReserveOut:  reserveOut,
	}
	if reserveIn == 0 || reserveOut == 0 || tradeAmount >= reserveIn {
		return nil, liquidityErr
	}

	t := new(big.Int).SetUint64(tradeAmount)
	rin := new(big.Int).SetUint64(reserveIn)
	rout := new(big.Int).SetUint64(reserveOut)

	out := new(big.Int).Mul(rout, t)
	out.Quo(out, new(big.Int).Add(rin, t))
	if out.Sign() == 0 {
		return nil, liquidityErr
	}

	if out.Cmp(new(big.Int).SetUint64(r.AvailableOut(dir))) > 0 {
		return nil, liquidityErr
	}

	worst := types.ApplySlippage(out.Uint64(), slippageBps)

	linear := new(big.Int).Mul(t, rout)
	linear.Quo(linear, rin)

	return &types.Quote{
		Direction:          dir,
		TradeAmount:        tradeAmount,
		ExpectedOut:        out.Uint64(),
		WorstAcceptableOut: worst,
		ImpliedFee:         saturatingSub(linear, worst),
		SlippageBps:        slippageBps,
	}, nil
}

// QuoteForOutput решает обратную задачу: сколько нужно отдать, чтобы получить
// wantOut после комиссии площадки feeBps, удерживаемой с выхода.
// Вход округляется вверх, worst = wantOut с учётом проскальзывания.
func QuoteForOutput(r types.PoolReserves, dir types.Direction, wantOut uint64, feeBps uint64, slippageBps uint16) (*types.Quote, error) {
	if err := types.ValidateSlippage(slippageBps); err != nil {
		return nil, err
	}
	if wantOut == 0 {
		return nil, fmt.Errorf("%w: output amount must be positive", types.ErrInvalidAmount)
	}
	if feeBps >= types.MaxSlippageBps {
		return nil, fmt.Errorf("%w: venue fee %d bps", types.ErrInvalidAmount, feeBps)
	}

	reserveIn, reserveOut := r.Oriented(dir)

	// выход до удержания комиссии
	gross := new(big.Int).Mul(new(big.Int).SetUint64(wantOut), bpsDenominator)
	gross = ceilDiv(gross, big.NewInt(int64(types.MaxSlippageBps-feeBps)))

	rin := new(big.Int).SetUint64(reserveIn)
	rout := new(big.Int).SetUint64(reserveOut)
	available := new(big.Int).SetUint64(r.AvailableOut(dir))
	if reserveIn == 0 || gross.Cmp(rout) >= 0 || gross.Cmp(available) > 0 {
		return nil, &types.InsufficientLiquidityError{
			TradeAmount: wantOut,
			ReserveIn:   reserveIn,
			ReserveOut:  reserveOut,
		}
	}

	in := new(big.Int).Mul(rin, gross)
	in = ceilDiv(in, new(big.Int).Sub(rout, gross))
	if !in.IsUint64() {
		return nil, &types.InsufficientLiquidityError{TradeAmount: wantOut, ReserveIn: reserveIn, ReserveOut: reserveOut}
	}

	worst := types.ApplySlippage(wantOut, slippageBps)

	linear := new(big.Int).Mul(in, rout)
	linear.Quo(linear, rin)

	return &types.Quote{
		Direction:          dir,
		TradeAmount:        in.Uint64(),
		ExpectedOut:        wantOut,
		WorstAcceptableOut: worst,
		ImpliedFee:         saturatingSub(linear, worst),
		SlippageBps:        slippageBps,
	}, nil
}

// WithinBudget сообщает, укладывается ли неявная комиссия в бюджет.
func WithinBudget(q *types.Quote, maxFee uint64) error {
	if q.ImpliedFee > maxFee {
		return &types.FeeBudgetExceededError{ImpliedFee: q.ImpliedFee, Budget: maxFee}
	}
	return nil
}

func ceilDiv(a, b *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(a, b, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func saturatingSub(a *big.Int, b uint64) uint64 {
	bb := new(big.Int).SetUint64(b)
	if a.Cmp(bb) <= 0 {
		return 0
	}
	d := new(big.Int).Sub(a, bb)
	if !d.IsUint64() {
		return ^uint64(0)
	}
	return d.Uint64()
}
