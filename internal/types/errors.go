// internal/types/errors.go
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки валидации входных параметров.
var (
	ErrInvalidSlippage = errors.New("invalid slippage tolerance")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidToken    = errors.New("invalid token mint")
)

// PoolNotFoundError: у площадки нет активного рынка для токена.
type PoolNotFoundError struct {
	Venue string
	Token string
	Err   error
}

func (e *PoolNotFoundError) Error() string {
	msg := fmt.Sprintf("%s: no active market for %s", e.Venue, e.Token)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PoolNotFoundError) Unwrap() error { return e.Err }

// PoolCompletedError: bonding curve завершена (токен выпущен на AMM).
type PoolCompletedError struct {
	Venue string
	Token string
}

func (e *PoolCompletedError) Error() string {
	return fmt.Sprintf("%s: market for %s is completed", e.Venue, e.Token)
}

// InsufficientLiquidityError: резервов не хватает для сделки заданного размера.
type InsufficientLiquidityError struct {
	TradeAmount uint64
	ReserveIn   uint64
	ReserveOut  uint64
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf("insufficient liquidity: trade %d against reserves in=%d out=%d",
		e.TradeAmount, e.ReserveIn, e.ReserveOut)
}

// FeeBudgetExceededError: неявная комиссия котировки превышает бюджет.
type FeeBudgetExceededError struct {
	ImpliedFee uint64
	Budget     uint64
}

func (e *FeeBudgetExceededError) Error() string {
	return fmt.Sprintf("implied fee %d exceeds budget %d", e.ImpliedFee, e.Budget)
}

// InstructionTooLargeError: одна инструкция не помещается в транзакцию даже отдельно.
type InstructionTooLargeError struct {
	Index   int
	Size    int
	Ceiling int
}

func (e *InstructionTooLargeError) Error() string {
	return fmt.Sprintf("instruction %d needs %d bytes, ceiling is %d", e.Index, e.Size, e.Ceiling)
}

// SubmissionTimeoutError: подтверждение не получено за отведённое время.
type SubmissionTimeoutError struct {
	ID       string
	Attempts int
}

func (e *SubmissionTimeoutError) Error() string {
	return fmt.Sprintf("submission %s not confirmed after %d attempt(s)", e.ID, e.Attempts)
}

// BundleRejectedError: relay отклонил или потерял бандл.
type BundleRejectedError struct {
	BundleID string
	Reason   string
}

func (e *BundleRejectedError) Error() string {
	if e.BundleID == "" {
		return "bundle rejected: " + e.Reason
	}
	return fmt.Sprintf("bundle %s rejected: %s", e.BundleID, e.Reason)
}

// OnChainRejectionError: транзакция отклонена программой (или симуляцией).
type OnChainRejectionError struct {
	Signature string
	Simulated bool
	Reason    string
	Logs      []string
}

func (e *OnChainRejectionError) Error() string {
	var b strings.Builder
	if e.Simulated {
		b.WriteString("simulation rejected")
	} else {
		b.WriteString("transaction rejected")
	}
	if e.Signature != "" {
		b.WriteString(" (" + e.Signature + ")")
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	return b.String()
}

// IndeterminateOutcomeError: вызов прерван после отправки, итог в сети неизвестен.
type IndeterminateOutcomeError struct {
	ID  string
	Err error
}

func (e *IndeterminateOutcomeError) Error() string {
	return fmt.Sprintf("outcome of %s is unknown: %v", e.ID, e.Err)
}

func (e *IndeterminateOutcomeError) Unwrap() error { return e.Err }
