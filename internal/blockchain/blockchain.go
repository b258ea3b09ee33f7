// internal/blockchain/blockchain.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// BundleState: состояние бандла у релея.
type BundleState int

const (
	BundlePending BundleState = iota
	BundleLanded
	BundleFailed
	BundleUnknown // релей не знает такого бандла (ещё не принят или уже забыт)
)

func (s BundleState) String() string {
	switch s {
	case BundlePending:
		return "pending"
	case BundleLanded:
		return "landed"
	case BundleFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BundleStatus: статус бандла, сообщённый релеем.
type BundleStatus struct {
	ID     string
	State  BundleState
	Slot   uint64
	Level  ConfirmationLevel // для приземлившегося бандла
	Reason string
	// TxErrors: ошибки исполнения транзакций бандла.
	TxErrors []string
}

// Relay: атомарная отправка нескольких транзакций через block engine.
type Relay interface {
	// TipAccount возвращает аккаунт, на который переводится чаевые.
	TipAccount(ctx context.Context) (solana.PublicKey, error)
	// SendBundle отправляет подписанные транзакции одним бандлом.
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
	// GetBundleStatus возвращает статус бандла.
	GetBundleStatus(ctx context.Context, bundleID string) (*BundleStatus, error)
}
