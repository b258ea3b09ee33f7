// =============================
// File: internal/dex/pumpfun/accounts.go
// =============================
package pumpfun

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// AccountReader: чтение аккаунтов, нужное площадке. Реализуется solbc.Client.
type AccountReader interface {
	GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error)
}

// DeriveBondingCurveAccounts вычисляет PDA bonding curve и её токен-аккаунт (ATA).
func DeriveBondingCurveAccounts(mint, programID solana.PublicKey) (bondingCurve, associatedBondingCurve solana.PublicKey, err error) {
	bondingCurve, _, err = solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), mint.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("failed to derive bonding curve: %w", err)
	}

	associatedBondingCurve, _, err = solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}

	return bondingCurve, associatedBondingCurve, nil
}

// DeriveCreatorVault вычисляет PDA хранилища комиссий создателя токена.
func DeriveCreatorVault(creator, programID solana.PublicKey) (solana.PublicKey, error) {
	vault, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("creator-vault"), creator.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive creator vault: %w", err)
	}
	return vault, nil
}

// fetchState читает global и bonding curve одним запросом.
// Отсутствующий аккаунт возвращается как nil без ошибки.
func fetchState(ctx context.Context, reader AccountReader, global, curve, programID solana.PublicKey) (*GlobalAccount, *BondingCurve, error) {
	res, err := reader.GetMultipleAccounts(ctx, []solana.PublicKey{global, curve})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get pump.fun accounts: %w", err)
	}
	if res == nil || len(res.Value) != 2 {
		return nil, nil, fmt.Errorf("unexpected accounts response")
	}

	var (
		globalAcc *GlobalAccount
		curveAcc  *BondingCurve
	)

	if info := res.Value[0]; info != nil {
		if !info.Owner.Equals(programID) {
			return nil, nil, fmt.Errorf("global account has incorrect owner: expected %s, got %s",
				programID, info.Owner)
		}
		if globalAcc, err = ParseGlobalAccount(info.Data.GetBinary()); err != nil {
			return nil, nil, err
		}
	}

	// кривая чужой программы считается отсутствующей
	if info := res.Value[1]; info != nil && info.Owner.Equals(programID) {
		if curveAcc, err = ParseBondingCurve(info.Data.GetBinary()); err != nil {
			return nil, nil, err
		}
	}

	return globalAcc, curveAcc, nil
}
