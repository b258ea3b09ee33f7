package wallet

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// CreateAssociatedTokenAccountIdempotentInstruction создаёт ATA владельца, если его ещё нет.
func CreateAssociatedTokenAccountIdempotentInstruction(payer, owner, mint solana.PublicKey) solana.Instruction {
	ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)

	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // 1 = CreateIdempotent
	)
}

// WrapSOLInstructions переводит lamports на wSOL ATA владельца и синхронизирует баланс.
// ATA должен существовать к моменту исполнения.
func WrapSOLInstructions(owner solana.PublicKey, lamports uint64) []solana.Instruction {
	wsolATA, _, _ := solana.FindAssociatedTokenAddress(owner, solana.WrappedSol)

	return []solana.Instruction{
		system.NewTransferInstruction(lamports, owner, wsolATA).Build(),
		token.NewSyncNativeInstruction(wsolATA).Build(),
	}
}

// CloseWSOLInstruction закрывает wSOL ATA, возвращая остаток лампортов владельцу.
func CloseWSOLInstruction(owner solana.PublicKey) solana.Instruction {
	wsolATA, _, _ := solana.FindAssociatedTokenAddress(owner, solana.WrappedSol)
	return token.NewCloseAccountInstruction(wsolATA, owner, owner, nil).Build()
}
