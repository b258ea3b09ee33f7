package pumpswap

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// swapSide: сторона свапа относительно base-токена пула.
type swapSide uint8

const (
	sideBuy  swapSide = iota // buy(base_amount_out, max_quote_amount_in)
	sideSell                 // sell(base_amount_in, min_quote_amount_out)
)

var swapDiscriminators = map[swapSide][8]byte{
	sideBuy:  {102, 6, 61, 18, 1, 218, 235, 234},
	sideSell: {51, 230, 133, 164, 1, 127, 131, 173},
}

// swapAccounts: аккаунты свапа. Base/quote всегда в порядке самого пула.
type swapAccounts struct {
	pool              solana.PublicKey
	user              solana.PublicKey
	globalConfig      solana.PublicKey
	baseMint          solana.PublicKey
	quoteMint         solana.PublicKey
	userBase          solana.PublicKey
	userQuote         solana.PublicKey
	poolBase          solana.PublicKey
	poolQuote         solana.PublicKey
	feeRecipient      solana.PublicKey
	feeRecipientQuote solana.PublicKey
	eventAuthority    solana.PublicKey
	program           solana.PublicKey
	creatorVaultQuote solana.PublicKey
	creatorVault      solana.PublicKey
}

// metas возвращает 19 аккаунтов в порядке IDL.
func (a *swapAccounts) metas() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		solana.NewAccountMeta(a.pool, false, false),
		solana.NewAccountMeta(a.user, true, true),
		solana.NewAccountMeta(a.globalConfig, false, false),
		solana.NewAccountMeta(a.baseMint, false, false),
		solana.NewAccountMeta(a.quoteMint, false, false),
		solana.NewAccountMeta(a.userBase, true, false),
		solana.NewAccountMeta(a.userQuote, true, false),
		solana.NewAccountMeta(a.poolBase, true, false),
		solana.NewAccountMeta(a.poolQuote, true, false),
		solana.NewAccountMeta(a.feeRecipient, false, false),
		solana.NewAccountMeta(a.feeRecipientQuote, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false), // base token program
		solana.NewAccountMeta(solana.TokenProgramID, false, false), // quote token program
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(a.eventAuthority, false, false),
		solana.NewAccountMeta(a.program, false, false),
		solana.NewAccountMeta(a.creatorVaultQuote, true, false),
		solana.NewAccountMeta(a.creatorVault, false, false),
	}
}

// swapInstruction кодирует buy или sell. baseAmount: точное количество base,
// quoteLimit: max quote для buy или min quote для sell.
func swapInstruction(accounts *swapAccounts, side swapSide, baseAmount, quoteLimit uint64) solana.Instruction {
	disc := swapDiscriminators[side]
	data := make([]byte, 24)
	copy(data[:8], disc[:])
	binary.LittleEndian.PutUint64(data[8:16], baseAmount)
	binary.LittleEndian.PutUint64(data[16:24], quoteLimit)

	return solana.NewInstruction(accounts.program, accounts.metas(), data)
}
