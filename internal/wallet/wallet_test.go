package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := NewWallet(pk.String())
	require.NoError(t, err)
	assert.Equal(t, pk.PublicKey(), w.PublicKey)
	assert.Equal(t, pk.PublicKey(), w.Payer())

	_, err = NewWallet("not-base58-0OIl")
	assert.Error(t, err)

	_, err = NewWallet("3yZe7d")
	assert.ErrorContains(t, err, "invalid private key length")
}

func TestLoadWallets(t *testing.T) {
	first, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	second, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	content := "wallets:\n" +
		"  - name: main\n    private_key: " + first.String() + "\n" +
		"  - name: spare\n    private_key: " + second.String() + "\n" +
		"  - name: \"\"\n    private_key: ignored\n"

	path := filepath.Join(t.TempDir(), "wallets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	wallets, err := LoadWallets(path)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, first.PublicKey(), wallets["main"].PublicKey)
	assert.Equal(t, second.PublicKey(), wallets["spare"].PublicKey)
}

func TestLoadWallets_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadWallets(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("wallets: []\n"), 0o600))
	_, err = LoadWallets(empty)
	assert.ErrorContains(t, err, "no wallets found")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("wallets:\n  - name: main\n    private_key: abc\n"), 0o600))
	_, err = LoadWallets(broken)
	assert.ErrorContains(t, err, "main")
}

func TestSignTransaction(t *testing.T) {
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(pk.String())
	require.NoError(t, err)

	ix := CreateAssociatedTokenAccountIdempotentInstruction(w.PublicKey, w.PublicKey, solana.WrappedSol)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(w.PublicKey))
	require.NoError(t, err)

	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}

func TestGetATA_Cached(t *testing.T) {
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := NewWallet(pk.String())
	require.NoError(t, err)

	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, solana.WrappedSol)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ata, err := w.GetATA(solana.WrappedSol)
		require.NoError(t, err)
		assert.Equal(t, expected, ata)
	}
}

func TestWrapSOLInstructions(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	ixs := WrapSOLInstructions(owner, 1_000_000)
	require.Len(t, ixs, 2)
	assert.Equal(t, solana.SystemProgramID, ixs[0].ProgramID())
	assert.Equal(t, solana.TokenProgramID, ixs[1].ProgramID())

	wsolATA, _, err := solana.FindAssociatedTokenAddress(owner, solana.WrappedSol)
	require.NoError(t, err)
	assert.Equal(t, wsolATA, ixs[1].Accounts()[0].PublicKey)

	closeIx := CloseWSOLInstruction(owner)
	assert.Equal(t, solana.TokenProgramID, closeIx.ProgramID())
	assert.Equal(t, wsolATA, closeIx.Accounts()[0].PublicKey)
}
