package pumpswap

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Account discriminators extracted from the IDL
var (
	// GlobalConfigDiscriminator is the discriminator for GlobalConfig accounts
	GlobalConfigDiscriminator = []byte{149, 8, 156, 202, 160, 252, 176, 217}

	// PoolDiscriminator is the discriminator for Pool accounts
	PoolDiscriminator = []byte{241, 154, 109, 4, 17, 177, 109, 188}
)

const (
	// offsets inside the Pool account
	offsetBaseMint  = 8 + 1 + 2 + 32 // 43
	offsetQuoteMint = offsetBaseMint + 32

	poolMinSize         = 8 + 1 + 2 + 32*6 + 8
	globalConfigMinSize = 8 + 32 + 8 + 8 + 1 + 32*8

	TokenAccountAmountOffset uint64 = 64
	TokenAccountAmountSize   uint64 = 8
)

// GlobalConfig represents the global configuration for PumpSwap
type GlobalConfig struct {
	Admin                  solana.PublicKey    // The admin public key
	LPFeeBasisPoints       uint64              // LP fee in basis points (0.01%)
	ProtocolFeeBasisPoints uint64              // Protocol fee in basis points (0.01%)
	DisableFlags           uint8               // Flags to disable certain functionality
	ProtocolFeeRecipients  [8]solana.PublicKey // Addresses of protocol fee recipients
}

// DisableFlags bits in GlobalConfig
const (
	DisableCreatePool = 1 << iota
	DisableDeposit
	DisableWithdraw
	DisableBuy
	DisableSell
)

// Pool represents a liquidity pool in PumpSwap
type Pool struct {
	PoolBump              uint8
	Index                 uint16
	Creator               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LPMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	LPSupply              uint64
	CoinCreator           solana.PublicKey // пусто у пулов, созданных до комиссий создателя
}

// PoolInfo: пул вместе с резервами. Поля Base*/Quote* приведены к запрошенному
// порядку mint'ов; Reversed означает, что в самом пуле они стоят наоборот.
type PoolInfo struct {
	Address               solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	BaseReserves          uint64
	QuoteReserves         uint64
	LPSupply              uint64
	FeesBasisPoints       uint64
	ProtocolFeeBPS        uint64
	LPMint                solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	CoinCreator           solana.PublicKey
	Reversed              bool
}

// reverse меняет местами base и quote.
func (p *PoolInfo) reverse() {
	p.BaseMint, p.QuoteMint = p.QuoteMint, p.BaseMint
	p.BaseReserves, p.QuoteReserves = p.QuoteReserves, p.BaseReserves
	p.PoolBaseTokenAccount, p.PoolQuoteTokenAccount = p.PoolQuoteTokenAccount, p.PoolBaseTokenAccount
	p.Reversed = !p.Reversed
}

// ParseGlobalConfig parses account data into GlobalConfig structure
func ParseGlobalConfig(data []byte) (*GlobalConfig, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], GlobalConfigDiscriminator) {
		return nil, fmt.Errorf("invalid discriminator for GlobalConfig")
	}
	if len(data) < globalConfigMinSize {
		return nil, fmt.Errorf("data too short for GlobalConfig content")
	}

	pos := 8
	config := &GlobalConfig{}

	config.Admin = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32

	config.LPFeeBasisPoints = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8

	config.ProtocolFeeBasisPoints = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8

	config.DisableFlags = data[pos]
	pos++

	for i := 0; i < 8; i++ {
		config.ProtocolFeeRecipients[i] = solana.PublicKeyFromBytes(data[pos : pos+32])
		pos += 32
	}

	return config, nil
}

// ParsePool парсит бинарные данные аккаунта пула.
func ParsePool(data []byte) (*Pool, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], PoolDiscriminator) {
		return nil, fmt.Errorf("invalid discriminator for Pool")
	}
	if len(data) < poolMinSize {
		return nil, fmt.Errorf("data too short for Pool content")
	}

	pos := 8
	pool := &Pool{}
	pool.PoolBump = data[pos]
	pos++
	pool.Index = binary.LittleEndian.Uint16(data[pos : pos+2])
	pos += 2

	pool.Creator = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.BaseMint = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.QuoteMint = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.LPMint = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.PoolBaseTokenAccount = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.PoolQuoteTokenAccount = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32

	pool.LPSupply = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8

	if len(data) >= pos+32 {
		pool.CoinCreator = solana.PublicKeyFromBytes(data[pos : pos+32])
	}

	return pool, nil
}

// parseTokenAccountAmount извлекает баланс SPL токен-аккаунта.
func parseTokenAccountAmount(data []byte) uint64 {
	if len(data) < int(TokenAccountAmountOffset+TokenAccountAmountSize) {
		return 0
	}
	return binary.LittleEndian.Uint64(data[TokenAccountAmountOffset : TokenAccountAmountOffset+TokenAccountAmountSize])
}
