package dex

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pump-migrator/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pump-migrator/internal/dex/pumpswap"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

type nopReader struct{}

func (nopReader) GetMultipleAccounts(_ context.Context, keys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	return &rpc.GetMultipleAccountsResult{Value: make([]*rpc.Account, len(keys))}, nil
}

func (nopReader) GetProgramAccountsWithOpts(context.Context, solana.PublicKey, *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	return nil, nil
}

func TestGetVenueByName(t *testing.T) {
	logger := zaptest.NewLogger(t)
	opts := pumpswap.DefaultPoolManagerOptions()

	tests := []struct {
		name    string
		venue   string
		want    string
		wantErr bool
	}{
		{"pump.fun", "pump.fun", pumpfun.VenueName, false},
		{"pump.swap with spaces", "  Pump.Swap ", pumpswap.VenueName, false},
		{"unknown venue", "raydium", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := GetVenueByName(tt.venue, nopReader{}, testMint, logger, opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Name())
		})
	}

	_, err := GetVenueByName(pumpfun.VenueName, nil, testMint, logger, opts)
	assert.Error(t, err)
	_, err = GetVenueByName(pumpfun.VenueName, nopReader{}, "bad mint", logger, opts)
	assert.Error(t, err)
}

func TestNewFactory_FreshInstances(t *testing.T) {
	factory := NewFactory(nopReader{}, zaptest.NewLogger(t), pumpfun.VenueName, pumpswap.VenueName, pumpswap.DefaultPoolManagerOptions())

	first, err := factory(testMint)
	require.NoError(t, err)
	second, err := factory(testMint)
	require.NoError(t, err)

	assert.Equal(t, pumpfun.VenueName, first.Source.Name())
	assert.Equal(t, pumpswap.VenueName, first.Destination.Name())
	assert.NotSame(t, first.Source, second.Source)
	assert.NotSame(t, first.Destination, second.Destination)
}
