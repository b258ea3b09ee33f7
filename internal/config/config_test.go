package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/pump-migrator/internal/blockchain"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{"rpc_list": ["https://api.mainnet-beta.solana.com"]}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, cfg.RPCList)
	assert.Equal(t, DefaultRetries, cfg.Retries)
	assert.Equal(t, DefaultJitoEndpoint, cfg.Jito.Endpoint)
	assert.Equal(t, blockchain.ConfirmationConfirmed, cfg.CommitmentLevel())
	assert.Equal(t, 30*time.Second, cfg.ConfirmTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, uint64(DefaultTipLamports), cfg.DefaultTip)
	assert.Equal(t, DefaultSizeCeiling, cfg.SizeCeiling)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
rpc_list:
  - https://rpc-a.example.com
  - https://rpc-b.example.com
commitment: finalized
retries: 5
jito:
  endpoint: https://ny.mainnet.block-engine.jito.wtf/api/v1/bundles
  auth_uuid: abc
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Len(t, cfg.RPCList, 2)
	assert.Equal(t, blockchain.ConfirmationFinalized, cfg.CommitmentLevel())
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, "abc", cfg.Jito.AuthUUID)
	assert.Equal(t, float64(DefaultJitoRateLimit), cfg.Jito.RateLimit)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"rpc_list": ["https://rpc-a.example.com"], "retries": 2}`)
	t.Setenv("MIGRATOR_RPC_LIST", "https://env-1.example.com, https://env-2.example.com")
	t.Setenv("MIGRATOR_RETRIES", "7")
	t.Setenv("MIGRATOR_JITO_AUTH_UUID", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://env-1.example.com", "https://env-2.example.com"}, cfg.RPCList)
	assert.Equal(t, 7, cfg.Retries)
	assert.Equal(t, "from-env", cfg.Jito.AuthUUID)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty rpc list", `{"rpc_list": []}`, "rpc_list is empty"},
		{"bad rpc scheme", `{"rpc_list": ["ftp://node"]}`, "invalid RPC URL"},
		{"bad commitment", `{"rpc_list": ["https://node"], "commitment": "rooted"}`, "invalid commitment"},
		{"plain http relay", `{"rpc_list": ["https://node"], "jito": {"endpoint": "http://relay"}}`, "HTTPS"},
		{"zero retries", `{"rpc_list": ["https://node"], "retries": 0}`, "retries"},
		{"negative concurrency", `{"rpc_list": ["https://node"], "concurrency": -1}`, "concurrency"},
		{"tip below relay minimum", `{"rpc_list": ["https://node"], "default_tip": 500}`, "default_tip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, "config.json", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorContains(t, err, "read config error")
}
