// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/rovshanmuradov/pump-migrator/internal/blockchain"
)

type Config struct {
	RPCList      []string `mapstructure:"rpc_list"`
	RPCRateLimit float64  `mapstructure:"rpc_rate_limit"`
	RPCTimeoutMS int      `mapstructure:"rpc_timeout"`

	WalletsFile string `mapstructure:"wallets_file"`
	TasksFile   string `mapstructure:"tasks_file"`

	Jito JitoConfig `mapstructure:"jito"`

	Commitment       string `mapstructure:"commitment"`
	PollIntervalMS   int    `mapstructure:"poll_interval"`
	ConfirmTimeoutMS int    `mapstructure:"confirm_timeout"`
	Retries          int    `mapstructure:"retries"`
	RetryBaseMS      int    `mapstructure:"retry_base"`

	PoolRetries    int `mapstructure:"pool_retries"`
	PoolRetryDelay int `mapstructure:"pool_retry_delay"`

	SizeCeiling  int    `mapstructure:"size_ceiling"`
	DefaultTip   uint64 `mapstructure:"default_tip"`
	Concurrency  int    `mapstructure:"concurrency"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
}

type JitoConfig struct {
	Endpoint  string  `mapstructure:"endpoint"`
	AuthUUID  string  `mapstructure:"auth_uuid"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

const (
	DefaultRPCRateLimit   = 20
	DefaultRPCTimeout     = 10_000
	DefaultPollInterval   = 500
	DefaultConfirmTimeout = 30_000
	DefaultRetries        = 3
	DefaultRetryBase      = 1000
	DefaultPoolRetries    = 3
	DefaultPoolRetryDelay = 1000
	DefaultSizeCeiling    = 1232
	DefaultTipLamports    = 10_000
	MinTipLamports        = 1000
	DefaultConcurrency    = 1
	DefaultCommitment     = "confirmed"
	DefaultJitoEndpoint   = "https://mainnet.block-engine.jito.wtf/api/v1/bundles"
	DefaultJitoRateLimit  = 1
	DefaultLogFile        = "migrator.log"

	envPrefix = "MIGRATOR"
)

// LoadConfig читает JSON/YAML конфиг; переменные окружения MIGRATOR_* переопределяют файл.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"rpc_rate_limit":   DefaultRPCRateLimit,
		"rpc_timeout":      DefaultRPCTimeout,
		"wallets_file":     "configs/wallets.yaml",
		"tasks_file":       "configs/tasks.yaml",
		"jito.endpoint":    DefaultJitoEndpoint,
		"jito.auth_uuid":   "",
		"jito.rate_limit":  DefaultJitoRateLimit,
		"commitment":       DefaultCommitment,
		"poll_interval":    DefaultPollInterval,
		"confirm_timeout":  DefaultConfirmTimeout,
		"retries":          DefaultRetries,
		"retry_base":       DefaultRetryBase,
		"pool_retries":     DefaultPoolRetries,
		"pool_retry_delay": DefaultPoolRetryDelay,
		"size_ceiling":     DefaultSizeCeiling,
		"default_tip":      DefaultTipLamports,
		"concurrency":      DefaultConcurrency,
		"log_file":         DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CommitmentLevel возвращает уровень подтверждения для диспетчера.
func (c *Config) CommitmentLevel() blockchain.ConfirmationLevel {
	level, ok := blockchain.ParseConfirmationLevel(c.Commitment)
	if !ok {
		return blockchain.ConfirmationConfirmed
	}
	return level
}

func (c *Config) RPCTimeout() time.Duration     { return ms(c.RPCTimeoutMS) }
func (c *Config) PollInterval() time.Duration   { return ms(c.PollIntervalMS) }
func (c *Config) ConfirmTimeout() time.Duration { return ms(c.ConfirmTimeoutMS) }
func (c *Config) RetryBase() time.Duration      { return ms(c.RetryBaseMS) }
func (c *Config) PoolRetryDelayDuration() time.Duration {
	return ms(c.PoolRetryDelay)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	if cfg.Jito.Endpoint != "" {
		if err := validateURLWithCache(cfg.Jito.Endpoint, "https"); err != nil {
			return fmt.Errorf("jito endpoint must use HTTPS: %w", err)
		}
	}
	if _, ok := blockchain.ParseConfirmationLevel(cfg.Commitment); !ok {
		return fmt.Errorf("invalid commitment %q: want processed, confirmed or finalized", cfg.Commitment)
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.PollIntervalMS <= 0 {
		return errors.New("invalid poll_interval")
	}
	if cfg.ConfirmTimeoutMS <= 0 {
		return errors.New("invalid confirm_timeout")
	}
	if cfg.Retries <= 0 {
		return errors.New("invalid retries count")
	}
	if cfg.RetryBaseMS < 0 {
		return errors.New("invalid retry_base")
	}
	if cfg.RPCRateLimit <= 0 {
		return errors.New("invalid rpc_rate_limit")
	}
	if cfg.SizeCeiling <= 0 {
		return errors.New("invalid size_ceiling")
	}
	if cfg.Concurrency <= 0 {
		return errors.New("invalid concurrency")
	}
	if cfg.PoolRetries < 0 {
		return errors.New("invalid pool_retries")
	}
	if cfg.DefaultTip < MinTipLamports {
		return fmt.Errorf("default_tip must be at least %d lamports", MinTipLamports)
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// loadEnvironmentVariables: списки из окружения приходят строкой через запятую.
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	envRPCList := v.GetString("RPC_LIST")
	if envRPCList == "" {
		return
	}
	var cleanRPCs []string
	for _, rpc := range strings.Split(envRPCList, ",") {
		if clean := strings.TrimSpace(rpc); clean != "" {
			cleanRPCs = append(cleanRPCs, clean)
		}
	}
	if len(cleanRPCs) > 0 {
		cfg.RPCList = cleanRPCs
	}
}
