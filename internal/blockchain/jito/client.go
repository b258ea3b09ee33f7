// internal/blockchain/jito/client.go
package jito

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/pump-migrator/internal/blockchain"
)

const (
	DefaultEndpoint = "https://mainnet.block-engine.jito.wtf/api/v1/bundles"

	// MaxBundleTransactions: лимит block engine на число транзакций в бандле.
	MaxBundleTransactions = 5

	defaultRateLimit = 1 // block engine по умолчанию пропускает 1 rps на IP
)

// ErrEmptyBundle возвращается при попытке отправить пустой бандл.
var ErrEmptyBundle = errors.New("bundle has no transactions")

// Options: настройки клиента block engine.
type Options struct {
	Endpoint  string
	AuthUUID  string  // x-jito-auth, необязателен
	RateLimit float64 // запросов в секунду
	Timeout   time.Duration
}

// Client: JSON-RPC клиент Jito block engine.
type Client struct {
	rpc     jsonrpc.RPCClient
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger

	mu          sync.Mutex
	tipAccounts []solana.PublicKey
}

// NewClient создаёт клиент block engine.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	headers := map[string]string{}
	if opts.AuthUUID != "" {
		headers["x-jito-auth"] = opts.AuthUUID
	}

	burst := int(opts.RateLimit)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		rpc:     jsonrpc.NewClientWithOpts(opts.Endpoint, &jsonrpc.RPCClientOpts{CustomHeaders: headers}),
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
		timeout: opts.Timeout,
		logger:  logger.Named("jito"),
	}
}

func (c *Client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rpc.CallForInto(reqCtx, out, method, params); err != nil {
		return fmt.Errorf("jito %s: %w", method, err)
	}
	return nil
}

// TipAccount возвращает случайный аккаунт для чаевых; список кешируется.
func (c *Client) TipAccount(ctx context.Context) (solana.PublicKey, error) {
	c.mu.Lock()
	cached := c.tipAccounts
	c.mu.Unlock()

	if len(cached) == 0 {
		var raw []string
		if err := c.call(ctx, &raw, "getTipAccounts"); err != nil {
			return solana.PublicKey{}, err
		}
		accounts := make([]solana.PublicKey, 0, len(raw))
		for _, s := range raw {
			pk, err := solana.PublicKeyFromBase58(s)
			if err != nil {
				c.logger.Warn("Invalid tip account", zap.String("account", s), zap.Error(err))
				continue
			}
			accounts = append(accounts, pk)
		}
		if len(accounts) == 0 {
			return solana.PublicKey{}, fmt.Errorf("jito returned no tip accounts")
		}

		c.mu.Lock()
		c.tipAccounts = accounts
		c.mu.Unlock()
		cached = accounts
	}

	return cached[rand.IntN(len(cached))], nil
}

// SendBundle кодирует транзакции в base58 и отправляет их одним бандлом.
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) == 0 {
		return "", ErrEmptyBundle
	}
	if len(txs) > MaxBundleTransactions {
		return "", fmt.Errorf("bundle has %d transactions, max %d", len(txs), MaxBundleTransactions)
	}

	encoded := make([]string, len(txs))
	for i, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("failed to serialize transaction %d: %w", i, err)
		}
		encoded[i] = base58.Encode(raw)
	}

	var bundleID string
	if err := c.call(ctx, &bundleID, "sendBundle", encoded); err != nil {
		return "", err
	}

	c.logger.Debug("Bundle sent", zap.String("bundle_id", bundleID), zap.Int("transactions", len(txs)))
	return bundleID, nil
}

type bundleStatusesResult struct {
	Value []*struct {
		BundleID           string                 `json:"bundle_id"`
		Transactions       []string               `json:"transactions"`
		Slot               uint64                 `json:"slot"`
		ConfirmationStatus string                 `json:"confirmation_status"`
		Err                map[string]interface{} `json:"err"`
	} `json:"value"`
}

type inflightStatusesResult struct {
	Value []*struct {
		BundleID   string `json:"bundle_id"`
		Status     string `json:"status"`
		LandedSlot uint64 `json:"landed_slot"`
	} `json:"value"`
}

// GetBundleStatus сначала спрашивает статус приземлившегося бандла,
// затем статус бандла в полёте.
func (c *Client) GetBundleStatus(ctx context.Context, bundleID string) (*blockchain.BundleStatus, error) {
	var landed bundleStatusesResult
	if err := c.call(ctx, &landed, "getBundleStatuses", []string{bundleID}); err != nil {
		return nil, err
	}
	if len(landed.Value) > 0 && landed.Value[0] != nil {
		v := landed.Value[0]
		level, _ := blockchain.ParseConfirmationLevel(v.ConfirmationStatus)
		status := &blockchain.BundleStatus{ID: bundleID, State: blockchain.BundleLanded, Slot: v.Slot, Level: level}
		if reason := bundleExecutionError(v.Err); reason != "" {
			status.TxErrors = []string{reason}
		}
		return status, nil
	}

	var inflight inflightStatusesResult
	if err := c.call(ctx, &inflight, "getInflightBundleStatuses", []string{bundleID}); err != nil {
		return nil, err
	}
	if len(inflight.Value) == 0 || inflight.Value[0] == nil {
		return &blockchain.BundleStatus{ID: bundleID, State: blockchain.BundleUnknown}, nil
	}

	v := inflight.Value[0]
	status := &blockchain.BundleStatus{ID: bundleID, Slot: v.LandedSlot}
	switch strings.ToLower(v.Status) {
	case "pending":
		status.State = blockchain.BundlePending
	case "landed":
		status.State = blockchain.BundleLanded
		status.Level = blockchain.ConfirmationProcessed
	case "failed":
		status.State = blockchain.BundleFailed
		status.Reason = "bundle failed in block engine"
	default: // "invalid": бандл неизвестен или истёк
		status.State = blockchain.BundleUnknown
	}
	return status, nil
}

// bundleExecutionError: {"Ok": null}: успех, остальное: ошибка исполнения.
func bundleExecutionError(e map[string]interface{}) string {
	if len(e) == 0 {
		return ""
	}
	if _, ok := e["Ok"]; ok && len(e) == 1 {
		return ""
	}
	return fmt.Sprintf("%v", e)
}

var _ blockchain.Relay = (*Client)(nil)
