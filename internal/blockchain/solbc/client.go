// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/pump-migrator/internal/blockchain"
	"github.com/rovshanmuradov/pump-migrator/internal/utils/metrics"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultRateLimit      = 20 // запросов в секунду на клиента
)

// Options: настройки клиента.
type Options struct {
	RequestTimeout time.Duration
	RateLimit      float64 // 0: без ограничения
	Metrics        *metrics.Collector
}

type node struct {
	url    string
	client *rpc.Client
}

// Client – адаптер к Solana RPC поверх нескольких узлов с переключением при сбое.
type Client struct {
	nodes   []node
	limiter *rate.Limiter
	timeout time.Duration
	metrics *metrics.Collector
	logger  *zap.Logger

	mu      sync.Mutex
	current int
}

// NewClient создаёт клиент для списка RPC URL. Первый URL: основной.
func NewClient(urls []string, logger *zap.Logger, opts ...Options) (*Client, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}

	options := Options{RequestTimeout: DefaultRequestTimeout, RateLimit: DefaultRateLimit}
	if len(opts) > 0 {
		if opts[0].RequestTimeout > 0 {
			options.RequestTimeout = opts[0].RequestTimeout
		}
		options.RateLimit = opts[0].RateLimit
		options.Metrics = opts[0].Metrics
	}

	nodes := make([]node, len(urls))
	for i, url := range urls {
		nodes[i] = node{url: url, client: rpc.New(url)}
	}

	limit := rate.Inf
	burst := 1
	if options.RateLimit > 0 {
		limit = rate.Limit(options.RateLimit)
		burst = int(options.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		nodes:   nodes,
		limiter: rate.NewLimiter(limit, burst),
		timeout: options.RequestTimeout,
		metrics: options.Metrics,
		logger:  logger.Named("solbc-client"),
	}, nil
}

// execute выполняет операцию на текущем узле; при ошибке транспорта
// переходит к следующему, пока не переберёт все узлы.
func (c *Client) execute(ctx context.Context, method string, operation func(ctx context.Context, client *rpc.Client) error) error {
	c.mu.Lock()
	start := c.current
	c.mu.Unlock()

	var lastErr error
	for i := 0; i < len(c.nodes); i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		idx := (start + i) % len(c.nodes)
		n := c.nodes[idx]

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		started := time.Now()
		err := operation(reqCtx, n.client)
		cancel()
		c.metrics.RecordRPCLatency(method, time.Since(started))

		if err == nil {
			if idx != start {
				c.mu.Lock()
				c.current = idx
				c.mu.Unlock()
			}
			return nil
		}

		lastErr = NewError(err, n.url, method)
		if ctx.Err() != nil || !isNodeFailure(err) {
			return lastErr
		}

		c.logger.Debug("RPC request failed, trying next node",
			zap.String("method", method),
			zap.String("url", n.url),
			zap.Error(err))
	}

	c.logger.Warn("All RPC nodes failed", zap.String("method", method), zap.Error(lastErr))
	return lastErr
}

// GetRecentBlockhash получает последний blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	var hash solana.Hash
	err := c.execute(ctx, "getLatestBlockhash", func(ctx context.Context, client *rpc.Client) error {
		result, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		if result == nil || result.Value == nil {
			return ErrInvalidResponse
		}
		hash = result.Value.Blockhash
		return nil
	})
	return hash, err
}

// SendTransaction отправляет транзакцию с preflight проверкой.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var sig solana.Signature
	err := c.execute(ctx, "sendTransaction", func(ctx context.Context, client *rpc.Client) error {
		var err error
		sig, err = client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
		return err
	})
	if err != nil {
		c.logger.Debug("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetMultipleAccounts получает информацию о нескольких аккаунтах за один запрос
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	if len(pubkeys) == 0 {
		return &rpc.GetMultipleAccountsResult{}, nil
	}

	opts := rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	}

	var res *rpc.GetMultipleAccountsResult
	err := c.execute(ctx, "getMultipleAccounts", func(ctx context.Context, client *rpc.Client) error {
		var err error
		res, err = client.GetMultipleAccountsWithOpts(ctx, pubkeys, &opts)
		if err == nil && res == nil {
			return ErrInvalidResponse
		}
		return err
	})
	if err != nil {
		c.logger.Debug("GetMultipleAccounts error", zap.Error(err))
		return nil, err
	}
	return res, nil
}

// GetProgramAccountsWithOpts получает все аккаунты программы с опциями фильтрации
func (c *Client) GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	var accounts rpc.GetProgramAccountsResult
	err := c.execute(ctx, "getProgramAccounts", func(ctx context.Context, client *rpc.Client) error {
		var err error
		accounts, err = client.GetProgramAccountsWithOpts(ctx, programID, opts)
		return err
	})
	if err != nil {
		c.logger.Debug("GetProgramAccountsWithOpts error",
			zap.String("program_id", programID.String()),
			zap.Error(err))
		return nil, err
	}
	return accounts, nil
}

// GetSignatureStatus получает статус одной подписи.
func (c *Client) GetSignatureStatus(ctx context.Context, signature solana.Signature) (*blockchain.SignatureStatus, error) {
	var result *rpc.GetSignatureStatusesResult
	err := c.execute(ctx, "getSignatureStatuses", func(ctx context.Context, client *rpc.Client) error {
		var err error
		result, err = client.GetSignatureStatuses(ctx, false, signature)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return &blockchain.SignatureStatus{Level: blockchain.ConfirmationNone}, nil
	}

	status := result.Value[0]
	out := &blockchain.SignatureStatus{Slot: status.Slot, Err: status.Err}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		out.Level = blockchain.ConfirmationFinalized
	case rpc.ConfirmationStatusConfirmed:
		out.Level = blockchain.ConfirmationConfirmed
	default:
		out.Level = blockchain.ConfirmationProcessed
	}
	return out, nil
}

// SimulateTransaction симулирует транзакцию без проверки подписей и с подменой blockhash.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	var result *rpc.SimulateTransactionResponse
	err := c.execute(ctx, "simulateTransaction", func(ctx context.Context, client *rpc.Client) error {
		var err error
		result, err = client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
			SigVerify:              false,
			Commitment:             rpc.CommitmentConfirmed,
			ReplaceRecentBlockhash: true,
		})
		if err == nil && (result == nil || result.Value == nil) {
			return ErrInvalidResponse
		}
		return err
	})
	if err != nil {
		c.logger.Debug("SimulateTransaction error", zap.Error(err))
		return nil, err
	}

	units := uint64(0)
	if result.Value.UnitsConsumed != nil {
		units = *result.Value.UnitsConsumed
	}
	return &blockchain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// IsRPCError сообщает, вернул ли узел ошибку JSON-RPC (в отличие от сбоя транспорта).
func IsRPCError(err error) bool {
	return err != nil && !isNodeFailure(err)
}
