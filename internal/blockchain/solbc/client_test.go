package solbc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pump-migrator/internal/blockchain"
	"github.com/rovshanmuradov/pump-migrator/internal/utils/metrics"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// rpcServer отвечает на JSON-RPC запросы функцией handle: result или error.
func rpcServer(t *testing.T, calls *int32, handle func(method string) (result interface{}, rpcErr map[string]interface{})) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		result, rpcErr := handle(req.Method)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deadServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return srv
}

var testBlockhash = solana.Hash(solana.NewWallet().PublicKey())

func blockhashResult(string) (interface{}, map[string]interface{}) {
	return map[string]interface{}{
		"context": map[string]interface{}{"slot": 1},
		"value": map[string]interface{}{
			"blockhash":            testBlockhash.String(),
			"lastValidBlockHeight": 100,
		},
	}, nil
}

func newTestClient(t *testing.T, urls ...string) *Client {
	t.Helper()
	c, err := NewClient(urls, zaptest.NewLogger(t), Options{RequestTimeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewClient_NoNodes(t *testing.T) {
	_, err := NewClient(nil, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrNoRPCNodes)
}

func TestClient_FailoverOnTransportError(t *testing.T) {
	var deadCalls, liveCalls int32
	dead := deadServer(t, &deadCalls)
	live := rpcServer(t, &liveCalls, blockhashResult)

	c := newTestClient(t, dead.URL, live.URL)

	hash, err := c.GetRecentBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testBlockhash, hash)
	assert.Equal(t, int32(1), atomic.LoadInt32(&deadCalls))

	// рабочий узел запоминается
	_, err = c.GetRecentBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&deadCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&liveCalls))
}

func TestClient_RecordsLatency(t *testing.T) {
	var calls int32
	srv := rpcServer(t, &calls, blockhashResult)
	collector := metrics.NewCollector()

	c, err := NewClient([]string{srv.URL}, zaptest.NewLogger(t), Options{Metrics: collector})
	require.NoError(t, err)

	_, err = c.GetRecentBlockhash(context.Background())
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(collector.Registry(), "pump_migrator_rpc_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClient_RPCErrorDoesNotFailover(t *testing.T) {
	var firstCalls, secondCalls int32
	first := rpcServer(t, &firstCalls, func(string) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": -32602, "message": "invalid params"}
	})
	second := rpcServer(t, &secondCalls, blockhashResult)

	c := newTestClient(t, first.URL, second.URL)

	_, err := c.GetRecentBlockhash(context.Background())
	require.Error(t, err)
	assert.True(t, IsRPCError(err))

	var rpcErr *jsonrpc.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&secondCalls))
}

func TestClient_AllNodesDown(t *testing.T) {
	var calls int32
	c := newTestClient(t, deadServer(t, &calls).URL, deadServer(t, &calls).URL)

	_, err := c.GetRecentBlockhash(context.Background())
	require.Error(t, err)
	assert.False(t, IsRPCError(err))

	var nodeErr *Error
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "getLatestBlockhash", nodeErr.Method)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_GetSignatureStatus(t *testing.T) {
	tests := []struct {
		name      string
		value     interface{}
		wantLevel blockchain.ConfirmationLevel
		wantErr   bool
	}{
		{
			name:      "unknown signature",
			value:     nil,
			wantLevel: blockchain.ConfirmationNone,
		},
		{
			name:      "processed",
			value:     map[string]interface{}{"slot": 10, "confirmations": 0, "err": nil, "confirmationStatus": "processed"},
			wantLevel: blockchain.ConfirmationProcessed,
		},
		{
			name:      "finalized",
			value:     map[string]interface{}{"slot": 10, "confirmations": nil, "err": nil, "confirmationStatus": "finalized"},
			wantLevel: blockchain.ConfirmationFinalized,
		},
		{
			name: "failed execution",
			value: map[string]interface{}{"slot": 10, "confirmations": 1, "confirmationStatus": "confirmed",
				"err": map[string]interface{}{"InstructionError": []interface{}{1, map[string]interface{}{"Custom": 6004}}}},
			wantLevel: blockchain.ConfirmationConfirmed,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := rpcServer(t, &calls, func(method string) (interface{}, map[string]interface{}) {
				assert.Equal(t, "getSignatureStatuses", method)
				return map[string]interface{}{
					"context": map[string]interface{}{"slot": 11},
					"value":   []interface{}{tt.value},
				}, nil
			})

			status, err := newTestClient(t, srv.URL).GetSignatureStatus(context.Background(), solana.Signature{1})
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, status.Level)
			assert.Equal(t, tt.wantErr, status.Err != nil)
		})
	}
}

func TestClient_GetMultipleAccounts_Empty(t *testing.T) {
	var calls int32
	srv := rpcServer(t, &calls, blockhashResult)

	res, err := newTestClient(t, srv.URL).GetMultipleAccounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Value)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
