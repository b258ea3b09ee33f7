package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestServer_ExposesCollector(t *testing.T) {
	c := NewCollector()
	c.RecordSubmission("bundle", true)
	c.RecordAttempt("Confirmed", "confirmed", 0)

	srv, err := c.Listen("127.0.0.1:0", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = srv.Shutdown(context.Background()) }()

	resp, err := http.Get("http://" + srv.Addr() + Path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pump_migrator_submissions_total{kind="bundle",status="success"} 1`)
	assert.Contains(t, string(body), `pump_migrator_attempts_total{outcome="confirmed",state="Confirmed"} 1`)
}

func TestServer_AddressInUse(t *testing.T) {
	c := NewCollector()
	first, err := c.Listen("127.0.0.1:0", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = first.Shutdown(context.Background()) }()

	_, err = c.Listen(first.Addr(), zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "failed to listen")
}

func TestHandler_NilCollector(t *testing.T) {
	var c *Collector
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, Path, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
