package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordsOnOwnRegistry(t *testing.T) {
	c := NewCollector()
	other := NewCollector() // собственный реестр: повторная регистрация не паникует

	c.RecordAttempt("Confirmed", "confirmed", 120*time.Millisecond)
	c.RecordAttempt("Quoted", "failed", 10*time.Millisecond)
	c.RecordAttempt("Quoted", "failed", 10*time.Millisecond)
	c.RecordRetry("single")
	c.RecordSubmission("bundle", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.attempts.WithLabelValues("Confirmed", "confirmed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.attempts.WithLabelValues("Quoted", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retries.WithLabelValues("single")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.submissions.WithLabelValues("bundle", "success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(other.retries.WithLabelValues("single")))

	c.Reset()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.retries.WithLabelValues("single")))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordAttempt("Idle", "failed", time.Second)
		c.RecordRetry("bundle")
		c.RecordSubmission("single", false)
		c.RecordRPCLatency("getBalance", time.Millisecond)
		c.Reset()
	})
	assert.Nil(t, c.Registry())
}
