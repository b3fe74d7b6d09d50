package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.ObserveMutation("add_transaction", nil)
	c.ObserveMutation("add_transaction", errors.New("boom"))
	c.ObserveAdvisorCall("estimate_budget", "timeout", time.Second)
	c.ObserveCache(true)
	c.ObserveCache(false)
	c.ObserveCache(false)
	c.ObserveHTTP("GET /api/reports", "GET", 200, 10*time.Millisecond)
	c.ObserveHTTP("GET /api/reports", "GET", 503, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("add_transaction", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("add_transaction", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.advisorCalls.WithLabelValues("estimate_budget", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET /api/reports", "GET", "5xx")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.ObserveEvent("transaction.created", nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `finboard_events_published_total{kind="transaction.created",result="ok"} 1`)
}
