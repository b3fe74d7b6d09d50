package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.1.1.1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "clients are counted separately")

	*clock = clock.Add(30 * time.Second)
	assert.False(t, rl.Allow("1.1.1.1"), "steady traffic does not extend the window")

	*clock = clock.Add(31 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"), "a new window starts after a minute")

	m := rl.GetMetrics()
	assert.Equal(t, int64(2), m.TotalHits)
	assert.Equal(t, int64(2), m.ClientCount)
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, clock := newTestLimiter(t, 5)
	rl.Allow("1.1.1.1")
	*clock = clock.Add(11 * time.Minute)
	rl.Allow("2.2.2.2")

	rl.cleanupStaleEntries()
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestLimiter_DefaultsAndStop(t *testing.T) {
	rl := NewLimiter(Config{})
	assert.Equal(t, 60, rl.requestsPerMinute)
	assert.Equal(t, 5*time.Minute, rl.cleanupInterval)
	rl.Stop()
	rl.Stop()
}

func TestLimiter_MiddlewareOnlyLimitsMutations(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	onLimit := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }
	h := rl.Middleware(func(*http.Request) string { return "9.9.9.9" }, onLimit)(ok)

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodDelete, http.StatusTooManyRequests},
		{http.MethodPost, http.StatusTooManyRequests},
	}
	for i, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/transactions", nil))
		assert.Equal(t, tt.want, rec.Code, "request %d (%s)", i+1, tt.method)
		if tt.want == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
}
