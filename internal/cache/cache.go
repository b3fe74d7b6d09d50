// Package cache holds the generic LRU+TTL cache used to memoize report
// dashboards, plus a manager that sweeps expired entries in the background.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup for every registered cache.
type Manager struct {
	mu       sync.Mutex
	caches   []Cleaner
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	m.caches = append(m.caches, c)
	m.mu.Unlock()
}

// StartCleanup sweeps every interval until ctx is done or Stop is called.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	go m.cleanup(ctx, interval)
}

func (m *Manager) cleanup(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup goroutine and waits for it. Safe to call more than
// once; must only be called after StartCleanup.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
}
