package cache

import (
	"context"
	"sync"
	"time"

	"dailyledger/internal/log"
)

// Cache is the interface consumers depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// StatsReporter is implemented by caches that count hits and misses.
type StatsReporter interface {
	Stats() Stats
}

// Manager periodically cleans registered caches until its context ends and
// logs their usage after each pass.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	done   chan struct{}
	logger *log.Logger
}

// NewManager creates a manager; a nil logger logs through the slog default.
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Manager{
		caches: make(map[string]Cleaner),
		logger: logger.WithComponent(log.ComponentCache),
	}
}

// Register adds a named cache to the cleanup rotation.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Start runs cleanup every interval in a goroutine. Wait blocks until it
// has stopped.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CleanAll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// CleanAll runs one cleanup pass and returns the number of dropped entries.
func (m *Manager) CleanAll(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for name, c := range m.caches {
		n := c.CleanExpired()
		total += n
		args := []any{"cache", name, "entries_removed", n}
		if r, ok := c.(StatsReporter); ok {
			st := r.Stats()
			args = append(args, "size", st.Size, "hits", st.Hits, "misses", st.Misses)
		}
		m.logger.DebugContext(ctx, "Cache cleanup completed", args...)
	}
	return total
}

func (m *Manager) Wait() {
	if m.done != nil {
		<-m.done
	}
}
