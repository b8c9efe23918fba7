package backend

import (
	"context"
	"time"

	"dailyledger/internal/cache"
	"dailyledger/internal/core"
	"dailyledger/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired store and the function releasing its
// resources.
type BackendResult struct {
	Store *ledger.Store
	// DailyCache is nil when caching is disabled.
	DailyCache *cache.LRUCache[core.Money]
	Cleanup    CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	Calendar core.Calendar

	DailyCacheSize int
	DailyCacheTTL  time.Duration

	// Event publishing is skipped when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
