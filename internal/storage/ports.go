package storage

import (
	"context"
	"time"

	"dailyledger/internal/core"
)

// Ports for persistence adapters.
type (
	// ExpenseRepository persists expense records. Implementations return
	// errors wrapping core.ErrNotFound for unknown ids and never reuse an id
	// handed out by Insert.
	ExpenseRepository interface {
		// Insert stores e under a freshly allocated id and returns the stored record.
		Insert(ctx context.Context, e core.Expense) (core.Expense, error)
		Update(ctx context.Context, e core.Expense) error
		Delete(ctx context.Context, id core.ExpenseID) error
		Get(ctx context.Context, id core.ExpenseID) (core.Expense, error)
		List(ctx context.Context) ([]core.Expense, error)

		// ListInRange returns records with start <= Date <= end.
		ListInRange(ctx context.Context, start, end time.Time) ([]core.Expense, error)
		// SumInRange sums amounts of records with start <= Date <= end.
		SumInRange(ctx context.Context, start, end time.Time) (core.Money, error)

		Close() error
	}

	// Pinger is implemented by repositories backed by a remote service.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
