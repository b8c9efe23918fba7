package sheets

import (
	"context"
	"errors"

	"dailyledger/internal/core"
)

// ErrStale is returned when a mirror already holds a newer version of a row.
var ErrStale = errors.New("mirror holds a newer version")

// Ports for the spreadsheet mirror.
type (
	// Mirror keeps one row per expense, keyed by id.
	Mirror interface {
		// Upsert writes e unless the stored row has a newer UpdatedAt, in
		// which case it returns ErrStale.
		Upsert(ctx context.Context, e core.Expense) (rowRef string, err error)
		// Remove deletes the row for id; removing a missing row is not an error.
		Remove(ctx context.Context, id core.ExpenseID) error
	}

	// Lister returns every mirrored expense.
	Lister interface {
		List(ctx context.Context) ([]core.Expense, error)
	}
)
