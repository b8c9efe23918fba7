package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"dailyledger/internal/core"
	ports "dailyledger/internal/sheets"
)

// Mirror is an in-process stand-in for a spreadsheet, used when no sheet is
// configured and in tests.
type Mirror struct {
	mu   sync.Mutex
	rows map[core.ExpenseID]core.Expense
}

var (
	_ ports.Mirror = (*Mirror)(nil)
	_ ports.Lister = (*Mirror)(nil)
)

func NewMirror() *Mirror {
	return &Mirror{rows: make(map[core.ExpenseID]core.Expense)}
}

func (m *Mirror) Upsert(_ context.Context, e core.Expense) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.rows[e.ID]; ok && prev.UpdatedAt.After(e.UpdatedAt) {
		return "", fmt.Errorf("upsert expense %d: %w", e.ID, ports.ErrStale)
	}
	m.rows[e.ID] = e
	return fmt.Sprintf("memory:%d", e.ID), nil
}

func (m *Mirror) Remove(_ context.Context, id core.ExpenseID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// List returns rows ordered by id.
func (m *Mirror) List(_ context.Context) ([]core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Expense, 0, len(m.rows))
	for _, e := range m.rows {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b core.Expense) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// Get returns the mirrored row for id.
func (m *Mirror) Get(id core.ExpenseID) (core.Expense, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	return e, ok
}
