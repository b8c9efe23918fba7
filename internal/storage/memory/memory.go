package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dailyledger/internal/core"
	"dailyledger/internal/storage"
)

// Store keeps expenses in process memory. Ids come from a counter that only
// moves forward, so deleted ids are never handed out again.
type Store struct {
	mu     sync.Mutex
	nextID core.ExpenseID
	items  map[core.ExpenseID]core.Expense
}

var _ storage.ExpenseRepository = (*Store)(nil)

func New() *Store {
	return &Store{nextID: 1, items: make(map[core.ExpenseID]core.Expense)}
}

// Insert stores the expense under the next id.
func (s *Store) Insert(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) Update(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[e.ID]; !ok {
		return fmt.Errorf("update expense %d: %w", e.ID, core.ErrNotFound)
	}
	s.items[e.ID] = e
	return nil
}

func (s *Store) Delete(_ context.Context, id core.ExpenseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("delete expense %d: %w", id, core.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Get(_ context.Context, id core.ExpenseID) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) ListInRange(_ context.Context, start, end time.Time) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.items {
		if inRange(e.Date, start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) SumInRange(_ context.Context, start, end time.Time) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total core.Money
	for _, e := range s.items {
		if !inRange(e.Date, start, end) {
			continue
		}
		var err error
		if total, err = total.Add(e.Amount); err != nil {
			return core.Money{}, fmt.Errorf("sum expenses in range: %w", err)
		}
	}
	return total, nil
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) Close() error { return nil }

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
