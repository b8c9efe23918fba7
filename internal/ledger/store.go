// Package ledger implements the expense store: record lifecycle plus
// calendar aggregates over a pluggable repository.
package ledger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dailyledger/internal/amqp"
	"dailyledger/internal/cache"
	"dailyledger/internal/core"
	"dailyledger/internal/log"
	"dailyledger/internal/storage"
)

// Publisher receives an event after every committed mutation.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

type Option func(*Store)

// WithClock replaces time.Now as the source of "now".
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCalendar sets the reference zone for day, month and year boundaries.
func WithCalendar(cal core.Calendar) Option {
	return func(s *Store) { s.cal = cal }
}

// WithDailyCache memoizes DailyTotal per calendar day.
func WithDailyCache(c cache.Cache[core.Money]) Option {
	return func(s *Store) { s.daily = c }
}

func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is safe for concurrent use. Mutations hold the write lock for the
// whole read-modify-write; queries hold the read lock, so a query never sees
// a partially applied mutation.
type Store struct {
	mu        sync.RWMutex
	repo      storage.ExpenseRepository
	cal       core.Calendar
	now       func() time.Time
	daily     cache.Cache[core.Money]
	publisher Publisher
	logger    *log.Logger
}

func New(repo storage.ExpenseRepository, opts ...Option) *Store {
	s := &Store{
		repo: repo,
		cal:  core.NewCalendar(time.UTC),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.Config{Component: log.ComponentLedger, Handler: slog.Default().Handler()})
	}
	return s
}

// Calendar returns the reference calendar used for aggregates.
func (s *Store) Calendar() core.Calendar { return s.cal }

// Now returns the store's current time in UTC.
func (s *Store) Now() time.Time { return s.now().UTC() }

// Create validates in and stores it under a fresh id.
func (s *Store) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	s.mu.Lock()
	now := s.Now()
	stored, err := s.repo.Insert(ctx, core.Expense{CreatedAt: now, UpdatedAt: now}.Apply(in))
	if err == nil {
		s.invalidateDay(stored.Date)
	}
	s.mu.Unlock()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	s.logMutation(ctx, log.OpCreate, stored)
	s.publish(ctx, amqp.EventCreated, stored)
	return stored, nil
}

// Update replaces the mutable fields of the record with id. CreatedAt is
// kept and UpdatedAt never moves backwards.
func (s *Store) Update(ctx context.Context, id core.ExpenseID, in core.ExpenseInput) (core.Expense, error) {
	in = in.Normalize()

	s.mu.Lock()
	prev, err := s.repo.Get(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return core.Expense{}, notFound(id, err)
	}
	if err := in.Validate(); err != nil {
		s.mu.Unlock()
		return core.Expense{}, err
	}

	next := prev.Apply(in)
	next.UpdatedAt = laterOf(s.Now(), prev.UpdatedAt)
	if err := s.repo.Update(ctx, next); err != nil {
		s.mu.Unlock()
		return core.Expense{}, notFound(id, err)
	}
	s.invalidateDay(prev.Date)
	s.invalidateDay(next.Date)
	s.mu.Unlock()

	s.logMutation(ctx, log.OpUpdate, next)
	s.publish(ctx, amqp.EventUpdated, next)
	return next, nil
}

// Delete removes the record permanently. Its id is not reused.
func (s *Store) Delete(ctx context.Context, id core.ExpenseID) error {
	s.mu.Lock()
	prev, err := s.repo.Get(ctx, id)
	if err == nil {
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		s.mu.Unlock()
		return notFound(id, err)
	}
	s.invalidateDay(prev.Date)
	s.mu.Unlock()

	s.logMutation(ctx, log.OpDelete, prev)
	s.publish(ctx, amqp.EventDeleted, prev)
	return nil
}

func (s *Store) Get(ctx context.Context, id core.ExpenseID) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return core.Expense{}, notFound(id, err)
	}
	return e, nil
}

// ListAll returns every live record in repository order.
func (s *Store) ListAll(ctx context.Context) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return items, nil
}

// ListInRange returns records with start <= Date <= end, taken literally.
func (s *Store) ListInRange(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	if start.After(end) {
		return nil, &core.ValidationError{Field: "range", Err: core.ErrInvertedRange}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, err := s.repo.ListInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list expenses in range: %w", err)
	}
	return items, nil
}

// ListForDay returns the records on the calendar day of date, newest first.
func (s *Store) ListForDay(ctx context.Context, date time.Time) ([]core.Expense, error) {
	start, end := s.cal.DayBounds(date)
	items, err := s.ListInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(items)
	return items, nil
}

// DailyTotal sums the records on the calendar day of date.
func (s *Store) DailyTotal(ctx context.Context, date time.Time) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dailyTotalLocked(ctx, date)
}

// MonthlyTotalToNow sums records from the first of the current month to now.
func (s *Store) MonthlyTotalToNow(ctx context.Context) (core.Money, error) {
	t, err := s.TotalToNow(ctx, core.MonthToDate)
	return t.Amount, err
}

// YearlyTotalToNow sums records from January 1 of the current year to now.
func (s *Store) YearlyTotalToNow(ctx context.Context) (core.Money, error) {
	t, err := s.TotalToNow(ctx, core.YearToDate)
	return t.Amount, err
}

// AllYearsTotalToNow sums every record dated at or before now.
func (s *Store) AllYearsTotalToNow(ctx context.Context) (core.Money, error) {
	t, err := s.TotalToNow(ctx, core.AllTime)
	return t.Amount, err
}

// TotalToNow sums the records of period up to now and reports the now it
// used.
func (s *Store) TotalToNow(ctx context.Context, period core.Period) (core.Total, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.Now()
	m, err := s.sum(ctx, s.periodStart(period, now), now)
	if err != nil {
		return core.Total{}, err
	}
	return core.Total{AsOf: now, Amount: m}, nil
}

func (s *Store) periodStart(period core.Period, now time.Time) time.Time {
	switch period {
	case core.MonthToDate:
		return s.cal.StartOfMonth(now)
	case core.YearToDate:
		return s.cal.StartOfYear(now)
	default:
		return core.Earliest
	}
}

// Totals evaluates the four aggregates against a single now under one read
// lock, so they are mutually consistent.
func (s *Store) Totals(ctx context.Context, day time.Time) (core.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.Now()
	t := core.Totals{Day: s.cal.StartOfDay(day), AsOf: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		t.Daily, err = s.dailyTotalLocked(gctx, day)
		return err
	})
	g.Go(func() (err error) {
		t.MonthToDate, err = s.sum(gctx, s.periodStart(core.MonthToDate, now), now)
		return err
	})
	g.Go(func() (err error) {
		t.YearToDate, err = s.sum(gctx, s.periodStart(core.YearToDate, now), now)
		return err
	})
	g.Go(func() (err error) {
		t.AllTime, err = s.sum(gctx, s.periodStart(core.AllTime, now), now)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Totals{}, err
	}
	return t, nil
}

// Ping reports whether the backing repository is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.repo.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) dailyTotalLocked(ctx context.Context, date time.Time) (core.Money, error) {
	key := s.cal.DayKey(date)
	if s.daily != nil {
		if m, ok := s.daily.Get(key); ok {
			return m, nil
		}
	}
	start, end := s.cal.DayBounds(date)
	m, err := s.sum(ctx, start, end)
	if err != nil {
		return core.Money{}, err
	}
	if s.daily != nil {
		s.daily.Set(key, m)
	}
	return m, nil
}

func (s *Store) sum(ctx context.Context, start, end time.Time) (core.Money, error) {
	m, err := s.repo.SumInRange(ctx, start, end)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return m, nil
}

// invalidateDay must be called with the write lock held.
func (s *Store) invalidateDay(t time.Time) {
	if s.daily != nil {
		s.daily.Delete(s.cal.DayKey(t))
	}
}

func (s *Store) publish(ctx context.Context, kind amqp.EventKind, e core.Expense) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewExpenseEvent(kind, e)
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		fields := log.NewFields().
			WithExpense(uint64(e.ID), e.ExpenseType, e.SubmitterName, e.Amount.Cents).
			WithOperation(log.OpPublish).
			WithError(err)
		fields[log.FieldEventKind] = string(kind)
		fields[log.FieldMessageID] = ev.MessageID
		// The mutation is committed; a lost event only delays the mirror.
		s.logger.ErrorContext(ctx, "Failed to publish expense event", fields.ToSlice()...)
	}
}

func (s *Store) logMutation(ctx context.Context, op string, e core.Expense) {
	log.NewStructuredLogger(s.logger).LogMutation(ctx, op, uint64(e.ID), e.ExpenseType, e.SubmitterName, e.Amount.Cents)
}

func notFound(id core.ExpenseID, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return &core.NotFoundError{ID: id}
	}
	return err
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// SortNewestFirst orders records by Date descending, then id descending.
func SortNewestFirst(items []core.Expense) {
	slices.SortFunc(items, func(a, b core.Expense) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
