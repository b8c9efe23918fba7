package core

import (
	"strings"
	"time"
)

type (
	// ExpenseID identifies an expense for the lifetime of the store.
	ExpenseID uint64

	Money struct {
		Cents int64
	}

	// ExpenseInput is the caller-supplied part of an expense, used by both
	// create and update.
	ExpenseInput struct {
		ExpenseType   string
		SubmitterName string
		Date          time.Time
		Amount        Money
	}

	Expense struct {
		ID            ExpenseID
		ExpenseType   string
		SubmitterName string
		Date          time.Time
		Amount        Money
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

func (m Money) Validate() error {
	if m.Cents < 0 {
		return &ValidationError{Field: "amount", Err: ErrNegativeAmount}
	}
	return nil
}

// Add returns m+o, or ErrAmountOverflow when the sum does not fit in int64.
func (m Money) Add(o Money) (Money, error) {
	sum := m.Cents + o.Cents
	if (o.Cents > 0 && sum < m.Cents) || (o.Cents < 0 && sum > m.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: sum}, nil
}

// Normalize trims the free-form text fields.
func (in ExpenseInput) Normalize() ExpenseInput {
	in.ExpenseType = strings.TrimSpace(in.ExpenseType)
	in.SubmitterName = strings.TrimSpace(in.SubmitterName)
	return in
}

func (in ExpenseInput) Validate() error {
	if strings.TrimSpace(in.ExpenseType) == "" {
		return &ValidationError{Field: "expenseType", Err: ErrEmptyExpenseType}
	}
	if strings.TrimSpace(in.SubmitterName) == "" {
		return &ValidationError{Field: "submitterName", Err: ErrEmptySubmitter}
	}
	return in.Amount.Validate()
}

// Apply replaces the mutable fields of e with the input values.
func (e Expense) Apply(in ExpenseInput) Expense {
	e.ExpenseType = in.ExpenseType
	e.SubmitterName = in.SubmitterName
	e.Date = in.Date
	e.Amount = in.Amount
	return e
}

// Input returns the mutable part of e.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{
		ExpenseType:   e.ExpenseType,
		SubmitterName: e.SubmitterName,
		Date:          e.Date,
		Amount:        e.Amount,
	}
}

// FromUnixNano converts a wire timestamp to a UTC time.
func FromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
