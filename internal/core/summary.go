package core

import "time"

// Totals is a consistent set of aggregates evaluated against one instant.
type Totals struct {
	Day         time.Time
	AsOf        time.Time
	Daily       Money
	MonthToDate Money
	YearToDate  Money
	AllTime     Money
}

// Period selects the lower bound of a to-now aggregate.
type Period int

const (
	MonthToDate Period = iota
	YearToDate
	AllTime
)

// Total is a to-now aggregate and the instant it was evaluated against.
type Total struct {
	AsOf   time.Time
	Amount Money
}
