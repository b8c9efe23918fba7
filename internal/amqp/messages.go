package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dailyledger/internal/core"
)

// EventKind names the mutation an event describes.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// ExpenseEvent is published after a committed mutation. Version is the
// record's UpdatedAt in nanoseconds, so consumers can drop stale updates.
type ExpenseEvent struct {
	MessageID string          `json:"message_id"`
	Kind      EventKind       `json:"kind"`
	ID        uint64          `json:"id"`
	Version   int64           `json:"version"`
	Expense   *ExpensePayload `json:"expense,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ExpensePayload carries the record in wire units: nanoseconds and cents.
type ExpensePayload struct {
	ExpenseType   string `json:"expenseType"`
	SubmitterName string `json:"submitterName"`
	Date          int64  `json:"date"`
	Amount        int64  `json:"amount"`
	CreatedAt     int64  `json:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt"`
}

// NewExpenseEvent builds an event for e. Deleted events omit the payload.
func NewExpenseEvent(kind EventKind, e core.Expense) *ExpenseEvent {
	ev := &ExpenseEvent{
		MessageID: uuid.NewString(),
		Kind:      kind,
		ID:        uint64(e.ID),
		Version:   e.UpdatedAt.UnixNano(),
		Timestamp: time.Now(),
	}
	if kind != EventDeleted {
		ev.Expense = &ExpensePayload{
			ExpenseType:   e.ExpenseType,
			SubmitterName: e.SubmitterName,
			Date:          e.Date.UnixNano(),
			Amount:        e.Amount.Cents,
			CreatedAt:     e.CreatedAt.UnixNano(),
			UpdatedAt:     e.UpdatedAt.UnixNano(),
		}
	}
	return ev
}

// Validate checks the invariants consumers rely on.
func (m *ExpenseEvent) Validate() error {
	switch m.Kind {
	case EventCreated, EventUpdated:
		if m.Expense == nil {
			return fmt.Errorf("%s event without expense payload", m.Kind)
		}
	case EventDeleted:
	default:
		return fmt.Errorf("unknown event kind %q", m.Kind)
	}
	if m.ID == 0 {
		return errors.New("event without expense id")
	}
	return nil
}

// ToExpense rebuilds the record carried by the event.
func (m *ExpenseEvent) ToExpense() (core.Expense, error) {
	if m.Expense == nil {
		return core.Expense{}, fmt.Errorf("%s event carries no expense", m.Kind)
	}
	p := m.Expense
	return core.Expense{
		ID:            core.ExpenseID(m.ID),
		ExpenseType:   p.ExpenseType,
		SubmitterName: p.SubmitterName,
		Date:          core.FromUnixNano(p.Date),
		Amount:        core.Money{Cents: p.Amount},
		CreatedAt:     core.FromUnixNano(p.CreatedAt),
		UpdatedAt:     core.FromUnixNano(p.UpdatedAt),
	}, nil
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
