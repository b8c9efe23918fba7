package google

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"testing"
	"time"

	"dailyledger/internal/core"
	ports "dailyledger/internal/sheets"
)

var rowRange = regexp.MustCompile(`^[^!]+!A(\d+):G(\d+)$`)

// fakeValues models a single sheet as a sparse row slice.
type fakeValues struct {
	rows    [][]any
	getErr  error
	updates int
}

func (f *fakeValues) Get(_ context.Context, _ string) ([][]any, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	// The API trims trailing empty rows.
	end := len(f.rows)
	for end > 0 && len(f.rows[end-1]) == 0 {
		end--
	}
	return f.rows[:end], nil
}

func (f *fakeValues) Update(_ context.Context, rng string, rows [][]any) error {
	n, err := parseRowNum(rng)
	if err != nil {
		return err
	}
	for len(f.rows) < n {
		f.rows = append(f.rows, nil)
	}
	f.rows[n-1] = rows[0]
	f.updates++
	return nil
}

func (f *fakeValues) Clear(_ context.Context, rng string) error {
	n, err := parseRowNum(rng)
	if err != nil {
		return err
	}
	if n <= len(f.rows) {
		f.rows[n-1] = []any{}
	}
	return nil
}

func parseRowNum(rng string) (int, error) {
	m := rowRange.FindStringSubmatch(rng)
	if m == nil || m[1] != m[2] {
		return 0, fmt.Errorf("unexpected range %q", rng)
	}
	return strconv.Atoi(m[1])
}

func expense(id core.ExpenseID, cents int64, updated time.Time) core.Expense {
	return core.Expense{
		ID:            id,
		ExpenseType:   "food",
		SubmitterName: "ann",
		Date:          time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Amount:        core.Money{Cents: cents},
		CreatedAt:     time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		UpdatedAt:     updated,
	}
}

func newTestClient() (*Client, *fakeValues) {
	f := &fakeValues{}
	return newClient(f, Settings{SpreadsheetID: "sheet-id", SheetName: "Expenses"}), f
}

func TestNew_MissingSettings(t *testing.T) {
	if _, err := New(context.Background(), Settings{SheetName: "x"}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if _, err := New(context.Background(), Settings{SpreadsheetID: "x"}); err == nil {
		t.Fatal("expected error for missing sheet name")
	}
	_, err := New(context.Background(), Settings{SpreadsheetID: "x", SheetName: "y"})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestClient_UpsertAppendsAndReplaces(t *testing.T) {
	c, f := newTestClient()
	ctx := context.Background()
	t0 := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	ref, err := c.Upsert(ctx, expense(1, 1000, t0))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if ref != "Expenses!A2:G2" {
		t.Errorf("ref = %q, want row 2 after header", ref)
	}
	if fmt.Sprint(f.rows[0][0]) != "ID" {
		t.Errorf("expected header row, got %v", f.rows[0])
	}

	if ref, _ := c.Upsert(ctx, expense(2, 2500, t0)); ref != "Expenses!A3:G3" {
		t.Errorf("second ref = %q", ref)
	}

	ref, err = c.Upsert(ctx, expense(1, 1200, t0.Add(time.Minute)))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if ref != "Expenses!A2:G2" {
		t.Errorf("update should reuse row 2, got %q", ref)
	}

	list, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d rows, want 2", len(list))
	}
	if list[0].Amount.Cents != 1200 || !list[0].UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("row 1 = %+v", list[0])
	}
	if !list[0].Date.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", list[0].Date)
	}
}

func TestClient_UpsertRejectsStale(t *testing.T) {
	c, f := newTestClient()
	ctx := context.Background()
	t0 := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	if _, err := c.Upsert(ctx, expense(1, 1000, t0.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	writes := f.updates

	_, err := c.Upsert(ctx, expense(1, 5, t0))
	if !errors.Is(err, ports.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if f.updates != writes {
		t.Error("stale upsert should not write")
	}
}

func TestClient_Remove(t *testing.T) {
	c, _ := newTestClient()
	ctx := context.Background()
	t0 := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	for id := core.ExpenseID(1); id <= 3; id++ {
		if _, err := c.Upsert(ctx, expense(id, 100, t0)); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Remove(ctx, 2); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := c.Remove(ctx, 99); err != nil {
		t.Fatalf("Remove() of missing id should succeed, got %v", err)
	}

	list, err := c.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != 1 || list[1].ID != 3 {
		t.Fatalf("List() after remove = %+v", list)
	}
}

func TestClient_ReadError(t *testing.T) {
	c, f := newTestClient()
	f.getErr = errors.New("quota exceeded")
	if _, err := c.Upsert(context.Background(), expense(1, 1, time.Now())); err == nil {
		t.Fatal("expected error")
	}
	if err := c.Remove(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		ok   bool
	}{
		{"header", []string{"ID", "Date", "Type", "Submitter", "Amount", "Created", "Updated"}, false},
		{"short", []string{"1", "2024-01-05T00:00:00Z"}, false},
		{"bad amount", []string{"1", "2024-01-05T00:00:00Z", "food", "ann", "abc", "1", "2"}, false},
		{"comma decimal", []string{"1", "2024-01-05T00:00:00Z", "food", "ann", "12,50", "1", "2"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := parseRow(tt.cols)
			if ok != tt.ok {
				t.Fatalf("parseRow() ok = %v, want %v", ok, tt.ok)
			}
			if ok && e.Amount.Cents != 1250 {
				t.Errorf("amount = %d, want 1250", e.Amount.Cents)
			}
		})
	}
}
