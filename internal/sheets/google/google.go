package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"dailyledger/internal/core"
	ports "dailyledger/internal/sheets"

	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Row layout: A id, B date, C type, D submitter, E amount, F created, G updated.
const lastColumn = "G"

var header = []any{"ID", "Date", "Type", "Submitter", "Amount", "Created", "Updated"}

// valuesAPI is the slice of the Sheets values service the client uses.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, rows [][]any) error
	Clear(ctx context.Context, rng string) error
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheet         string
	loc           *time.Location
}

var (
	_ ports.Mirror = (*Client)(nil)
	_ ports.Lister = (*Client)(nil)
)

// Settings selects the spreadsheet and service account credentials.
type Settings struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// Location renders dates in the ledger's reference zone; nil means UTC.
	Location *time.Location
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, s Settings) (*Client, error) {
	if strings.TrimSpace(s.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(s.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	svc, err := newSheetsService(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceValues{svc: svc, spreadsheetID: s.SpreadsheetID}, s), nil
}

func newClient(values valuesAPI, s Settings) *Client {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		values:        values,
		spreadsheetID: s.SpreadsheetID,
		sheet:         s.SheetName,
		loc:           loc,
	}
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials from inline JSON or a file.
func newSheetsService(ctx context.Context, s Settings) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(s.CredentialsJSON) != "":
		credentialsJSON = []byte(s.CredentialsJSON)
	case strings.TrimSpace(s.CredentialsFile) != "":
		b, err := os.ReadFile(s.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	creds, err := googleoauth.CredentialsFromJSON(ctx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	service, err := gsheet.NewService(ctx, goption.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Upsert writes e into its row, appending a new row for unseen ids.
func (c *Client) Upsert(ctx context.Context, e core.Expense) (string, error) {
	rows, err := c.readRows(ctx)
	if err != nil {
		return "", err
	}

	rowNum, found := findRow(rows, e.ID)
	if found {
		if existing, ok := parseRow(toStrings(rows[rowNum-1])); ok && existing.UpdatedAt.After(e.UpdatedAt) {
			return "", fmt.Errorf("upsert expense %d: %w", e.ID, ports.ErrStale)
		}
	} else {
		if len(rows) == 0 {
			if err := c.values.Update(ctx, c.rangeFor(1), [][]any{header}); err != nil {
				return "", fmt.Errorf("write header in sheet %s: %w", c.sheet, err)
			}
			rows = append(rows, header)
		}
		rowNum = len(rows) + 1
	}

	rng := c.rangeFor(rowNum)
	if err := c.values.Update(ctx, rng, [][]any{c.formatRow(e)}); err != nil {
		return "", fmt.Errorf("write %s: %w", rng, err)
	}
	return rng, nil
}

// Remove clears the row holding id.
func (c *Client) Remove(ctx context.Context, id core.ExpenseID) error {
	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}
	rowNum, found := findRow(rows, id)
	if !found {
		return nil
	}
	rng := c.rangeFor(rowNum)
	if err := c.values.Clear(ctx, rng); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// List parses every data row; malformed rows are skipped.
func (c *Client) List(ctx context.Context) ([]core.Expense, error) {
	rows, err := c.readRows(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Expense
	for _, row := range rows {
		if e, ok := parseRow(toStrings(row)); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *Client) readRows(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:%s", c.sheet, lastColumn)
	rows, err := c.values.Get(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return rows, nil
}

func (c *Client) rangeFor(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheet, row, lastColumn, row)
}

func (c *Client) formatRow(e core.Expense) []any {
	return []any{
		strconv.FormatUint(uint64(e.ID), 10),
		e.Date.In(c.loc).Format(time.RFC3339Nano),
		e.ExpenseType,
		e.SubmitterName,
		e.Amount.String(),
		strconv.FormatInt(e.CreatedAt.UnixNano(), 10),
		strconv.FormatInt(e.UpdatedAt.UnixNano(), 10),
	}
}

// findRow returns the 1-based sheet row whose id column matches.
func findRow(rows [][]any, id core.ExpenseID) (int, bool) {
	want := strconv.FormatUint(uint64(id), 10)
	for i, row := range rows {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1, true
		}
	}
	return 0, false
}

func parseRow(cols []string) (core.Expense, bool) {
	if len(cols) < 7 {
		return core.Expense{}, false
	}
	id, err := strconv.ParseUint(cols[0], 10, 64)
	if err != nil || id == 0 {
		return core.Expense{}, false
	}
	date, err := time.Parse(time.RFC3339Nano, cols[1])
	if err != nil {
		return core.Expense{}, false
	}
	cents, err := core.ParseDecimalToCents(cols[4])
	if err != nil {
		return core.Expense{}, false
	}
	created, err1 := strconv.ParseInt(cols[5], 10, 64)
	updated, err2 := strconv.ParseInt(cols[6], 10, 64)
	if err1 != nil || err2 != nil {
		return core.Expense{}, false
	}
	return core.Expense{
		ID:            core.ExpenseID(id),
		ExpenseType:   cols[2],
		SubmitterName: cols[3],
		Date:          date.UTC(),
		Amount:        core.Money{Cents: cents},
		CreatedAt:     core.FromUnixNano(created),
		UpdatedAt:     core.FromUnixNano(updated),
	}, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// serviceValues adapts the generated Sheets client to valuesAPI.
type serviceValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) Update(ctx context.Context, rng string, rows [][]any) error {
	// RAW keeps ids and nanosecond stamps from being reformatted as numbers.
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *serviceValues) Clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}
