// Package http serves the ledger as a JSON API.
//
// This file implements utilities for parsing and validating request data.
// Bodies may be JSON or form-encoded; query parameters carry dates and ranges.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dailyledger/internal/core"
)

const maxBodyBytes = 1 << 20

var (
	errBadRequest  = errors.New("malformed request")
	errInvalidDate = errors.New("expected nanoseconds since epoch, YYYY-MM-DD or RFC 3339")
	errInvalidID   = errors.New("invalid expense id")
)

// RequestBodyParser reads a JSON or form-encoded body once.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads up to 1 MiB of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. JSON numbers are kept as json.Number so that
// nanosecond timestamps survive without float rounding.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errBadRequest, p.err)
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errBadRequest, err)
			return p.err
		}
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = fmt.Errorf("%w: %v", errBadRequest, err)
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns a trimmed string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ExpenseInput builds the create/update payload. JSON bodies carry the amount
// as integer cents; form bodies carry a decimal string such as "12.34".
func (p *RequestBodyParser) ExpenseInput(cal core.Calendar) (core.ExpenseInput, error) {
	in := core.ExpenseInput{
		ExpenseType:   p.Get("expenseType"),
		SubmitterName: p.Get("submitterName"),
	}

	date, err := parseInstant(p.Get("date"), cal)
	if err != nil {
		return core.ExpenseInput{}, err
	}
	in.Date = date

	raw := p.Get("amount")
	if p.IsJSON() {
		cents, err := strconv.ParseInt(raw, 10, 64)
		switch {
		case errors.Is(err, strconv.ErrRange) && strings.HasPrefix(raw, "-"):
			return core.ExpenseInput{}, &core.ValidationError{Field: "amount", Err: core.ErrNegativeAmount}
		case errors.Is(err, strconv.ErrRange):
			return core.ExpenseInput{}, &core.ValidationError{Field: "amount", Err: core.ErrAmountOutOfRange}
		case err != nil:
			return core.ExpenseInput{}, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
		}
		in.Amount = core.Money{Cents: cents}
	} else {
		cents, err := core.ParseDecimalToCents(raw)
		if err != nil {
			return core.ExpenseInput{}, err
		}
		in.Amount = core.Money{Cents: cents}
	}
	return in, nil
}

// parseInstant accepts nanoseconds since epoch, a YYYY-MM-DD day in the
// reference calendar, or an RFC 3339 timestamp.
func parseInstant(s string, cal core.Calendar) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &core.ValidationError{Field: "date", Err: errInvalidDate}
	}
	if ns, err := strconv.ParseInt(s, 10, 64); err == nil {
		return core.FromUnixNano(ns), nil
	}
	if t, err := cal.ParseDay(s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, &core.ValidationError{Field: "date", Err: errInvalidDate}
}

// queryInstant reads an optional instant from the query, falling back to def.
func queryInstant(q url.Values, key string, cal core.Calendar, def time.Time) (time.Time, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	t, err := parseInstant(v, cal)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: key, Err: errInvalidDate}
	}
	return t, nil
}

func parseExpenseID(s string) (core.ExpenseID, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return core.ExpenseID(id), nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
