package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dailyledger/internal/core"
	"dailyledger/internal/ledger"
	"dailyledger/internal/log"
)

// handleCreateExpense stores a new expense.
// POST /api/expenses
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.requireMutation(r); err != nil {
		errorResponse(r, err, log.OpCreate).Write(w)
		return
	}

	in, err := s.parseExpenseBody(w, r)
	if err != nil {
		errorResponse(r, err, log.OpCreate).Write(w)
		return
	}

	e, err := s.ledger.Create(r.Context(), in)
	if err != nil {
		errorResponse(r, err, log.OpCreate).Write(w)
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+idString(e.ID)).
		JSON(toExpenseDTO(e)).
		Write(w)
}

// handleListExpenses returns all expenses, those in [start, end], or those
// on one day. Results are newest first.
// GET /api/expenses[?start=&end=|?day=]
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cal := s.ledger.Calendar()

	var (
		items []core.Expense
		err   error
	)
	switch {
	case strings.TrimSpace(q.Get("day")) != "":
		var day = s.ledger.Now()
		if day, err = queryInstant(q, "day", cal, day); err == nil {
			items, err = s.ledger.ListForDay(r.Context(), day)
		}
	case q.Has("start") || q.Has("end"):
		items, err = s.listRange(r)
	default:
		items, err = s.ledger.ListAll(r.Context())
	}
	if err != nil {
		errorResponse(r, err, log.OpList).Write(w)
		return
	}

	ledger.SortNewestFirst(items)
	NewResponse().JSON(toExpenseDTOs(items)).Write(w)
}

func (s *Server) listRange(r *http.Request) ([]core.Expense, error) {
	q := r.URL.Query()
	cal := s.ledger.Calendar()
	if strings.TrimSpace(q.Get("start")) == "" || strings.TrimSpace(q.Get("end")) == "" {
		return nil, &core.ValidationError{Field: "range", Err: errInvalidDate}
	}
	start, err := queryInstant(q, "start", cal, core.Earliest)
	if err != nil {
		return nil, err
	}
	end, err := queryInstant(q, "end", cal, core.Earliest)
	if err != nil {
		return nil, err
	}
	return s.ledger.ListInRange(r.Context(), start, end)
}

// GET /api/expenses/{id}
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseExpenseID(chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(r, err, log.OpRead).Write(w)
		return
	}
	e, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		errorResponse(r, err, log.OpRead).Write(w)
		return
	}
	NewResponse().JSON(toExpenseDTO(e)).Write(w)
}

// PUT /api/expenses/{id}
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.requireMutation(r); err != nil {
		errorResponse(r, err, log.OpUpdate).Write(w)
		return
	}
	id, err := parseExpenseID(chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(r, err, log.OpUpdate).Write(w)
		return
	}
	in, err := s.parseExpenseBody(w, r)
	if err != nil {
		errorResponse(r, err, log.OpUpdate).Write(w)
		return
	}
	e, err := s.ledger.Update(r.Context(), id, in)
	if err != nil {
		errorResponse(r, err, log.OpUpdate).Write(w)
		return
	}
	NewResponse().JSON(toExpenseDTO(e)).Write(w)
}

// DELETE /api/expenses/{id}
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.requireMutation(r); err != nil {
		errorResponse(r, err, log.OpDelete).Write(w)
		return
	}
	id, err := parseExpenseID(chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(r, err, log.OpDelete).Write(w)
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		errorResponse(r, err, log.OpDelete).Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) parseExpenseBody(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return core.ExpenseInput{}, err
	}
	return p.ExpenseInput(s.ledger.Calendar())
}
