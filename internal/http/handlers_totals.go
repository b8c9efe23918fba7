package http

import (
	"net/http"

	"dailyledger/internal/core"
	"dailyledger/internal/log"
)

// handleTotals returns the four dashboard aggregates evaluated together.
// GET /api/totals[?date=]
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	day, err := queryInstant(r.URL.Query(), "date", s.ledger.Calendar(), s.ledger.Now())
	if err != nil {
		errorResponse(r, err, log.OpTotal).Write(w)
		return
	}
	t, err := s.ledger.Totals(r.Context(), day)
	if err != nil {
		errorResponse(r, err, log.OpTotal).Write(w)
		return
	}
	NewResponse().JSON(toTotalsDTO(t)).Write(w)
}

// GET /api/totals/daily[?date=]
func (s *Server) handleDailyTotal(w http.ResponseWriter, r *http.Request) {
	cal := s.ledger.Calendar()
	day, err := queryInstant(r.URL.Query(), "date", cal, s.ledger.Now())
	if err != nil {
		errorResponse(r, err, log.OpTotal).Write(w)
		return
	}
	m, err := s.ledger.DailyTotal(r.Context(), day)
	if err != nil {
		errorResponse(r, err, log.OpTotal).Write(w)
		return
	}
	NewResponse().JSON(struct {
		Day   int64    `json:"day"`
		Total moneyDTO `json:"total"`
	}{cal.StartOfDay(day).UnixNano(), toMoneyDTO(m)}).Write(w)
}

// GET /api/totals/month-to-date
func (s *Server) handleMonthToDate(w http.ResponseWriter, r *http.Request) {
	s.writeToNowTotal(w, r, core.MonthToDate)
}

// GET /api/totals/year-to-date
func (s *Server) handleYearToDate(w http.ResponseWriter, r *http.Request) {
	s.writeToNowTotal(w, r, core.YearToDate)
}

// GET /api/totals/all-time
func (s *Server) handleAllTime(w http.ResponseWriter, r *http.Request) {
	s.writeToNowTotal(w, r, core.AllTime)
}

func (s *Server) writeToNowTotal(w http.ResponseWriter, r *http.Request, period core.Period) {
	t, err := s.ledger.TotalToNow(r.Context(), period)
	if err != nil {
		errorResponse(r, err, log.OpTotal).Write(w)
		return
	}
	NewResponse().JSON(newTotalDTO(t.AsOf, t.Amount)).Write(w)
}
