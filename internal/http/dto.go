package http

import (
	"strconv"
	"time"

	"dailyledger/internal/core"
)

// expenseDTO is the wire form of an expense: nanosecond timestamps and
// integer cents.
type expenseDTO struct {
	ID            uint64 `json:"id"`
	ExpenseType   string `json:"expenseType"`
	SubmitterName string `json:"submitterName"`
	Date          int64  `json:"date"`
	Amount        int64  `json:"amount"`
	CreatedAt     int64  `json:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt"`
}

func toExpenseDTO(e core.Expense) expenseDTO {
	return expenseDTO{
		ID:            uint64(e.ID),
		ExpenseType:   e.ExpenseType,
		SubmitterName: e.SubmitterName,
		Date:          e.Date.UnixNano(),
		Amount:        e.Amount.Cents,
		CreatedAt:     e.CreatedAt.UnixNano(),
		UpdatedAt:     e.UpdatedAt.UnixNano(),
	}
}

func toExpenseDTOs(items []core.Expense) []expenseDTO {
	out := make([]expenseDTO, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseDTO(e))
	}
	return out
}

// moneyDTO carries cents plus a display string.
type moneyDTO struct {
	Cents   int64  `json:"cents"`
	Display string `json:"display"`
}

func toMoneyDTO(m core.Money) moneyDTO {
	return moneyDTO{Cents: m.Cents, Display: m.String()}
}

type totalDTO struct {
	AsOf  int64    `json:"asOf"`
	Total moneyDTO `json:"total"`
}

type totalsDTO struct {
	Day         int64    `json:"day"`
	AsOf        int64    `json:"asOf"`
	Daily       moneyDTO `json:"daily"`
	MonthToDate moneyDTO `json:"monthToDate"`
	YearToDate  moneyDTO `json:"yearToDate"`
	AllTime     moneyDTO `json:"allTime"`
}

func toTotalsDTO(t core.Totals) totalsDTO {
	return totalsDTO{
		Day:         t.Day.UnixNano(),
		AsOf:        t.AsOf.UnixNano(),
		Daily:       toMoneyDTO(t.Daily),
		MonthToDate: toMoneyDTO(t.MonthToDate),
		YearToDate:  toMoneyDTO(t.YearToDate),
		AllTime:     toMoneyDTO(t.AllTime),
	}
}

func newTotalDTO(asOf time.Time, m core.Money) totalDTO {
	return totalDTO{AsOf: asOf.UnixNano(), Total: toMoneyDTO(m)}
}

func idString(id core.ExpenseID) string {
	return strconv.FormatUint(uint64(id), 10)
}
