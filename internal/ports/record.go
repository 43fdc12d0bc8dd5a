package ports

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"farmledger/internal/core"

	"github.com/shopspring/decimal"
)

// Record is an expense as exchanged with a datastore. Field names follow the
// datastore columns, notably payment_method.
type Record struct {
	ID            string          `json:"id,omitempty" yaml:"id,omitempty"`
	Title         string          `json:"title" yaml:"title"`
	Amount        decimal.Decimal `json:"amount" yaml:"amount"`
	Category      string          `json:"category" yaml:"category"`
	Date          string          `json:"date" yaml:"date"`
	Description   string          `json:"description,omitempty" yaml:"description,omitempty"`
	PaymentMethod string          `json:"payment_method" yaml:"payment_method"`
	CreatedAt     time.Time       `json:"-" yaml:"-"`
}

// RecordFromInput builds a record for an expense the store has not seen yet.
func RecordFromInput(in core.ExpenseInput) Record {
	return Record{
		Title:         in.Title,
		Amount:        in.Amount,
		Category:      string(in.Category),
		Date:          in.Date.String(),
		Description:   in.Description,
		PaymentMethod: string(in.PaymentMethod),
	}
}

// RecordFromExpense converts a domain expense to its wire shape.
func RecordFromExpense(e core.Expense) Record {
	r := RecordFromInput(e.Input())
	r.ID = e.ID
	return r
}

// Expense converts the record to the domain, rejecting values outside the
// closed category and payment method sets.
func (r Record) Expense() (core.Expense, error) {
	if strings.TrimSpace(r.ID) == "" {
		return core.Expense{}, fmt.Errorf("record without id")
	}
	cat, err := core.ParseCategory(r.Category)
	if err != nil {
		return core.Expense{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	pm, err := core.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return core.Expense{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	date, err := parseWireDate(r.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return core.Expense{
		ID:            r.ID,
		Title:         r.Title,
		Amount:        r.Amount,
		Category:      cat,
		Date:          date,
		Description:   r.Description,
		PaymentMethod: pm,
	}, nil
}

// parseWireDate accepts a bare date or a timestamp as some datastores return
// date columns with a time part.
func parseWireDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(core.DateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return core.DateOf(t), nil
		}
		s = s[:len(core.DateLayout)]
	}
	return core.ParseDate(s)
}

// SortRecords orders records the way ListExpenses must return them: date
// descending, then most recently created first.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date > records[j].Date
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
