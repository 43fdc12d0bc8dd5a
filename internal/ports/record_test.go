package ports

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"farmledger/internal/core"

	"github.com/shopspring/decimal"
)

func TestRecordUsesPaymentMethodWireName(t *testing.T) {
	e := core.Expense{
		ID:            "7",
		Title:         "NEFT to feed mill",
		Amount:        decimal.RequireFromString("1250.75"),
		Category:      core.CategoryFeed,
		Date:          core.NewDate(2024, 1, 5),
		PaymentMethod: core.PaymentBankTransfer,
	}
	b, err := json.Marshal(RecordFromExpense(e))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"payment_method":"bank_transfer"`) || strings.Contains(s, "paymentMethod") {
		t.Fatalf("unexpected wire shape: %s", s)
	}
	if !strings.Contains(s, `"date":"2024-01-05"`) {
		t.Fatalf("unexpected date encoding: %s", s)
	}

	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back, err := r.Expense()
	if err != nil {
		t.Fatalf("to domain: %v", err)
	}
	if back.PaymentMethod != core.PaymentBankTransfer || !back.Amount.Equal(e.Amount) || back.Date.String() != "2024-01-05" {
		t.Fatalf("unexpected expense: %+v", back)
	}
}

func TestRecordExpenseRejectsUnknownValues(t *testing.T) {
	base := Record{ID: "1", Title: "x", Amount: decimal.NewFromInt(1), Category: "feed", Date: "2024-01-05", PaymentMethod: "cash"}
	cases := []struct {
		mutate func(*Record)
		want   error
	}{
		{func(r *Record) { r.Category = "poultry" }, core.ErrInvalidCategory},
		{func(r *Record) { r.PaymentMethod = "paymentMethod" }, core.ErrInvalidPaymentMethod},
		{func(r *Record) { r.Date = "yesterday" }, core.ErrInvalidDate},
	}
	for i, tc := range cases {
		r := base
		tc.mutate(&r)
		if _, err := r.Expense(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
	noID := base
	noID.ID = ""
	if _, err := noID.Expense(); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestRecordExpenseAcceptsTimestampDates(t *testing.T) {
	r := Record{ID: "1", Title: "x", Category: "feed", Date: "2024-01-05T00:00:00Z", PaymentMethod: "cash"}
	e, err := r.Expense()
	if err != nil || e.Date.String() != "2024-01-05" {
		t.Fatalf("expected 2024-01-05, got %v (err=%v)", e.Date, err)
	}
}

func TestSortRecords(t *testing.T) {
	now := time.Now()
	rs := []Record{
		{ID: "old", Date: "2024-01-01", CreatedAt: now},
		{ID: "first", Date: "2024-02-01", CreatedAt: now.Add(-time.Hour)},
		{ID: "second", Date: "2024-02-01", CreatedAt: now},
	}
	SortRecords(rs)
	if rs[0].ID != "second" || rs[1].ID != "first" || rs[2].ID != "old" {
		t.Fatalf("unexpected order: %v %v %v", rs[0].ID, rs[1].ID, rs[2].ID)
	}
}
