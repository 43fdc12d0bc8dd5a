package ledger

import (
	"testing"

	"farmledger/internal/core"

	"github.com/shopspring/decimal"
)

func exp(id, title string, amount int64) core.Expense {
	return core.Expense{
		ID:            id,
		Title:         title,
		Amount:        decimal.NewFromInt(amount),
		Category:      core.CategoryFeed,
		Date:          core.NewDate(2024, 1, 15),
		PaymentMethod: core.PaymentCash,
	}
}

func ids(list []core.Expense) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.ID
	}
	return out
}

func equalIDs(got []core.Expense, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestReduce(t *testing.T) {
	base := Reduce(State{}, Loaded([]core.Expense{exp("a", "A", 1), exp("b", "B", 2)}))

	tests := []struct {
		name        string
		action      Action
		wantIDs     []string
		wantVersion uint64
	}{
		{"created prepends", Created(exp("c", "C", 3)), []string{"c", "a", "b"}, 2},
		{"updated replaces in place", Updated(exp("b", "B2", 5)), []string{"a", "b"}, 2},
		{"deleted removes", Deleted("a"), []string{"b"}, 2},
		{"unknown update is a no-op", Updated(exp("zz", "Z", 1)), []string{"a", "b"}, 1},
		{"unknown delete is a no-op", Deleted("zz"), []string{"a", "b"}, 1},
		{"unknown action is a no-op", Action{}, []string{"a", "b"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reduce(base, tt.action)
			if !equalIDs(got.Expenses, tt.wantIDs...) {
				t.Fatalf("ids = %v, want %v", ids(got.Expenses), tt.wantIDs)
			}
			if got.Version != tt.wantVersion {
				t.Fatalf("version = %d, want %d", got.Version, tt.wantVersion)
			}
			if !got.Loaded {
				t.Fatalf("loaded flag lost")
			}
		})
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	input := []core.Expense{exp("a", "A", 1), exp("b", "B", 2)}
	s := Reduce(State{}, Loaded(input))
	input[0].Title = "changed by caller"
	if s.Expenses[0].Title != "A" {
		t.Fatalf("loaded state aliases the caller's slice")
	}

	before := s
	_ = Reduce(s, Updated(exp("a", "A2", 9)))
	_ = Reduce(s, Deleted("b"))
	_ = Reduce(s, Created(exp("c", "C", 1)))
	if before.Expenses[0].Title != "A" || len(before.Expenses) != 2 || before.Version != s.Version {
		t.Fatalf("reduce modified its input state: %+v", before)
	}
}

func TestUpdatedKeepsAmountExact(t *testing.T) {
	s := Reduce(State{}, Loaded([]core.Expense{exp("a", "A", 1)}))
	e := exp("a", "A", 0)
	e.Amount = decimal.RequireFromString("1250.75")
	s = Reduce(s, Updated(e))
	if !s.Expenses[0].Amount.Equal(decimal.RequireFromString("1250.75")) {
		t.Fatalf("amount = %s", s.Expenses[0].Amount)
	}
}
