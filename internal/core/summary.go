package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTrailingMonths is the window of the dashboard trend chart.
const DefaultTrailingMonths = 6

// RecentExpensesLimit is how many expenses the dashboard lists.
const RecentExpensesLimit = 5

// CategoryStats summarizes expenses of one category.
type CategoryStats struct {
	Category   Category        `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// MonthlyStats summarizes expenses of one calendar month.
type MonthlyStats struct {
	Label string          `json:"month"`
	Year  int             `json:"year"`
	Month int             `json:"monthNumber"` // 1-12
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// DashboardStats is everything the dashboard view renders.
type DashboardStats struct {
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	MonthlyExpenses   decimal.Decimal `json:"monthlyExpenses"`
	AverageExpense    decimal.Decimal `json:"averageExpense"`
	TopCategory       *CategoryStats  `json:"topCategory,omitempty"`
	CategoryBreakdown []CategoryStats `json:"categoryBreakdown"`
	MonthlyTrends     []MonthlyStats  `json:"monthlyTrends"`
	RecentExpenses    []Expense       `json:"recentExpenses"`
	Count             int             `json:"count"`
}

// TotalAmount sums every amount. An empty list sums to zero.
func TotalAmount(list []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range list {
		total = total.Add(e.Amount)
	}
	return total
}

// MonthlyAmount sums the amounts dated in the given month (1-12) and year.
func MonthlyAmount(list []Expense, month, year int) decimal.Decimal {
	total := decimal.Zero
	for _, e := range list {
		if e.Date.Month() == month && e.Date.Year() == year {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// AverageAmount is the mean amount, zero for an empty list.
func AverageAmount(list []Expense) decimal.Decimal {
	if len(list) == 0 {
		return decimal.Zero
	}
	return TotalAmount(list).Div(decimal.NewFromInt(int64(len(list))))
}

// CategoryBreakdown groups by category, largest total first.
// Categories with equal totals keep the order in which they first appear.
// The result is empty when the grand total is zero.
func CategoryBreakdown(list []Expense) []CategoryStats {
	grand := TotalAmount(list)
	if grand.IsZero() {
		return []CategoryStats{}
	}

	index := map[Category]int{}
	out := make([]CategoryStats, 0, len(categories))
	for _, e := range list {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, CategoryStats{Category: e.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
		out[i].Count++
	}
	for i := range out {
		out[i].Percentage = Percentage(out[i].Total, grand)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Total.GreaterThan(out[b].Total)
	})
	return out
}

// TrailingMonths returns n consecutive months ending with ref's month, oldest
// first. Months without expenses are present with zero totals.
func TrailingMonths(list []Expense, n int, ref time.Time) []MonthlyStats {
	if n <= 0 {
		return []MonthlyStats{}
	}
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)

	out := make([]MonthlyStats, n)
	for i := range out {
		m := first.AddDate(0, i, 0)
		out[i] = MonthlyStats{
			Label: MonthLabel(m.Year(), int(m.Month())),
			Year:  m.Year(),
			Month: int(m.Month()),
			Total: decimal.Zero,
		}
	}
	for _, e := range list {
		offset := (e.Date.Year()-first.Year())*12 + e.Date.Month() - int(first.Month())
		if offset < 0 || offset >= n {
			continue
		}
		out[offset].Total = out[offset].Total.Add(e.Amount)
		out[offset].Count++
	}
	return out
}

// MonthLabel formats a month as "Jan 2024".
func MonthLabel(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month).String()[:3], year)
}

// Dashboard assembles the dashboard figures for the list as seen at now.
func Dashboard(list []Expense, now time.Time) DashboardStats {
	breakdown := CategoryBreakdown(list)
	stats := DashboardStats{
		TotalExpenses:     TotalAmount(list),
		MonthlyExpenses:   MonthlyAmount(list, int(now.Month()), now.Year()),
		AverageExpense:    AverageAmount(list),
		CategoryBreakdown: breakdown,
		MonthlyTrends:     TrailingMonths(list, DefaultTrailingMonths, now),
		RecentExpenses:    Recent(list, RecentExpensesLimit),
		Count:             len(list),
	}
	if len(breakdown) > 0 {
		top := breakdown[0]
		stats.TopCategory = &top
	}
	return stats
}

// Recent returns up to n expenses with the latest dates, newest first.
func Recent(list []Expense, n int) []Expense {
	sorted := Apply(list, Query{Category: CategoryAll, SortKey: SortByDate, Direction: Descending})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
