package http

import (
	"time"

	"farmledger/internal/core"
	"farmledger/internal/form"

	"github.com/shopspring/decimal"
)

// Tabs of the shell page.
const (
	TabDashboard = "dashboard"
	TabExpenses  = "expenses"
)

type option struct {
	Value    string
	Label    string
	Selected bool
}

type expenseRow struct {
	ID            string
	Date          string
	Title         string
	Description   string
	Category      core.Category
	Amount        string
	PaymentMethod core.PaymentMethod
}

func newExpenseRow(e core.Expense) expenseRow {
	return expenseRow{
		ID:            e.ID,
		Date:          e.Date.Display(),
		Title:         e.Title,
		Description:   e.Description,
		Category:      e.Category,
		Amount:        core.FormatRupees(e.Amount),
		PaymentMethod: e.PaymentMethod,
	}
}

func expenseRows(list []core.Expense) []expenseRow {
	rows := make([]expenseRow, len(list))
	for i, e := range list {
		rows[i] = newExpenseRow(e)
	}
	return rows
}

type breakdownRow struct {
	core.CategoryStats
	Color string
	Width int
}

type trendBar struct {
	core.MonthlyStats
	Height int
}

type dashboardView struct {
	Stats        core.DashboardStats
	MonthlyCount int
	Breakdown    []breakdownRow
	Trend        []trendBar
	HasTrend     bool
	Recent       []expenseRow
}

func newDashboardView(stats core.DashboardStats, list []core.Expense, now time.Time) dashboardView {
	v := dashboardView{Stats: stats, Recent: expenseRows(stats.RecentExpenses)}
	for _, e := range list {
		if e.Date.Year() == now.Year() && e.Date.Month() == int(now.Month()) {
			v.MonthlyCount++
		}
	}

	for i, c := range stats.CategoryBreakdown {
		v.Breakdown = append(v.Breakdown, breakdownRow{
			CategoryStats: c,
			Color:         chartColor(i),
			Width:         barWidth(c.Percentage),
		})
	}

	peak := decimal.Zero
	for _, m := range stats.MonthlyTrends {
		if m.Total.GreaterThan(peak) {
			peak = m.Total
		}
	}
	v.HasTrend = peak.IsPositive()
	for _, m := range stats.MonthlyTrends {
		v.Trend = append(v.Trend, trendBar{MonthlyStats: m, Height: barWidth(core.Percentage(m.Total, peak))})
	}
	return v
}

// barWidth turns a percentage into a CSS width, keeping tiny non-zero values
// visible.
func barWidth(pct float64) int {
	w := int(pct + 0.5)
	if pct > 0 && w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

type sortHeader struct {
	Label string
	URL   string
	Arrow string
}

type listView struct {
	Query       core.Query
	QueryString string
	Rows        []expenseRow
	Categories  []option
	Headers     map[string]sortHeader
}

func newListView(list []core.Expense, q core.Query) listView {
	v := listView{
		Query:       q,
		QueryString: q.Values().Encode(),
		Rows:        expenseRows(core.Apply(list, q)),
		Headers:     map[string]sortHeader{},
	}
	v.Categories = append(v.Categories, option{Value: string(core.CategoryAll), Label: "All Categories", Selected: q.Category == core.CategoryAll})
	for _, c := range core.Categories() {
		v.Categories = append(v.Categories, option{Value: string(c), Label: c.Icon() + " " + c.Label(), Selected: q.Category == c})
	}
	for key, label := range map[core.SortKey]string{core.SortByDate: "Date", core.SortByTitle: "Title", core.SortByAmount: "Amount"} {
		h := sortHeader{Label: label, URL: "/ui/expenses?" + q.ToggleSort(key).Values().Encode()}
		if q.SortKey == key {
			h.Arrow = "↓"
			if q.Direction == core.Ascending {
				h.Arrow = "↑"
			}
		}
		v.Headers[string(key)] = h
	}
	return v
}

type formView struct {
	Editing    bool
	ID         string
	Action     string
	Fields     form.Fields
	Errors     map[string]string
	Categories []option
	Payments   []option
	Notice     string
}

func newFormView(c *form.Controller) formView {
	f := c.Fields()
	v := formView{
		Editing: c.Mode() == form.ModeEdit,
		ID:      c.ID(),
		Action:  "/expenses",
		Fields:  f,
		Errors:  c.Errors(),
	}
	if v.Editing {
		v.Action = "/expenses/" + c.ID()
	}
	for _, cat := range core.Categories() {
		v.Categories = append(v.Categories, option{Value: string(cat), Label: cat.Icon() + " " + cat.Label(), Selected: f.Category == string(cat)})
	}
	for _, pm := range core.PaymentMethods() {
		v.Payments = append(v.Payments, option{Value: string(pm), Label: pm.Label(), Selected: f.PaymentMethod == string(pm)})
	}
	return v
}

type shellView struct {
	Tab       string
	Empty     bool
	Dashboard *dashboardView
	List      *listView
	Notice    string
}
