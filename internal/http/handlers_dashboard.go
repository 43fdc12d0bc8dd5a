package http

import (
	"net/http"

	"farmledger/internal/core"
	"farmledger/internal/log"
	"farmledger/internal/ports"

	"github.com/shopspring/decimal"
)

// statsResponse is the JSON shape of /api/stats. Recent expenses use the
// datastore field names like the rest of the API.
type statsResponse struct {
	Month             string               `json:"month"`
	TotalExpenses     decimal.Decimal      `json:"totalExpenses"`
	MonthlyExpenses   decimal.Decimal      `json:"monthlyExpenses"`
	AverageExpense    decimal.Decimal      `json:"averageExpense"`
	TopCategory       *core.CategoryStats  `json:"topCategory"`
	CategoryBreakdown []core.CategoryStats `json:"categoryBreakdown"`
	MonthlyTrends     []core.MonthlyStats  `json:"monthlyTrends"`
	RecentExpenses    []ports.Record       `json:"recentExpenses"`
	Count             int                  `json:"count"`
	Version           uint64               `json:"version"`
}

// handleDashboard renders the dashboard partial. An optional month parameter
// (YYYY-MM) moves the "This Month" card and the trend window.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := ParseMonthParams(r.URL.Query(), s.now()).Time()

	stats, snap, err := s.dashboardStats(ctx, ref)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute dashboard", log.FieldError, err.Error(), log.FieldOperation, log.OpLoad)
		ErrorResponse(statusFor(err), userMessage(err)).Write(w)
		return
	}

	view := newDashboardView(stats, snap.Expenses, ref)
	s.render(w, r, http.StatusOK, "dashboard", struct {
		Empty     bool
		Dashboard *dashboardView
	}{len(snap.Expenses) == 0, &view})
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := ParseMonthParams(r.URL.Query(), s.now())

	stats, snap, err := s.dashboardStats(ctx, params.Time())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute stats", log.FieldError, err.Error(), log.FieldOperation, log.OpLoad)
		writeJSONError(w, statusFor(err), userMessage(err))
		return
	}

	resp := statsResponse{
		Month:             params.Time().Format("2006-01"),
		TotalExpenses:     stats.TotalExpenses,
		MonthlyExpenses:   stats.MonthlyExpenses,
		AverageExpense:    stats.AverageExpense,
		TopCategory:       stats.TopCategory,
		CategoryBreakdown: stats.CategoryBreakdown,
		MonthlyTrends:     stats.MonthlyTrends,
		RecentExpenses:    make([]ports.Record, 0, len(stats.RecentExpenses)),
		Count:             stats.Count,
		Version:           snap.Version,
	}
	if resp.CategoryBreakdown == nil {
		resp.CategoryBreakdown = []core.CategoryStats{}
	}
	for _, e := range stats.RecentExpenses {
		resp.RecentExpenses = append(resp.RecentExpenses, ports.RecordFromExpense(e))
	}
	writeJSON(w, http.StatusOK, resp)
}
