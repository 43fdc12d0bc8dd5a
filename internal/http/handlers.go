package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"farmledger/internal/core"
	"farmledger/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}
	writeJSON(w, http.StatusOK, health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.health != nil {
		if err := s.health.Ping(ctx); err != nil {
			checks["datastore"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["datastore"] = "ok"
		}
	} else {
		checks["datastore"] = "not_checked"
	}

	snap := s.ledger.Snapshot()
	checks["ledger"] = map[string]interface{}{
		"loaded":   snap.Loaded,
		"expenses": len(snap.Expenses),
		"version":  snap.Version,
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	snap := s.ledger.Snapshot()

	w.WriteHeader(http.StatusOK)

	// Prometheus text exposition format
	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_requests_in_flight", "gauge", "Requests currently being served", traceMetrics.InFlight)
	metric("http_response_time_avg_ms", "gauge", "Average response time in milliseconds", traceMetrics.AverageResponseTime.Milliseconds())

	fmt.Fprintf(w, "# HELP expense_writes_total Successful expense mutations by operation\n")
	fmt.Fprintf(w, "# TYPE expense_writes_total counter\n")
	fmt.Fprintf(w, "expense_writes_total{op=\"create\"} %d\n", atomic.LoadInt64(&s.appMetrics.created))
	fmt.Fprintf(w, "expense_writes_total{op=\"update\"} %d\n", atomic.LoadInt64(&s.appMetrics.updated))
	fmt.Fprintf(w, "expense_writes_total{op=\"delete\"} %d\n\n", atomic.LoadInt64(&s.appMetrics.deleted))

	metric("expense_write_failures_total", "counter", "Mutations rejected by the datastore", atomic.LoadInt64(&s.appMetrics.failedWrites))
	metric("expenses", "gauge", "Expenses in the loaded collection", len(snap.Expenses))
	metric("ledger_version", "gauge", "Collection version", snap.Version)
	metric("cache_hits_total", "counter", "Total dashboard cache hits", atomic.LoadInt64(&s.appMetrics.cacheHits))
	metric("cache_misses_total", "counter", "Total dashboard cache misses", atomic.LoadInt64(&s.appMetrics.cacheMisses))
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}

// handleIndex renders the full page with the selected tab. The welcome card
// replaces both tabs while the collection is empty.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := shellView{Tab: TabDashboard}
	if r.URL.Query().Get("tab") == TabExpenses {
		view.Tab = TabExpenses
	}

	now := s.now()
	stats, snap, err := s.dashboardStats(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load expenses", log.FieldError, err.Error(), log.FieldOperation, log.OpLoad)
		view.Notice = userMessage(err)
		s.render(w, r, statusFor(err), "index", view)
		return
	}

	view.Empty = len(snap.Expenses) == 0
	dash := newDashboardView(stats, snap.Expenses, now)
	view.Dashboard = &dash
	list := newListView(snap.Expenses, core.ParseQuery(r.URL.Query()))
	view.List = &list
	s.render(w, r, http.StatusOK, "index", view)
}

func (s *Server) countCache(hit bool) {
	if hit {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
