// Package http serves the HTMX front end and the JSON API of the ledger.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"farmledger/internal/cache"
	"farmledger/internal/core"
	"farmledger/internal/ledger"
	"farmledger/internal/log"
	"farmledger/internal/middleware/ratelimit"
	"farmledger/internal/middleware/security"
	"farmledger/internal/middleware/trace"
	"farmledger/internal/ports"
	appweb "farmledger/web"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Ledger *ledger.Gateway
	// Health is pinged by /readyz; usually the backend store.
	Health ports.HealthChecker
	// StatsCache holds dashboard statistics; nil disables caching.
	StatsCache         cache.Cache[core.DashboardStats]
	Logger             *log.Logger
	RateLimitPerMinute int
	Now                func() time.Time
}

// appMetrics tracks application-specific counters
type appMetrics struct {
	uptime       time.Time
	created      int64
	updated      int64
	deleted      int64
	failedWrites int64
	cacheHits    int64
	cacheMisses  int64
}

type Server struct {
	http.Server
	ledger     *ledger.Gateway
	health     ports.HealthChecker
	statsCache cache.Cache[core.DashboardStats]
	templates  *template.Template
	logger     *log.Logger
	now        func() time.Time
	// cacheScope keeps this process's versioned keys apart in a shared cache.
	cacheScope string

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:           deps.Ledger,
		health:           deps.Health,
		statsCache:       deps.StatsCache,
		logger:           logger.WithComponent(log.ComponentHTTP),
		now:              now,
		cacheScope:       uuid.NewString()[:8],
		securityDetector: security.NewDetector(logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute, Logger: logger})
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	t, err := template.New("pages").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err.Error(), log.FieldComponent, log.ComponentTemplate)
	} else {
		s.templates = t
	}

	s.Handler = s.routes(logger)
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := mux.NewRouter()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/ui/dashboard", s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/ui/expenses", s.handleExpenseList).Methods(http.MethodGet)

	r.HandleFunc("/expenses/new", s.handleNewExpenseForm).Methods(http.MethodGet)
	r.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	r.HandleFunc("/expenses/{id}/edit", s.handleEditExpenseForm).Methods(http.MethodGet)
	r.HandleFunc("/expenses/{id}", s.handleUpdateExpense).Methods(http.MethodPost)
	r.HandleFunc("/expenses/{id}/delete", s.handleConfirmDelete).Methods(http.MethodGet)
	r.HandleFunc("/expenses/{id}/delete", s.handleDeleteExpense).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/expenses", s.handleAPIListExpenses).Methods(http.MethodGet)
	api.HandleFunc("/expenses", s.handleAPICreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id}", s.handleAPIUpdateExpense).Methods(http.MethodPut)
	api.HandleFunc("/expenses/{id}", s.handleAPIDeleteExpense).Methods(http.MethodDelete)
	api.HandleFunc("/stats", s.handleAPIStats).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Page not found").Write(w)
	})

	r.Use(
		s.traceMiddleware.Middleware,
		log.Middleware(logger),
		log.RequestIDMiddleware(trace.RequestIDFromRequest),
		s.securityDetector.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please wait a minute and try again.").Write(w)
		}),
	)
	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a named template into w with the given status. Rendering
// errors are logged; the status may already be on the wire.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("Templates not loaded").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err.Error(),
			log.FieldOperation, log.OpRender,
			"template", name)
	}
}

// ensureLoaded fetches the collection the first time it is needed and after
// a failed startup load.
func (s *Server) ensureLoaded(ctx context.Context) error {
	if s.ledger.Snapshot().Loaded {
		return nil
	}
	return s.ledger.Load(ctx)
}

// dashboardStats computes the dashboard for the month of ref, reusing the
// cached result while the collection version is unchanged.
func (s *Server) dashboardStats(ctx context.Context, ref time.Time) (core.DashboardStats, ledger.State, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return core.DashboardStats{}, ledger.State{}, err
	}
	snap := s.ledger.Snapshot()
	key := fmt.Sprintf("dashboard:%s:v%d:%s", s.cacheScope, snap.Version, ref.Format("2006-01"))

	if s.statsCache != nil {
		if stats, ok := s.statsCache.Get(ctx, key); ok {
			s.countCache(true)
			return stats, snap, nil
		}
		s.countCache(false)
	}
	stats := core.Dashboard(snap.Expenses, ref)
	if s.statsCache != nil {
		s.statsCache.Set(ctx, key, stats)
	}
	return stats, snap, nil
}
