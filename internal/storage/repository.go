package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"farmledger/internal/ports"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and migration set.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// Repository stores expenses in a SQL database.
type Repository struct {
	db      *sql.DB
	queries *Queries
	dialect Dialect
	now     func() time.Time

	mu       sync.Mutex
	lastNano int64
}

var (
	_ ports.ExpenseStore  = (*Repository)(nil)
	_ ports.HealthChecker = (*Repository)(nil)
)

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, dbPath)
}

func NewPostgresRepository(dsn string) (*Repository, error) {
	return open(DialectPostgres, dsn)
}

func open(d Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if d == DialectSQLite {
		// a single writer avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	}

	// Run migrations
	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		queries: New(db, d),
		dialect: d,
		now:     time.Now,
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Count returns the number of stored expenses.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r *Repository) ListExpenses(ctx context.Context) ([]ports.Record, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]ports.Record, len(rows))
	for i, row := range rows {
		out[i] = toRecord(row)
	}
	return out, nil
}

func (r *Repository) CreateExpense(ctx context.Context, rec ports.Record) (ports.Record, error) {
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:            uuid.NewString(),
		Title:         rec.Title,
		Amount:        rec.Amount,
		Category:      rec.Category,
		Date:          rec.Date,
		Description:   rec.Description,
		PaymentMethod: rec.PaymentMethod,
		CreatedAt:     r.stamp(),
	})
	if err != nil {
		return ports.Record{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved",
		"dialect", r.dialect,
		"id", row.ID,
		"category", row.Category,
		"date", row.Date)

	return toRecord(row), nil
}

func (r *Repository) UpdateExpense(ctx context.Context, rec ports.Record) (ports.Record, error) {
	row, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		Title:         rec.Title,
		Amount:        rec.Amount,
		Category:      rec.Category,
		Date:          rec.Date,
		Description:   rec.Description,
		PaymentMethod: rec.PaymentMethod,
		UpdatedAt:     r.stamp(),
		ID:            rec.ID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Record{}, fmt.Errorf("update expense %s: %w", rec.ID, ports.ErrNotFound)
	}
	if err != nil {
		return ports.Record{}, fmt.Errorf("update expense %s: %w", rec.ID, err)
	}
	return toRecord(row), nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete expense %s: %w", id, ports.ErrNotFound)
	}
	return nil
}

// Import inserts records in one transaction, keeping ids that are already
// set. It is used by the legacy importer.
func (r *Repository) Import(ctx context.Context, records []ports.Record) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	base := r.stamp() + int64(len(records))
	for i, rec := range records {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		// records arrive newest first; created_at decreases to keep that order
		createdAt := base - int64(i)
		if _, err := q.CreateExpense(ctx, CreateExpenseParams{
			ID:            id,
			Title:         rec.Title,
			Amount:        rec.Amount,
			Category:      rec.Category,
			Date:          rec.Date,
			Description:   rec.Description,
			PaymentMethod: rec.PaymentMethod,
			CreatedAt:     createdAt,
		}); err != nil {
			return 0, fmt.Errorf("import record %d (%s): %w", i, rec.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	r.mu.Lock()
	if base > r.lastNano {
		r.lastNano = base
	}
	r.mu.Unlock()
	return len(records), nil
}

// stamp returns strictly increasing unix nanoseconds for created_at ordering.
func (r *Repository) stamp() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.now().UnixNano()
	if n <= r.lastNano {
		n = r.lastNano + 1
	}
	r.lastNano = n
	return n
}

func toRecord(row Expense) ports.Record {
	return ports.Record{
		ID:            row.ID,
		Title:         row.Title,
		Amount:        row.Amount,
		Category:      row.Category,
		Date:          row.Date,
		Description:   row.Description,
		PaymentMethod: row.PaymentMethod,
		CreatedAt:     time.Unix(0, row.CreatedAt),
	}
}
