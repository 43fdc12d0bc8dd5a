package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries runs the expense statements for one dialect.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func New(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

// WithTx returns a Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

// Expense is a row of the expenses table.
type Expense struct {
	ID            string
	Title         string
	Amount        decimal.Decimal
	Category      string
	Date          string
	Description   string
	PaymentMethod string
	CreatedAt     int64
	UpdatedAt     int64
}

const expenseColumns = `id, title, amount, category, date, description, payment_method, created_at, updated_at`

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses
ORDER BY date DESC, created_at DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, q.dialect.rebind(listExpenses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := scanExpense(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.rebind(getExpense), id)
	var i Expense
	err := scanExpense(row, &i)
	return i, err
}

const createExpense = `INSERT INTO expenses (` + expenseColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	ID            string
	Title         string
	Amount        decimal.Decimal
	Category      string
	Date          string
	Description   string
	PaymentMethod string
	CreatedAt     int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.rebind(createExpense),
		arg.ID,
		arg.Title,
		arg.Amount,
		arg.Category,
		arg.Date,
		arg.Description,
		arg.PaymentMethod,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	var i Expense
	err := scanExpense(row, &i)
	return i, err
}

const updateExpense = `UPDATE expenses
SET title = ?, amount = ?, category = ?, date = ?, description = ?, payment_method = ?, updated_at = ?
WHERE id = ?
RETURNING ` + expenseColumns

type UpdateExpenseParams struct {
	Title         string
	Amount        decimal.Decimal
	Category      string
	Date          string
	Description   string
	PaymentMethod string
	UpdatedAt     int64
	ID            string
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, q.dialect.rebind(updateExpense),
		arg.Title,
		arg.Amount,
		arg.Category,
		arg.Date,
		arg.Description,
		arg.PaymentMethod,
		arg.UpdatedAt,
		arg.ID,
	)
	var i Expense
	err := scanExpense(row, &i)
	return i, err
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, q.dialect.rebind(deleteExpense), id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countExpenses = `SELECT COUNT(*) FROM expenses`

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExpenses)
	var count int64
	err := row.Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(s scanner, i *Expense) error {
	if err := s.Scan(
		&i.ID,
		&i.Title,
		&i.Amount,
		&i.Category,
		&i.Date,
		&i.Description,
		&i.PaymentMethod,
		&i.CreatedAt,
		&i.UpdatedAt,
	); err != nil {
		return err
	}
	// postgres DATE columns come back as timestamps
	if len(i.Date) > 10 {
		i.Date = i.Date[:10]
	}
	return nil
}

// rebind rewrites ? placeholders to $n for dialects that need it.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
