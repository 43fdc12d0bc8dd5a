package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when an id does not exist.
var ErrNotFound = errors.New("expense not found")

// Ports for outbound adapters. All of them speak Record, the wire shape of
// an expense; translation to the domain happens in the ledger.
type (
	// ExpenseLister returns every stored expense, newest date first.
	ExpenseLister interface {
		ListExpenses(ctx context.Context) ([]Record, error)
	}

	// ExpenseCreator stores a record without id and returns it as stored,
	// including the id the store assigned.
	ExpenseCreator interface {
		CreateExpense(ctx context.Context, r Record) (Record, error)
	}

	// ExpenseUpdater replaces the record with r.ID and returns it as stored.
	ExpenseUpdater interface {
		UpdateExpense(ctx context.Context, r Record) (Record, error)
	}

	ExpenseDeleter interface {
		DeleteExpense(ctx context.Context, id string) error
	}

	// ExpenseStore is the full remote datastore used by the ledger.
	ExpenseStore interface {
		ExpenseLister
		ExpenseCreator
		ExpenseUpdater
		ExpenseDeleter
	}

	// ExpenseMirror receives copies of changes made elsewhere. Records keep
	// the id given by the primary store.
	ExpenseMirror interface {
		UpsertExpense(ctx context.Context, r Record) error
		DeleteExpense(ctx context.Context, id string) error
		ReplaceAll(ctx context.Context, records []Record) error
	}

	// HealthChecker is implemented by stores that can report connectivity.
	HealthChecker interface {
		Ping(ctx context.Context) error
	}
)
