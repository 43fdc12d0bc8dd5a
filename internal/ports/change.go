package ports

import (
	"context"
	"time"
)

// ChangeOp names the mutation a Change describes.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

// Change is emitted after a mutation has been accepted by the store. Record
// is nil for deletions.
type Change struct {
	Op        ChangeOp  `json:"op"`
	ID        string    `json:"id"`
	Record    *Record   `json:"record,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChangePublisher forwards changes to interested consumers.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c Change) error
}

// ExpenseImporter is implemented by stores that can insert a batch of
// records atomically, keeping ids that are already set.
type ExpenseImporter interface {
	Import(ctx context.Context, records []Record) (int, error)
}
