package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"farmledger/internal/core"
	"farmledger/internal/log"
	"farmledger/internal/ports"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrDeleteDeclined is returned when the confirmation step says no.
	ErrDeleteDeclined = errors.New("delete not confirmed")
	// ErrExpenseNotFound is returned for ids absent from the loaded state.
	ErrExpenseNotFound = errors.New("expense not found")
)

// Confirm asks whether e may be deleted.
type Confirm func(ctx context.Context, e core.Expense) bool

// Confirmed is a Confirm that always agrees.
func Confirmed(context.Context, core.Expense) bool { return true }

// Gateway is the only path from the application to the datastore and the only
// writer of the in-memory State. Remote failures leave the state untouched.
type Gateway struct {
	store     ports.ExpenseStore
	publisher ports.ChangePublisher
	logger    *log.Logger
	timeout   time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	state State

	seq   *sequencer
	loads singleflight.Group
}

type Option func(*Gateway)

// WithPublisher publishes a change after every successful mutation.
func WithPublisher(p ports.ChangePublisher) Option {
	return func(g *Gateway) { g.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) { g.logger = l.WithComponent(log.ComponentGateway) }
}

// WithStoreTimeout bounds every store call. Zero means no extra bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

func withClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(store ports.ExpenseStore, opts ...Option) *Gateway {
	g := &Gateway{
		store:  store,
		logger: log.Discard().WithComponent(log.ComponentGateway),
		now:    time.Now,
		seq:    newSequencer(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Snapshot returns the current state. The returned value must not be modified.
func (g *Gateway) Snapshot() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Expenses returns a copy of the current list, newest first.
func (g *Gateway) Expenses() []core.Expense {
	s := g.Snapshot()
	out := make([]core.Expense, len(s.Expenses))
	copy(out, s.Expenses)
	return out
}

// Get looks id up in the current state.
func (g *Gateway) Get(id string) (core.Expense, bool) {
	s := g.Snapshot()
	if i := indexOf(s.Expenses, id); i >= 0 {
		return s.Expenses[i], true
	}
	return core.Expense{}, false
}

func (g *Gateway) apply(a Action) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Reduce(g.state, a)
	return g.state
}

func (g *Gateway) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return ctx, func() {}
}

// Load replaces the state with the store's list. Concurrent calls share one
// store request. Records the domain cannot represent are skipped and logged.
func (g *Gateway) Load(ctx context.Context) error {
	_, err, _ := g.loads.Do("load", func() (any, error) {
		sctx, cancel := g.storeCtx(ctx)
		defer cancel()
		records, err := g.store.ListExpenses(sctx)
		if err != nil {
			err = fmt.Errorf("load expenses: %w", err)
			g.logger.ErrorContext(ctx, "Failed to load expenses", log.NewFields().WithOperation(log.OpLoad).WithError(err).ToSlice()...)
			return nil, err
		}

		list := make([]core.Expense, 0, len(records))
		for _, r := range records {
			e, err := r.Expense()
			if err != nil {
				g.logger.WarnContext(ctx, "Skipping unreadable record", log.NewFields().WithExpense(r.ID, r.Title, "", r.Category).WithError(err).ToSlice()...)
				continue
			}
			list = append(list, e)
		}
		s := g.apply(Loaded(list))
		g.logger.InfoContext(ctx, "Expenses loaded", log.FieldCount, len(list), log.FieldVersion, s.Version)
		return nil, nil
	})
	return err
}

// Create stores in and prepends the stored expense. Nothing is inserted before
// the store answers.
func (g *Gateway) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	sctx, cancel := g.storeCtx(ctx)
	defer cancel()
	stored, err := g.store.CreateExpense(sctx, ports.RecordFromInput(in))
	if err != nil {
		return core.Expense{}, g.fail(ctx, log.OpCreate, "", fmt.Errorf("create expense: %w", err))
	}
	e, err := stored.Expense()
	if err != nil {
		return core.Expense{}, g.fail(ctx, log.OpCreate, stored.ID, fmt.Errorf("create expense: %w", err))
	}

	s := g.apply(Created(e))
	g.logger.InfoContext(ctx, "Expense created", log.NewFields().WithOperation(log.OpCreate).WithExpense(e.ID, e.Title, e.Amount.String(), string(e.Category)).ToSlice()...)
	g.publish(ctx, ports.OpCreated, e.ID, &stored, s)
	return e, nil
}

// Update replaces the expense with id by in. Updates and deletes of the same
// id reach the store and the state in the order they were issued.
func (g *Gateway) Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error) {
	if _, ok := g.Get(id); !ok {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, ErrExpenseNotFound)
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}

	release, err := g.seq.acquire(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	defer release()

	sctx, cancel := g.storeCtx(ctx)
	defer cancel()
	stored, err := g.store.UpdateExpense(sctx, ports.RecordFromExpense(in.WithID(id)))
	if errors.Is(err, ports.ErrNotFound) {
		g.forget(ctx, log.OpUpdate, id)
		return core.Expense{}, fmt.Errorf("update expense %s: %w: %w", id, ErrExpenseNotFound, err)
	}
	if err != nil {
		return core.Expense{}, g.fail(ctx, log.OpUpdate, id, fmt.Errorf("update expense %s: %w", id, err))
	}
	if stored.ID == "" {
		stored.ID = id
	}
	e, err := stored.Expense()
	if err != nil {
		return core.Expense{}, g.fail(ctx, log.OpUpdate, id, fmt.Errorf("update expense %s: %w", id, err))
	}

	s := g.apply(Updated(e))
	g.logger.InfoContext(ctx, "Expense updated", log.NewFields().WithOperation(log.OpUpdate).WithExpense(e.ID, e.Title, e.Amount.String(), string(e.Category)).ToSlice()...)
	g.publish(ctx, ports.OpUpdated, e.ID, &stored, s)
	return e, nil
}

// Delete removes the expense with id once confirm agrees. A declined
// confirmation returns ErrDeleteDeclined without contacting the store.
func (g *Gateway) Delete(ctx context.Context, id string, confirm Confirm) error {
	e, ok := g.Get(id)
	if !ok {
		return fmt.Errorf("delete expense %s: %w", id, ErrExpenseNotFound)
	}
	if confirm == nil || !confirm(ctx, e) {
		return ErrDeleteDeclined
	}

	release, err := g.seq.acquire(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	defer release()

	sctx, cancel := g.storeCtx(ctx)
	defer cancel()
	err = g.store.DeleteExpense(sctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		g.forget(ctx, log.OpDelete, id)
		return fmt.Errorf("delete expense %s: %w: %w", id, ErrExpenseNotFound, err)
	}
	if err != nil {
		return g.fail(ctx, log.OpDelete, id, fmt.Errorf("delete expense %s: %w", id, err))
	}

	s := g.apply(Deleted(id))
	g.logger.InfoContext(ctx, "Expense deleted", log.NewFields().WithOperation(log.OpDelete).WithExpense(id, e.Title, "", "").ToSlice()...)
	g.publish(ctx, ports.OpDeleted, id, nil, s)
	return nil
}

// forget drops an expense the store no longer has, e.g. one deleted by
// another process since the last load. The mirror is told as well.
func (g *Gateway) forget(ctx context.Context, op, id string) {
	s := g.apply(Deleted(id))
	g.logger.WarnContext(ctx, "Expense vanished from the store", log.NewFields().WithOperation(op).WithExpense(id, "", "", "").ToSlice()...)
	g.publish(ctx, ports.OpDeleted, id, nil, s)
}

func (g *Gateway) fail(ctx context.Context, op, id string, err error) error {
	g.logger.ErrorContext(ctx, "Store call failed", log.NewFields().WithOperation(op).WithExpense(id, "", "", "").WithError(err).ToSlice()...)
	return err
}

// publish is best effort: the mutation already happened, so a failure is
// only logged.
func (g *Gateway) publish(ctx context.Context, op ports.ChangeOp, id string, r *ports.Record, s State) {
	if g.publisher == nil {
		return
	}
	c := ports.Change{Op: op, ID: id, Record: r, Timestamp: g.now().UTC()}
	if err := g.publisher.PublishChange(ctx, c); err != nil {
		g.logger.WarnContext(ctx, "Failed to publish change",
			log.NewFields().WithOperation(log.OpPublish).WithExpense(id, "", "", "").WithError(err).ToSlice()...)
		return
	}
	g.logger.DebugContext(ctx, "Change published", log.FieldExpenseID, id, log.FieldVersion, s.Version)
}
