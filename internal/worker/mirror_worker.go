package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"farmledger/internal/log"
	"farmledger/internal/ports"

	"github.com/robfig/cron/v3"
)

// MirrorWorker keeps a secondary copy of the ledger, typically a Google
// Sheet, in step with the primary store. Individual changes arrive over
// AMQP; a scheduled reconcile rewrites the whole mirror to repair anything a
// lost message left behind.
type MirrorWorker struct {
	source ports.ExpenseLister
	mirror ports.ExpenseMirror
	logger *log.Logger

	mu       sync.Mutex
	lastSync time.Time
	running  bool
	cron     *cron.Cron
}

func NewMirrorWorker(source ports.ExpenseLister, mirror ports.ExpenseMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		source: source,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange applies one change to the mirror. Deleting a record the
// mirror never had is not an error.
func (w *MirrorWorker) HandleChange(ctx context.Context, c ports.Change) error {
	switch c.Op {
	case ports.OpCreated, ports.OpUpdated:
		if c.Record == nil {
			return fmt.Errorf("%s change for %s without record", c.Op, c.ID)
		}
		r := *c.Record
		if r.ID == "" {
			r.ID = c.ID
		}
		if err := w.mirror.UpsertExpense(ctx, r); err != nil {
			return fmt.Errorf("mirror %s %s: %w", c.Op, c.ID, err)
		}
	case ports.OpDeleted:
		err := w.mirror.DeleteExpense(ctx, c.ID)
		if errors.Is(err, ports.ErrNotFound) {
			w.logger.WarnContext(ctx, "Deleted expense was not in the mirror", log.FieldExpenseID, c.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("mirror delete %s: %w", c.ID, err)
		}
	default:
		return fmt.Errorf("unknown change op %q", c.Op)
	}

	w.logger.InfoContext(ctx, "Mirrored expense change",
		log.FieldOperation, string(c.Op),
		log.FieldExpenseID, c.ID)
	return nil
}

// Reconcile replaces the mirror content with the primary store's list.
// Overlapping calls are skipped.
func (w *MirrorWorker) Reconcile(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.logger.InfoContext(ctx, "Reconcile already running, skipping")
		return nil
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	start := time.Now()
	records, err := w.source.ListExpenses(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: list primary store: %w", err)
	}
	if err := w.mirror.ReplaceAll(ctx, records); err != nil {
		return fmt.Errorf("reconcile: rewrite mirror: %w", err)
	}

	w.mu.Lock()
	w.lastSync = time.Now()
	w.mu.Unlock()
	w.logger.InfoContext(ctx, "Mirror reconciled",
		log.FieldOperation, log.OpSync,
		log.FieldCount, len(records),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// LastSync reports when the last successful reconcile finished.
func (w *MirrorWorker) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}

// StartSchedule runs Reconcile on spec (standard cron syntax or a
// descriptor such as "@every 15m") until ctx ends or Stop is called.
func (w *MirrorWorker) StartSchedule(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := w.Reconcile(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Scheduled reconcile failed", log.FieldError, err.Error())
		}
	}); err != nil {
		return fmt.Errorf("schedule reconcile %q: %w", spec, err)
	}

	w.mu.Lock()
	w.cron = c
	w.mu.Unlock()
	c.Start()
	w.logger.InfoContext(ctx, "Reconcile scheduled", "schedule", spec)

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running reconcile to finish.
func (w *MirrorWorker) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
