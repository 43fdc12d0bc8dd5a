package ledger

import (
	"context"
	"errors"
	"sync"

	"farmledger/internal/adapters/memory"
	"farmledger/internal/ports"
)

var errUnavailable = errors.New("datastore unavailable")

// fakeStore wraps the memory store with failure injection, call recording
// and optional gates that hold a call until the test releases it.
type fakeStore struct {
	*memory.Store

	mu      sync.Mutex
	fail    map[string]error
	gates   map[string]chan struct{}
	calls   map[string]int
	entered chan string
	sent    []ports.Record
}

func newFakeStore(seed ...ports.Record) *fakeStore {
	return &fakeStore{
		Store:   memory.New(seed...),
		fail:    map[string]error{},
		gates:   map[string]chan struct{}{},
		calls:   map[string]int{},
		entered: make(chan string, 16),
	}
}

func (f *fakeStore) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

// gate makes the next calls of op wait until the returned channel is closed.
func (f *fakeStore) gate(op string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[op] = ch
	return ch
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) enter(ctx context.Context, op string, r *ports.Record) error {
	f.mu.Lock()
	f.calls[op]++
	if r != nil {
		f.sent = append(f.sent, *r)
	}
	gate := f.gates[op]
	err := f.fail[op]
	f.mu.Unlock()

	select {
	case f.entered <- op:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeStore) ListExpenses(ctx context.Context) ([]ports.Record, error) {
	if err := f.enter(ctx, "list", nil); err != nil {
		return nil, err
	}
	return f.Store.ListExpenses(ctx)
}

func (f *fakeStore) CreateExpense(ctx context.Context, r ports.Record) (ports.Record, error) {
	if err := f.enter(ctx, "create", &r); err != nil {
		return ports.Record{}, err
	}
	return f.Store.CreateExpense(ctx, r)
}

func (f *fakeStore) UpdateExpense(ctx context.Context, r ports.Record) (ports.Record, error) {
	if err := f.enter(ctx, "update", &r); err != nil {
		return ports.Record{}, err
	}
	return f.Store.UpdateExpense(ctx, r)
}

func (f *fakeStore) DeleteExpense(ctx context.Context, id string) error {
	if err := f.enter(ctx, "delete", nil); err != nil {
		return err
	}
	return f.Store.DeleteExpense(ctx, id)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []ports.Change
	err     error
}

func (p *recordingPublisher) PublishChange(_ context.Context, c ports.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return p.err
}
