package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"farmledger/internal/ports"

	"github.com/google/uuid"
)

// Store keeps records in process memory. It backs development runs and
// tests, and doubles as a mirror target.
type Store struct {
	mu      sync.Mutex
	items   []ports.Record
	lastNow time.Time
}

var (
	_ ports.ExpenseStore  = (*Store)(nil)
	_ ports.ExpenseMirror = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

func New(seed ...ports.Record) *Store {
	s := &Store{}
	for _, r := range seed {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.CreatedAt = s.now()
		s.items = append(s.items, r)
	}
	return s
}

// NewFromFile seeds the store from a JSON array of records. A missing file
// yields an empty store.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []ports.Record
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return New(seed...), nil
}

// now returns strictly increasing timestamps so creation order survives
// coarse clocks.
func (s *Store) now() time.Time {
	t := time.Now()
	if !t.After(s.lastNow) {
		t = s.lastNow.Add(time.Nanosecond)
	}
	s.lastNow = t
	return t
}

func (s *Store) ListExpenses(_ context.Context) ([]ports.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]ports.Record(nil), s.items...)
	ports.SortRecords(out)
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, r ports.Record) (ports.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.NewString()
	r.CreatedAt = s.now()
	s.items = append(s.items, r)
	return r, nil
}

func (s *Store) UpdateExpense(_ context.Context, r ports.Record) (ports.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(r.ID)
	if i < 0 {
		return ports.Record{}, fmt.Errorf("update %s: %w", r.ID, ports.ErrNotFound)
	}
	r.CreatedAt = s.items[i].CreatedAt
	s.items[i] = r
	return r, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, ports.ErrNotFound)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

// UpsertExpense stores r under its own id.
func (s *Store) UpsertExpense(_ context.Context, r ports.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		return errors.New("upsert requires an id")
	}
	if i := s.indexOf(r.ID); i >= 0 {
		r.CreatedAt = s.items[i].CreatedAt
		s.items[i] = r
		return nil
	}
	r.CreatedAt = s.now()
	s.items = append(s.items, r)
	return nil
}

func (s *Store) ReplaceAll(_ context.Context, records []ports.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]ports.Record, 0, len(records))
	// records arrive newest first; insert oldest first to keep their order
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		r.CreatedAt = s.now()
		s.items = append(s.items, r)
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len reports how many records are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.items {
		if r.ID == id {
			return i
		}
	}
	return -1
}
