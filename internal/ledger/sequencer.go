package ledger

import (
	"context"
	"sync"
)

// sequencer hands out per-key turns in the order they were requested.
// Each caller waits for the previous holder of the same key; different keys
// never wait on each other.
type sequencer struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newSequencer() *sequencer {
	return &sequencer{tails: make(map[string]chan struct{})}
}

// acquire blocks until every earlier caller for key has released. If ctx ends
// first the turn is still consumed in order, so later callers are not
// reordered, and ctx.Err() is returned.
func (s *sequencer) acquire(ctx context.Context, key string) (func(), error) {
	done := make(chan struct{})

	s.mu.Lock()
	prev := s.tails[key]
	s.tails[key] = done
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		if s.tails[key] == done {
			delete(s.tails, key)
		}
		s.mu.Unlock()
		close(done)
	}

	if prev == nil {
		return release, nil
	}
	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}

// pending reports how many keys currently have a holder.
func (s *sequencer) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tails)
}
