package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSequencerRunsSameKeyInIssueOrder(t *testing.T) {
	s := newSequencer()
	ctx := context.Background()

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	first, err := s.acquire(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}

	// queue the waiters one after another so issue order is known
	tail := tailOf(s, "x")
	for i := 1; i <= 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := s.acquire(ctx, "x")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			release()
		}()
		tail = waitTailChange(t, s, "x", tail)
	}

	first()
	wg.Wait()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v", order)
	}
	if s.pending() != 0 {
		t.Fatalf("tails leaked: %d", s.pending())
	}
}

func tailOf(s *sequencer, key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tails[key]
}

// waitTailChange polls until a new caller has queued behind prev.
func waitTailChange(t *testing.T, s *sequencer, key string, prev chan struct{}) chan struct{} {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tail := tailOf(s, key); tail != prev {
			return tail
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("waiter never queued")
	return nil
}

func TestSequencerDifferentKeysDoNotWait(t *testing.T) {
	s := newSequencer()
	ctx := context.Background()
	releaseA, _ := s.acquire(ctx, "a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		release, err := s.acquire(ctx, "b")
		if err == nil {
			release()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("key b waited for key a")
	}
}

func TestSequencerCancelledWaiterKeepsOrder(t *testing.T) {
	s := newSequencer()
	releaseFirst, _ := s.acquire(context.Background(), "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.acquire(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	got := make(chan struct{})
	go func() {
		release, err := s.acquire(context.Background(), "x")
		if err == nil {
			release()
		}
		close(got)
	}()

	select {
	case <-got:
		t.Fatal("third caller ran before the first released")
	case <-time.After(20 * time.Millisecond):
	}
	releaseFirst()
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("third caller never ran")
	}
}
