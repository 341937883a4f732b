package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestHistoryUnseenSessionIsEmpty(t *testing.T) {
	s := NewInMemoryStore(100)

	turns, err := s.History(context.Background(), "never-seen", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("History() for unseen session = %d turns, want 0", len(turns))
	}
}

func TestAppendAndBoundedHistory(t *testing.T) {
	s := NewInMemoryStore(100)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.AppendTurn(ctx, "s1", Turn{
			Question: fmt.Sprintf("q%d", i),
			Answer:   fmt.Sprintf("a%d", i),
		})
		if err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	turns, err := s.History(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("bounded History() = %d turns, want 3", len(turns))
	}
	// Most recent suffix, chronological order.
	for i, want := range []string{"q2", "q3", "q4"} {
		if turns[i].Question != want {
			t.Fatalf("turns[%d].Question = %q, want %q", i, turns[i].Question, want)
		}
	}
	if turns[0].ID == "" || turns[0].CreatedAt.IsZero() {
		t.Fatalf("appended turn missing ID or timestamp: %+v", turns[0])
	}
}

func TestResetClearsHistory(t *testing.T) {
	s := NewInMemoryStore(100)
	ctx := context.Background()

	_ = s.AppendTurn(ctx, "s1", Turn{Question: "q", Answer: "a"})
	if err := s.Reset(ctx, "s1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	turns, err := s.History(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("History() after reset error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("History() after reset = %d turns, want 0", len(turns))
	}
}

func TestResetUnknownSessionSucceeds(t *testing.T) {
	s := NewInMemoryStore(100)
	if err := s.Reset(context.Background(), "ghost"); err != nil {
		t.Fatalf("Reset() for unknown session error = %v", err)
	}
}

func TestEvictionKeepsStoreAtCap(t *testing.T) {
	s := NewInMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = s.AppendTurn(ctx, fmt.Sprintf("s%d", i), Turn{Question: "q", Answer: "a"})
	}

	if got := s.SessionCount(); got != 3 {
		t.Fatalf("SessionCount() = %d, want 3", got)
	}
}

func TestExpireIdle(t *testing.T) {
	s := NewInMemoryStore(100)
	ctx := context.Background()

	_ = s.AppendTurn(ctx, "s1", Turn{Question: "q", Answer: "a"})

	if n := s.ExpireIdle(time.Hour); n != 0 {
		t.Fatalf("ExpireIdle(1h) = %d, want 0", n)
	}
	if n := s.ExpireIdle(0); n != 1 {
		t.Fatalf("ExpireIdle(0) = %d, want 1", n)
	}
	if got := s.SessionCount(); got != 0 {
		t.Fatalf("SessionCount() after expiry = %d, want 0", got)
	}
}

func TestConcurrentSessionsDoNotInterleave(t *testing.T) {
	s := NewInMemoryStore(100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", w)
			for i := 0; i < 50; i++ {
				_ = s.AppendTurn(ctx, id, Turn{Question: fmt.Sprintf("q%d", i), Answer: "a"})
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < 8; w++ {
		id := fmt.Sprintf("s%d", w)
		turns, err := s.History(ctx, id, 0)
		if err != nil {
			t.Fatalf("History(%s) error = %v", id, err)
		}
		if len(turns) != 50 {
			t.Fatalf("History(%s) = %d turns, want 50", id, len(turns))
		}
		for i, turn := range turns {
			if want := fmt.Sprintf("q%d", i); turn.Question != want {
				t.Fatalf("session %s turn %d = %q, want %q (reordered append)", id, i, turn.Question, want)
			}
		}
	}
}
