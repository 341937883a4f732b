package feedback

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestAppendIsAppendOnly(t *testing.T) {
	l := NewInMemoryLedger()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		err := l.Append(ctx, Record{
			SessionID:  "s1",
			MachineID:  "acs150",
			Question:   fmt.Sprintf("q%d", i),
			Answer:     fmt.Sprintf("a%d", i),
			WasHelpful: i%2 == 0,
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	records, err := l.ListBySession(ctx, "s1")
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("ledger holds %d records, want 4", len(records))
	}
	for i, r := range records {
		if r.Question != fmt.Sprintf("q%d", i) || r.Answer != fmt.Sprintf("a%d", i) {
			t.Fatalf("record %d does not match its input: %+v", i, r)
		}
		if r.ID == "" || r.CreatedAt.IsZero() {
			t.Fatalf("record %d missing ID or timestamp: %+v", i, r)
		}
	}
}

func TestAppendRequiresSessionID(t *testing.T) {
	l := NewInMemoryLedger()

	err := l.Append(context.Background(), Record{WasHelpful: true})
	if !errors.Is(err, ErrMissingSessionID) {
		t.Fatalf("Append() without session id error = %v, want ErrMissingSessionID", err)
	}
}

func TestUnhelpfulWithEmptyTextIsAccepted(t *testing.T) {
	l := NewInMemoryLedger()
	ctx := context.Background()

	err := l.Append(ctx, Record{SessionID: "s1", WasHelpful: false, FeedbackText: ""})
	if err != nil {
		t.Fatalf("Append() with wasHelpful=false and empty text error = %v", err)
	}

	records, _ := l.ListBySession(ctx, "s1")
	if len(records) != 1 {
		t.Fatalf("ledger holds %d records, want 1", len(records))
	}
	if records[0].WasHelpful || records[0].FeedbackText != "" {
		t.Fatalf("record stored with mutated fields: %+v", records[0])
	}
}

func TestListByMachine(t *testing.T) {
	l := NewInMemoryLedger()
	ctx := context.Background()

	_ = l.Append(ctx, Record{SessionID: "s1", MachineID: "m1", WasHelpful: true})
	_ = l.Append(ctx, Record{SessionID: "s2", MachineID: "m2", WasHelpful: true})
	_ = l.Append(ctx, Record{SessionID: "s3", MachineID: "m1", WasHelpful: false})

	records, err := l.ListByMachine(ctx, "m1")
	if err != nil {
		t.Fatalf("ListByMachine() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListByMachine(m1) = %d records, want 2", len(records))
	}
}

func TestFeedbackMayReferenceClearedSession(t *testing.T) {
	l := NewInMemoryLedger()

	// No session with this id exists anywhere; the ledger does not care.
	err := l.Append(context.Background(), Record{SessionID: "long-gone", WasHelpful: true})
	if err != nil {
		t.Fatalf("Append() referencing unknown session error = %v", err)
	}
}
