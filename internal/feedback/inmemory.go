package feedback

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryLedger keeps feedback records in process memory.
type InMemoryLedger struct {
	mu      sync.RWMutex
	records []Record
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{}
}

func (l *InMemoryLedger) Append(_ context.Context, record Record) error {
	if strings.TrimSpace(record.SessionID) == "" {
		return ErrMissingSessionID
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

func (l *InMemoryLedger) ListBySession(_ context.Context, sessionID string) ([]Record, error) {
	return l.filter(func(r Record) bool { return r.SessionID == sessionID }), nil
}

func (l *InMemoryLedger) ListByMachine(_ context.Context, machineID string) ([]Record, error) {
	return l.filter(func(r Record) bool { return r.MachineID == machineID }), nil
}

func (l *InMemoryLedger) filter(match func(Record) bool) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Record
	for _, r := range l.records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (l *InMemoryLedger) Close() error { return nil }
