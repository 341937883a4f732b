package feedback

import (
	"context"
	"errors"
	"time"
)

// ErrMissingSessionID is the only validation failure Append can report.
var ErrMissingSessionID = errors.New("feedback record requires a session id")

// Record is one operator evaluation of a prior answer. Records reference a
// session by id but do not require it to still exist; feedback about a
// cleared or expired session is accepted.
type Record struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	MachineID    string    `json:"machine_id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	WasHelpful   bool      `json:"was_helpful"`
	FeedbackText string    `json:"feedback_text,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ledger is an append-only, audit-grade store of feedback records. No update
// or delete operation exists. The list methods back internal analytics only.
type Ledger interface {
	Append(ctx context.Context, record Record) error
	ListBySession(ctx context.Context, sessionID string) ([]Record, error)
	ListByMachine(ctx context.Context, machineID string) ([]Record, error)
	Close() error
}
