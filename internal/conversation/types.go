package conversation

import (
	"context"
	"time"
)

// Turn is one question/answer exchange. Immutable once appended.
type Turn struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Images    []string  `json:"images,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store owns per-session conversational history.
//
// History returns the bounded chronological suffix of a session's turns; an
// unseen session yields an empty slice, not an error. Reset clears a session's
// turns and is idempotent. Per-session mutations are serialized; distinct
// sessions never block one another.
type Store interface {
	History(ctx context.Context, sessionID string, limit int) ([]Turn, error)
	AppendTurn(ctx context.Context, sessionID string, turn Turn) error
	Reset(ctx context.Context, sessionID string) error
	Close() error
}
