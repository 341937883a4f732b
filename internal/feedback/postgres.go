package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists feedback records in PostgreSQL.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(ctx context.Context, databaseURL string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initFeedbackSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresLedger{pool: pool}, nil
}

func initFeedbackSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS feedback_records (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			machine_id TEXT NOT NULL DEFAULT '',
			question TEXT NOT NULL DEFAULT '',
			answer TEXT NOT NULL DEFAULT '',
			was_helpful BOOLEAN NOT NULL,
			feedback_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_records_session ON feedback_records (session_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_records_machine ON feedback_records (machine_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init feedback schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (l *PostgresLedger) Append(ctx context.Context, record Record) error {
	if strings.TrimSpace(record.SessionID) == "" {
		return ErrMissingSessionID
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := l.pool.Exec(ctx,
		`INSERT INTO feedback_records (id, session_id, machine_id, question, answer, was_helpful, feedback_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID,
		record.SessionID,
		record.MachineID,
		record.Question,
		record.Answer,
		record.WasHelpful,
		record.FeedbackText,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}

func (l *PostgresLedger) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	return l.list(ctx,
		`SELECT id, session_id, machine_id, question, answer, was_helpful, feedback_text, created_at
		 FROM feedback_records WHERE session_id=$1 ORDER BY created_at`, sessionID)
}

func (l *PostgresLedger) ListByMachine(ctx context.Context, machineID string) ([]Record, error) {
	return l.list(ctx,
		`SELECT id, session_id, machine_id, question, answer, was_helpful, feedback_text, created_at
		 FROM feedback_records WHERE machine_id=$1 ORDER BY created_at`, machineID)
}

func (l *PostgresLedger) list(ctx context.Context, query, key string) ([]Record, error) {
	rows, err := l.pool.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		err := row.Scan(&r.ID, &r.SessionID, &r.MachineID, &r.Question, &r.Answer, &r.WasHelpful, &r.FeedbackText, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect feedback rows: %w", err)
	}
	return records, nil
}

func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}
