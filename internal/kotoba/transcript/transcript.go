package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how a handled command ended.
const (
	OutcomeMatched   = "matched"
	OutcomeAnswered  = "answered"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
	OutcomeNoMatch   = "no_match"
	OutcomeError     = "error"
)

// Entry is one handled command. ID and Timestamp are assigned by Record when
// zero.
type Entry struct {
	ID        string
	Timestamp time.Time
	TraceID   string
	UserKey   string
	Command   string
	// Matched is the intent or question name the command resolved to, when
	// any.
	Matched sql.NullString
	// Kind is the result kind: intent, question or cancelled.
	Kind         string
	Outcome      string
	Reply        sql.NullString
	ErrorMessage sql.NullString
}

// Record writes one entry.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, ts, trace_id, user_key, command, matched, kind, outcome, reply, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Timestamp, e.TraceID, e.UserKey, e.Command, e.Matched, e.Kind, e.Outcome, e.Reply, e.ErrorMessage)
	if err != nil {
		return fmt.Errorf("record transcript: %w", err)
	}
	return nil
}

// Recent retrieves the newest entries, newest first. A non-positive limit
// defaults to 100.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, trace_id, user_key, command, matched, kind, outcome, reply, error_message
		FROM transcripts
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByTrace retrieves all entries sharing a trace ID, oldest first.
func (s *Store) ByTrace(ctx context.Context, traceID string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, trace_id, user_key, command, matched, kind, outcome, reply, error_message
		FROM transcripts
		WHERE trace_id = ?
		ORDER BY ts ASC, id ASC
	`, traceID)
	if err != nil {
		return nil, fmt.Errorf("query transcripts by trace: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByUser retrieves one user's newest entries, newest first.
func (s *Store) ByUser(ctx context.Context, userKey string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, trace_id, user_key, command, matched, kind, outcome, reply, error_message
		FROM transcripts
		WHERE user_key = ?
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, userKey, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcripts by user: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		err := rows.Scan(
			&e.ID, &e.Timestamp, &e.TraceID, &e.UserKey, &e.Command,
			&e.Matched, &e.Kind, &e.Outcome, &e.Reply, &e.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}
	return entries, nil
}
