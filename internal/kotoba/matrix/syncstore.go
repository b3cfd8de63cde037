package matrix

import (
	"context"
	"database/sql"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

var _ mautrix.SyncStore = (*sqlSyncStore)(nil)

// sqlSyncStore keeps the homeserver sync position in the transcript database.
// Without it every restart replays old room history, and the bot would answer
// commands it already answered. Rows live in matrix_sync_state, one per
// (user_id, key) pair.
type sqlSyncStore struct {
	db *sql.DB
}

// newSQLSyncStore wraps the given connection. The matrix_sync_state
// migration must have been applied before the store is used.
func newSQLSyncStore(db *sql.DB) *sqlSyncStore {
	return &sqlSyncStore{db: db}
}

func (s *sqlSyncStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return s.upsert(ctx, userID.String(), "filter_id", filterID)
}

func (s *sqlSyncStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.lookup(ctx, userID.String(), "filter_id")
}

func (s *sqlSyncStore) SaveNextBatch(ctx context.Context, userID id.UserID, nextBatchToken string) error {
	return s.upsert(ctx, userID.String(), "next_batch", nextBatchToken)
}

// LoadNextBatch yields ("", nil) on a fresh database; mautrix treats that as
// a first sync.
func (s *sqlSyncStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.lookup(ctx, userID.String(), "next_batch")
}

func (s *sqlSyncStore) upsert(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_sync_state (user_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value
	`, userID, key, value)
	return err
}

func (s *sqlSyncStore) lookup(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM matrix_sync_state WHERE user_id = ? AND key = ?
	`, userID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
