package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/duelgrid/syncd/internal/engine/state"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS game_snapshots (
	session_id TEXT NOT NULL,
	version    INTEGER NOT NULL,
	checksum   TEXT NOT NULL,
	payload    BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, version)
)`

// SnapshotRepository stores gob-encoded, checksummed session snapshots.
type SnapshotRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSnapshotRepository creates a snapshot repository over the given pool.
func NewSnapshotRepository(db *DB, logger *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: db, logger: logger}
}

// EnsureSchema creates the snapshot table when absent.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return nil
}

// Save persists one snapshot, overwriting any prior row for the same
// session and version (versions are reused after an undo supersedes a
// branch, so the newest write wins).
func (r *SnapshotRepository) Save(ctx context.Context, s *state.GameState) error {
	payload, err := s.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	checksum := s.ComputeChecksum()

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO game_snapshots (session_id, version, checksum, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, version)
		DO UPDATE SET checksum = EXCLUDED.checksum, payload = EXCLUDED.payload, created_at = now()`,
		s.SessionID, s.Version, checksum.Hash, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	r.logger.Debug("snapshot saved",
		zap.String("session_id", s.SessionID),
		zap.Int("version", s.Version),
	)
	return nil
}

// Latest loads the highest-versioned snapshot for a session and verifies
// its checksum. Used by the coordination layer when a client's base version
// has fallen out of the in-memory window.
func (r *SnapshotRepository) Latest(ctx context.Context, sessionID string) (*state.GameState, error) {
	var (
		payload  []byte
		checksum string
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT payload, checksum FROM game_snapshots
		WHERE session_id = $1
		ORDER BY version DESC
		LIMIT 1`,
		sessionID,
	).Scan(&payload, &checksum)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for session %s: %w", sessionID, err)
	}

	s, err := state.Deserialize(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for session %s: %w", sessionID, err)
	}
	if got := s.ComputeChecksum().Hash; got != checksum {
		return nil, fmt.Errorf("snapshot checksum mismatch for session %s: stored=%s computed=%s",
			sessionID, checksum, got)
	}
	return s, nil
}
