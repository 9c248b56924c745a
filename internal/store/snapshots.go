package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"endurance-coach/internal/analysis"
)

// SnapshotRepo keeps the forecast snapshot in the snapshots table as a msgpack blob.
type SnapshotRepo struct {
	db *DB
}

var _ analysis.SnapshotRepository = (*SnapshotRepo)(nil)

// Snapshots returns the repository for the single snapshot slot
func (db *DB) Snapshots() *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Get returns the stored snapshot, or nil when the slot is empty.
// A payload that fails to decode is reported as an error.
func (r *SnapshotRepo) Get(ctx context.Context) (*analysis.Snapshot, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE key = ?`, analysis.SnapshotKey,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap analysis.Snapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	// msgpack decodes timestamps in the local zone
	snap.CaptureDate = snap.CaptureDate.UTC()
	snap.SeedDate = snap.SeedDate.UTC()
	snap.CreatedAt = snap.CreatedAt.UTC()
	return &snap, nil
}

// Put replaces the slot contents
func (r *SnapshotRepo) Put(ctx context.Context, s analysis.Snapshot) error {
	payload, err := msgpack.Marshal(&s)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, id, capture_date, payload, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			id = excluded.id,
			capture_date = excluded.capture_date,
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`, analysis.SnapshotKey, s.ID, analysis.DayKey(s.CaptureDate), payload)
	return err
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (r *SnapshotRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, analysis.SnapshotKey)
	return err
}
