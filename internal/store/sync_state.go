package store

import (
	"database/sql"
	"time"

	"endurance-coach/internal/analysis"
)

// Sync state keys
const (
	KeyLastActivitySync = "last_activity_sync"
	KeyClosedDate       = "closed_date"
	KeyLastImport       = "last_import"
)

// GetSyncState retrieves a sync state value by key
// Returns empty string if key doesn't exist
func (db *DB) GetSyncState(key string) (string, error) {
	var value string
	err := db.QueryRow(`
		SELECT value FROM sync_state WHERE key = ?
	`, key).Scan(&value)

	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSyncState sets a sync state value
func (db *DB) SetSyncState(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// CloseDay records that day's training is finished
func (db *DB) CloseDay(day time.Time) error {
	return db.SetSyncState(KeyClosedDate, analysis.DayKey(day))
}

// IsDayClosed reports whether day was closed
func (db *DB) IsDayClosed(day time.Time) (bool, error) {
	value, err := db.GetSyncState(KeyClosedDate)
	if err != nil {
		return false, err
	}
	return value == analysis.DayKey(day), nil
}
