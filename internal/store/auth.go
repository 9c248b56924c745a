package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNoAuth is returned when Strava has not been connected
var ErrNoAuth = errors.New("no strava authorization stored")

// KeyStravaAthlete records which athlete's activities fill the ledger
const KeyStravaAthlete = "strava_athlete_id"

// GetAuth returns the stored Strava tokens
func (db *DB) GetAuth(ctx context.Context) (*Auth, error) {
	var a Auth
	var expiresAt int64
	err := db.QueryRowContext(ctx,
		`SELECT athlete_id, access_token, refresh_token, expires_at FROM auth WHERE id = 1`,
	).Scan(&a.AthleteID, &a.AccessToken, &a.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAuth
	}
	if err != nil {
		return nil, err
	}
	a.ExpiresAt = time.Unix(expiresAt, 0)
	return &a, nil
}

// SaveAuth links an athlete: the tokens and the athlete id in sync state are
// written together.
func (db *DB) SaveAuth(ctx context.Context, a *Auth) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO auth (id, athlete_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, a.AthleteID, a.AccessToken, a.RefreshToken, a.ExpiresAt.Unix()); err != nil {
		return fmt.Errorf("saving tokens: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, KeyStravaAthlete, strconv.FormatInt(a.AthleteID, 10)); err != nil {
		return fmt.Errorf("saving athlete: %w", err)
	}

	return tx.Commit()
}

// UpdateTokens stores refreshed tokens for the linked athlete
func (db *DB) UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE auth
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, accessToken, refreshToken, expiresAt.Unix())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNoAuth
	}
	return nil
}

// LinkedAthlete returns the athlete id recorded at the last login, or 0.
func (db *DB) LinkedAthlete() (int64, error) {
	v, err := db.GetSyncState(KeyStravaAthlete)
	if err != nil || v == "" {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// Disconnect drops the stored tokens so the next sync logs in again.
// Synced activities and the ledger are kept.
func (db *DB) Disconnect(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM auth WHERE id = 1`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_state WHERE key = ?`, KeyStravaAthlete); err != nil {
		return err
	}
	return tx.Commit()
}
