package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"endurance-coach/internal/analysis"
)

// SaveForecastRun stores f and its days, returning the run id
func (db *DB) SaveForecastRun(ctx context.Context, f *analysis.Forecast) (string, error) {
	id := uuid.NewString()

	var overall *float64
	if f.Summary.Overall.Valid {
		v := f.Summary.Overall.Value
		overall = &v
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO forecast_runs (id, generated_at, seed_date, seed_source, overall)
		VALUES (?, ?, ?, ?, ?)
	`, id, f.GeneratedAt.UTC().Format(time.RFC3339Nano), analysis.DayKey(f.SeedDate), string(f.SeedSource), overall)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, d := range f.Days {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO forecast_days (
				run_id, date, atl, ctl, risk_ratio, progress_score, intensity_ratio,
				recommended_load, band, locked, phase, overkill, no_safe_load
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, analysis.DayKey(d.Date), d.Acute, d.Chronic, d.RiskRatio, d.ProgressScore, d.IntensityRatio,
			d.RecommendedLoad, string(d.Band), boolToInt(d.Locked), string(d.Phase),
			boolToInt(d.Overkill), boolToInt(d.NoSafeLoad),
		)
		if err != nil {
			return "", fmt.Errorf("inserting day %s: %w", analysis.DayKey(d.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// LatestForecastRun returns the most recently generated run header
func (db *DB) LatestForecastRun(ctx context.Context) (*ForecastRun, error) {
	var run ForecastRun
	var generatedAt, seedDate string
	err := db.QueryRowContext(ctx, `
		SELECT id, generated_at, seed_date, seed_source, overall
		FROM forecast_runs
		ORDER BY generated_at DESC
		LIMIT 1
	`).Scan(&run.ID, &generatedAt, &seedDate, &run.SeedSource, &run.Overall)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrForecastNotFound
	}
	if err != nil {
		return nil, err
	}

	if run.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt); err != nil {
		return nil, fmt.Errorf("parsing generated_at %q: %w", generatedAt, err)
	}
	if run.SeedDate, err = time.Parse(analysis.DateLayout, seedDate); err != nil {
		return nil, fmt.Errorf("parsing seed_date %q: %w", seedDate, err)
	}
	return &run, nil
}

// PlannedDay returns the projection for day from the latest run that covers it
func (db *DB) PlannedDay(ctx context.Context, day time.Time) (analysis.ForecastDay, error) {
	var d analysis.ForecastDay
	var band, phase string
	var locked, overkill, noSafe int
	err := db.QueryRowContext(ctx, `
		SELECT fd.atl, fd.ctl, fd.risk_ratio, fd.progress_score, fd.intensity_ratio,
			fd.recommended_load, fd.band, fd.locked, fd.phase, fd.overkill, fd.no_safe_load
		FROM forecast_days fd
		JOIN forecast_runs fr ON fr.id = fd.run_id
		WHERE fd.date = ?
		ORDER BY fr.generated_at DESC
		LIMIT 1
	`, analysis.DayKey(day)).Scan(
		&d.Acute, &d.Chronic, &d.RiskRatio, &d.ProgressScore, &d.IntensityRatio,
		&d.RecommendedLoad, &band, &locked, &phase, &overkill, &noSafe,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.ForecastDay{}, ErrForecastNotFound
	}
	if err != nil {
		return analysis.ForecastDay{}, err
	}

	d.Date = analysis.Day(day)
	d.Band = analysis.ProgressBand(band)
	d.Phase = analysis.Phase(phase)
	d.Locked = locked == 1
	d.Overkill = overkill == 1
	d.NoSafeLoad = noSafe == 1
	return d, nil
}
