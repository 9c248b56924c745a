package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"endurance-coach/internal/analysis"
)

const recordColumns = `date, planned_load, actual_load, aerobic_te, anaerobic_te,
	sleep_hours, sleep_score, resting_hr, hrv, hrv_low, hrv_high,
	readiness, training_status, kcal_in, kcal_out, protein_g, kei,
	observed_atl, observed_ctl, locked, phase, sport, zone`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertRecord inserts or replaces the ledger row for r.Date
func (db *DB) UpsertRecord(ctx context.Context, r analysis.DailyRecord) error {
	return upsertRecord(ctx, db, r)
}

// UpsertRecords writes all records in one transaction
func (db *DB) UpsertRecords(ctx context.Context, records []analysis.DailyRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if err := upsertRecord(ctx, tx, r); err != nil {
			return fmt.Errorf("writing %s: %w", analysis.DayKey(r.Date), err)
		}
	}
	return tx.Commit()
}

// GetRecord returns the ledger row for day
func (db *DB) GetRecord(ctx context.Context, day time.Time) (analysis.DailyRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM daily_records WHERE date = ?`, analysis.DayKey(day))
	if err != nil {
		return analysis.DailyRecord{}, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return analysis.DailyRecord{}, err
	}
	if len(records) == 0 {
		return analysis.DailyRecord{}, ErrRecordNotFound
	}
	return records[0], nil
}

// ListRecords returns rows with from <= date <= to, oldest first
func (db *DB) ListRecords(ctx context.Context, from, to time.Time) ([]analysis.DailyRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM daily_records
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`, analysis.DayKey(from), analysis.DayKey(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListAllRecords returns the whole ledger, oldest first
func (db *DB) ListAllRecords(ctx context.Context) ([]analysis.DailyRecord, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+recordColumns+` FROM daily_records ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func upsertRecord(ctx context.Context, ex execer, r analysis.DailyRecord) error {
	phase := r.Phase
	if phase == "" {
		phase = analysis.PhaseBuild
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO daily_records (`+recordColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
			planned_load = excluded.planned_load,
			actual_load = excluded.actual_load,
			aerobic_te = excluded.aerobic_te,
			anaerobic_te = excluded.anaerobic_te,
			sleep_hours = excluded.sleep_hours,
			sleep_score = excluded.sleep_score,
			resting_hr = excluded.resting_hr,
			hrv = excluded.hrv,
			hrv_low = excluded.hrv_low,
			hrv_high = excluded.hrv_high,
			readiness = excluded.readiness,
			training_status = excluded.training_status,
			kcal_in = excluded.kcal_in,
			kcal_out = excluded.kcal_out,
			protein_g = excluded.protein_g,
			kei = excluded.kei,
			observed_atl = excluded.observed_atl,
			observed_ctl = excluded.observed_ctl,
			locked = excluded.locked,
			phase = excluded.phase,
			sport = excluded.sport,
			zone = excluded.zone,
			updated_at = CURRENT_TIMESTAMP
	`,
		analysis.DayKey(r.Date), r.PlannedLoad, r.ActualLoad, r.AerobicTE, r.AnaerobicTE,
		r.SleepHours, r.SleepScore, r.RestingHR, r.HRV, r.HRVLow, r.HRVHigh,
		r.Readiness, r.TrainingStatus, r.KcalIn, r.KcalOut, r.ProteinGrams, r.KeyEffortIndex,
		r.ObservedAcute, r.ObservedChronic, boolToInt(r.Locked), string(phase), r.Sport, r.Zone,
	)
	return err
}

func scanRecords(rows *sql.Rows) ([]analysis.DailyRecord, error) {
	var records []analysis.DailyRecord

	for rows.Next() {
		var r analysis.DailyRecord
		var date, phase string
		var locked int

		err := rows.Scan(
			&date, &r.PlannedLoad, &r.ActualLoad, &r.AerobicTE, &r.AnaerobicTE,
			&r.SleepHours, &r.SleepScore, &r.RestingHR, &r.HRV, &r.HRVLow, &r.HRVHigh,
			&r.Readiness, &r.TrainingStatus, &r.KcalIn, &r.KcalOut, &r.ProteinGrams, &r.KeyEffortIndex,
			&r.ObservedAcute, &r.ObservedChronic, &locked, &phase, &r.Sport, &r.Zone,
		)
		if err != nil {
			return nil, err
		}

		r.Date, err = time.Parse(analysis.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", date, err)
		}
		r.Locked = locked == 1
		r.Phase = analysis.Phase(phase)

		records = append(records, r)
	}

	return records, rows.Err()
}
