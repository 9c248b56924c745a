package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Activities (summary data from /athlete/activities)
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY,
			athlete_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			start_date TEXT NOT NULL,
			start_date_local TEXT NOT NULL,
			timezone TEXT,
			distance REAL NOT NULL,
			moving_time INTEGER NOT NULL,
			elapsed_time INTEGER NOT NULL,
			average_heartrate REAL,
			max_heartrate REAL,
			suffer_score INTEGER,
			has_heartrate INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start_date ON activities(start_date_local)`,

		// Ledger (one row per calendar day)
		`CREATE TABLE IF NOT EXISTS daily_records (
			date TEXT PRIMARY KEY,
			planned_load REAL NOT NULL DEFAULT 0,
			actual_load REAL NOT NULL DEFAULT 0,
			aerobic_te REAL NOT NULL DEFAULT 0,
			anaerobic_te REAL NOT NULL DEFAULT 0,
			sleep_hours REAL,
			sleep_score REAL,
			resting_hr REAL,
			hrv REAL,
			hrv_low REAL,
			hrv_high REAL,
			readiness REAL,
			training_status TEXT NOT NULL DEFAULT '',
			kcal_in REAL,
			kcal_out REAL,
			protein_g REAL,
			kei REAL,
			observed_atl REAL,
			observed_ctl REAL,
			locked INTEGER NOT NULL DEFAULT 0,
			phase TEXT NOT NULL DEFAULT 'build',
			sport TEXT NOT NULL DEFAULT '',
			zone TEXT NOT NULL DEFAULT '',
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Snapshot slot (msgpack payload, single key)
		`CREATE TABLE IF NOT EXISTS snapshots (
			key TEXT PRIMARY KEY,
			id TEXT NOT NULL,
			capture_date TEXT NOT NULL,
			payload BLOB NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Forecast runs and their projected days
		`CREATE TABLE IF NOT EXISTS forecast_runs (
			id TEXT PRIMARY KEY,
			generated_at TEXT NOT NULL,
			seed_date TEXT NOT NULL,
			seed_source TEXT NOT NULL,
			overall REAL
		)`,

		`CREATE TABLE IF NOT EXISTS forecast_days (
			run_id TEXT NOT NULL,
			date TEXT NOT NULL,
			atl REAL NOT NULL,
			ctl REAL NOT NULL,
			risk_ratio REAL NOT NULL,
			progress_score REAL NOT NULL,
			intensity_ratio REAL NOT NULL,
			recommended_load REAL NOT NULL,
			band TEXT NOT NULL,
			locked INTEGER NOT NULL,
			phase TEXT NOT NULL,
			overkill INTEGER NOT NULL,
			no_safe_load INTEGER NOT NULL,
			PRIMARY KEY (run_id, date),
			FOREIGN KEY (run_id) REFERENCES forecast_runs(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_forecast_days_date ON forecast_days(date)`,

		// Sync State (key-value store for sync tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
