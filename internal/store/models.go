package store

import "time"

// Auth represents OAuth tokens for Strava API access
type Auth struct {
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// Activity represents a Strava activity summary
type Activity struct {
	ID               int64     `db:"id"`
	AthleteID        int64     `db:"athlete_id"`
	Name             string    `db:"name"`
	Type             string    `db:"type"`
	StartDate        time.Time `db:"start_date"`
	StartDateLocal   time.Time `db:"start_date_local"`
	Timezone         string    `db:"timezone"`
	Distance         float64   `db:"distance"`          // meters
	MovingTime       int       `db:"moving_time"`       // seconds
	ElapsedTime      int       `db:"elapsed_time"`      // seconds
	AverageHeartrate *float64  `db:"average_heartrate"` // nullable
	MaxHeartrate     *float64  `db:"max_heartrate"`     // nullable
	SufferScore      *int      `db:"suffer_score"`      // nullable
	HasHeartrate     bool      `db:"has_heartrate"`
}

// ForecastRun is a stored forecast header
type ForecastRun struct {
	ID          string    `db:"id"`
	GeneratedAt time.Time `db:"generated_at"`
	SeedDate    time.Time `db:"seed_date"`
	SeedSource  string    `db:"seed_source"`
	Overall     *float64  `db:"overall"` // nil when unscoreable
}
