package strava

import "time"

// Activity is the part of a /athlete/activities summary that can become a
// daily load. Strava sends 0 for metrics a device did not record.
type Activity struct {
	ID               int64     `json:"id"`
	Athlete          Athlete   `json:"athlete"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	StartDate        time.Time `json:"start_date"`
	StartDateLocal   time.Time `json:"start_date_local"`
	Timezone         string    `json:"timezone"`
	Distance         float64   `json:"distance"`     // meters
	MovingTime       int       `json:"moving_time"`  // seconds
	ElapsedTime      int       `json:"elapsed_time"` // seconds
	AverageHeartrate float64   `json:"average_heartrate"`
	MaxHeartrate     float64   `json:"max_heartrate"`
	SufferScore      int       `json:"suffer_score"`
	HasHeartrate     bool      `json:"has_heartrate"`
}

// Athlete identifies the activity owner
type Athlete struct {
	ID int64 `json:"id"`
}

// AverageHR is nil unless the activity carries heart rate data.
func (a Activity) AverageHR() *float64 {
	if !a.HasHeartrate {
		return nil
	}
	return positive(a.AverageHeartrate)
}

// MaxHR is nil unless the activity carries heart rate data.
func (a Activity) MaxHR() *float64 {
	if !a.HasHeartrate {
		return nil
	}
	return positive(a.MaxHeartrate)
}

// Effort is Strava's relative effort, nil when not computed.
func (a Activity) Effort() *int {
	if a.SufferScore <= 0 {
		return nil
	}
	v := a.SufferScore
	return &v
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
