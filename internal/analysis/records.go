package analysis

import (
	"sort"
	"time"
)

// DateLayout is the calendar-day format used for keys and JSON.
const DateLayout = "2006-01-02"

// Phase is the periodization phase of a planned day.
type Phase string

const (
	PhaseBuild  Phase = "build"
	PhaseDeload Phase = "deload"
)

// DailyRecord is one ledger row. Optional biometrics are nil when not recorded.
type DailyRecord struct {
	Date        time.Time `json:"date"`
	PlannedLoad float64   `json:"planned_load"`
	ActualLoad  float64   `json:"actual_load"`
	AerobicTE   float64   `json:"aerobic_te"`
	AnaerobicTE float64   `json:"anaerobic_te"`

	SleepHours *float64 `json:"sleep_hours,omitempty"`
	SleepScore *float64 `json:"sleep_score,omitempty"`
	RestingHR  *float64 `json:"resting_hr,omitempty"`
	HRV        *float64 `json:"hrv,omitempty"`
	HRVLow     *float64 `json:"hrv_low,omitempty"`
	HRVHigh    *float64 `json:"hrv_high,omitempty"`

	Readiness      *float64 `json:"readiness,omitempty"`
	TrainingStatus string   `json:"training_status,omitempty"`
	KcalIn         *float64 `json:"kcal_in,omitempty"`
	KcalOut        *float64 `json:"kcal_out,omitempty"`
	ProteinGrams   *float64 `json:"protein_g,omitempty"`
	KeyEffortIndex *float64 `json:"kei,omitempty"`

	// Externally observed ATL/CTL, used to anchor Replay.
	ObservedAcute   *float64 `json:"observed_atl,omitempty"`
	ObservedChronic *float64 `json:"observed_ctl,omitempty"`

	Locked bool   `json:"locked"`
	Phase  Phase  `json:"phase"`
	Sport  string `json:"sport,omitempty"`
	Zone   string `json:"zone,omitempty"`
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayKey formats a date as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}

// sortRecords returns a copy of records ordered by date.
func sortRecords(records []DailyRecord) []DailyRecord {
	sorted := make([]DailyRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// indexByDay maps YYYY-MM-DD to the record for that day. Later duplicates win.
func indexByDay(records []DailyRecord) map[string]DailyRecord {
	m := make(map[string]DailyRecord, len(records))
	for _, r := range records {
		m[DayKey(r.Date)] = r
	}
	return m
}
