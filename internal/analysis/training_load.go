package analysis

import (
	"math"
	"sort"
	"time"
)

// HRZones represents athlete's heart rate zones
type HRZones struct {
	RestingHR float64 `json:"resting_hr" yaml:"resting_hr"`
	MaxHR     float64 `json:"max_hr" yaml:"max_hr"`
}

// DefaultZones returns sensible defaults if not configured
func DefaultZones() HRZones {
	return HRZones{
		RestingHR: 50,
		MaxHR:     185,
	}
}

// SessionSummary is the minimum an imported activity needs to yield a load.
type SessionSummary struct {
	Start      time.Time
	MovingTime int // seconds
	AverageHR  *float64
}

// TRIMP calculates Training Impulse (Banister model)
// TRIMP = duration (min) * ΔHR ratio * e^(b * ΔHR ratio)
// where b = 1.92 for men, 1.67 for women (using male default)
func TRIMP(s SessionSummary, zones HRZones) float64 {
	if s.AverageHR == nil || *s.AverageHR <= 0 || s.MovingTime <= 0 {
		return 0
	}
	duration := float64(s.MovingTime) / 60.0

	hrReserve := zones.MaxHR - zones.RestingHR
	if hrReserve <= 0 {
		return 0
	}

	hrRatio := (*s.AverageHR - zones.RestingHR) / hrReserve
	if hrRatio < 0 {
		hrRatio = 0
	}
	if hrRatio > 1 {
		hrRatio = 1
	}

	b := 1.92

	return duration * hrRatio * math.Exp(b*hrRatio)
}

// DailyLoad represents training load for a single day
type DailyLoad struct {
	Date  time.Time
	TRIMP float64
}

// SumDailyLoads collapses sessions into one load per calendar day, ordered by date.
func SumDailyLoads(sessions []SessionSummary, zones HRZones) []DailyLoad {
	byDay := make(map[string]*DailyLoad)
	for _, s := range sessions {
		key := DayKey(s.Start)
		dl, ok := byDay[key]
		if !ok {
			dl = &DailyLoad{Date: Day(s.Start)}
			byDay[key] = dl
		}
		dl.TRIMP += TRIMP(s, zones) // multiple activities on the same day add up
	}

	out := make([]DailyLoad, 0, len(byDay))
	for _, dl := range byDay {
		out = append(out, *dl)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// FormDescription returns a human-readable description of form (chronic minus acute).
func FormDescription(form float64) string {
	switch {
	case form > 25:
		return "Very fresh (possibly detrained)"
	case form > 10:
		return "Fresh and ready to race"
	case form > 0:
		return "Neutral - good for training"
	case form > -10:
		return "Slightly fatigued"
	case form > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}
