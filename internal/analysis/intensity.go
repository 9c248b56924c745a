package analysis

import (
	"math"
	"time"
)

// IntensityConfig controls how training days are classified.
type IntensityConfig struct {
	Window               int     `json:"window" yaml:"window"`
	AnaerobicThreshold   float64 `json:"anaerobic_threshold" yaml:"anaerobic_threshold"`
	AerobicHighThreshold float64 `json:"aerobic_high_threshold" yaml:"aerobic_high_threshold"`
}

// DefaultIntensityConfig returns a 28-day window with anaerobic TE ≥ 2.0
// or aerobic TE ≥ 4.0 counting as intense.
func DefaultIntensityConfig() IntensityConfig {
	return IntensityConfig{
		Window:               28,
		AnaerobicThreshold:   2.0,
		AerobicHighThreshold: 4.0,
	}
}

// Ideal share of intense load.
const (
	intensityCorridorLow  = 0.25
	intensityCorridorHigh = 0.50
	intensityBad          = 0.70
	intensityExponent     = 1.7
)

// IntensityDay is one day of the rolling window.
type IntensityDay struct {
	Date        time.Time
	Load        float64
	AerobicTE   float64
	AnaerobicTE float64
}

// IsIntense reports whether d counts as an intense (non-base) day.
func (c IntensityConfig) IsIntense(d IntensityDay) bool {
	return d.AnaerobicTE >= c.AnaerobicThreshold || d.AerobicTE >= c.AerobicHighThreshold
}

// IntensityRatio returns the load-weighted share of intense days, always in [0, 1].
// Negative or non-finite loads contribute nothing.
func IntensityRatio(days []IntensityDay, cfg IntensityConfig) float64 {
	var intense, total float64
	for _, d := range days {
		if !isFinite(d.Load) || d.Load <= 0 {
			continue
		}
		total += d.Load
		if cfg.IsIntense(d) {
			intense += d.Load
		}
	}
	if total <= 0 || !isFinite(total) {
		return 0
	}
	return math.Max(0, math.Min(1, intense/total))
}

// HybridWindow builds the window of size days ending on end (inclusive). Days up to
// and including today use actual load, later days use planned load. Calendar holes
// inside the ledger are rest days. Days before the earliest record are padded with
// the earliest record; their count is returned.
func HybridWindow(records []DailyRecord, today, end time.Time, size int) ([]IntensityDay, int) {
	if size <= 0 {
		return nil, 0
	}
	today, end = Day(today), Day(end)
	start := end.AddDate(0, 0, -(size - 1))

	sorted := sortRecords(records)
	byDay := indexByDay(sorted)

	var earliest *DailyRecord
	if len(sorted) > 0 {
		earliest = &sorted[0]
	}

	days := make([]IntensityDay, 0, size)
	padded := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if earliest == nil {
			days = append(days, IntensityDay{Date: d})
			padded++
			continue
		}
		if d.Before(Day(earliest.Date)) {
			day := intensityDay(*earliest, today)
			day.Date = d
			days = append(days, day)
			padded++
			continue
		}
		rec, ok := byDay[DayKey(d)]
		if !ok {
			days = append(days, IntensityDay{Date: d})
			continue
		}
		days = append(days, intensityDay(rec, today))
	}
	return days, padded
}

func intensityDay(r DailyRecord, today time.Time) IntensityDay {
	load := r.ActualLoad
	if Day(r.Date).After(today) {
		load = r.PlannedLoad
	}
	return IntensityDay{
		Date:        Day(r.Date),
		Load:        load,
		AerobicTE:   r.AerobicTE,
		AnaerobicTE: r.AnaerobicTE,
	}
}

// NormalizeIntensity scores a ratio: the corridor [0.25, 0.50] scores 100, below it
// the score follows (r/0.25)^1.7*100, above it falls linearly to 0 at 0.70.
func NormalizeIntensity(r float64) float64 {
	switch {
	case !isFinite(r) || r <= 0:
		return 0
	case r < intensityCorridorLow:
		return clampScore(math.Pow(r/intensityCorridorLow, intensityExponent) * 100)
	case r <= intensityCorridorHigh:
		return 100
	}
	return Normalize(r, intensityCorridorHigh, intensityBad)
}
