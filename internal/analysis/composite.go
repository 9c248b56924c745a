package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Band is the 5-level ordinal classification shared by every score.
type Band string

const (
	BandUnscored Band = ""
	BandPeak     Band = "Peak"
	BandHigh     Band = "High"
	BandModerate Band = "Moderate"
	BandLow      Band = "Low"
	BandCritical Band = "Critical"
)

// BandFor maps a score to its band: ≥95 Peak, [75,95) High, [50,75) Moderate,
// [25,50) Low, <25 Critical.
func BandFor(s Score) Band {
	if !s.Valid {
		return BandUnscored
	}
	switch v := s.Value; {
	case v >= 95:
		return BandPeak
	case v >= 75:
		return BandHigh
	case v >= 50:
		return BandModerate
	case v >= 25:
		return BandLow
	default:
		return BandCritical
	}
}

// Metric names.
const (
	MetricHeartRate      = "heart_rate_deviation"
	MetricSleepHours     = "sleep_hours"
	MetricSleepScore     = "sleep_score"
	MetricHRV            = "hrv_deviation"
	MetricReadiness      = "readiness"
	MetricNutrition      = "nutrition_balance"
	MetricProtein        = "protein"
	MetricIntensity      = "intensity_balance"
	MetricRisk           = "risk_ratio"
	MetricTrainingStatus = "training_status"
	MetricProgress       = "progress"
)

var metricWeights = map[string]float64{
	MetricHRV:       2,
	MetricReadiness: 2,
	MetricProgress:  2,
}

var recoveryMetrics = map[string]bool{
	MetricHeartRate:  true,
	MetricSleepHours: true,
	MetricSleepScore: true,
	MetricHRV:        true,
}

var trainingMetrics = map[string]bool{
	MetricIntensity:      true,
	MetricRisk:           true,
	MetricTrainingStatus: true,
	MetricProgress:       true,
}

// ScoredMetric is one named score with its raw input.
type ScoredMetric struct {
	Name   string   `json:"name"`
	Raw    *float64 `json:"raw"`
	Score  Score    `json:"score"`
	Band   Band     `json:"band"`
	// Weight 0 counts as 1; negative weights are left out of the roll-up.
	Weight float64  `json:"weight"`
}

// NewMetric builds a metric with its default weight and band.
// A non-finite raw value is dropped.
func NewMetric(name string, raw float64, score Score) ScoredMetric {
	w, ok := metricWeights[name]
	if !ok {
		w = 1
	}
	m := ScoredMetric{Name: name, Score: score, Band: BandFor(score), Weight: w}
	if isFinite(raw) {
		m.Raw = &raw
	}
	return m
}

// Summary is the weighted roll-up of a metric set.
type Summary struct {
	Overall      Score `json:"overall"`
	OverallBand  Band  `json:"overall_band"`
	Recovery     Score `json:"recovery"`
	RecoveryBand Band  `json:"recovery_band"`
	Training     Score `json:"training"`
	TrainingBand Band  `json:"training_band"`
}

// Aggregate computes the weighted mean of all scoreable metrics, and of the
// recovery and training subsets. A set with no scoreable metric is Unscoreable.
func Aggregate(metrics []ScoredMetric) Summary {
	overall := weightedMean(metrics, func(string) bool { return true })
	recovery := weightedMean(metrics, func(n string) bool { return recoveryMetrics[n] })
	training := weightedMean(metrics, func(n string) bool { return trainingMetrics[n] })

	return Summary{
		Overall:      overall,
		OverallBand:  BandFor(overall),
		Recovery:     recovery,
		RecoveryBand: BandFor(recovery),
		Training:     training,
		TrainingBand: BandFor(training),
	}
}

func weightedMean(metrics []ScoredMetric, include func(string) bool) Score {
	var x, w []float64
	for _, m := range metrics {
		if !include(m.Name) || !m.Score.Valid || m.Weight < 0 || math.IsNaN(m.Weight) {
			continue
		}
		weight := m.Weight
		if weight == 0 {
			weight = 1
		}
		x = append(x, m.Score.Value)
		w = append(w, weight)
	}
	if len(x) == 0 {
		return Unscoreable
	}
	return Scored(stat.Mean(x, w))
}
