package analysis

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ScoringConfig holds the scoring inputs that are not part of the ledger.
// Sleep defaults stand in for nights with no recorded sleep and are required.
type ScoringConfig struct {
	SleepHoursDefault *float64 `json:"sleep_hours_default" yaml:"sleep_hours_default"`
	SleepScoreDefault *float64 `json:"sleep_score_default" yaml:"sleep_score_default"`
	BodyWeightKg      float64  `json:"body_weight_kg" yaml:"body_weight_kg"`
	BaselineDays      int      `json:"baseline_days" yaml:"baseline_days"`
}

// Validate checks that the required defaults are present.
func (c ScoringConfig) Validate() error {
	if c.SleepHoursDefault == nil {
		return missing("sleep_hours_default")
	}
	if c.SleepScoreDefault == nil {
		return missing("sleep_score_default")
	}
	if !isFinite(*c.SleepHoursDefault) || *c.SleepHoursDefault < 0 {
		return invalid("sleep_hours_default", *c.SleepHoursDefault)
	}
	if !isFinite(*c.SleepScoreDefault) || *c.SleepScoreDefault < 0 {
		return invalid("sleep_score_default", *c.SleepScoreDefault)
	}
	return nil
}

const defaultBaselineDays = 7

// RestingHRBaseline averages the resting HR recorded in the days window
// before day. ok is false when no value was recorded.
func RestingHRBaseline(records []DailyRecord, day time.Time, days int) (float64, bool) {
	if days <= 0 {
		days = defaultBaselineDays
	}
	day = Day(day)
	from := day.AddDate(0, 0, -days)

	var values []float64
	for _, r := range records {
		d := Day(r.Date)
		if d.Before(from) || !d.Before(day) {
			continue
		}
		if r.RestingHR != nil && isFinite(*r.RestingHR) && *r.RestingHR > 0 {
			values = append(values, *r.RestingHR)
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	return stat.Mean(values, nil), true
}

// MetricInputs is everything needed to score one day.
type MetricInputs struct {
	Day            DailyRecord
	History        []DailyRecord
	State          State
	IntensityRatio float64
}

// BuildMetrics scores every metric for one day. Missing inputs produce
// Unscoreable metrics, never errors.
func BuildMetrics(in MetricInputs, cfg ScoringConfig) []ScoredMetric {
	day := in.Day
	nan := math.NaN()

	metrics := make([]ScoredMetric, 0, 11)

	if baseline, ok := RestingHRBaseline(in.History, day.Date, cfg.BaselineDays); ok && day.RestingHR != nil {
		metrics = append(metrics, NewMetric(MetricHeartRate, *day.RestingHR-baseline,
			HeartRateDeviationScore(day.RestingHR, baseline)))
	} else {
		metrics = append(metrics, NewMetric(MetricHeartRate, nan, Unscoreable))
	}

	sleepHours := valueOr(day.SleepHours, cfg.SleepHoursDefault)
	metrics = append(metrics, NewMetric(MetricSleepHours, sleepHours, SleepHoursScore(sleepHours)))

	sleepScore := valueOr(day.SleepScore, cfg.SleepScoreDefault)
	metrics = append(metrics, NewMetric(MetricSleepScore, sleepScore, SleepQualityScore(sleepScore)))

	metrics = append(metrics, NewMetric(MetricHRV, deref(day.HRV), HRVScore(day.HRV, day.HRVLow, day.HRVHigh)))
	metrics = append(metrics, NewMetric(MetricReadiness, deref(day.Readiness), ReadinessScore(day.Readiness)))

	balance := nan
	if day.KcalIn != nil && day.KcalOut != nil {
		balance = *day.KcalIn - *day.KcalOut
	}
	metrics = append(metrics, NewMetric(MetricNutrition, balance, NutritionScore(day.KcalIn, day.KcalOut)))

	perKg := nan
	if day.ProteinGrams != nil && cfg.BodyWeightKg > 0 {
		perKg = *day.ProteinGrams / cfg.BodyWeightKg
	}
	metrics = append(metrics, NewMetric(MetricProtein, perKg, ProteinScore(day.ProteinGrams, cfg.BodyWeightKg)))

	ratio := in.IntensityRatio
	metrics = append(metrics, NewMetric(MetricIntensity, ratio, scoreIfFinite(ratio, NormalizeIntensity)))

	risk := nan
	progress := nan
	if isFinite(in.State.Acute) && isFinite(in.State.Chronic) {
		risk = RiskRatio(in.State.Acute, in.State.Chronic)
		progress = ProgressScore(in.State)
	}
	metrics = append(metrics, NewMetric(MetricRisk, risk, scoreIfFinite(risk, NormalizeRisk)))
	metrics = append(metrics, NewMetric(MetricTrainingStatus, nan, TrainingStatusScore(day.TrainingStatus)))
	metrics = append(metrics, NewMetric(MetricProgress, progress, scoreIfFinite(progress, NormalizeProgress)))

	return metrics
}

func scoreIfFinite(v float64, f func(float64) float64) Score {
	if !isFinite(v) {
		return Unscoreable
	}
	return Scored(f(v))
}

func valueOr(v, def *float64) float64 {
	if v != nil {
		return *v
	}
	if def != nil {
		return *def
	}
	return math.NaN()
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
