package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Score is a normalized metric score in [0, 100]. The zero value is Unscoreable,
// which is distinct from a genuine score of 0.
type Score struct {
	Value float64
	Valid bool
}

// Unscoreable marks a metric whose inputs were missing or non-finite.
var Unscoreable = Score{}

// Scored wraps v, clamped to [0, 100]. Non-finite values become Unscoreable.
func Scored(v float64) Score {
	if !isFinite(v) {
		return Unscoreable
	}
	return Score{Value: clampScore(v), Valid: true}
}

func (s Score) String() string {
	if !s.Valid {
		return "—"
	}
	return fmt.Sprintf("%.0f", s.Value)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Score) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = Unscoreable
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Scored(v)
	return nil
}

// Normalize maps value linearly so that optimal scores 100 and bad scores 0.
// optimal < bad means lower is better; optimal > bad means higher is better.
// Any non-finite argument or result yields 0.
func Normalize(value, optimal, bad float64) float64 {
	if !isFinite(value) || !isFinite(optimal) || !isFinite(bad) {
		return 0
	}
	if optimal == bad {
		if value == optimal {
			return 100
		}
		return 0
	}
	s := (bad - value) / (bad - optimal) * 100
	if !isFinite(s) {
		return 0
	}
	return clampScore(s)
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Band parameters for the specialized normalizers.
const (
	hrDeviationOptimal = 0.0 // bpm above baseline
	hrDeviationBad     = 8.0

	sleepHoursOptimal = 8.0
	sleepHoursBad     = 4.0
	sleepScoreOptimal = 90.0
	sleepScoreBad     = 40.0

	// kcal in minus kcal out
	nutritionOptimalLow  = -500.0
	nutritionOptimalHigh = 100.0
	nutritionBadLow      = -1200.0
	nutritionBadHigh     = 800.0

	// g per kg bodyweight
	proteinMid  = 0.8
	proteinGoal = 1.6

	progressOptimalLow  = 95.0
	progressOptimalHigh = 190.0
	progressBadLow      = 0.0
	progressBadHigh     = 260.0
)

// HeartRateDeviationScore scores resting HR against its trailing baseline.
// At or below the baseline scores 100, 8 bpm above scores 0.
func HeartRateDeviationScore(restingHR *float64, baseline float64) Score {
	if restingHR == nil || !isFinite(*restingHR) || !isFinite(baseline) || baseline <= 0 {
		return Unscoreable
	}
	return Scored(Normalize(*restingHR-baseline, hrDeviationOptimal, hrDeviationBad))
}

// HRVScore is 100 inside [low, high] and above high; below low it falls linearly
// to 0 at low-(high-low).
func HRVScore(hrv, low, high *float64) Score {
	if hrv == nil || low == nil || high == nil {
		return Unscoreable
	}
	v, lo, hi := *hrv, *low, *high
	if !isFinite(v) || !isFinite(lo) || !isFinite(hi) || hi <= lo {
		return Unscoreable
	}
	if v >= lo {
		return Scored(100)
	}
	return Scored(Normalize(v, lo, lo-(hi-lo)))
}

func SleepHoursScore(hours float64) Score {
	if !isFinite(hours) || hours < 0 {
		return Unscoreable
	}
	return Scored(Normalize(hours, sleepHoursOptimal, sleepHoursBad))
}

func SleepQualityScore(score float64) Score {
	if !isFinite(score) || score < 0 {
		return Unscoreable
	}
	return Scored(Normalize(score, sleepScoreOptimal, sleepScoreBad))
}

// NutritionScore scores the daily energy balance. Anything in [-500, +100] kcal
// scores 100; the score reaches 0 at -1200 and at +800.
func NutritionScore(kcalIn, kcalOut *float64) Score {
	if kcalIn == nil || kcalOut == nil || !isFinite(*kcalIn) || !isFinite(*kcalOut) {
		return Unscoreable
	}
	balance := *kcalIn - *kcalOut
	switch {
	case balance < nutritionOptimalLow:
		return Scored(Normalize(balance, nutritionOptimalLow, nutritionBadLow))
	case balance > nutritionOptimalHigh:
		return Scored(Normalize(balance, nutritionOptimalHigh, nutritionBadHigh))
	}
	return Scored(100)
}

// ProteinScore is two-segment piecewise in g/kg: 0 to 0.8 rises 0 to 50,
// 0.8 to 1.6 rises 50 to 100, and 1.6 or more scores 100.
func ProteinScore(grams *float64, bodyWeightKg float64) Score {
	if grams == nil || !isFinite(*grams) || *grams < 0 || !isFinite(bodyWeightKg) || bodyWeightKg <= 0 {
		return Unscoreable
	}
	perKg := *grams / bodyWeightKg
	switch {
	case perKg >= proteinGoal:
		return Scored(100)
	case perKg >= proteinMid:
		return Scored(50 + (perKg-proteinMid)/(proteinGoal-proteinMid)*50)
	}
	return Scored(perKg / proteinMid * 50)
}

func ReadinessScore(readiness *float64) Score {
	if readiness == nil || !isFinite(*readiness) {
		return Unscoreable
	}
	return Scored(*readiness)
}

var trainingStatusScores = map[string]float64{
	"productive":   100,
	"peaking":      100,
	"maintaining":  75,
	"recovery":     60,
	"unproductive": 30,
	"detraining":   20,
	"overreaching": 10,
}

// TrainingStatusScore maps a device training-status label to a score.
// Unknown or empty labels are Unscoreable.
func TrainingStatusScore(status string) Score {
	v, ok := trainingStatusScores[strings.ToLower(strings.TrimSpace(status))]
	if !ok {
		return Unscoreable
	}
	return Scored(v)
}

// NormalizeProgress scores a progress value: [95, 190] is 100, falling to 0 at 0
// and at 260.
func NormalizeProgress(p float64) float64 {
	switch {
	case !isFinite(p):
		return 0
	case p < progressOptimalLow:
		return Normalize(p, progressOptimalLow, progressBadLow)
	case p > progressOptimalHigh:
		return Normalize(p, progressOptimalHigh, progressBadHigh)
	}
	return 100
}
