package analysis

import (
	"math"
	"time"
)

// SignificantDeviation is the relative plan deviation, in percent, beyond
// which a review flags the difference.
const SignificantDeviation = 10.0

// Deviation compares one planned quantity with its actual value.
type Deviation struct {
	Metric      string   `json:"metric"`
	Planned     float64  `json:"planned"`
	Actual      float64  `json:"actual"`
	Diff        float64  `json:"diff"`
	Percent     *float64 `json:"percent"`
	Significant bool     `json:"significant"`
}

// Compare builds a deviation. With a planned value of zero there is no
// percentage and any non-zero actual counts as significant.
func Compare(metric string, planned, actual float64) Deviation {
	d := Deviation{Metric: metric, Planned: planned, Actual: actual, Diff: actual - planned}
	if planned == 0 || !isFinite(planned) || !isFinite(actual) {
		d.Significant = actual != 0 && isFinite(actual)
		return d
	}
	pct := d.Diff / math.Abs(planned) * 100
	d.Percent = &pct
	d.Significant = math.Abs(pct) > SignificantDeviation
	return d
}

// Review is the plan-versus-actual comparison for one day.
type Review struct {
	Date       time.Time   `json:"date"`
	Load       Deviation   `json:"load"`
	Acute      Deviation   `json:"atl"`
	Chronic    Deviation   `json:"ctl"`
	Risk       Deviation   `json:"acwr"`
	Sport      string      `json:"sport,omitempty"`
	Zone       string      `json:"zone,omitempty"`
	Deviations []Deviation `json:"-"`
}

// ReviewDay compares the forecast for a day with what the ledger replay produced.
func ReviewDay(planned ForecastDay, actual DayState, rec DailyRecord) Review {
	r := Review{
		Date:    Day(planned.Date),
		Load:    Compare("load", planned.RecommendedLoad, actual.Load),
		Acute:   Compare("atl", planned.Acute, actual.State.Acute),
		Chronic: Compare("ctl", planned.Chronic, actual.State.Chronic),
		Risk:    Compare("acwr", planned.RiskRatio, RiskRatio(actual.State.Acute, actual.State.Chronic)),
		Sport:   rec.Sport,
		Zone:    rec.Zone,
	}
	r.Deviations = []Deviation{r.Load, r.Acute, r.Chronic, r.Risk}
	return r
}

// Significant reports whether any compared quantity deviates significantly.
func (r Review) Significant() bool {
	for _, d := range r.Deviations {
		if d.Significant {
			return true
		}
	}
	return false
}
