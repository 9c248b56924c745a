package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"endurance-coach/internal/analysis"
)

func TestConsoleForecast(t *testing.T) {
	raw := 1.12
	fc := &analysis.Forecast{
		GeneratedAt: time.Now(),
		SeedDate:    time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC),
		SeedSource:  analysis.SeedSnapshot,
		Seed:        analysis.State{Acute: 61.25, Chronic: 55},
		Days: []analysis.ForecastDay{
			{
				Date: time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC), Phase: analysis.PhaseBuild,
				RecommendedLoad: 1200, Acute: 62, Chronic: 56, RiskRatio: 1.1,
				ProgressScore: 150, Band: analysis.ProgressPrime, IntensityRatio: 0.4, Locked: true,
			},
			{
				Date: time.Date(2024, 9, 11, 0, 0, 0, 0, time.UTC), Phase: analysis.PhaseDeload,
				RecommendedLoad: 30, Acute: 55, Chronic: 55, RiskRatio: 1.0,
				Band: analysis.ProgressMaintenance, NoSafeLoad: true,
			},
		},
		Summary: analysis.Summary{
			Overall:     analysis.Scored(80),
			OverallBand: analysis.BandHigh,
			Recovery:    analysis.Unscoreable,
		},
		Metrics: []analysis.ScoredMetric{
			{Name: "acwr", Raw: &raw, Score: analysis.Scored(90), Band: analysis.BandHigh, Weight: 2},
			{Name: "sleep", Score: analysis.Unscoreable, Weight: 1},
		},
	}

	var buf bytes.Buffer
	NewConsoleWriter(&buf).Forecast(fc)
	out := buf.String()

	assert.Contains(t, out, "seeded from 2024-09-09 (snapshot)")
	assert.Contains(t, out, "Prime")
	assert.Contains(t, out, "locked")
	assert.Contains(t, out, "no safe load")
	assert.Contains(t, out, "1,230")
	assert.Contains(t, out, "Overall 80 High")
	assert.Contains(t, out, "Recovery — —")
	assert.Contains(t, out, "1.12")
	assert.Contains(t, out, "deload")
}
