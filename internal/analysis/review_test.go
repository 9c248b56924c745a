package analysis

import (
	"math"
	"testing"
	"time"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name        string
		planned     float64
		actual      float64
		wantPercent *float64
		significant bool
	}{
		{"on plan", 100, 100, floatPtr(0), false},
		{"within ten percent", 100, 109, floatPtr(9), false},
		{"exactly ten percent", 100, 90, floatPtr(-10), false},
		{"above ten percent", 100, 115, floatPtr(15), true},
		{"unplanned session", 0, 40, nil, true},
		{"planned rest kept", 0, 0, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Compare("load", tt.planned, tt.actual)
			if d.Significant != tt.significant {
				t.Errorf("Significant = %v, want %v", d.Significant, tt.significant)
			}
			switch {
			case tt.wantPercent == nil && d.Percent != nil:
				t.Errorf("Percent = %v, want nil", *d.Percent)
			case tt.wantPercent != nil && (d.Percent == nil || math.Abs(*d.Percent-*tt.wantPercent) > 1e-9):
				t.Errorf("Percent = %v, want %v", d.Percent, *tt.wantPercent)
			}
			if d.Diff != tt.actual-tt.planned {
				t.Errorf("Diff = %v", d.Diff)
			}
		})
	}
}

func TestReviewDay(t *testing.T) {
	day := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	planned := ForecastDay{Date: day, RecommendedLoad: 80, Acute: 50, Chronic: 50, RiskRatio: 1.0}
	actual := DayState{Date: day, Load: 120, State: State{Acute: 60, Chronic: 51}}

	r := ReviewDay(planned, actual, DailyRecord{Date: day, Sport: "Run", Zone: "Z3"})

	if !r.Load.Significant || *r.Load.Percent != 50 {
		t.Errorf("Load = %+v", r.Load)
	}
	if r.Chronic.Significant {
		t.Errorf("Chronic 2%% off should not be significant: %+v", r.Chronic)
	}
	if math.Abs(r.Risk.Actual-60.0/51) > 1e-9 {
		t.Errorf("Risk actual = %v", r.Risk.Actual)
	}
	if !r.Significant() || r.Sport != "Run" || len(r.Deviations) != 4 {
		t.Errorf("review = %+v", r)
	}
}
