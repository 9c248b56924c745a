package analysis

import (
	"errors"
	"math"
	"testing"
	"time"
)

func newTestOptimizer(t *testing.T, lc LoadConfig, oc OptimizerConfig) *Optimizer {
	t.Helper()
	m, err := NewLoadModel(lc)
	if err != nil {
		t.Fatal(err)
	}
	o, err := NewOptimizer(m, oc)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

// fitnessOnlyConfig makes the acute load ignore training so only the chronic
// term, and therefore the cap penalty, shapes the choice.
func fitnessOnlyConfig() LoadConfig {
	c := testLoadConfig()
	c.ScaleAcute = floatPtr(0)
	c.ScaleChronic = floatPtr(1)
	return c
}

func TestChooseRespectsPhaseCeiling(t *testing.T) {
	o := newTestOptimizer(t, testLoadConfig(), DefaultOptimizerConfig())
	state := State{Acute: 50, Chronic: 50, History: fillHistory(50)}

	tests := []struct {
		phase Phase
		want  float64
	}{
		// deload: (40+0.2c)/(45+0.02c) <= 1.0 holds up to c = 27.7
		{PhaseDeload, 25},
		// build: (25+0.5c)/(45+0.02c) <= 1.2 holds up to c = 60.9
		{PhaseBuild, 60},
		{"", 60},
	}
	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			load, next, noSafe, err := o.Choose(state, tt.phase)
			if err != nil {
				t.Fatal(err)
			}
			if load != tt.want || noSafe {
				t.Errorf("Choose() = %v (noSafe=%v), want %v", load, noSafe, tt.want)
			}
			if r := RiskRatio(next.Acute, next.Chronic); r > DefaultOptimizerConfig().Ceiling(tt.phase) {
				t.Errorf("chosen ratio %v breaches ceiling", r)
			}
		})
	}
}

func TestChoosePenalizesLoadAboveCap(t *testing.T) {
	state := State{Chronic: 100, History: fillHistory(100)}

	o := newTestOptimizer(t, fitnessOnlyConfig(), DefaultOptimizerConfig())
	load, _, _, err := o.Choose(state, PhaseBuild)
	if err != nil {
		t.Fatal(err)
	}
	if load != 80 {
		t.Errorf("with penalty: load = %v, want cap 80", load)
	}

	noPenalty := DefaultOptimizerConfig()
	noPenalty.PenaltyWeight = 0
	o = newTestOptimizer(t, fitnessOnlyConfig(), noPenalty)
	load, _, _, err = o.Choose(state, PhaseBuild)
	if err != nil {
		t.Fatal(err)
	}
	if load != 180 {
		t.Errorf("without penalty: load = %v, want 180", load)
	}

	// a higher chronic load raises the cap to 0.4*CTL
	o = newTestOptimizer(t, fitnessOnlyConfig(), DefaultOptimizerConfig())
	load, _, _, err = o.Choose(State{Chronic: 300, History: fillHistory(300)}, PhaseBuild)
	if err != nil {
		t.Fatal(err)
	}
	if load != 120 {
		t.Errorf("cap at CTL 300: load = %v, want 120", load)
	}
}

func TestChooseTiesGoToLowestLoad(t *testing.T) {
	flat := testLoadConfig()
	flat.ScaleAcute = floatPtr(0)
	flat.ScaleChronic = floatPtr(0)

	o := newTestOptimizer(t, flat, DefaultOptimizerConfig())
	load, _, _, err := o.Choose(State{Acute: 10, Chronic: 20, History: fillHistory(20)}, PhaseBuild)
	if err != nil {
		t.Fatal(err)
	}
	if load != 0 {
		t.Errorf("load = %v, want 0", load)
	}
}

func TestChooseFallsBackToRest(t *testing.T) {
	o := newTestOptimizer(t, testLoadConfig(), DefaultOptimizerConfig())
	load, next, noSafe, err := o.Choose(State{Acute: 200, Chronic: 50, History: fillHistory(50)}, PhaseBuild)
	if err != nil {
		t.Fatal(err)
	}
	if load != 0 || !noSafe {
		t.Errorf("Choose() = %v (noSafe=%v), want 0 with noSafe", load, noSafe)
	}
	if math.Abs(next.Acute-160) > 1e-9 {
		t.Errorf("rest day acute = %v, want 160", next.Acute)
	}
}

func TestPlanKeepsLockedDays(t *testing.T) {
	o := newTestOptimizer(t, testLoadConfig(), DefaultOptimizerConfig())
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	days := []DailyRecord{
		{Date: base, Phase: PhaseBuild},
		{Date: base.AddDate(0, 0, 1), PlannedLoad: 173, Locked: true, Phase: PhaseBuild},
		{Date: base.AddDate(0, 0, 2), Phase: PhaseDeload},
		{Date: base.AddDate(0, 0, 3), PlannedLoad: 0, Locked: true},
	}
	seed := State{Acute: 50, Chronic: 50, History: fillHistory(50)}

	plan, err := o.Plan(seed, days)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != len(days) {
		t.Fatalf("plan length = %d, want %d", len(plan), len(days))
	}
	if plan[1].Load != 173 || !plan[1].Locked {
		t.Errorf("locked day load = %v, want 173", plan[1].Load)
	}
	if plan[3].Load != 0 || !plan[3].Locked {
		t.Errorf("locked rest day load = %v, want 0", plan[3].Load)
	}

	// each day starts from the previous day's committed state
	state := seed
	m, _ := NewLoadModel(testLoadConfig())
	for i, pd := range plan {
		want, err := m.Step(state, pd.Load)
		if err != nil {
			t.Fatal(err)
		}
		if pd.State != want {
			t.Errorf("day %d state = %+v, want %+v", i, pd.State, want)
		}
		state = want
	}
}

func TestPlanLockedNegativeLoad(t *testing.T) {
	o := newTestOptimizer(t, testLoadConfig(), DefaultOptimizerConfig())
	_, err := o.Plan(State{}, []DailyRecord{{Date: time.Now(), PlannedLoad: -10, Locked: true}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestNewOptimizerValidation(t *testing.T) {
	m, err := NewLoadModel(testLoadConfig())
	if err != nil {
		t.Fatal(err)
	}
	bad := DefaultOptimizerConfig()
	bad.StepSize = 0
	if _, err := NewOptimizer(m, bad); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero step: error = %v", err)
	}
	if _, err := NewOptimizer(nil, DefaultOptimizerConfig()); !errors.Is(err, ErrMissingConfiguration) {
		t.Errorf("nil model: error = %v", err)
	}
}
