package analysis

import (
	"fmt"
	"math"
	"time"
)

// OptimizerConfig holds the search grid and the risk constraints.
type OptimizerConfig struct {
	MinLoad       float64 `json:"min_load" yaml:"min_load"`
	MaxLoad       float64 `json:"max_load" yaml:"max_load"`
	StepSize      float64 `json:"step" yaml:"step"`
	CapFloor      float64 `json:"cap_floor" yaml:"cap_floor"`
	CapFraction   float64 `json:"cap_fraction" yaml:"cap_fraction"`
	PenaltyWeight float64 `json:"penalty_weight" yaml:"penalty_weight"`
	BuildCeiling  float64 `json:"build_ceiling" yaml:"build_ceiling"`
	DeloadCeiling float64 `json:"deload_ceiling" yaml:"deload_ceiling"`
}

// DefaultOptimizerConfig scans 0..180 in steps of 5 with a daily cap of
// max(80, 0.4*CTL), a penalty of 2 per load unit above the cap, and risk
// ceilings of 1.2 (build) and 1.0 (deload).
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		MinLoad:       0,
		MaxLoad:       180,
		StepSize:      5,
		CapFloor:      80,
		CapFraction:   0.4,
		PenaltyWeight: 2,
		BuildCeiling:  1.2,
		DeloadCeiling: 1.0,
	}
}

func (c OptimizerConfig) validate() error {
	switch {
	case !isFinite(c.StepSize) || c.StepSize <= 0:
		return invalid("optimizer.step", c.StepSize)
	case !isFinite(c.MinLoad) || c.MinLoad < 0:
		return invalid("optimizer.min_load", c.MinLoad)
	case !isFinite(c.MaxLoad) || c.MaxLoad < c.MinLoad:
		return invalid("optimizer.max_load", c.MaxLoad)
	case !isFinite(c.PenaltyWeight) || c.PenaltyWeight < 0:
		return invalid("optimizer.penalty_weight", c.PenaltyWeight)
	case !isFinite(c.BuildCeiling) || c.BuildCeiling <= 0:
		return invalid("optimizer.build_ceiling", c.BuildCeiling)
	case !isFinite(c.DeloadCeiling) || c.DeloadCeiling <= 0:
		return invalid("optimizer.deload_ceiling", c.DeloadCeiling)
	}
	return nil
}

// Ceiling returns the risk ratio limit for a phase. Anything but deload is build.
func (c OptimizerConfig) Ceiling(p Phase) float64 {
	if p == PhaseDeload {
		return c.DeloadCeiling
	}
	return c.BuildCeiling
}

// DailyCap is the load above which candidates are penalized.
func (c OptimizerConfig) DailyCap(chronic float64) float64 {
	return math.Max(c.CapFloor, chronic*c.CapFraction)
}

// PlannedDay is the optimizer's decision for one day.
type PlannedDay struct {
	Date     time.Time
	Load     float64
	State    State
	Risk     float64
	Progress float64
	Locked   bool
	Phase    Phase
	// NoSafeLoad is set when every candidate breached the risk ceiling
	// and the day fell back to rest.
	NoSafeLoad bool
}

// Optimizer proposes daily loads that maximize the progress score one day
// at a time. The search is greedy with a single day of lookahead, so the
// resulting sequence is not guaranteed to be optimal over the whole horizon.
type Optimizer struct {
	model *LoadModel
	cfg   OptimizerConfig
}

func NewOptimizer(model *LoadModel, cfg OptimizerConfig) (*Optimizer, error) {
	if model == nil {
		return nil, missing("model")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Optimizer{model: model, cfg: cfg}, nil
}

// Plan walks days in order from seed. Locked days keep their planned load;
// every other day gets the best candidate load.
func (o *Optimizer) Plan(seed State, days []DailyRecord) ([]PlannedDay, error) {
	state := seed
	out := make([]PlannedDay, 0, len(days))

	for _, d := range days {
		var (
			next   State
			load   float64
			noSafe bool
			err    error
		)
		if d.Locked {
			load = d.PlannedLoad
			next, err = o.model.Step(state, load)
		} else {
			load, next, noSafe, err = o.Choose(state, d.Phase)
		}
		if err != nil {
			return out, fmt.Errorf("planning %s: %w", DayKey(d.Date), err)
		}

		out = append(out, PlannedDay{
			Date:       Day(d.Date),
			Load:       load,
			State:      next,
			Risk:       RiskRatio(next.Acute, next.Chronic),
			Progress:   ProgressScore(next),
			Locked:     d.Locked,
			Phase:      d.Phase,
			NoSafeLoad: noSafe,
		})
		state = next
	}
	return out, nil
}

// Choose scans the candidate grid from state and returns the best load with its
// resulting state. Ties go to the lowest load. When every candidate breaches
// the phase ceiling the load is 0 and noSafe is true.
func (o *Optimizer) Choose(state State, phase Phase) (load float64, next State, noSafe bool, err error) {
	ceiling := o.cfg.Ceiling(phase)
	limit := o.cfg.DailyCap(state.Chronic)

	found := false
	best := math.Inf(-1)
	steps := int(math.Floor((o.cfg.MaxLoad-o.cfg.MinLoad)/o.cfg.StepSize + 1e-9))

	for i := 0; i <= steps; i++ {
		candidate := o.cfg.MinLoad + float64(i)*o.cfg.StepSize
		trial, err := o.model.Step(state, candidate)
		if err != nil {
			return 0, state, false, err
		}
		if RiskRatio(trial.Acute, trial.Chronic) > ceiling {
			continue
		}
		score := ProgressScore(trial) - o.cfg.PenaltyWeight*math.Max(0, candidate-limit)
		if !isFinite(score) {
			continue
		}
		if !found || score > best {
			found, best = true, score
			load, next = candidate, trial
		}
	}

	if !found {
		next, err = o.model.Step(state, 0)
		return 0, next, true, err
	}
	return load, next, false, nil
}
