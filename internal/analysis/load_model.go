package analysis

import (
	"fmt"
	"math"
	"time"
)

// LoadConfig holds the acute/chronic recurrence coefficients.
// Every field except the caps is required; nil means "not configured".
type LoadConfig struct {
	ScaleAcute    *float64 `json:"scale_acute" yaml:"scale_acute"`
	BiasAcute     *float64 `json:"bias_acute" yaml:"bias_acute"`
	ScaleChronic  *float64 `json:"scale_chronic" yaml:"scale_chronic"`
	BiasChronic   *float64 `json:"bias_chronic" yaml:"bias_chronic"`
	SmoothUp      *float64 `json:"smooth_up" yaml:"smooth_up"`
	SmoothDown    *float64 `json:"smooth_down" yaml:"smooth_down"`
	SmoothChronic *float64 `json:"smooth_chronic" yaml:"smooth_chronic"`
	CapUp         *float64 `json:"cap_up,omitempty" yaml:"cap_up,omitempty"`
	CapDown       *float64 `json:"cap_down,omitempty" yaml:"cap_down,omitempty"`
}

// State is the simulation state at the close of a day.
// History holds the chronic load of the 7 preceding days, oldest first.
type State struct {
	Acute   float64        `json:"atl" msgpack:"atl"`
	Chronic float64        `json:"ctl" msgpack:"ctl"`
	History FitnessHistory `json:"history" msgpack:"history"`
}

// LoadModel is a validated LoadConfig, ready for repeated stepping.
type LoadModel struct {
	scaleAcute, biasAcute     float64
	scaleChronic, biasChronic float64
	smoothUp, smoothDown      float64
	smoothChronic             float64

	capUp, capDown       float64
	hasCapUp, hasCapDown bool
}

// NewLoadModel validates cfg. Missing coefficients fail with ErrMissingConfiguration,
// out-of-range ones with ErrInvalidInput. No defaults are substituted.
func NewLoadModel(cfg LoadConfig) (*LoadModel, error) {
	required := []struct {
		name string
		v    *float64
	}{
		{"scale_acute", cfg.ScaleAcute},
		{"bias_acute", cfg.BiasAcute},
		{"scale_chronic", cfg.ScaleChronic},
		{"bias_chronic", cfg.BiasChronic},
		{"smooth_up", cfg.SmoothUp},
		{"smooth_down", cfg.SmoothDown},
		{"smooth_chronic", cfg.SmoothChronic},
	}
	for _, r := range required {
		if r.v == nil {
			return nil, missing(r.name)
		}
		if !isFinite(*r.v) {
			return nil, invalid(r.name, *r.v)
		}
	}

	m := &LoadModel{
		scaleAcute:    *cfg.ScaleAcute,
		biasAcute:     *cfg.BiasAcute,
		scaleChronic:  *cfg.ScaleChronic,
		biasChronic:   *cfg.BiasChronic,
		smoothUp:      *cfg.SmoothUp,
		smoothDown:    *cfg.SmoothDown,
		smoothChronic: *cfg.SmoothChronic,
	}

	smoothing := []struct {
		name string
		v    float64
	}{
		{"smooth_up", m.smoothUp},
		{"smooth_down", m.smoothDown},
		{"smooth_chronic", m.smoothChronic},
	}
	for _, s := range smoothing {
		if s.v < 0 || s.v > 1 {
			return nil, invalid(s.name, s.v)
		}
	}

	if cfg.CapUp != nil {
		if !isFinite(*cfg.CapUp) || *cfg.CapUp < 0 {
			return nil, invalid("cap_up", *cfg.CapUp)
		}
		m.capUp, m.hasCapUp = *cfg.CapUp, true
	}
	if cfg.CapDown != nil {
		if !isFinite(*cfg.CapDown) || *cfg.CapDown < 0 {
			return nil, invalid("cap_down", *cfg.CapDown)
		}
		m.capDown, m.hasCapDown = *cfg.CapDown, true
	}

	return m, nil
}

// Step advances s by one day with the given load using cfg.
func Step(s State, load float64, cfg LoadConfig) (State, error) {
	m, err := NewLoadModel(cfg)
	if err != nil {
		return s, err
	}
	return m.Step(s, load)
}

// Step advances s by one day:
//
//	stimulusAcute   = scaleAcute*load + biasAcute
//	smooth          = smoothUp if stimulusAcute > ATL else smoothDown
//	ATL'            = (1-smooth)*ATL + smooth*stimulusAcute, clamped by the caps
//	CTL'            = (1-smoothChronic)*CTL + smoothChronic*(scaleChronic*load + biasChronic)
//
// Both outputs are kept finite and non-negative.
func (m *LoadModel) Step(s State, load float64) (State, error) {
	if !isFinite(load) || load < 0 {
		return s, invalid("load", load)
	}

	stimAcute := m.scaleAcute*load + m.biasAcute
	stimChronic := m.scaleChronic*load + m.biasChronic

	smooth := m.smoothDown
	if stimAcute > s.Acute {
		smooth = m.smoothUp
	}

	acute := (1-smooth)*s.Acute + smooth*stimAcute
	if m.hasCapUp && acute > s.Acute+m.capUp {
		acute = s.Acute + m.capUp
	}
	if m.hasCapDown && acute < s.Acute-m.capDown {
		acute = s.Acute - m.capDown
	}

	chronic := (1-m.smoothChronic)*s.Chronic + m.smoothChronic*stimChronic

	return State{
		Acute:   nonNegative(acute, s.Acute),
		Chronic: nonNegative(chronic, s.Chronic),
		History: s.History.Push(s.Chronic),
	}, nil
}

// DayState is the closing state of one calendar day.
type DayState struct {
	Date  time.Time
	Load  float64
	State State
}

// Replay folds actual loads from the ledger into one closing state per day,
// from the first usable record through the given date (inclusive).
//
// The replay starts at the earliest record up to the given date carrying observed
// ATL/CTL when one exists, otherwise at zero state on the earliest record. Any later record with observed
// values overrides the modelled state for that day. Missing days count as rest days.
func Replay(records []DailyRecord, m *LoadModel, through time.Time) ([]DayState, error) {
	if len(records) == 0 {
		return nil, nil
	}

	sorted := sortRecords(records)
	byDay := indexByDay(sorted)
	end := Day(through)

	start := Day(sorted[0].Date)
	var state State
	anchored := false
	for _, r := range sorted {
		if Day(r.Date).After(end) {
			break
		}
		if r.ObservedAcute != nil && r.ObservedChronic != nil {
			start = Day(r.Date)
			state = State{
				Acute:   math.Max(0, *r.ObservedAcute),
				Chronic: math.Max(0, *r.ObservedChronic),
			}
			state.History = fillHistory(state.Chronic)
			anchored = true
			break
		}
	}
	if start.After(end) {
		return nil, nil
	}

	var out []DayState
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		rec, ok := byDay[DayKey(d)]
		load := 0.0
		if ok {
			load = rec.ActualLoad
		}

		if anchored && d.Equal(start) {
			out = append(out, DayState{Date: d, Load: load, State: state})
			continue
		}

		next, err := m.Step(state, load)
		if err != nil {
			return out, fmt.Errorf("replaying %s: %w", DayKey(d), err)
		}
		if ok && rec.ObservedAcute != nil && rec.ObservedChronic != nil {
			next.Acute = math.Max(0, *rec.ObservedAcute)
			next.Chronic = math.Max(0, *rec.ObservedChronic)
		}
		if len(out) == 0 {
			// first modelled day: no prior chronic values exist yet
			next.History = fillHistory(state.Chronic)
		}
		state = next
		out = append(out, DayState{Date: d, Load: load, State: state})
	}

	return out, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// nonNegative clamps v to [0, MaxFloat64]; NaN falls back to prev.
func nonNegative(v, prev float64) float64 {
	switch {
	case math.IsNaN(v):
		if isFinite(prev) && prev >= 0 {
			return prev
		}
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case v < 0:
		return 0
	}
	return v
}
