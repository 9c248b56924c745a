package analysis

import "math"

// HistoryLen is the number of chronic values kept for the trend term.
const HistoryLen = 7

// FitnessHistory holds the last 7 chronic loads, oldest first.
type FitnessHistory [HistoryLen]float64

// Push drops the oldest value and appends v.
func (h FitnessHistory) Push(v float64) FitnessHistory {
	var next FitnessHistory
	copy(next[:], h[1:])
	next[HistoryLen-1] = v
	return next
}

func fillHistory(v float64) FitnessHistory {
	var h FitnessHistory
	for i := range h {
		h[i] = v
	}
	return h
}

// ProgressScore combines fitness trend over the last week, fitness level and
// a fatigue cost:
//
//	(CTL - history[0])*2 + CTL/10 - ATL*7/500
func ProgressScore(s State) float64 {
	trend := (s.Chronic - s.History[0]) * 2.0
	level := s.Chronic / 10.0
	fatigue := s.Acute * 7 / 500.0
	return trend + level - fatigue
}

// ProgressBand classifies a progress score.
type ProgressBand string

const (
	ProgressDetraining  ProgressBand = "Detraining"
	ProgressMaintenance ProgressBand = "Maintenance"
	ProgressProductive  ProgressBand = "Productive"
	ProgressPrime       ProgressBand = "Prime"
	ProgressOverkill    ProgressBand = "Overkill"

	// ProgressUnscored marks a score that is not a number.
	ProgressUnscored ProgressBand = ""
)

func (b ProgressBand) String() string {
	if b == ProgressUnscored {
		return "—"
	}
	return string(b)
}

// ClassifyProgress maps a score to its band:
// <39, [39,95), [95,142), [142,190], >190. NaN is unscored.
func ClassifyProgress(score float64) ProgressBand {
	switch {
	case math.IsNaN(score):
		return ProgressUnscored
	case score < 39:
		return ProgressDetraining
	case score < 95:
		return ProgressMaintenance
	case score < 142:
		return ProgressProductive
	case score <= 190:
		return ProgressPrime
	default:
		return ProgressOverkill
	}
}
