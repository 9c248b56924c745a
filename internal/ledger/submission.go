package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"endurance-coach/internal/analysis"
)

// Kind is the type of a form submission
type Kind string

const (
	KindMorning       Kind = "morning"
	KindAfterActivity Kind = "after_activity"
	KindEvening       Kind = "evening"
)

// ParseKind accepts the canonical names and the form's German labels.
// Unknown input yields "", which applies every known field.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "morning", "morgens":
		return KindMorning
	case "after_activity", "nach aktivität", "nach aktivitaet":
		return KindAfterActivity
	case "evening", "abends":
		return KindEvening
	}
	return ""
}

// fieldsByKind lists which columns each submission kind may write.
var fieldsByKind = map[Kind][]string{
	KindMorning: {
		"sleep_hours", "sleep_score", "resting_hr", "hrv", "hrv_low", "hrv_high",
		"hrv_thresholds", "readiness", "training_status",
	},
	KindAfterActivity: {
		"actual_load", "aerobic_te", "anaerobic_te", "sport", "zone", "kei",
		"observed_atl", "observed_ctl",
	},
	KindEvening: {
		"kcal_in", "kcal_out", "protein_g",
	},
}

// Submission is one filled-in form.
type Submission struct {
	Kind   Kind              `json:"kind"`
	Date   string            `json:"date"`
	Values map[string]string `json:"values"`
}

// Applied describes the outcome of ApplySubmission.
type Applied struct {
	Record  analysis.DailyRecord
	Updated []string
	Ignored []string
	// ClosesDay is set for an after-activity submission dated today.
	ClosesDay bool
}

// ApplySubmission writes the submission's fields into rec, which must be the
// ledger row for the submission date (a zero record is fine for a new day).
func ApplySubmission(rec analysis.DailyRecord, sub Submission, today time.Time) (Applied, error) {
	day, err := ParseDate(sub.Date)
	if err != nil {
		return Applied{}, err
	}
	if rec.Date.IsZero() {
		rec.Date = day
	} else if !analysis.SameDay(rec.Date, day) {
		return Applied{}, fmt.Errorf("%w: record %s does not match submission date %s",
			ErrInvalidValue, analysis.DayKey(rec.Date), analysis.DayKey(day))
	}

	allowed := allowedFields(sub.Kind)

	keys := make([]string, 0, len(sub.Values))
	for k := range sub.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := Applied{Record: rec}
	for _, k := range keys {
		key, known := canonical(k)
		if !known || !allowed[key] {
			out.Ignored = append(out.Ignored, k)
			continue
		}
		set, err := setField(&out.Record, key, sub.Values[k])
		if err != nil {
			return Applied{}, err
		}
		if set {
			out.Updated = append(out.Updated, key)
		}
	}

	out.ClosesDay = sub.Kind == KindAfterActivity && analysis.SameDay(day, today)
	return out, nil
}

func allowedFields(k Kind) map[string]bool {
	allowed := make(map[string]bool)
	fields, ok := fieldsByKind[k]
	if !ok {
		for _, fs := range fieldsByKind {
			fields = append(fields, fs...)
		}
	}
	for _, f := range fields {
		allowed[f] = true
	}
	return allowed
}
