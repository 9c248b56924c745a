package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"endurance-coach/internal/analysis"
)

var (
	// ErrInvalidValue is returned when a cell or form value cannot be parsed
	ErrInvalidValue = errors.New("ledger: invalid value")
	// ErrNoDate is returned when a submission or row carries no date
	ErrNoDate = errors.New("ledger: missing date")
)

var germanDate = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})`)

// ParseGermanFloat parses numbers written with a decimal comma ("1.234,5").
// Plain "7.5" is accepted too.
func ParseGermanFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty number", ErrInvalidValue)
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
	}
	return v, nil
}

// ParseDate accepts DD.MM.YYYY (optionally followed by a time) or YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrNoDate
	}
	if m := germanDate.FindStringSubmatch(s); m != nil {
		t, err := time.Parse("02.01.2006", m[1]+"."+m[2]+"."+m[3])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidValue, s)
		}
		return t, nil
	}
	if len(s) >= len(analysis.DateLayout) {
		if t, err := time.Parse(analysis.DateLayout, s[:len(analysis.DateLayout)]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q (expected DD.MM.YYYY)", ErrInvalidValue, s)
}

type setter func(r *analysis.DailyRecord, raw string) error

func number(dst func(*analysis.DailyRecord) *float64) setter {
	return func(r *analysis.DailyRecord, raw string) error {
		v, err := ParseGermanFloat(raw)
		if err != nil {
			return err
		}
		*dst(r) = v
		return nil
	}
}

func optional(dst func(*analysis.DailyRecord) **float64) setter {
	return func(r *analysis.DailyRecord, raw string) error {
		v, err := ParseGermanFloat(raw)
		if err != nil {
			return err
		}
		*dst(r) = &v
		return nil
	}
}

func text(dst func(*analysis.DailyRecord) *string) setter {
	return func(r *analysis.DailyRecord, raw string) error {
		*dst(r) = raw
		return nil
	}
}

// setters maps canonical column names to their record field.
var setters = map[string]setter{
	"planned_load":    number(func(r *analysis.DailyRecord) *float64 { return &r.PlannedLoad }),
	"actual_load":     number(func(r *analysis.DailyRecord) *float64 { return &r.ActualLoad }),
	"aerobic_te":      number(func(r *analysis.DailyRecord) *float64 { return &r.AerobicTE }),
	"anaerobic_te":    number(func(r *analysis.DailyRecord) *float64 { return &r.AnaerobicTE }),
	"sleep_hours":     optional(func(r *analysis.DailyRecord) **float64 { return &r.SleepHours }),
	"sleep_score":     optional(func(r *analysis.DailyRecord) **float64 { return &r.SleepScore }),
	"resting_hr":      optional(func(r *analysis.DailyRecord) **float64 { return &r.RestingHR }),
	"hrv":             optional(func(r *analysis.DailyRecord) **float64 { return &r.HRV }),
	"hrv_low":         optional(func(r *analysis.DailyRecord) **float64 { return &r.HRVLow }),
	"hrv_high":        optional(func(r *analysis.DailyRecord) **float64 { return &r.HRVHigh }),
	"hrv_thresholds":  hrvRange,
	"readiness":       optional(func(r *analysis.DailyRecord) **float64 { return &r.Readiness }),
	"training_status": text(func(r *analysis.DailyRecord) *string { return &r.TrainingStatus }),
	"kcal_in":         optional(func(r *analysis.DailyRecord) **float64 { return &r.KcalIn }),
	"kcal_out":        optional(func(r *analysis.DailyRecord) **float64 { return &r.KcalOut }),
	"protein_g":       optional(func(r *analysis.DailyRecord) **float64 { return &r.ProteinGrams }),
	"kei":             optional(func(r *analysis.DailyRecord) **float64 { return &r.KeyEffortIndex }),
	"observed_atl":    optional(func(r *analysis.DailyRecord) **float64 { return &r.ObservedAcute }),
	"observed_ctl":    optional(func(r *analysis.DailyRecord) **float64 { return &r.ObservedChronic }),
	"sport":           text(func(r *analysis.DailyRecord) *string { return &r.Sport }),
	"zone":            text(func(r *analysis.DailyRecord) *string { return &r.Zone }),
	"locked":          flag,
	"phase":           phase,
}

// aliases maps the workbook's historical headers onto canonical names.
var aliases = map[string]string{
	"load_fb_day":               "actual_load",
	"planned_load_fb":           "planned_load",
	"sleep_score_0_100":         "sleep_score",
	"rhr_bpm":                   "resting_hr",
	"hrv_status":                "hrv",
	"hrv_threshholds":           "hrv_thresholds",
	"garmin_training_readiness": "readiness",
	"trainingszustand":          "training_status",
	"fbatl_obs":                 "observed_atl",
	"fbctl_obs":                 "observed_ctl",
	"sport_x":                   "sport",
	"garminendurancescore":      "kei",
}

// canonical normalizes a header or form key. ok is false for unknown columns.
func canonical(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[key]; ok {
		key = a
	}
	_, ok := setters[key]
	return key, ok
}

// setField parses raw into the column named by key. Blank values are skipped.
func setField(r *analysis.DailyRecord, key, raw string) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return false, nil
	}
	set, ok := setters[key]
	if !ok {
		return false, nil
	}
	if err := set(r, strings.TrimSpace(raw)); err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return true, nil
}

// hrvRange reads "55-70" style thresholds into the low/high bounds.
func hrvRange(r *analysis.DailyRecord, raw string) error {
	lo, hi, ok := strings.Cut(raw, "-")
	if !ok {
		return fmt.Errorf("%w: hrv range %q", ErrInvalidValue, raw)
	}
	low, err := ParseGermanFloat(lo)
	if err != nil {
		return err
	}
	high, err := ParseGermanFloat(hi)
	if err != nil {
		return err
	}
	r.HRVLow, r.HRVHigh = &low, &high
	return nil
}

func flag(r *analysis.DailyRecord, raw string) error {
	switch strings.ToLower(raw) {
	case "x", "1", "true", "yes", "ja":
		r.Locked = true
	case "0", "false", "no", "nein":
		r.Locked = false
	default:
		return fmt.Errorf("%w: flag %q", ErrInvalidValue, raw)
	}
	return nil
}

func phase(r *analysis.DailyRecord, raw string) error {
	switch strings.ToLower(raw) {
	case "deload", "entlastung":
		r.Phase = analysis.PhaseDeload
	case "build", "aufbau":
		r.Phase = analysis.PhaseBuild
	default:
		return fmt.Errorf("%w: phase %q", ErrInvalidValue, raw)
	}
	return nil
}
