package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"endurance-coach/internal/analysis"
	"endurance-coach/internal/config"
)

// Format renders ledger and forecast values according to display preferences
type Format struct {
	cfg config.DisplayConfig
}

// NewFormat creates a formatter with the given display config
func NewFormat(cfg config.DisplayConfig) Format {
	return Format{cfg: cfg}
}

// ChartHeight returns the configured chart height, at least 4 rows
func (f Format) ChartHeight() int {
	if f.cfg.ChartHeight < 4 {
		return 4
	}
	return f.cfg.ChartHeight
}

// Day formats a calendar date as "Mon 02.01."
func (f Format) Day(t time.Time) string {
	return t.Format("Mon 02.01.")
}

// Since renders how long ago t was ("3 minutes ago")
func (f Format) Since(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// Load formats a training load with thousands separators
func (f Format) Load(v float64) string {
	return humanize.Comma(int64(v + 0.5))
}

// Optional formats a nullable ledger value. Missing values render as "-".
func (f Format) Optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

// Ratio formats an acute:chronic ratio. A zero chronic load yields 0.
func (f Format) Ratio(s analysis.State) string {
	if s.Chronic <= 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", s.Acute/s.Chronic)
}

// Flags lists the markers set on a forecast day
func (f Format) Flags(d analysis.ForecastDay) string {
	var out []string
	if d.Locked {
		out = append(out, "locked")
	}
	if d.Overkill {
		out = append(out, "overkill")
	}
	if d.NoSafeLoad {
		out = append(out, "no safe load")
	}
	return strings.Join(out, " ")
}

func truncateName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
