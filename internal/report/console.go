// Package report prints forecasts as console tables.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"endurance-coach/internal/analysis"
)

// Console writes forecast reports to a writer
type Console struct {
	out io.Writer
}

// NewConsole creates a report writing to stdout
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a report writing to w
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Forecast prints the seed line, the day table, the summary and the metrics
func (c *Console) Forecast(fc *analysis.Forecast) {
	fmt.Fprintf(c.out, "\nForecast generated %s, seeded from %s (%s)\n",
		humanize.Time(fc.GeneratedAt), analysis.DayKey(fc.SeedDate), fc.SeedSource)
	fmt.Fprintf(c.out, "  seed ATL %.1f  CTL %.1f\n", fc.Seed.Acute, fc.Seed.Chronic)
	if fc.PaddedDays > 0 || fc.HistoryPadded > 0 {
		fmt.Fprintf(c.out, "  padded %d horizon day(s), %d history day(s)\n", fc.PaddedDays, fc.HistoryPadded)
	}

	c.printDays(fc.Days)
	c.printSummary(fc.Summary)
	c.printMetrics(fc.Metrics)
}

func (c *Console) printDays(days []analysis.ForecastDay) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Phase", "Load", "ATL", "CTL", "ACWR", "Progress", "Band", "Int%", "Flags")

	var total float64
	for _, d := range days {
		total += d.RecommendedLoad
		table.Append(
			d.Date.Format("Mon 02.01."),
			string(d.Phase),
			fmt.Sprintf("%.0f", d.RecommendedLoad),
			fmt.Sprintf("%.1f", d.Acute),
			fmt.Sprintf("%.1f", d.Chronic),
			fmt.Sprintf("%.2f", d.RiskRatio),
			fmt.Sprintf("%.0f", d.ProgressScore),
			d.Band.String(),
			fmt.Sprintf("%.0f", d.IntensityRatio*100),
			flags(d),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "  planned load over %d days: %s\n", len(days), humanize.Comma(int64(total+0.5)))
}

func (c *Console) printSummary(s analysis.Summary) {
	fmt.Fprintf(c.out, "\nOverall %s %s | Recovery %s %s | Training %s %s\n",
		s.Overall, band(s.OverallBand),
		s.Recovery, band(s.RecoveryBand),
		s.Training, band(s.TrainingBand))
}

func (c *Console) printMetrics(metrics []analysis.ScoredMetric) {
	if len(metrics) == 0 {
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Raw", "Score", "Band", "Weight")
	for _, m := range metrics {
		raw := "—"
		if m.Raw != nil {
			raw = fmt.Sprintf("%.2f", *m.Raw)
		}
		table.Append(m.Name, raw, m.Score.String(), band(m.Band), fmt.Sprintf("%.1f", m.Weight))
	}
	table.Render()
}

func flags(d analysis.ForecastDay) string {
	var f []string
	if d.Locked {
		f = append(f, "locked")
	}
	if d.Overkill {
		f = append(f, "overkill")
	}
	if d.NoSafeLoad {
		f = append(f, "no safe load")
	}
	return strings.Join(f, ",")
}

func band(b analysis.Band) string {
	if b == analysis.BandUnscored {
		return "—"
	}
	return string(b)
}
