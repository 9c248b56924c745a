package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"endurance-coach/internal/analysis"
	"endurance-coach/internal/service"
)

// ForecastSource runs forecasts and manages the snapshot slot
type ForecastSource interface {
	Forecast(ctx context.Context) (*service.ForecastResult, error)
	CaptureSnapshot(ctx context.Context) (*analysis.Snapshot, error)
	ClearSnapshot(ctx context.Context) error
	CloseDay(ctx context.Context, day time.Time) error
}

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	source  ForecastSource
	format  Format
	result  *service.ForecastResult
	loading bool
	err     error
	notice  string
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(source ForecastSource, format Format) DashboardModel {
	return DashboardModel{
		source:  source,
		format:  format,
		loading: true,
	}
}

// Init initializes the dashboard
func (m DashboardModel) Init() tea.Cmd {
	return m.loadForecast
}

// ForecastLoadedMsg carries a freshly computed forecast
type ForecastLoadedMsg struct {
	Result *service.ForecastResult
	Err    error
}

type dashboardActionMsg struct {
	notice string
	err    error
}

func (m DashboardModel) loadForecast() tea.Msg {
	res, err := m.source.Forecast(context.Background())
	return ForecastLoadedMsg{Result: res, Err: err}
}

func (m DashboardModel) pinSnapshot() tea.Msg {
	snap, err := m.source.CaptureSnapshot(context.Background())
	if err != nil {
		return dashboardActionMsg{err: err}
	}
	return dashboardActionMsg{notice: "Seed pinned from " + analysis.DayKey(snap.SeedDate)}
}

func (m DashboardModel) clearSnapshot() tea.Msg {
	if err := m.source.ClearSnapshot(context.Background()); err != nil {
		return dashboardActionMsg{err: err}
	}
	return dashboardActionMsg{notice: "Snapshot cleared"}
}

func (m DashboardModel) closeToday() tea.Msg {
	if err := m.source.CloseDay(context.Background(), time.Now()); err != nil {
		return dashboardActionMsg{err: err}
	}
	return dashboardActionMsg{notice: "Today closed"}
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ForecastLoadedMsg:
		m.loading = false
		m.err = msg.Err
		if msg.Err == nil {
			m.result = msg.Result
		}
	case dashboardActionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.notice = msg.notice
		m.loading = true
		return m, m.loadForecast
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadForecast
		case "p":
			return m, m.pinSnapshot
		case "c":
			return m, m.clearSnapshot
		case "d":
			return m, m.closeToday
		}
	}
	return m, nil
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.loading && m.result == nil {
		return "\n  Computing forecast..."
	}

	if m.err != nil && m.result == nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)) +
			"\n\n" + statusStyle.Render("  Import a workbook or submit ledger rows, then press 'r'.")
	}

	if m.result == nil || m.result.Forecast == nil {
		return "\n  No forecast yet. Press 'r' to compute one."
	}

	fc := m.result.Forecast
	var sections []string

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSeedCard(fc), "  ", m.renderSummaryCard(fc.Summary), "  ", m.renderTodayCard(fc))
	sections = append(sections, topRow)

	if len(fc.Days) > 1 {
		sections = append(sections, m.renderChart(fc.Days))
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("  %v", m.err)))
	} else if m.notice != "" {
		sections = append(sections, successStyle.Render("  "+m.notice))
	}

	help := statusStyle.Render("r: refresh  p: pin seed  c: clear snapshot  d: close today  2: plan")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderSeedCard(fc *analysis.Forecast) string {
	title := cardTitleStyle.Render("Seed")

	source := string(fc.SeedSource)
	if fc.SeedSource == analysis.SeedSnapshot {
		source = warningStyle.Render(source)
	}

	lines := []string{
		RenderMetric("Source", source, ""),
		RenderMetric("Seeded from", analysis.DayKey(fc.SeedDate), ""),
		RenderMetric("Fatigue (ATL)", fmt.Sprintf("%.1f", fc.Seed.Acute), ""),
		RenderMetric("Fitness (CTL)", fmt.Sprintf("%.1f", fc.Seed.Chronic), ""),
		RenderMetric("ACWR", m.format.Ratio(fc.Seed), ""),
		"",
		mutedStyle.Render(analysis.FormDescription(fc.Seed.Chronic - fc.Seed.Acute)),
		mutedStyle.Render("Generated " + m.format.Since(fc.GeneratedAt)),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(36).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderSummaryCard(s analysis.Summary) string {
	title := cardTitleStyle.Render("Readiness")

	lines := []string{
		RenderMetric("Overall", RenderScore(s.Overall)+" "+RenderBand(s.OverallBand), ""),
		RenderMetric("Recovery", RenderScore(s.Recovery)+" "+RenderBand(s.RecoveryBand), ""),
		RenderMetric("Training", RenderScore(s.Training)+" "+RenderBand(s.TrainingBand), ""),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderTodayCard(fc *analysis.Forecast) string {
	title := cardTitleStyle.Render("Next Day")
	if len(fc.Days) == 0 {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, "No horizon"))
	}
	d := fc.Days[0]

	lines := []string{
		RenderMetric("Date", m.format.Day(d.Date), ""),
		RenderMetric("Load", m.format.Load(d.RecommendedLoad), ""),
		RenderMetric("Progress", progressStyle(d.Band).Render(d.Band.String()), ""),
		RenderMetric("Intensity", fmt.Sprintf("%.0f%%", d.IntensityRatio*100), ""),
		RenderMetric("Phase", string(d.Phase), ""),
	}
	if flags := m.format.Flags(d); flags != "" {
		lines = append(lines, "", warningStyle.Render(flags))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderChart(days []analysis.ForecastDay) string {
	title := cardTitleStyle.Render(fmt.Sprintf("Fatigue and Fitness - next %d days", len(days)))

	acute := make([]float64, len(days))
	chronic := make([]float64, len(days))
	for i, d := range days {
		acute[i] = d.Acute
		chronic[i] = d.Chronic
	}

	graph := asciigraph.PlotMany([][]float64{acute, chronic},
		asciigraph.Height(m.format.ChartHeight()),
		asciigraph.Width(60),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Blue),
		asciigraph.Caption("ATL (red)  CTL (blue)"),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}
