package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"endurance-coach/internal/analysis"
)

// MetricsModel shows every scored metric behind the readiness summary
type MetricsModel struct {
	format   Format
	forecast *analysis.Forecast
	viewport viewport.Model
	width    int
	height   int
	ready    bool
}

// NewMetricsModel creates a new metrics model
func NewMetricsModel(format Format, width, height int) MetricsModel {
	m := MetricsModel{format: format, width: width, height: height}
	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6) // Reserve space for header/footer
		m.ready = true
	}
	return m
}

// WithForecast replaces the metrics content
func (m MetricsModel) WithForecast(fc *analysis.Forecast) MetricsModel {
	m.forecast = fc
	if m.ready {
		m.viewport.SetContent(m.renderContent())
	}
	return m
}

// Init initializes the metrics screen
func (m MetricsModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m MetricsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		m.viewport.SetContent(m.renderContent())
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the metrics screen
func (m MetricsModel) View() string {
	if m.forecast == nil {
		return "\n  No forecast loaded. Press '1' to compute one."
	}
	if !m.ready {
		return m.renderContent()
	}

	footer := statusStyle.Render("  j/k or arrows: scroll")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m MetricsModel) renderContent() string {
	if m.forecast == nil {
		return "No data"
	}

	var sections []string
	sections = append(sections, m.renderSummary(m.forecast.Summary))
	sections = append(sections, m.renderMetrics(m.forecast.Metrics))
	if m.forecast.PaddedDays > 0 || m.forecast.HistoryPadded > 0 {
		sections = append(sections, warningStyle.Render(fmt.Sprintf(
			"  Ledger padded: %d horizon day(s), %d history day(s)",
			m.forecast.PaddedDays, m.forecast.HistoryPadded)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m MetricsModel) renderSummary(s analysis.Summary) string {
	var lines []string
	lines = append(lines, "", sectionStyle.Render("Summary"))
	lines = append(lines, fmt.Sprintf("  Overall:   %s %s", RenderScore(s.Overall), RenderBand(s.OverallBand)))
	lines = append(lines, fmt.Sprintf("  Recovery:  %s %s", RenderScore(s.Recovery), RenderBand(s.RecoveryBand)))
	lines = append(lines, fmt.Sprintf("  Training:  %s %s", RenderScore(s.Training), RenderBand(s.TrainingBand)))
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m MetricsModel) renderMetrics(metrics []analysis.ScoredMetric) string {
	var lines []string
	lines = append(lines, sectionStyle.Render("Metrics"))

	header := fmt.Sprintf("  %-22s  %9s  %5s  %-22s  %-8s  %6s", "Metric", "Raw", "Score", "", "Band", "Weight")
	lines = append(lines, lipgloss.NewStyle().Foreground(primaryColor).Render(header))

	for _, sm := range metrics {
		bar := progressEmptyStyle.Render(strings.Repeat("░", 20))
		if sm.Score.Valid {
			bar = RenderProgressBar(sm.Score.Value/100, 20)
		}
		lines = append(lines, fmt.Sprintf("  %-22s  %9s  %5s  %s  %-8s  %6.1f",
			truncateName(sm.Name, 22),
			m.format.Optional(sm.Raw, "%.2f"),
			RenderScore(sm.Score),
			bar,
			RenderBand(sm.Band),
			sm.Weight,
		))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}
