package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"endurance-coach/internal/analysis"
)

// PlanModel lists the recommended load for every horizon day
type PlanModel struct {
	format Format
	days   []analysis.ForecastDay
	cursor int
}

// NewPlanModel creates a new plan model
func NewPlanModel(format Format) PlanModel {
	return PlanModel{format: format}
}

// WithForecast replaces the plan rows, keeping the cursor in range
func (m PlanModel) WithForecast(fc *analysis.Forecast) PlanModel {
	if fc == nil {
		m.days = nil
	} else {
		m.days = fc.Days
	}
	if m.cursor >= len(m.days) {
		m.cursor = 0
	}
	return m
}

// Init initializes the plan screen
func (m PlanModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m PlanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.days)-1 {
				m.cursor++
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			if len(m.days) > 0 {
				m.cursor = len(m.days) - 1
			}
		}
	}
	return m, nil
}

// View renders the plan table and the selected day
func (m PlanModel) View() string {
	if len(m.days) == 0 {
		return "\n  No forecast loaded. Press '1' to compute one."
	}

	var rows []string
	rows = append(rows, cardTitleStyle.Render(fmt.Sprintf("Plan (%d days)", len(m.days))))

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-11s  %-6s  %6s  %6s  %6s  %5s  %-11s  %4s",
		"Date", "Phase", "Load", "ATL", "CTL", "ACWR", "Progress", "Int%"))
	rows = append(rows, header)

	for i, d := range m.days {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-11s  %-6s  %6s  %6.1f  %6.1f  %5.2f  %-11s  %4.0f",
			cursor,
			m.format.Day(d.Date),
			string(d.Phase),
			m.format.Load(d.RecommendedLoad),
			d.Acute,
			d.Chronic,
			d.RiskRatio,
			d.Band.String(),
			d.IntensityRatio*100,
		)
		if flags := m.format.Flags(d); flags != "" {
			row += "  " + flags
		}

		if i == m.cursor {
			rows = append(rows, tableSelectedStyle.Render(row))
		} else {
			rows = append(rows, tableRowStyle.Render(row))
		}
	}

	table := lipgloss.JoinVertical(lipgloss.Left, rows...)
	detail := m.renderLoadChart()

	help := statusStyle.Render("\n  j/k: navigate  g/G: first/last")
	return lipgloss.JoinVertical(lipgloss.Left, table, detail, help)
}

func (m PlanModel) renderLoadChart() string {
	if len(m.days) < 2 {
		return ""
	}
	loads := make([]float64, len(m.days))
	for i, d := range m.days {
		loads[i] = d.RecommendedLoad
	}

	graph := asciigraph.Plot(loads,
		asciigraph.Height(m.format.ChartHeight()),
		asciigraph.Width(60),
		asciigraph.Precision(0),
		asciigraph.Caption("Recommended load"),
	)
	return cardStyle.Render(graph)
}
