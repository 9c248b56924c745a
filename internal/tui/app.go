package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"endurance-coach/internal/config"
)

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenPlan
	ScreenMetrics
	ScreenLedger
	ScreenSync
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	dashboard  DashboardModel
	plan       PlanModel
	metrics    MetricsModel
	ledger     LedgerModel
	syncScreen SyncModel
	help       HelpModel

	// Window dimensions
	width  int
	height int

	// Status message
	status string
}

// NewApp creates a new App. syncer may be nil when Strava is not configured.
func NewApp(forecasts ForecastSource, records RecordLister, syncer Syncer, display config.DisplayConfig) *App {
	format := NewFormat(display)
	return &App{
		screen:     ScreenDashboard,
		dashboard:  NewDashboardModel(forecasts, format),
		plan:       NewPlanModel(format),
		metrics:    NewMetricsModel(format, 0, 0),
		ledger:     NewLedgerModel(records, format),
		syncScreen: NewSyncModel(syncer),
		help:       NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.dashboard.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings (unless in sync mode)
		if a.screen != ScreenSync || !a.syncScreen.syncing {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenDashboard
				return a, nil
			case "2":
				a.screen = ScreenPlan
				return a, nil
			case "3":
				a.screen = ScreenMetrics
				return a, nil
			case "4":
				a.screen = ScreenLedger
				return a, a.ledger.Init()
			case "5", "s":
				if a.screen != ScreenSync {
					a.screen = ScreenSync
					return a, a.syncScreen.Init()
				}
				// Let 's' fall through to sync screen when already there
			case "?":
				a.prevScreen = a.screen
				a.screen = ScreenHelp
				return a, nil
			case "esc":
				if a.screen == ScreenHelp {
					a.screen = a.prevScreen
					return a, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		m, _ := a.metrics.Update(msg)
		a.metrics = m.(MetricsModel)

	case ForecastLoadedMsg:
		// Every screen shows the same forecast
		if msg.Err == nil && msg.Result != nil {
			a.plan = a.plan.WithForecast(msg.Result.Forecast)
			a.metrics = a.metrics.WithForecast(msg.Result.Forecast)
			a.status = "Forecast run " + msg.Result.RunID
		}
		m, cmd := a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
		return a, cmd

	case SyncCompleteMsg:
		// Refresh the forecast after sync
		a.screen = ScreenDashboard
		return a, a.dashboard.Init()
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenDashboard:
		var m tea.Model
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenPlan:
		var m tea.Model
		m, cmd = a.plan.Update(msg)
		a.plan = m.(PlanModel)
	case ScreenMetrics:
		if _, ok := msg.(tea.WindowSizeMsg); ok {
			break
		}
		var m tea.Model
		m, cmd = a.metrics.Update(msg)
		a.metrics = m.(MetricsModel)
	case ScreenLedger:
		var m tea.Model
		m, cmd = a.ledger.Update(msg)
		a.ledger = m.(LedgerModel)
	case ScreenSync:
		var m tea.Model
		m, cmd = a.syncScreen.Update(msg)
		a.syncScreen = m.(SyncModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenPlan:
		content = a.plan.View()
	case ScreenMetrics:
		content = a.metrics.View()
	case ScreenLedger:
		content = a.ledger.View()
	case ScreenSync:
		content = a.syncScreen.View()
	case ScreenHelp:
		content = a.help.View()
	}

	footer := a.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content, footer)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("Endurance Coach")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Plan", ScreenPlan},
		{"3", "Metrics", ScreenMetrics},
		{"4", "Ledger", ScreenLedger},
		{"5", "Sync", ScreenSync},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	if a.status != "" {
		return statusStyle.Render(a.status)
	}
	return ""
}

// SyncCompleteMsg is sent when sync finishes
type SyncCompleteMsg struct{}
