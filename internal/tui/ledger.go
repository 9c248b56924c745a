package tui

import (
	"context"
	"fmt"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"endurance-coach/internal/analysis"
)

// RecordLister reads the stored ledger
type RecordLister interface {
	ListAllRecords(ctx context.Context) ([]analysis.DailyRecord, error)
}

// LedgerModel is the ledger list screen model, newest day first
type LedgerModel struct {
	lister   RecordLister
	format   Format
	records  []analysis.DailyRecord
	cursor   int
	offset   int
	pageSize int
	loading  bool
	err      error
}

// NewLedgerModel creates a new ledger model
func NewLedgerModel(lister RecordLister, format Format) LedgerModel {
	return LedgerModel{
		lister:   lister,
		format:   format,
		pageSize: 14,
		loading:  true,
	}
}

// Init initializes the ledger screen
func (m LedgerModel) Init() tea.Cmd {
	return m.loadRecords
}

type ledgerLoadedMsg struct {
	records []analysis.DailyRecord
	err     error
}

func (m LedgerModel) loadRecords() tea.Msg {
	records, err := m.lister.ListAllRecords(context.Background())
	if err != nil {
		return ledgerLoadedMsg{err: err}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return ledgerLoadedMsg{records: records}
}

// Update handles messages
func (m LedgerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ledgerLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.records = msg.records
		if m.offset >= len(m.records) {
			m.offset, m.cursor = 0, 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			} else if m.offset > 0 {
				m.offset -= m.pageSize
				m.cursor = m.pageSize - 1
			}
		case "down", "j":
			if m.cursor < len(m.page())-1 {
				m.cursor++
			} else if m.offset+m.pageSize < len(m.records) {
				m.offset += m.pageSize
				m.cursor = 0
			}
		case "pgup":
			if m.offset > 0 {
				m.offset -= m.pageSize
				if m.offset < 0 {
					m.offset = 0
				}
				m.cursor = 0
			}
		case "pgdown":
			if m.offset+m.pageSize < len(m.records) {
				m.offset += m.pageSize
				m.cursor = 0
			}
		case "r":
			m.loading = true
			return m, m.loadRecords
		}
	}
	return m, nil
}

func (m LedgerModel) page() []analysis.DailyRecord {
	if m.offset >= len(m.records) {
		return nil
	}
	end := m.offset + m.pageSize
	if end > len(m.records) {
		end = len(m.records)
	}
	return m.records[m.offset:end]
}

// View renders the ledger list
func (m LedgerModel) View() string {
	if m.loading {
		return "\n  Loading ledger..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.records) == 0 {
		return "\n  Ledger is empty. Import a workbook or press '5' to sync with Strava."
	}

	page := m.page()
	var sections []string

	title := cardTitleStyle.Render(fmt.Sprintf("Ledger (%d-%d of %d)", m.offset+1, m.offset+len(page), len(m.records)))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-11s  %6s  %6s  %5s  %4s  %5s  %-10s  %-6s  %s",
		"Date", "Actual", "Plan", "Sleep", "RHR", "HRV", "Sport", "Phase", ""))
	sections = append(sections, header)

	for i, r := range page {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		lock := ""
		if r.Locked {
			lock = "locked"
		}

		row := fmt.Sprintf("%s%-11s  %6s  %6s  %5s  %4s  %5s  %-10s  %-6s  %s",
			cursor,
			m.format.Day(r.Date),
			m.format.Load(r.ActualLoad),
			m.format.Load(r.PlannedLoad),
			m.format.Optional(r.SleepHours, "%.1f"),
			m.format.Optional(r.RestingHR, "%.0f"),
			m.format.Optional(r.HRV, "%.0f"),
			truncateName(r.Sport, 10),
			string(r.Phase),
			lock,
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	help := statusStyle.Render("\n  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
