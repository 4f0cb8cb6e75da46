package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// view names the screen currently shown.
type view int

const (
	viewRuns view = iota
	viewAccounts
	viewDiagnostics
)

const (
	runListLimit    = 50
	refreshInterval = 30 * time.Second
)

// Model is the bubbletea model for the dashboard.
type Model struct {
	client *Client

	// Data
	runs        []RunSummary
	accounts    []AccountResult
	diagnostics []Diagnostic
	selectedRun string
	lastErr     error

	// UI state
	view   view
	width  int
	height int
	ready  bool

	// Components
	runsTable     table.Model
	accountsTable table.Model
	diagViewport  viewport.Model
}

// Messages

type runsMsg struct {
	runs []RunSummary
	err  error
}

type accountsMsg struct {
	runID    string
	accounts []AccountResult
	err      error
}

type diagnosticsMsg struct {
	runID       string
	diagnostics []Diagnostic
	err         error
}

type refreshMsg struct{}

// NewModel creates the dashboard model.
func NewModel(client *Client) Model {
	return Model{
		client:    client,
		view:      viewRuns,
		runsTable: newRunsTable(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchRuns(m.client), scheduleRefresh())
}

// Commands

func fetchRuns(c *Client) tea.Cmd {
	return func() tea.Msg {
		runs, err := c.Runs(runListLimit)
		return runsMsg{runs, err}
	}
}

func fetchAccounts(c *Client, runID string) tea.Cmd {
	return func() tea.Msg {
		accounts, err := c.Run(runID)
		return accountsMsg{runID, accounts, err}
	}
}

func fetchDiagnostics(c *Client, runID string) tea.Cmd {
	return func() tea.Msg {
		diags, err := c.Diagnostics(runID)
		return diagnosticsMsg{runID, diags, err}
	}
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func newRunsTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Run", Width: 36},
			{Title: "Portfolio", Width: 16},
			{Title: "Started", Width: 20},
			{Title: "Duration", Width: 10},
		}),
		table.WithFocused(true),
	)
	styleTable(&t)
	return t
}

func newAccountsTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Institution", Width: 18},
			{Title: "Account", Width: 14},
			{Title: "Status", Width: 10},
			{Title: "Residual", Width: 12},
			{Title: "Tickers", Width: 8},
		}),
		table.WithFocused(true),
	)
	styleTable(&t)
	return t
}

func styleTable(t *table.Model) {
	s := table.DefaultStyles()
	s.Header = s.Header.
		Foreground(DefaultTheme.Primary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(DefaultTheme.Muted).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(DefaultTheme.Text).
		Background(DefaultTheme.Muted).
		Bold(false)
	t.SetStyles(s)
}
