package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.runsTable.SetHeight(m.tableHeight())
		m.accountsTable.SetHeight(m.tableHeight())
		m.diagViewport = viewport.New(m.width, m.tableHeight())
		m.diagViewport.SetContent(m.diagnosticsContent())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Back):
			switch m.view {
			case viewDiagnostics:
				m.view = viewAccounts
			case viewAccounts:
				m.view = viewRuns
			}

		case key.Matches(msg, keys.Refresh):
			switch m.view {
			case viewRuns:
				cmds = append(cmds, fetchRuns(m.client))
			case viewAccounts:
				cmds = append(cmds, fetchAccounts(m.client, m.selectedRun))
			case viewDiagnostics:
				cmds = append(cmds, fetchDiagnostics(m.client, m.selectedRun))
			}

		case key.Matches(msg, keys.Select):
			if m.view == viewRuns {
				if row := m.runsTable.SelectedRow(); row != nil {
					m.selectedRun = row[0]
					cmds = append(cmds, fetchAccounts(m.client, m.selectedRun))
				}
			}

		case key.Matches(msg, keys.Diagnostics):
			if m.view != viewRuns && m.selectedRun != "" {
				cmds = append(cmds, fetchDiagnostics(m.client, m.selectedRun))
			}
		}

	case runsMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.runs = msg.runs
			m.runsTable.SetRows(runRows(msg.runs))
		}

	case accountsMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.accounts = msg.accounts
			m.accountsTable = newAccountsTable()
			m.accountsTable.SetHeight(m.tableHeight())
			m.accountsTable.SetRows(accountRows(msg.accounts))
			m.view = viewAccounts
		}

	case diagnosticsMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.diagnostics = msg.diagnostics
			m.diagViewport = viewport.New(m.width, m.tableHeight())
			m.diagViewport.SetContent(m.diagnosticsContent())
			m.view = viewDiagnostics
		}

	case refreshMsg:
		if m.view == viewRuns {
			cmds = append(cmds, fetchRuns(m.client))
		}
		cmds = append(cmds, scheduleRefresh())
	}

	// Route remaining messages to the focused component.
	var cmd tea.Cmd
	switch m.view {
	case viewRuns:
		m.runsTable, cmd = m.runsTable.Update(msg)
	case viewAccounts:
		m.accountsTable, cmd = m.accountsTable.Update(msg)
	case viewDiagnostics:
		m.diagViewport, cmd = m.diagViewport.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) tableHeight() int {
	h := m.height - 6
	if h < 3 {
		h = 3
	}
	return h
}

func runRows(runs []RunSummary) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, table.Row{
			r.RunID,
			r.PortfolioKey,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
		})
	}
	return rows
}

func accountRows(accounts []AccountResult) []table.Row {
	rows := make([]table.Row, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, table.Row{
			a.AccountID.Institution,
			a.AccountID.AccountNumber,
			a.Status,
			fmt.Sprintf("%.2f", a.Residual),
			fmt.Sprint(len(a.Values)),
		})
	}
	return rows
}

func (m Model) diagnosticsContent() string {
	if len(m.diagnostics) == 0 {
		return statusBarStyle.Render("No diagnostics for this run.")
	}
	var out string
	for _, d := range m.diagnostics {
		line := fmt.Sprintf("[%s] %s: %s", d.Severity, d.Kind, d.Message)
		out += lipgloss.NewStyle().Foreground(severityColor(d.Severity)).Render(line) + "\n"
	}
	return out
}
