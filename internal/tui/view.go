package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var title, body, help string

	switch m.view {
	case viewRuns:
		title = "Rebalance Runs"
		body = tableBorderStyle.Render(m.runsTable.View())
		help = "enter open · r refresh · q quit"

	case viewAccounts:
		title = fmt.Sprintf("Run %s — Accounts", m.selectedRun)
		body = tableBorderStyle.Render(m.accountsTable.View())
		help = "d diagnostics · esc back · r refresh · q quit"

	case viewDiagnostics:
		title = fmt.Sprintf("Run %s — Diagnostics", m.selectedRun)
		body = m.diagViewport.View()
		help = "esc back · r refresh · q quit"
	}

	status := ""
	if m.lastErr != nil {
		status = errorStyle.Render("error: " + m.lastErr.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		body,
		status,
		statusBarStyle.Render(help),
	)
}
