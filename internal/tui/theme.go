package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the semantic color palette for the entire TUI.
type Theme struct {
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Subtext lipgloss.Color
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme: Catppuccin Mocha hex values.
var DefaultTheme = Theme{
	Muted:   lipgloss.Color("#6c7086"),
	Text:    lipgloss.Color("#cdd6f4"),
	Subtext: lipgloss.Color("#a6adc8"),
	Primary: lipgloss.Color("#89b4fa"),
	Accent:  lipgloss.Color("#cba6f7"),
	Success: lipgloss.Color("#a6e3a1"),
	Warning: lipgloss.Color("#fab387"),
	Error:   lipgloss.Color("#f38ba8"),
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(DefaultTheme.Accent).
			Bold(true).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(DefaultTheme.Subtext)

	errorStyle = lipgloss.NewStyle().
			Foreground(DefaultTheme.Error)

	tableBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(DefaultTheme.Muted)
)

// severityColor maps a diagnostic severity to its display color.
func severityColor(severity string) lipgloss.Color {
	switch severity {
	case "info":
		return DefaultTheme.Subtext
	case "warning":
		return DefaultTheme.Warning
	default:
		return DefaultTheme.Error
	}
}
