package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/rebalance/internal/tui"
)

func main() {
	apiURL := flag.String("api-url", "http://localhost:8080", "Rebalance service API URL")
	flag.Parse()

	client := tui.NewClient(*apiURL)
	m := tui.NewModel(client)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
