package tui

import "github.com/charmbracelet/lipgloss"

const navWidth = 24

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	navStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(navWidth)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	focusedBorder = lipgloss.Color("#73F59F")
	blurredBorder = lipgloss.Color("240")

	selectedItem = lipgloss.NewStyle().Bold(true).Reverse(true)
	itemStyle    = lipgloss.NewStyle()
	helpStyle    = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)
