package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#7C3AED")
	playingColor = lipgloss.Color("#A6E3A1")
	pausedColor  = lipgloss.Color("#F59E0B")
	textColor    = lipgloss.Color("#CDD6F4")
	dimTextColor = lipgloss.Color("#6C7086")

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	tabStyle = lipgloss.NewStyle().
			Foreground(dimTextColor).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(primaryColor).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimTextColor).
			Foreground(textColor).
			Width(22).
			Height(4).
			Padding(0, 1)

	playingCellStyle = cellStyle.
				BorderForeground(playingColor)

	pausedCellStyle = cellStyle.
			BorderForeground(pausedColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	statusStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	pausedStyle = lipgloss.NewStyle().
			Foreground(pausedColor).
			Bold(true).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))
)
