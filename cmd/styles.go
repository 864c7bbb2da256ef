package cmd

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	linkBlue  = lipgloss.Color("#375BD2")
	mistBlue  = lipgloss.Color("#B7C4F2")
	slateGray = lipgloss.Color("#6C7A96")
	feedGreen = lipgloss.Color("#2FBF71")
	alertRed  = lipgloss.Color("#E5484D")
)

var (
	titleStyle = lipgloss.NewStyle().
		Foreground(linkBlue).
		Bold(true).
		Padding(1, 0)

	promptStyle = lipgloss.NewStyle().
		Foreground(mistBlue)

	// logStyle indents raw transaction log lines.
	logStyle = lipgloss.NewStyle().
		Foreground(slateGray).
		PaddingLeft(2)

	successStyle = lipgloss.NewStyle().
		Foreground(feedGreen).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
		Foreground(alertRed).
		Bold(true)
)
