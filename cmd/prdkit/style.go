package main

import "github.com/charmbracelet/lipgloss"

var (
	headerColor  = lipgloss.Color("#F780FF")
	accentColor  = lipgloss.Color("#8BE9FD")
	mutedColor   = lipgloss.Color("#6272A4")
	bodyColor    = lipgloss.Color("#E9E9F4")
	successColor = lipgloss.Color("#50FA7B")

	headerStyle  = lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	accentStyle  = lipgloss.NewStyle().Foreground(accentColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	bodyStyle    = lipgloss.NewStyle().Foreground(bodyColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)
