package ui

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
}

func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("12"),  // Blue
		Success: lipgloss.Color("10"),  // Green
		Warning: lipgloss.Color("11"),  // Yellow
		Error:   lipgloss.Color("9"),   // Red
		Muted:   lipgloss.Color("240"), // Gray
	}
}

type styles struct {
	title   lipgloss.Style
	panel   lipgloss.Style
	label   lipgloss.Style
	online  lipgloss.Style
	busy    lipgloss.Style
	offline lipgloss.Style
	err     lipgloss.Style
	help    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		panel:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Muted).Padding(0, 1),
		label:   lipgloss.NewStyle().Foreground(t.Muted),
		online:  lipgloss.NewStyle().Foreground(t.Success),
		busy:    lipgloss.NewStyle().Foreground(t.Warning),
		offline: lipgloss.NewStyle().Foreground(t.Error),
		err:     lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		help:    lipgloss.NewStyle().Foreground(t.Muted),
	}
}
