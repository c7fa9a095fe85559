package ui

import "github.com/charmbracelet/lipgloss"

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	userLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	systemLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	timeStyle        = lipgloss.NewStyle().Faint(true)
	buttonStyle      = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(lipgloss.Color("62"))
	spinnerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faintStyle       = lipgloss.NewStyle().Faint(true)
)
