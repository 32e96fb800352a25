package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorText     lipgloss.Color = "#cdd6f4"
	colorMuted    lipgloss.Color = "#a6adc8"
	colorBorder   lipgloss.Color = "#585b70"
	colorAccent   lipgloss.Color = "#89b4fa"
	colorSuccess  lipgloss.Color = "#a6e3a1"
	colorError    lipgloss.Color = "#f38ba8"
	colorWarning  lipgloss.Color = "#f9e2af"
	colorSurface0 lipgloss.Color = "#313244"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	valueStyle    = lipgloss.NewStyle().Foreground(colorText)
	selectedStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(colorWarning).Italic(true)

	editorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
	controlStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorSurface0).
			Padding(0, 1)

	statusStyle    = lipgloss.NewStyle().Foreground(colorSuccess)
	statusErrStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true)

	keyStyle      = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	helpDescStyle = lipgloss.NewStyle().Foreground(colorMuted)
)
