package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorGreen = lipgloss.Color("#22C55E")
	colorRed   = lipgloss.Color("#EF4444")
	colorGray  = lipgloss.Color("#9CA3AF")
	colorWhite = lipgloss.Color("#F9FAFB")
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	liveStyle        = lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Background(colorRed).Padding(0, 1)
	idleStyle        = lipgloss.NewStyle().Foreground(colorGray).Padding(0, 1)
	dimStyle         = lipgloss.NewStyle().Foreground(colorGray)
	meterStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	placeholderStyle = lipgloss.NewStyle().Italic(true).Foreground(colorGray)
	errorStyle       = lipgloss.NewStyle().Foreground(colorRed)

	transcriptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGreen).
			Padding(0, 1)

	deniedStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRed).
			Padding(1, 2)
)
