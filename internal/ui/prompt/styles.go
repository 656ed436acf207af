package prompt

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	readyStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	failedStyle  = lipgloss.NewStyle().Foreground(colorRed)
	warningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	warnMark  = "[??]"
)
