package ui

import "github.com/charmbracelet/lipgloss"

// Lime accent palette.
const (
	ColorLime     = "154"
	ColorLimeDim  = "106"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds the styles of the search terminal.
type Styles struct {
	Header   lipgloss.Style
	Prompt   lipgloss.Style
	Name     lipgloss.Style
	Price    lipgloss.Style
	Label    lipgloss.Style
	Dim      lipgloss.Style
	FlagOn   lipgloss.Style
	FlagOff  lipgloss.Style
	Strategy lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Spark    lipgloss.Style
	Panel    lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Name:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		Price:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		FlagOn:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		FlagOff:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Strategy: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Spark:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
	}
}

// NoColorStyles returns unstyled components.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:   plain,
		Prompt:   plain,
		Name:     plain,
		Price:    plain,
		Label:    plain,
		Dim:      plain,
		FlagOn:   plain,
		FlagOff:  plain,
		Strategy: plain,
		Warning:  plain,
		Error:    plain,
		Spark:    plain,
		Panel:    lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
