// Package styles defines the colors and lipgloss styles shared by the tabs.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	Primary  = lipgloss.Color("37")  // teal
	Accent   = lipgloss.Color("63")  // purple
	Subtle   = lipgloss.Color("240") // gray
	BgPanel  = lipgloss.Color("235")
	BgAccent = lipgloss.Color("236")

	// Use and Demand color the two halves of a category share.
	Use    = lipgloss.Color("208")
	Demand = lipgloss.Color("39")

	Success = lipgloss.Color("42")
	Failure = lipgloss.Color("196")
	Warning = lipgloss.Color("220")
	Info    = lipgloss.Color("39")

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// heatRamp runs from an empty bucket to a profile's peak.
var heatRamp = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(Subtle),
	lipgloss.NewStyle().Foreground(lipgloss.Color("30")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("43")),
	lipgloss.NewStyle().Foreground(Warning),
	lipgloss.NewStyle().Foreground(lipgloss.Color("202")),
}

// Layout.
var (
	DocStyle = lipgloss.NewStyle().
			Margin(1, 2).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(1, 2).
			MarginBottom(1)

	HelpPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Primary).
			Padding(1, 3).
			Background(BgPanel)

	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// Text.
var (
	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)
	SubTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(Accent).MarginBottom(1)
	CardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)

	HelpStyle    = lipgloss.NewStyle().Foreground(TextMuted)
	HelpKeyStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	ErrorTextStyle   = lipgloss.NewStyle().Foreground(Failure)
	SuccessTextStyle = lipgloss.NewStyle().Foreground(Success)
	WarningTextStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoTextStyle    = lipgloss.NewStyle().Foreground(Info)
)

// Lists and the run bar.
var (
	ListItemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	SelectedListItemStyle = lipgloss.NewStyle().PaddingLeft(1).Foreground(Primary).Bold(true)

	ProgressLabelStyle   = lipgloss.NewStyle().Foreground(TextSecondary).Width(12)
	ProgressPercentStyle = lipgloss.NewStyle().Foreground(TextPrimary).Width(6).Align(lipgloss.Right)
)

// GetIntensityStyle returns the heat style for a bucket holding percent of
// its profile's peak.
func GetIntensityStyle(percent float64) lipgloss.Style {
	if percent <= 0 {
		return heatRamp[0]
	}
	i := 1 + int(percent/100*float64(len(heatRamp)-1))
	return heatRamp[min(i, len(heatRamp)-1)]
}

// GetStatusStyle returns the text style for a run that failed on failed of
// total devices.
func GetStatusStyle(failed, total int) lipgloss.Style {
	switch {
	case total == 0:
		return HelpStyle
	case failed == 0:
		return SuccessTextStyle
	case failed*2 > total:
		return ErrorTextStyle
	default:
		return WarningTextStyle
	}
}

// CenterBoth centers content horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
