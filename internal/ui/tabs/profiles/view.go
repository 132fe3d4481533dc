package profiles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/ui/components"
	"github.com/j-veylop/devicestats/internal/ui/styles"
)

const listWindow = 12

// View renders the profiles tab.
func (m *Model) View() string {
	summary := m.state.GetSummary()
	if summary == nil {
		return m.renderEmpty()
	}
	sel := m.resolve(summary)
	if sel.name == "" {
		return m.renderEmpty()
	}
	series, ok := summary.Find(sel.kind, sel.level, sel.span, sel.name)
	if !ok {
		return m.renderEmpty()
	}
	values := components.Field(series.Stats, m.Field())

	sections := []string{
		m.renderHeader(sel),
		lipgloss.JoinHorizontal(lipgloss.Top, m.renderList(summary, sel), " ", m.renderStats(summary, series, values)),
		m.renderChart(summary, sel, values),
		m.renderHeatmap(series, values),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("Profiles"),
		"",
		styles.HelpStyle.Render("No profiles to show yet."),
		styles.HelpStyle.Render("Start a run with s or open a stored run from the Runs tab."),
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func indicator(keyLabel, value string) string {
	return lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary).
		Render(fmt.Sprintf("[%s] %s", keyLabel, value))
}

func (m *Model) renderHeader(sel selection) string {
	title := styles.TitleStyle.Render("Profiles: " + sel.kind.String())

	parts := []string{
		title, "  ",
		indicator("v", sel.level.String()), " ",
		indicator("f", m.Field().String()), " ",
		indicator("w", sel.span.String()),
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center, parts...)
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%d %s series, measured in %s", len(sel.names), sel.level, sel.kind.Unit()))

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

// renderList shows a window of series names around the selection.
func (m *Model) renderList(summary *models.Summary, sel selection) string {
	width := max(m.cardWidth()/2-2, 30)
	rows := []string{styles.CardTitleStyle.Render("Series")}

	start := max(sel.index-listWindow/2, 0)
	end := min(start+listWindow, len(sel.names))
	start = max(end-listWindow, 0)

	if start > 0 {
		rows = append(rows, styles.HelpStyle.Render(fmt.Sprintf("  ↑ %d more", start)))
	}
	for i := start; i < end; i++ {
		name := sel.names[i]
		total := 0.0
		if s, ok := summary.Find(sel.kind, sel.level, models.SpanAll, name); ok {
			total = s.Sum()
		}
		label := truncate(name, width-18)
		line := fmt.Sprintf("%-*s %12s", width-18, label, components.FormatValue(sel.kind, total))
		if i == sel.index {
			rows = append(rows, styles.SelectedListItemStyle.Render("▸ "+line))
		} else {
			rows = append(rows, styles.ListItemStyle.Render("  "+line))
		}
	}
	if end < len(sel.names) {
		rows = append(rows, styles.HelpStyle.Render(fmt.Sprintf("  ↓ %d more", len(sel.names)-end)))
	}

	return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderStats(summary *models.Summary, series models.Series, values []float64) string {
	width := max(m.cardWidth()-m.cardWidth()/2-1, 30)
	rows := []string{styles.CardTitleStyle.Render(series.Name)}

	peakIndex, peakValue := -1, 0.0
	var contributors int
	for i, v := range values {
		if v > peakValue {
			peakIndex, peakValue = i, v
		}
	}
	for _, st := range series.Stats {
		contributors = max(contributors, st.Count)
	}

	rows = append(rows,
		statRow("Total", components.FormatValue(series.Kind, series.Sum())),
		statRow("Contributors", fmt.Sprintf("%d", contributors)))
	if peakIndex >= 0 {
		rows = append(rows,
			statRow("Peak bucket", bucketLabel(summary.Layout, len(values), peakIndex)),
			statRow("Peak "+m.Field().String(), m.formatField(series.Kind, peakValue)))
	} else {
		rows = append(rows, statRow("Peak bucket", styles.HelpStyle.Render("none")))
	}

	return styles.CardStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func statRow(label, value string) string {
	return fmt.Sprintf("%s %s", styles.HelpKeyStyle.Render(fmt.Sprintf("%-14s", label)), value)
}

// formatField renders a field value; counts are unitless.
func (m *Model) formatField(kind models.Kind, v float64) string {
	if m.Field() == models.StatCount {
		return fmt.Sprintf("%.0f", v)
	}
	return components.FormatValue(kind, v)
}

// bucketLabel names bucket i of a series with n buckets.
func bucketLabel(layout models.Layout, n, i int) string {
	if n == layout.Size() {
		return layout.Label(i)
	}
	return fmt.Sprintf("%02d:00", i%models.HoursPerDay)
}

func (m *Model) renderChart(summary *models.Summary, sel selection, values []float64) string {
	chartWidth := max(m.cardWidth()-16, 30)
	rows := []string{styles.CardTitleStyle.Render("Hourly " + m.Field().String())}

	if m.compare && summary.Layout.SplitWeekday {
		weekdays, okW := summary.Find(sel.kind, sel.level, models.SpanWeekdays, sel.name)
		weekend, okE := summary.Find(sel.kind, sel.level, models.SpanWeekend, sel.name)
		if okW && okE {
			rows = append(rows,
				indent(components.RenderCompareChart(
					components.Field(weekdays.Stats, m.Field()),
					components.Field(weekend.Stats, m.Field()),
					chartWidth, 8, "")),
				"",
				"  "+components.RenderLegend([]components.LegendItem{
					{Label: "weekdays", Color: lipgloss.Color("1")},
					{Label: "weekend", Color: lipgloss.Color("4")},
				}))
			return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
		}
	}

	caption := fmt.Sprintf("%s per hour (%s)", m.Field(), sel.kind.Unit())
	if len(values) > models.HoursPerDay {
		caption = fmt.Sprintf("%s per hour summed over the week (%s)", m.Field(), sel.kind.Unit())
	}
	rows = append(rows, indent(components.RenderLineChart(components.Hours(values), chartWidth, 8, caption)))

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderHeatmap(series models.Series, values []float64) string {
	rows := []string{styles.CardTitleStyle.Render("Activity Pattern")}

	if len(values) == models.DaysPerWeek*models.HoursPerDay {
		rows = append(rows,
			components.RenderWeekHeatmap(values),
			"",
			"  "+components.RenderWeeklyPattern(components.Weekdays(values), nil))
	} else {
		rows = append(rows, components.RenderHourlyHeatmap(components.Hours(values)))
	}
	rows = append(rows, "", styles.HelpStyle.Render(fmt.Sprintf("%s / %s", series.Level, series.Span)))

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func indent(block string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
