// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/ui/styles"
)

var (
	sparkChars    = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	heatmapBlocks = []rune{'·', '░', '▒', '▓', '█'}
)

func peak(values []float64) float64 {
	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

// level scales v against maxVal into [0, n).
func level(v, maxVal float64, n int) int {
	if maxVal <= 0 || v <= 0 {
		return 0
	}
	i := int((v / maxVal) * float64(n-1))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Field extracts one statistic field from every bucket.
func Field(stats []models.Statistic, field models.StatField) []float64 {
	out := make([]float64, len(stats))
	for i, st := range stats {
		out[i] = field.Value(st)
	}
	return out
}

// Hours folds a weekday-split series into a 24-bucket series by summing across days.
// Hourly series are returned unchanged.
func Hours(values []float64) []float64 {
	if len(values) <= models.HoursPerDay {
		return values
	}
	out := make([]float64, models.HoursPerDay)
	for i, v := range values {
		out[i%models.HoursPerDay] += v
	}
	return out
}

// Weekdays folds a weekday-split series into per-weekday totals, Monday first.
func Weekdays(values []float64) []float64 {
	out := make([]float64, models.DaysPerWeek)
	if len(values) < models.DaysPerWeek*models.HoursPerDay {
		return out
	}
	for i, v := range values[:models.DaysPerWeek*models.HoursPerDay] {
		out[i/models.HoursPerDay] += v
	}
	return out
}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// RenderCompareChart plots two series on one axis, e.g. weekdays against the weekend.
func RenderCompareChart(first, second []float64, width, height int, caption string) string {
	if len(first) == 0 && len(second) == 0 {
		return styles.HelpStyle.Render("No data available")
	}
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	n := max(len(first), len(second))
	a := make([]float64, n)
	b := make([]float64, n)
	copy(a, first)
	copy(b, second)

	return asciigraph.PlotMany([][]float64{a, b},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Blue),
	)
}

// RenderBarChart creates a horizontal bar chart. format renders each value; nil uses %.1f.
func RenderBarChart(values []float64, labels []string, width int, format func(float64) string) string {
	if len(values) == 0 {
		return ""
	}
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%.1f", v) }
	}

	maxVal := peak(values)
	if maxVal == 0 {
		maxVal = 1
	}

	maxLabelLen := 0
	for _, l := range labels {
		maxLabelLen = max(maxLabelLen, lipgloss.Width(l))
	}

	barWidth := width - maxLabelLen - 12
	if barWidth < 10 {
		barWidth = 10
	}

	lines := make([]string, 0, len(values))
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		barLen := max(int((v/maxVal)*float64(barWidth)), 0)
		lines = append(lines, fmt.Sprintf("%*s │%s %s", maxLabelLen, label, strings.Repeat("█", barLen), format(v)))
	}

	return strings.Join(lines, "\n")
}

func heatCell(v, maxVal float64) string {
	i := level(v, maxVal, len(heatmapBlocks))
	if v > 0 && i == 0 {
		i = 1
	}
	percent := 0.0
	if maxVal > 0 {
		percent = v / maxVal * 100
	}
	return styles.GetIntensityStyle(percent).Render(string(heatmapBlocks[i]))
}

// RenderHourlyHeatmap renders a single row of 24 hour cells.
func RenderHourlyHeatmap(values []float64) string {
	values = Hours(values)
	if len(values) != models.HoursPerDay {
		padded := make([]float64, models.HoursPerDay)
		copy(padded, values)
		values = padded
	}
	maxVal := peak(values)

	var b strings.Builder
	b.WriteString("00 ")
	for i, v := range values {
		b.WriteString(heatCell(v, maxVal))
		if i == 11 {
			b.WriteString(" ")
		}
	}
	b.WriteString(" 23")
	return b.String()
}

// RenderWeekHeatmap renders a weekday-split series as seven rows of 24 hour cells.
func RenderWeekHeatmap(values []float64) string {
	size := models.DaysPerWeek * models.HoursPerDay
	if len(values) < size {
		return RenderHourlyHeatmap(values)
	}
	maxVal := peak(values[:size])

	rows := make([]string, 0, models.DaysPerWeek+1)
	rows = append(rows, styles.HelpStyle.Render("    00          12          23"))
	for d := range models.DaysPerWeek {
		var b strings.Builder
		b.WriteString(models.WeekdayNames[d])
		b.WriteString(" ")
		for h := range models.HoursPerDay {
			b.WriteString(heatCell(values[d*models.HoursPerDay+h], maxVal))
			if h == 11 {
				b.WriteString(" ")
			}
		}
		rows = append(rows, b.String())
	}
	return strings.Join(rows, "\n")
}

// RenderWeeklyPattern renders seven per-day values as labelled spark characters.
func RenderWeeklyPattern(values []float64, dayNames []string) string {
	if len(values) != models.DaysPerWeek {
		padded := make([]float64, models.DaysPerWeek)
		copy(padded, values)
		values = padded
	}
	if len(dayNames) != models.DaysPerWeek {
		dayNames = models.WeekdayNames[:]
	}

	maxVal := peak(values)
	parts := make([]string, 0, len(values))
	for i, v := range values {
		parts = append(parts, fmt.Sprintf("%s %c", dayNames[i], sparkChars[level(v, maxVal, len(sparkChars))]))
	}
	return strings.Join(parts, " ")
}

func sample(values []float64, width int, cell func(v, maxVal float64) string) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	maxVal := peak(values)
	step := float64(len(values)) / float64(width)
	if step < 1 {
		step = 1
	}

	var b strings.Builder
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		b.WriteString(cell(values[int(float64(i)*step)], maxVal))
	}
	return b.String()
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	return sample(values, width, func(v, maxVal float64) string {
		return string(sparkChars[level(v, maxVal, len(sparkChars))])
	})
}

// RenderColoredSparkline creates a sparkline colored by intensity.
func RenderColoredSparkline(values []float64, width int) string {
	return sample(values, width, func(v, maxVal float64) string {
		percent := 0.0
		if maxVal > 0 {
			percent = v / maxVal * 100
		}
		return styles.GetIntensityStyle(percent).Render(string(sparkChars[level(v, maxVal, len(sparkChars))]))
	})
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		box := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, box+" "+item.Label)
	}
	return strings.Join(parts, "  ")
}
