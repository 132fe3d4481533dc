package categories

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/devicestats/internal/ui/components"
	"github.com/j-veylop/devicestats/internal/ui/styles"
)

// View renders the categories tab.
func (m *Model) View() string {
	summary := m.state.GetSummary()
	if summary == nil || len(summary.Shares) == 0 {
		return m.renderEmpty(summary != nil)
	}

	m.updateTableData()
	cardWidth := max(m.width-6, 60)

	sections := []string{
		m.renderTitle(len(summary.Shares)),
		styles.CardStyle.Width(cardWidth).Render(m.table.View()),
		m.renderChart(cardWidth),
	}

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderTitle(n int) string {
	title := styles.TitleStyle.Render("Categories")
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%d categories, sorted by %s", n, m.order))
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderEmpty(hasSummary bool) string {
	hint := "Start a run with s to see category shares."
	if hasSummary {
		hint = "This run had no app category mapping. Set DSTATS_MAPPING and run again."
	}
	cardWidth := max(m.width-6, 40)
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.SubTitleStyle.Render("No Category Shares"),
		"",
		styles.HelpStyle.Render(hint),
		"",
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			styles.TitleStyle.Render("Categories"),
			styles.CardStyle.Width(cardWidth).Render(content)))
}

// renderChart draws each category's share of overall use or demand.
func (m *Model) renderChart(cardWidth int) string {
	shares := m.sortedShares()
	values := make([]float64, len(shares))
	labels := make([]string, len(shares))

	metric, color := "use", styles.Use
	for i, s := range shares {
		labels[i] = s.Category
		values[i] = s.UsePercent
		if m.demand {
			values[i] = s.DemandPercent
		}
	}
	if m.demand {
		metric, color = "demand", styles.Demand
	}

	rows := []string{
		styles.CardTitleStyle.Render("Share of overall " + metric),
		components.RenderBarChart(values, labels, cardWidth-6, formatPercent),
		"",
		components.RenderLegend([]components.LegendItem{{Label: "% of overall " + metric, Color: color}}),
	}
	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
