package overview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/ui/components"
	"github.com/j-veylop/devicestats/internal/ui/styles"
)

const maxFailuresShown = 8

// View renders the overview tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	sections := []string{
		m.renderTitle(),
		m.renderInputs(),
		m.renderRun(),
	}
	if summary := m.state.GetSummary(); summary != nil {
		sections = append(sections, m.renderHeadlines(summary))
		if len(summary.Failures) > 0 {
			sections = append(sections, m.renderFailures(summary.Failures))
		}
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func cardHeader(icon, title string) string {
	return fmt.Sprintf("%s %s",
		lipgloss.NewStyle().Foreground(styles.Primary).Render(icon),
		styles.CardTitleStyle.Render(title))
}

func field(label, value string) string {
	return fmt.Sprintf("  %s %s", styles.HelpKeyStyle.Render(fmt.Sprintf("%-14s", label)), value)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Device Activity")
	subtitle := styles.HelpStyle.Render("Hourly usage and demand profiles across a device population")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderInputs() string {
	rows := []string{cardHeader("◈", "Inputs"), ""}

	snap := m.state.GetSnapshot()
	if snap == nil || snap.Manifest == nil {
		rows = append(rows,
			fmt.Sprintf("  %s %s",
				lipgloss.NewStyle().Foreground(styles.Subtle).Render("○"),
				styles.HelpStyle.Render("No manifest loaded")),
			"",
			styles.InfoTextStyle.Render("  ╰─▶ Set DSTATS_MANIFEST or pass -manifest"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	rows = append(rows,
		field("Devices", humanize.Comma(int64(len(snap.Manifest.Entries)))),
		field("Format", snap.Manifest.Format.String()))

	if snap.Mapping != nil {
		rows = append(rows, field("Mapping", fmt.Sprintf("%s apps in %d categories",
			humanize.Comma(int64(snap.Mapping.Len())), len(snap.Mapping.Categories()))))
	} else {
		rows = append(rows, field("Mapping", styles.HelpStyle.Render("none")))
	}
	if !snap.LoadedAt.IsZero() {
		rows = append(rows, field("Loaded", humanize.Time(snap.LoadedAt)))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderRun() string {
	run := m.state.GetRun()
	if run.Running {
		rows := []string{cardHeader("◉", "Run "+shortID(run.ID)), "", "  " + m.spinner.ViewWithLabel(), ""}
		rows = append(rows, "  "+m.runBar.View("devices", run.Progress.Done, run.Progress.Total, m.cardWidth()-4))
		if run.LastDevice != "" {
			rows = append(rows, "", field("Last device", run.LastDevice))
		}
		if run.Progress.Failed > 0 {
			rows = append(rows, field("Failed", styles.WarningTextStyle.Render(humanize.Comma(int64(run.Progress.Failed)))))
		}
		rows = append(rows, field("Elapsed", time.Since(run.StartedAt).Round(time.Second).String()))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	summary := m.state.GetSummary()
	if summary == nil {
		rows := []string{
			cardHeader("◉", "Last Run"), "",
			"  " + styles.HelpStyle.Render("No runs yet. Press s to analyse the population."),
		}
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	status := styles.GetStatusStyle(len(summary.Failures), summary.Devices).
		Render(fmt.Sprintf("%d/%d devices", summary.Processed, summary.Devices))

	rows := []string{
		cardHeader("◉", "Run "+shortID(summary.RunID)), "",
		field("Finished", humanize.Time(summary.FinishedAt)),
		field("Duration", summary.Duration().Round(time.Millisecond).String()),
		field("Processed", status),
		field("Contributing", fmt.Sprintf("%d use, %d demand, %d any",
			len(summary.Contributions.Use), len(summary.Contributions.Demand), len(summary.Contributions.All))),
	}
	if summary.Kinds.Has(models.KindForeground) {
		rows = append(rows, field("Overall use", humanize.CommafWithDigits(summary.OverallUse, 1)))
	}
	if summary.Kinds.Has(models.KindRxBytes) || summary.Kinds.Has(models.KindTxBytes) {
		rows = append(rows, field("Overall demand", components.FormatValue(models.KindRxBytes, summary.OverallDemand)))
	}
	if summary.Layout.SplitWeekday {
		rows = append(rows, field("Layout", "weekday split"))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderHeadlines draws one sparkline per tracked kind.
func (m *Model) renderHeadlines(summary *models.Summary) string {
	rows := []string{cardHeader("▤", "Hourly Totals"), ""}

	sparkWidth := models.HoursPerDay
	if summary.Layout.SplitWeekday {
		sparkWidth = max(min(m.cardWidth()-44, summary.Layout.Size()), models.HoursPerDay)
	}

	var shown int
	for _, kind := range summary.Kinds.Kinds() {
		series, ok := summary.Headline(kind)
		if !ok {
			continue
		}
		values := components.Field(series.Stats, models.StatTotal)
		rows = append(rows, fmt.Sprintf("  %-18s %s %s",
			kind.String(),
			components.RenderColoredSparkline(values, sparkWidth),
			styles.HelpStyle.Render(components.FormatValue(kind, series.Sum()))))
		shown++
	}
	if shown == 0 {
		rows = append(rows, "  "+styles.HelpStyle.Render("No series in this run"))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderFailures(failures []models.DeviceFailure) string {
	rows := []string{cardHeader("⚠", fmt.Sprintf("Failed Devices (%d)", len(failures))), ""}
	for i, f := range failures {
		if i == maxFailuresShown {
			rows = append(rows, styles.HelpStyle.Render(fmt.Sprintf("  ... and %d more", len(failures)-i)))
			break
		}
		rows = append(rows, fmt.Sprintf("  %s %s", styles.ErrorTextStyle.Render(f.Device), styles.HelpStyle.Render(truncate(f.Reason, m.cardWidth()-len(f.Device)-8))))
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-3]) + "..."
}
