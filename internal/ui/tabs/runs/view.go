package runs

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/ui/styles"
)

// View renders the runs tab.
func (m *Model) View() string {
	m.updateTableData()

	sections := []string{m.renderTitle()}

	switch {
	case len(m.runs) == 0:
		sections = append(sections, m.renderEmptyState())
	case m.confirmDelete:
		sections = append(sections, m.renderDeleteConfirm(), m.renderTable())
	default:
		sections = append(sections, m.renderTable())
		if m.details {
			if run, ok := m.selectedRun(); ok {
				sections = append(sections, m.renderDetails(run))
			}
		}
	}

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 60)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Runs")
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%d stored runs, * marks the one on display", len(m.runs)))
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderTable() string {
	return styles.CardStyle.Width(m.cardWidth()).Render(m.table.View())
}

func (m *Model) renderEmptyState() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.SubTitleStyle.Render("No Stored Runs"),
		"",
		styles.HelpStyle.Render("Finished runs are kept in the local database."),
		"",
		styles.InfoTextStyle.Render("Press 's' to start a run"),
		"",
	)
	return styles.CardStyle.Width(m.cardWidth()).Render(content)
}

func (m *Model) renderDeleteConfirm() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.WarningTextStyle.Render(fmt.Sprintf("Delete run %s and all of its series?", shortID(m.deleteID))),
		"",
		styles.HelpStyle.Render("y to confirm, n to cancel"),
	)
	return styles.CardStyle.
		BorderForeground(styles.Warning).
		Width(m.cardWidth()).
		Render(content)
}

func (m *Model) renderDetails(run models.Run) string {
	field := func(label, value string) string {
		return fmt.Sprintf("%s %s", styles.HelpKeyStyle.Render(fmt.Sprintf("%-13s", label)), value)
	}
	rows := []string{
		styles.CardTitleStyle.Render("Run " + run.ID),
		field("Started", fmt.Sprintf("%s (%s)", run.StartedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))),
		field("Duration", formatDuration(run.Duration())),
		field("Manifest", run.Manifest),
		field("Format", run.Format),
		field("Kinds", run.Kinds),
		field("Devices", fmt.Sprintf("%d listed, %d processed, %d failed", run.Devices, run.Processed, run.Failed)),
		field("Contributing", humanize.Comma(int64(run.Contributing))),
	}
	if run.OutputDir != "" {
		rows = append(rows, field("Output", run.OutputDir))
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
