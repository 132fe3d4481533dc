package info

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/devicestats/internal/config"
	"github.com/j-veylop/devicestats/internal/ui/styles"
	"github.com/j-veylop/devicestats/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderAboutCard(),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration and build information")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func orNone(s string) string {
	if s == "" {
		return styles.HelpStyle.Render("(none)")
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration"), ""}

	cfg := m.config
	if cfg == nil {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	logs := cfg.LogDir
	if cfg.UseS3() {
		logs = fmt.Sprintf("s3://%s/%s", cfg.S3Bucket, strings.TrimPrefix(cfg.S3Prefix, "/"))
	}

	for _, row := range configRows(cfg, logs) {
		if row.label == "" {
			rows = append(rows, "")
			continue
		}
		value := row.value
		if m.showEnv && row.env != "" {
			value += "  " + styles.HelpStyle.Render(row.env)
		}
		rows = append(rows, m.renderConfigRow(row.label, value))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

type configRow struct {
	label string
	value string
	env   string
}

// configRows lists the displayed settings with the variable that sets each.
// An empty label separates groups.
func configRows(cfg *config.Config, logs string) []configRow {
	logsEnv := "DSTATS_LOG_DIR"
	if cfg.UseS3() {
		logsEnv = "DSTATS_S3_BUCKET"
	}
	return []configRow{
		{"Manifest", orNone(cfg.ManifestPath), "DSTATS_MANIFEST"},
		{"Format", cfg.Format.String(), "DSTATS_FORMAT"},
		{"Logs", logs, logsEnv},
		{"Mapping", orNone(cfg.MappingPath), "DSTATS_MAPPING"},
		{"Output", orNone(cfg.OutputDir), "DSTATS_OUTPUT_DIR"},
		{"Database", cfg.DatabasePath, "DSTATS_DATABASE_PATH"},
		{"Log File", orNone(cfg.LogFile), "DSTATS_LOG_FILE"},
		{},
		{"Kinds", cfg.Kinds.String(), "DSTATS_KINDS"},
		{"Weekday Split", onOff(cfg.SplitWeekday), "DSTATS_SPLIT_WEEKDAY"},
		{"App Filter", onOff(cfg.FilterApps), "DSTATS_FILTER_APPS"},
		{"Workers", fmt.Sprintf("%d", cfg.Workers), "DSTATS_WORKERS"},
		{"Keep Runs", humanize.Comma(int64(cfg.KeepRuns)), "DSTATS_KEEP_RUNS"},
		{"Watch", fmt.Sprintf("%s (debounce %s)", onOff(cfg.Watch), cfg.WatchDebounce), "DSTATS_WATCH"},
		{"Notify", onOff(cfg.Notify), "DSTATS_NOTIFY"},
	}
}

func (m *Model) renderConfigRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(18).
		Foreground(styles.TextMuted)

	return labelStyle.Render(label+":") + " " + lipgloss.NewStyle().Foreground(styles.TextPrimary).Render(value)
}

func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About dstats"),
		"",
		m.renderConfigRow("Version", version.GetVersion()),
		m.renderConfigRow("Build Date", version.GetDate()),
		m.renderConfigRow("Git Commit", version.GetCommit()),
		m.renderConfigRow("Go Version", runtime.Version()),
		m.renderConfigRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
		"",
		fmt.Sprintf("Devices: %s  Stored runs: %s",
			styles.InfoTextStyle.Render(humanize.Comma(int64(m.state.DeviceCount()))),
			styles.InfoTextStyle.Render(humanize.Comma(int64(m.state.GetRunCount())))),
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
