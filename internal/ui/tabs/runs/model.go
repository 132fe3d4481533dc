// Package runs provides the tab listing stored runs.
package runs

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/devicestats/internal/app"
	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/ui/styles"
)

// keyMap defines the key bindings specific to the runs tab.
type keyMap struct {
	Open    key.Binding
	Delete  key.Binding
	Details key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open run"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete run"),
		),
		Details: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "toggle details"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "cancel"),
		),
	}
}

// Model represents the runs tab state.
type Model struct {
	state         *app.State
	table         table.Model
	keys          keyMap
	runs          []models.Run
	details       bool
	confirmDelete bool
	deleteID      string
	width         int
	height        int
}

// New creates a new runs model.
func New(state *app.State) *Model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Subtle).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Selected.
		Foreground(styles.TextPrimary).
		Background(styles.BgAccent).
		Bold(true)
	t.SetStyles(s)

	return &Model{
		state: state,
		table: t,
		keys:  defaultKeyMap(),
	}
}

func columns(width int) []table.Column {
	manifestWidth := min(max(width-78, 12), 40)
	return []table.Column{
		{Title: "", Width: 1},
		{Title: "Run", Width: 8},
		{Title: "Started", Width: 16},
		{Title: "Took", Width: 8},
		{Title: "Devices", Width: 9},
		{Title: "Failed", Width: 6},
		{Title: "Layout", Width: 7},
		{Title: "Format", Width: 6},
		{Title: "Manifest", Width: manifestWidth},
	}
}

// Init initializes the runs tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the runs tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if m.confirmDelete {
		return m.updateDeleteConfirm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.updateTableData()
		switch {
		case key.Matches(msg, m.keys.Open):
			if run, ok := m.selectedRun(); ok {
				id := run.ID
				return m, func() tea.Msg {
					return app.OpenRunMsg{RunID: id}
				}
			}
		case key.Matches(msg, m.keys.Delete):
			if run, ok := m.selectedRun(); ok {
				m.confirmDelete = true
				m.deleteID = run.ID
			}
		case key.Matches(msg, m.keys.Details):
			m.details = !m.details
		default:
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

	case app.RunsLoadedMsg, app.DeleteRunResultMsg, app.ServiceEventMsg:
		m.updateTableData()
	}

	return m, nil
}

func (m *Model) updateDeleteConfirm(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		id := m.deleteID
		m.confirmDelete = false
		m.deleteID = ""
		return m, func() tea.Msg {
			return app.DeleteRunMsg{RunID: id}
		}
	case key.Matches(keyMsg, m.keys.Cancel):
		m.confirmDelete = false
		m.deleteID = ""
	}
	return m, nil
}

func (m *Model) selectedRun() (models.Run, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.runs) {
		return models.Run{}, false
	}
	return m.runs[i], true
}

// updateTableData rebuilds the rows from the stored run list.
func (m *Model) updateTableData() {
	m.runs = m.state.GetRuns()

	current := ""
	if summary := m.state.GetSummary(); summary != nil {
		current = summary.RunID
	}

	rows := make([]table.Row, 0, len(m.runs))
	for _, r := range m.runs {
		marker := ""
		if r.ID == current {
			marker = "*"
		}
		layout := "hourly"
		if r.SplitWeekday {
			layout = "weekday"
		}
		rows = append(rows, table.Row{
			marker,
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			formatDuration(r.Duration()),
			fmt.Sprintf("%d/%d", r.Processed, r.Devices),
			fmt.Sprintf("%d", r.Failed),
			layout,
			r.Format,
			r.Manifest,
		})
	}
	m.table.SetRows(rows)
	if len(rows) > 0 && m.table.Cursor() >= len(rows) {
		m.table.SetCursor(len(rows) - 1)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}

// SetSize sets the available size for the runs tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(height-14, 5))
	m.table.SetColumns(columns(width))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.confirmDelete {
		return []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	return []key.Binding{m.keys.Open, m.keys.Delete, m.keys.Details}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	km := m.table.KeyMap
	return [][]key.Binding{
		{km.LineUp, km.LineDown, km.GotoTop, km.GotoBottom},
		{m.keys.Open, m.keys.Delete, m.keys.Details},
	}
}
