// Package categories provides the tab showing each category's share of use and demand.
package categories

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/devicestats/internal/app"
	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/ui/components"
	"github.com/j-veylop/devicestats/internal/ui/styles"
)

type sortOrder int

const (
	sortByUse sortOrder = iota
	sortByDemand
	sortByName
	sortOrderCount
)

func (o sortOrder) String() string {
	switch o {
	case sortByUse:
		return "use"
	case sortByDemand:
		return "demand"
	default:
		return "name"
	}
}

// keyMap defines the key bindings specific to the categories tab.
type keyMap struct {
	Sort   key.Binding
	Metric key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Sort: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "cycle sort"),
		),
		Metric: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "use/demand chart"),
		),
	}
}

// Model represents the categories tab state.
type Model struct {
	state  *app.State
	table  table.Model
	keys   keyMap
	order  sortOrder
	demand bool
	width  int
	height int
}

var columnTitles = []string{"Category", "Use", "Use %", "Demand", "Demand %", "Devices"}

// New creates a new categories model.
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
	nameWidth := min(max(width-64, 14), 30)
	widths := []int{nameWidth, 12, 8, 12, 9, 8}
	cols := make([]table.Column, len(columnTitles))
	for i, title := range columnTitles {
		cols[i] = table.Column{Title: title, Width: widths[i]}
	}
	return cols
}

// Init initializes the categories tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the categories tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Sort):
			m.order = (m.order + 1) % sortOrderCount
			m.table.GotoTop()
		case key.Matches(msg, m.keys.Metric):
			m.demand = !m.demand
		default:
			var cmd tea.Cmd
			m.updateTableData()
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// sortedShares returns the displayed summary's shares in the current order.
func (m *Model) sortedShares() []models.CategoryShare {
	summary := m.state.GetSummary()
	if summary == nil {
		return nil
	}
	shares := make([]models.CategoryShare, len(summary.Shares))
	copy(shares, summary.Shares)

	sort.SliceStable(shares, func(i, j int) bool {
		switch m.order {
		case sortByUse:
			return shares[i].Use > shares[j].Use
		case sortByDemand:
			return shares[i].Demand > shares[j].Demand
		default:
			return shares[i].Category < shares[j].Category
		}
	})
	return shares
}

// updateTableData refreshes the rows from the displayed summary.
func (m *Model) updateTableData() {
	summary := m.state.GetSummary()
	shares := m.sortedShares()
	rows := make([]table.Row, 0, len(shares))

	for _, s := range shares {
		devices := len(summary.Contributions.CategoryUse[s.Category])
		if d := len(summary.Contributions.CategoryDemand[s.Category]); d > devices {
			devices = d
		}
		rows = append(rows, table.Row{
			s.Category,
			components.FormatValue(models.KindForeground, s.Use),
			formatPercent(s.UsePercent),
			components.FormatValue(models.KindRxBytes, s.Demand),
			formatPercent(s.DemandPercent),
			fmt.Sprintf("%d", devices),
		})
	}

	m.table.SetRows(rows)
}

func formatPercent(p float64) string {
	switch {
	case p <= 0:
		return "0%"
	case p < 1:
		return "<1%"
	default:
		return fmt.Sprintf("%.1f%%", p)
	}
}

// SetSize sets the available size for the categories tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(height/2-4, 5))
	m.table.SetColumns(columns(width))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Sort, m.keys.Metric}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	km := m.table.KeyMap
	return [][]key.Binding{
		{km.LineUp, km.LineDown},
		{m.keys.Sort, m.keys.Metric},
	}
}
