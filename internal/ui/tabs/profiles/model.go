// Package profiles provides the profiles tab for browsing the hourly series of a run.
package profiles

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/devicestats/internal/app"
	"github.com/j-veylop/devicestats/internal/models"
)

// keyMap defines the key bindings specific to the profiles tab.
type keyMap struct {
	Next       key.Binding
	Prev       key.Binding
	NextKind   key.Binding
	PrevKind   key.Binding
	Level      key.Binding
	Field      key.Binding
	Span       key.Binding
	Compare    key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j", "next series"),
		),
		Prev: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k", "prev series"),
		),
		NextKind: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next kind"),
		),
		PrevKind: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev kind"),
		),
		Level: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "cycle level"),
		),
		Field: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "cycle statistic"),
		),
		Span: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "cycle days"),
		),
		Compare: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "weekdays vs weekend"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
	}
}

var levels = []models.Level{models.LevelEntity, models.LevelCategory, models.LevelOverall}

var spans = []models.Span{models.SpanAll, models.SpanWeekdays, models.SpanWeekend}

// selection is the resolved view of the current cursor against a summary.
type selection struct {
	kinds []models.Kind
	names []string
	kind  models.Kind
	level models.Level
	span  models.Span
	name  string
	index int
}

// Model represents the profiles tab state.
type Model struct {
	state    *app.State
	keys     keyMap
	viewport viewport.Model

	kindIndex int
	level     models.Level
	field     int
	span      models.Span
	selected  int
	compare   bool

	width  int
	height int
}

// New creates a new profiles model.
func New(state *app.State) *Model {
	return &Model{
		state:    state,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the profiles tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.SummaryLoadedMsg:
		if msg.Error == nil {
			m.selected = 0
		}
	case tea.KeyMsg:
		m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) {
	summary := m.state.GetSummary()
	if summary == nil {
		return
	}
	sel := m.resolve(summary)

	switch {
	case key.Matches(msg, m.keys.Next):
		if len(sel.names) > 0 {
			m.selected = (sel.index + 1) % len(sel.names)
		}
	case key.Matches(msg, m.keys.Prev):
		if len(sel.names) > 0 {
			m.selected = (sel.index - 1 + len(sel.names)) % len(sel.names)
		}
	case key.Matches(msg, m.keys.NextKind):
		if len(sel.kinds) > 0 {
			m.kindIndex = (m.kindIndex + 1) % len(sel.kinds)
			m.selected = 0
		}
	case key.Matches(msg, m.keys.PrevKind):
		if len(sel.kinds) > 0 {
			m.kindIndex = (m.kindIndex - 1 + len(sel.kinds)) % len(sel.kinds)
			m.selected = 0
		}
	case key.Matches(msg, m.keys.Level):
		m.level = nextLevel(summary, sel.kind, sel.level)
		m.selected = 0
	case key.Matches(msg, m.keys.Field):
		m.field = (m.field + 1) % len(models.StatFields)
	case key.Matches(msg, m.keys.Span):
		if summary.Layout.SplitWeekday {
			m.span = spans[(int(sel.span)+1)%len(spans)]
		}
	case key.Matches(msg, m.keys.Compare):
		if summary.Layout.SplitWeekday {
			m.compare = !m.compare
		}
	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfPageUp()
	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfPageDown()
	}
}

// nextLevel returns the next level after current that has series for kind.
func nextLevel(summary *models.Summary, kind models.Kind, current models.Level) models.Level {
	for i := 1; i <= len(levels); i++ {
		l := levels[(int(current)+i)%len(levels)]
		if len(summary.Names(kind, l)) > 0 {
			return l
		}
	}
	return current
}

// resolve clamps the cursor against the summary without mutating the model.
func (m *Model) resolve(summary *models.Summary) selection {
	sel := selection{
		kinds: summary.Kinds.Kinds(),
		level: m.level,
		span:  m.span,
	}
	if len(sel.kinds) == 0 {
		return sel
	}
	sel.kind = sel.kinds[m.kindIndex%len(sel.kinds)]

	sel.names = summary.Names(sel.kind, sel.level)
	if len(sel.names) == 0 {
		sel.level = nextLevel(summary, sel.kind, sel.level)
		sel.names = summary.Names(sel.kind, sel.level)
	}
	if !summary.Layout.SplitWeekday {
		sel.span = models.SpanAll
	}
	if len(sel.names) > 0 {
		sel.index = min(m.selected, len(sel.names)-1)
		sel.name = sel.names[sel.index]
	}
	return sel
}

// Field returns the statistic currently plotted.
func (m *Model) Field() models.StatField {
	return models.StatFields[m.field]
}

// SetSize sets the available size for the profiles tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Next, m.keys.NextKind, m.keys.Level, m.keys.Field}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Next, m.keys.Prev},
		{m.keys.NextKind, m.keys.PrevKind},
		{m.keys.Level, m.keys.Field, m.keys.Span, m.keys.Compare},
		{m.keys.ScrollUp, m.keys.ScrollDown},
	}
}
