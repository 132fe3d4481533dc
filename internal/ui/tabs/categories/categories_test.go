package categories

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/devicestats/internal/app"
	"github.com/j-veylop/devicestats/internal/models"
)

func testSummary() *models.Summary {
	return &models.Summary{
		RunID: "run-1",
		Shares: []models.CategoryShare{
			{Category: "social", Use: 30, UsePercent: 75, Demand: 1000, DemandPercent: 20},
			{Category: "games", Use: 10, UsePercent: 25, Demand: 4000, DemandPercent: 80},
			{Category: "tools", Use: 0, UsePercent: 0, Demand: 0, DemandPercent: 0},
		},
		Contributions: models.Contributions{
			CategoryUse:    map[string][]string{"social": {"dev-a", "dev-b"}, "games": {"dev-a"}},
			CategoryDemand: map[string][]string{"games": {"dev-a", "dev-b", "dev-c"}},
		},
	}
}

func newModel(summary *models.Summary) *Model {
	state := app.NewState()
	state.SetLoading("initial", false)
	state.SetSummary(summary)
	m := New(state)
	m.SetSize(120, 60)
	return m
}

func press(m *Model, k string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func categoryOrder(m *Model) []string {
	var names []string
	for _, s := range m.sortedShares() {
		names = append(names, s.Category)
	}
	return names
}

func TestModel_View_Empty(t *testing.T) {
	m := newModel(nil)
	if !strings.Contains(m.View(), "Start a run") {
		t.Error("view without a summary should prompt for a run")
	}

	m = newModel(&models.Summary{RunID: "run-1"})
	if !strings.Contains(m.View(), "no app category mapping") {
		t.Error("view for an unmapped run should mention the mapping")
	}
}

func TestModel_View(t *testing.T) {
	m := newModel(testSummary())
	view := m.View()
	for _, want := range []string{"3 categories, sorted by use", "social", "75.0%", "Share of overall use"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}

	press(m, "m")
	if !strings.Contains(m.View(), "Share of overall demand") {
		t.Error("m should switch the chart to demand")
	}
}

func TestModel_Sort(t *testing.T) {
	m := newModel(testSummary())

	tests := []struct {
		order string
		want  []string
	}{
		{"use", []string{"social", "games", "tools"}},
		{"demand", []string{"games", "social", "tools"}},
		{"name", []string{"games", "social", "tools"}},
		{"use", []string{"social", "games", "tools"}},
	}
	for i, tt := range tests {
		if i > 0 {
			press(m, "o")
		}
		if m.order.String() != tt.order {
			t.Fatalf("step %d: order = %s, want %s", i, m.order, tt.order)
		}
		if got := strings.Join(categoryOrder(m), ","); got != strings.Join(tt.want, ",") {
			t.Errorf("order %s = %s, want %v", tt.order, got, tt.want)
		}
	}
}

func TestModel_TableRows(t *testing.T) {
	m := newModel(testSummary())
	m.updateTableData()

	rows := m.table.Rows()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	// games: one use device, three demand devices
	if rows[1][0] != "games" || rows[1][5] != "3" {
		t.Errorf("games row = %v", rows[1])
	}
	if rows[0][3] != "1.0 kB" {
		t.Errorf("social demand = %q, want 1.0 kB", rows[0][3])
	}

	press(m, "j")
	if m.table.Cursor() != 1 {
		t.Errorf("cursor = %d, want 1", m.table.Cursor())
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0%"},
		{0.4, "<1%"},
		{12.345, "12.3%"},
		{100, "100.0%"},
	}
	for _, tt := range tests {
		if got := formatPercent(tt.in); got != tt.want {
			t.Errorf("formatPercent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
