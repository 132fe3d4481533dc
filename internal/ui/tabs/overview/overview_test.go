package overview

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/devicestats/internal/app"
	"github.com/j-veylop/devicestats/internal/manifest"
	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/services"
	"github.com/j-veylop/devicestats/internal/services/analysis"
	"github.com/j-veylop/devicestats/internal/services/inputs"
	"github.com/j-veylop/devicestats/internal/ui/components"
)

func testSummary() *models.Summary {
	stats := make([]models.Statistic, models.HoursPerDay)
	stats[9] = models.Statistic{Total: 12, Mean: 6, Count: 2, Min: 4, Max: 8, Median: 6}
	rx := make([]models.Statistic, models.HoursPerDay)
	rx[20] = models.Statistic{Total: 2048, Mean: 2048, Count: 1, Min: 2048, Max: 2048, Median: 2048}

	start := time.Now().Add(-time.Minute)
	return &models.Summary{
		RunID:      "0123456789abcdef",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Kinds:      models.NewKindSet(models.KindForeground, models.KindRxBytes),
		Devices:    3,
		Processed:  2,
		Series: []models.Series{
			{Name: models.OverallEntity, Kind: models.KindForeground, Level: models.LevelOverall, Stats: stats},
			{Name: models.OverallEntity, Kind: models.KindRxBytes, Level: models.LevelOverall, Stats: rx},
		},
		Failures:      []models.DeviceFailure{{Device: "dev-c", Reason: "open dev-c.csv: no such file"}},
		Contributions: models.Contributions{Use: []string{"dev-a", "dev-b"}, Demand: []string{"dev-a"}, All: []string{"dev-a", "dev-b"}},
		OverallUse:    12,
		OverallDemand: 2048,
	}
}

func readyModel() (*Model, *app.State) {
	state := app.NewState()
	state.SetLoading("initial", false)
	m := New(state)
	m.SetSize(100, 90)
	return m, state
}

func TestNew(t *testing.T) {
	m := New(app.NewState())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() == nil {
		t.Error("Init should start the spinner")
	}
}

func TestModel_View_Loading(t *testing.T) {
	m := New(app.NewState())
	m.SetSize(80, 24)
	if !strings.Contains(m.View(), "Loading inputs") {
		t.Error("initial view should show the spinner label")
	}
}

func TestModel_View_Empty(t *testing.T) {
	m, _ := readyModel()
	view := m.View()
	for _, want := range []string{"Device Activity", "No manifest loaded", "No runs yet"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
}

func TestModel_View_WithData(t *testing.T) {
	m, state := readyModel()
	state.SetSnapshot(&inputs.Snapshot{
		LoadedAt: time.Now(),
		Manifest: &manifest.Manifest{
			Entries: []manifest.Entry{{Name: "dev-a"}, {Name: "dev-b"}, {Name: "dev-c"}},
			Format:  models.FormatDA,
		},
	})
	state.SetSummary(testSummary())

	view := m.View()
	for _, want := range []string{"Run 01234567", "2/3 devices", "foreground", "rx_bytes", "2.0 kB", "dev-c", "Failed Devices (1)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
}

func TestModel_RunProgress(t *testing.T) {
	m, state := readyModel()

	state.BeginRun("run-1", 4)
	if _, cmd := m.Update(app.ServiceEventMsg{Event: services.RunStartedEvent{RunID: "run-1", Total: 4}}); cmd == nil {
		t.Error("run start should tick the spinner")
	}

	p := analysis.Progress{Done: 2, Total: 4}
	state.UpdateRun("run-1", "dev-b", p)
	_, cmd := m.Update(app.ServiceEventMsg{Event: services.RunProgressEvent{RunID: "run-1", Device: "dev-b", Progress: p}})
	if cmd == nil {
		t.Fatal("progress should start the bar animation")
	}

	for range 200 {
		var next tea.Cmd
		_, next = m.Update(components.AnimationTickMsg{})
		if next == nil {
			break
		}
	}
	if m.runBar.Fraction() != 0.5 {
		t.Errorf("bar fraction = %v, want 0.5", m.runBar.Fraction())
	}

	view := m.View()
	if !strings.Contains(view, "2/4") || !strings.Contains(view, "dev-b") || !strings.Contains(view, "Analysing 4 devices") {
		t.Error("running view should show counts and last device")
	}

	m.Update(app.ServiceEventMsg{Event: services.RunStartedEvent{RunID: "run-2", Total: 4}})
	if m.runBar.Fraction() != 0 {
		t.Error("a new run should reset the bar")
	}
}

func TestModel_Keys(t *testing.T) {
	m, _ := readyModel()
	for _, k := range []string{"j", "k", "g", "G"} {
		if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}); cmd != nil {
			t.Errorf("key %q should not return a command", k)
		}
	}
	if len(m.ShortHelp()) == 0 || len(m.FullHelp()) == 0 {
		t.Error("help bindings should not be empty")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"a longer reason", 8, "a lon..."},
		{"tiny", 2, "tiny"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
