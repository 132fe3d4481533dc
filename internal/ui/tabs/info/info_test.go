package info

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/devicestats/internal/app"
	"github.com/j-veylop/devicestats/internal/config"
	"github.com/j-veylop/devicestats/internal/models"
)

func TestNew(t *testing.T) {
	m := New(app.NewState(), &config.Config{})
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init should return nil")
	}
}

func TestModel_View(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want []string
	}{
		{
			name: "nil config",
			cfg:  nil,
			want: []string{"Configuration not loaded", "About dstats"},
		},
		{
			name: "local logs",
			cfg: &config.Config{
				ManifestPath:  "devices.txt",
				LogDir:        "/data/logs",
				DatabasePath:  "/tmp/dstats.db",
				Kinds:         models.NewKindSet(models.KindForeground),
				Workers:       4,
				KeepRuns:      50,
				Watch:         true,
				WatchDebounce: 2 * time.Second,
			},
			want: []string{"devices.txt", "/data/logs", "foreground", "on (debounce 2s)", "(none)"},
		},
		{
			name: "s3 logs",
			cfg: &config.Config{
				ManifestPath: "devices.txt",
				S3Bucket:     "activity",
				S3Prefix:     "/logs/2014",
			},
			want: []string{"s3://activity/logs/2014"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(app.NewState(), tt.cfg)
			m.SetSize(120, 80)
			view := m.View()
			for _, w := range tt.want {
				if !strings.Contains(view, w) {
					t.Errorf("view should contain %q", w)
				}
			}
		})
	}
}

func TestModel_Update(t *testing.T) {
	m := New(app.NewState(), &config.Config{})
	m.SetSize(80, 10)
	m.View()
	for _, k := range []string{"j", "k"} {
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		if updated == nil || cmd != nil {
			t.Errorf("key %q: unexpected result", k)
		}
	}
	if len(m.ShortHelp()) != 3 || len(m.FullHelp()) != 2 {
		t.Error("unexpected help bindings")
	}
}

func TestModel_EnvToggle(t *testing.T) {
	cfg := &config.Config{ManifestPath: "devices.txt", S3Bucket: "activity"}
	m := New(app.NewState(), cfg)
	m.SetSize(140, 80)

	if strings.Contains(m.View(), "DSTATS_MANIFEST") {
		t.Fatal("env vars should be hidden by default")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	view := m.View()
	for _, want := range []string{"DSTATS_MANIFEST", "DSTATS_S3_BUCKET", "DSTATS_KINDS"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should name %s", want)
		}
	}
	if strings.Contains(view, "DSTATS_LOG_DIR") {
		t.Error("S3 logs should not point at DSTATS_LOG_DIR")
	}
}
