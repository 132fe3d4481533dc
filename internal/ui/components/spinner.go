package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/devicestats/internal/ui/styles"
)

// RunPhase is the stage of work the overview is waiting on.
type RunPhase int

const (
	// PhaseLoading covers reading the manifest, mapping and stored runs.
	PhaseLoading RunPhase = iota
	// PhaseAnalysing covers decoding device logs.
	PhaseAnalysing
	// PhaseAggregating covers the cross-device rollup after the last device.
	PhaseAggregating
)

var phaseFrames = map[RunPhase]spinner.Spinner{
	PhaseLoading: {
		Frames: []string{"⠁", "⠂", "⠄", "⡀", "⢀", "⠠", "⠐", "⠈"},
		FPS:    time.Second / 10,
	},
	// A bucket filling and draining.
	PhaseAnalysing: {
		Frames: []string{"▁", "▂", "▃", "▄", "▅", "▆", "▇", "█", "▇", "▆", "▅", "▄", "▃", "▂"},
		FPS:    time.Second / 12,
	},
	PhaseAggregating: {
		Frames: []string{"◐", "◓", "◑", "◒"},
		FPS:    time.Second / 6,
	},
}

var phaseColors = map[RunPhase]lipgloss.Color{
	PhaseLoading:     styles.Primary,
	PhaseAnalysing:   styles.Use,
	PhaseAggregating: styles.Accent,
}

// RunSpinner animates while inputs load or a run is in flight. Its label
// follows the phase and device counts.
type RunSpinner struct {
	spinner spinner.Model
	phase   RunPhase
	total   int
	failed  int
	style   lipgloss.Style
}

// NewRunSpinner creates a spinner in the loading phase.
func NewRunSpinner() RunSpinner {
	s := RunSpinner{
		spinner: spinner.New(),
		style:   lipgloss.NewStyle().Foreground(styles.TextSecondary),
	}
	s.SetPhase(PhaseLoading)
	return s
}

func (s RunSpinner) Init() tea.Cmd {
	return s.spinner.Tick
}

func (s RunSpinner) Update(msg tea.Msg) (RunSpinner, tea.Cmd) {
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// SetPhase switches frames and color. The frame position restarts.
func (s *RunSpinner) SetPhase(p RunPhase) {
	s.phase = p
	s.spinner.Spinner = phaseFrames[p]
	s.spinner.Style = lipgloss.NewStyle().Foreground(phaseColors[p])
}

// Phase returns the current phase.
func (s RunSpinner) Phase() RunPhase {
	return s.phase
}

// StartRun enters the analysing phase for a run over total devices.
func (s *RunSpinner) StartRun(total int) {
	s.total = total
	s.failed = 0
	s.SetPhase(PhaseAnalysing)
}

// Advance records progress. Once every device is accounted for the spinner
// moves on to aggregating.
func (s *RunSpinner) Advance(done, failed int) {
	s.failed = failed
	if s.phase == PhaseAnalysing && s.total > 0 && done >= s.total {
		s.SetPhase(PhaseAggregating)
	}
}

// Label describes the current phase.
func (s RunSpinner) Label() string {
	switch s.phase {
	case PhaseAnalysing:
		label := fmt.Sprintf("Analysing %s devices", humanize.Comma(int64(s.total)))
		if s.failed > 0 {
			label += fmt.Sprintf(", %s failed", humanize.Comma(int64(s.failed)))
		}
		return label
	case PhaseAggregating:
		return fmt.Sprintf("Aggregating %s devices", humanize.Comma(int64(s.total)))
	default:
		return "Loading inputs..."
	}
}

// View renders the current frame only.
func (s RunSpinner) View() string {
	return s.spinner.View()
}

// ViewWithLabel renders the frame followed by the phase label.
func (s RunSpinner) ViewWithLabel() string {
	return s.spinner.View() + " " + s.style.Render(s.Label())
}

// Tick returns the tick command for the spinner.
func (s RunSpinner) Tick() tea.Cmd {
	return s.spinner.Tick
}

// RenderSpinnerCentered renders the spinner and its label centered in the
// given area.
func RenderSpinnerCentered(s RunSpinner, width, height int) string {
	return styles.CenterBoth(s.ViewWithLabel(), width, height)
}
