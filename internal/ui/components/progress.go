package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/devicestats/internal/ui/styles"
)

// AnimationTickMsg advances a RunBar towards its target.
type AnimationTickMsg time.Time

func animationTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return AnimationTickMsg(t)
	})
}

// RunBar renders the device progress of an analysis run.
type RunBar struct {
	progress    progress.Model
	current     float64
	target      float64
	isAnimating bool
}

// NewRunBar creates a run bar of the given width.
func NewRunBar(width int) RunBar {
	p := progress.New(
		progress.WithScaledGradient("#5f87af", "#51cf66"),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	return RunBar{progress: p}
}

// SetFraction sets the target fraction in [0, 1] and starts easing towards it.
func (r *RunBar) SetFraction(f float64) tea.Cmd {
	r.target = min(max(f, 0), 1)
	if r.target < r.current {
		r.current = r.target
	}
	if r.isAnimating {
		return nil
	}
	r.isAnimating = true
	return animationTick()
}

// Reset jumps back to zero without animating.
func (r *RunBar) Reset() {
	r.current, r.target, r.isAnimating = 0, 0, false
}

// Fraction returns the currently displayed fraction.
func (r RunBar) Fraction() float64 {
	return r.current
}

// Update eases the displayed fraction on animation ticks.
func (r RunBar) Update(msg tea.Msg) (RunBar, tea.Cmd) {
	if _, ok := msg.(AnimationTickMsg); !ok || !r.isAnimating {
		return r, nil
	}
	if r.current >= r.target {
		r.current = r.target
		r.isAnimating = false
		return r, nil
	}
	step := max((r.target-r.current)/5, 0.01)
	r.current = min(r.current+step, r.target)
	return r, animationTick()
}

// View renders the bar with a label and the done/total counts.
func (r RunBar) View(label string, done, total, width int) string {
	r.progress.Width = max(width-32, 10)
	counts := fmt.Sprintf("%d/%d", done, total)
	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		styles.ProgressLabelStyle.Render(label),
		r.progress.ViewAs(r.current),
		" ",
		styles.ProgressPercentStyle.Render(fmt.Sprintf("%.0f%%", r.current*100)),
		" ",
		styles.HelpStyle.Render(counts),
	)
}
