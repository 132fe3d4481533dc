package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/devicestats/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for errors and finished runs.
	LongNotificationDuration = 10 * time.Second

	// RunListLimit caps the run history shown in the UI.
	RunListLimit = 50
)

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadInitialData returns a command that loads inputs, the latest summary and the run list.
func loadInitialData(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		snap, summary, runs := mgr.InitialState()
		return InitialDataMsg{Snapshot: snap, Summary: summary, Runs: runs}
	}
}

func loadRunsCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		runs, err := mgr.ListRuns(RunListLimit)
		return RunsLoadedMsg{Runs: runs, Error: err}
	}
}

func loadSummaryCmd(mgr *services.Manager, runID string) tea.Cmd {
	return func() tea.Msg {
		summary, err := mgr.GetSummary(runID)
		return SummaryLoadedMsg{RunID: runID, Summary: summary, Error: err}
	}
}

func startRunCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return RunStartResultMsg{Error: mgr.StartRun()}
	}
}

func cancelRunCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		mgr.CancelRun()
		return AddNotificationMsg{
			Type:     NotificationWarning,
			Message:  "Cancelling run...",
			Duration: QuickNotificationDuration,
		}
	}
}

func deleteRunCmd(mgr *services.Manager, runID string) tea.Cmd {
	return func() tea.Msg {
		return DeleteRunResultMsg{RunID: runID, Error: mgr.DeleteRun(runID)}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, DefaultNotificationDuration)
}

func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

func notifyWarningCmd(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message, DefaultNotificationDuration)
}

func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, QuickNotificationDuration)
}

// Commands exposes the command constructors to tabs.
type Commands struct {
	manager *services.Manager
}

// NewCommands creates a new Commands instance.
func NewCommands(mgr *services.Manager) *Commands {
	return &Commands{manager: mgr}
}

// Tick returns a tick command with the specified interval.
func (c *Commands) Tick(interval time.Duration) tea.Cmd {
	return tickCmd(interval)
}

// DefaultTick returns a tick command with the default interval.
func (c *Commands) DefaultTick() tea.Cmd {
	return defaultTickCmd()
}

// LoadInitialData returns a command that loads all initial data.
func (c *Commands) LoadInitialData() tea.Cmd {
	return loadInitialData(c.manager)
}

// LoadRuns returns a command that loads the stored run list.
func (c *Commands) LoadRuns() tea.Cmd {
	return loadRunsCmd(c.manager)
}

// LoadSummary returns a command that loads a stored run.
func (c *Commands) LoadSummary(runID string) tea.Cmd {
	return loadSummaryCmd(c.manager, runID)
}

// StartRun returns a command that starts a run.
func (c *Commands) StartRun() tea.Cmd {
	return startRunCmd(c.manager)
}

// CancelRun returns a command that cancels the run in progress.
func (c *Commands) CancelRun() tea.Cmd {
	return cancelRunCmd(c.manager)
}

// DeleteRun returns a command that deletes a stored run.
func (c *Commands) DeleteRun(runID string) tea.Cmd {
	return deleteRunCmd(c.manager, runID)
}

// NotifySuccess returns a command that adds a success notification.
func (c *Commands) NotifySuccess(message string) tea.Cmd {
	return notifySuccessCmd(message)
}

// NotifyError returns a command that adds an error notification.
func (c *Commands) NotifyError(message string) tea.Cmd {
	return notifyErrorCmd(message)
}

// NotifyWarning returns a command that adds a warning notification.
func (c *Commands) NotifyWarning(message string) tea.Cmd {
	return notifyWarningCmd(message)
}

// NotifyInfo returns a command that adds an info notification.
func (c *Commands) NotifyInfo(message string) tea.Cmd {
	return notifyInfoCmd(message)
}

// ClearNotification returns a command that removes a notification after a delay.
func (c *Commands) ClearNotification(id string, delay time.Duration) tea.Cmd {
	return clearNotificationCmd(id, delay)
}

// Quit returns a command that quits the application.
func (c *Commands) Quit() tea.Cmd {
	return tea.Quit
}
