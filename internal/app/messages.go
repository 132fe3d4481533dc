package app

import (
	"time"

	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/services"
	"github.com/j-veylop/devicestats/internal/services/inputs"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// StartLoadingMsg signals that a resource is starting to load.
type StartLoadingMsg struct {
	Resource string
}

// StopLoadingMsg signals that a resource has finished loading.
type StopLoadingMsg struct {
	Resource string
}

// InitialDataMsg carries everything the first frame needs.
type InitialDataMsg struct {
	Snapshot *inputs.Snapshot
	Summary  *models.Summary
	Runs     []models.Run
}

// RunsLoadedMsg carries the stored run list.
type RunsLoadedMsg struct {
	Error error
	Runs  []models.Run
}

// SummaryLoadedMsg carries a stored run opened from history.
type SummaryLoadedMsg struct {
	Summary *models.Summary
	Error   error
	RunID   string
}

// StartRunMsg requests a new run over the loaded inputs.
type StartRunMsg struct{}

// RunStartResultMsg reports whether a run could be started.
type RunStartResultMsg struct {
	Error error
}

// CancelRunMsg requests cancellation of the run in progress.
type CancelRunMsg struct{}

// OpenRunMsg requests loading a stored run into the display.
type OpenRunMsg struct {
	RunID string
}

// DeleteRunMsg requests deletion of a stored run.
type DeleteRunMsg struct {
	RunID string
}

// DeleteRunResultMsg contains the result of a run deletion.
type DeleteRunResultMsg struct {
	Error error
	RunID string
}

// RefreshMsg requests a reload of a resource: "all", "runs" or "summary".
type RefreshMsg struct {
	Resource string
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Duration time.Duration
	Type     NotificationType
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// QuitMsg requests the application to quit.
type QuitMsg struct{}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}
