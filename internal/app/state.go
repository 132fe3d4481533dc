// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"sync"
	"time"

	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/services/analysis"
	"github.com/j-veylop/devicestats/internal/services/inputs"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	NotificationSuccess NotificationType = iota
	NotificationError
	NotificationWarning
	NotificationInfo
	// NotificationLoading is rendered with the spinner as its prefix.
	NotificationLoading
)

// LoadingNotificationID is the fixed ID for the loading notification.
const LoadingNotificationID = "__loading__"

const maxNotifications = 10

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification is a user-facing toast.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Duration  time.Duration
	Type      NotificationType
}

// IsExpired returns true if the notification has expired. Zero duration never expires.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// LoadingState tracks which resources are loading.
type LoadingState struct {
	Initial bool
	Runs    bool
	Summary bool
}

// RunState is the live view of the run in progress.
type RunState struct {
	StartedAt  time.Time
	ID         string
	LastDevice string
	Progress   analysis.Progress
	Running    bool
}

// State is shared by the root model and every tab.
type State struct {
	mu sync.RWMutex

	Snapshot *inputs.Snapshot
	Summary  *models.Summary
	Runs     []models.Run
	Run      RunState

	Loading     LoadingState
	LastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState returns a state that is still in its initial load.
func NewState() *State {
	return &State{
		notifications: make([]Notification, 0),
		Loading:       LoadingState{Initial: true},
	}
}

// SetLoading sets the loading flag for a resource: "initial", "runs" or "summary".
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch resource {
	case "initial":
		s.Loading.Initial = loading
	case "runs":
		s.Loading.Runs = loading
	case "summary":
		s.Loading.Summary = loading
	}
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial || s.Loading.Runs || s.Loading.Summary
}

// IsInitialLoading returns true if initial data is still loading.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial
}

// SetSnapshot stores the loaded inputs.
func (s *State) SetSnapshot(snap *inputs.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Snapshot = snap
	s.LastUpdated = time.Now()
}

// GetSnapshot returns the loaded inputs, or nil.
func (s *State) GetSnapshot() *inputs.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Snapshot
}

// DeviceCount returns the number of devices in the loaded manifest.
func (s *State) DeviceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Snapshot == nil || s.Snapshot.Manifest == nil {
		return 0
	}
	return len(s.Snapshot.Manifest.Entries)
}

// SetSummary replaces the displayed summary.
func (s *State) SetSummary(summary *models.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Summary = summary
	s.LastUpdated = time.Now()
}

// GetSummary returns the displayed summary, or nil.
func (s *State) GetSummary() *models.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Summary
}

// SetRuns replaces the stored run list.
func (s *State) SetRuns(runs []models.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Runs = runs
}

// GetRuns returns a copy of the stored run list.
func (s *State) GetRuns() []models.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]models.Run, len(s.Runs))
	copy(runs, s.Runs)
	return runs
}

// GetRunCount returns the number of stored runs.
func (s *State) GetRunCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Runs)
}

// BeginRun marks a run as started.
func (s *State) BeginRun(id string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Run = RunState{
		ID:        id,
		StartedAt: time.Now(),
		Running:   true,
		Progress:  analysis.Progress{Total: total},
	}
}

// UpdateRun records device progress. Updates for another run are ignored.
func (s *State) UpdateRun(id, device string, p analysis.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Run.ID != "" && s.Run.ID != id {
		return
	}
	s.Run.ID = id
	s.Run.Running = true
	s.Run.LastDevice = device
	s.Run.Progress = p
}

// EndRun clears the running flag and, when summary is set, displays it.
func (s *State) EndRun(summary *models.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Run.Running = false
	if summary != nil {
		s.Summary = summary
		s.Run.Progress.Done = summary.Processed
		s.LastUpdated = time.Now()
	}
}

// GetRun returns the live run state.
func (s *State) GetRun() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Run
}

// IsRunning reports whether a run is in progress.
func (s *State) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Run.Running
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := time.Now().Format("20060102150405") + "-" + string(rune('A'+s.notificationSeq%26))

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})
	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}
	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = s.active()
}

func (s *State) active() []Notification {
	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// GetNotifications returns the notifications that have not expired.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active()
}

// SetLoadingNotification shows or updates the single loading notification.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}
	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// TimeSinceUpdate returns the duration since the last update, or zero if never updated.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.LastUpdated)
}
