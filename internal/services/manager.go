// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/devicestats/internal/config"
	"github.com/j-veylop/devicestats/internal/db"
	"github.com/j-veylop/devicestats/internal/decoder"
	"github.com/j-veylop/devicestats/internal/logger"
	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/services/analysis"
	"github.com/j-veylop/devicestats/internal/services/inputs"
)

// ErrNoInputs is returned when a run is requested without a loaded manifest.
var ErrNoInputs = errors.New("no manifest loaded")

type (
	// InputsChangedEvent is emitted when the manifest or mapping is (re)loaded.
	InputsChangedEvent struct {
		Snapshot *inputs.Snapshot
		Paths    []string
	}

	// RunStartedEvent is emitted when a run begins.
	RunStartedEvent struct {
		RunID string
		Total int
	}

	// RunProgressEvent is emitted as devices complete.
	RunProgressEvent struct {
		RunID    string
		Device   string
		Progress analysis.Progress
	}

	// RunFinishedEvent is emitted when a run completes successfully.
	RunFinishedEvent struct {
		Summary *models.Summary
	}

	// RunsChangedEvent is emitted when the stored run list changes.
	RunsChangedEvent struct {
		Runs []models.Run
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (InputsChangedEvent) isServiceEvent() {}
func (RunStartedEvent) isServiceEvent()    {}
func (RunProgressEvent) isServiceEvent()   {}
func (RunFinishedEvent) isServiceEvent()   {}
func (RunsChangedEvent) isServiceEvent()   {}
func (ErrorEvent) isServiceEvent()         {}

// runListLimit bounds the run list sent to subscribers.
const runListLimit = 50

// Manager orchestrates services and event routing.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	inputs      *inputs.Service
	analysis    *analysis.Service
	database    *db.DB
	source      decoder.Source
	notify      func(title, body string) error
	eventChan   chan ServiceEvent
	stopChan    chan struct{}
	subscribers []chan<- ServiceEvent
}

// NewManager creates a new service manager. A missing manifest is not an
// error; runs are refused until one is configured.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		eventChan: make(chan ServiceEvent, 100),
		stopChan:  make(chan struct{}),
		notify: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
	}

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m.source, err = NewSource(context.Background(), cfg)
	if err != nil {
		_ = m.database.Close()
		return nil, fmt.Errorf("failed to initialize log source: %w", err)
	}

	if cfg.ManifestPath != "" {
		m.inputs, err = inputs.New(cfg.ManifestPath, cfg.Format, cfg.MappingPath, cfg.Watch, cfg.WatchDebounce)
		if err != nil {
			logger.Warn("Inputs unavailable", "manifest", cfg.ManifestPath, "error", err)
		}
	}

	m.analysis = analysis.New(m.database)

	go m.routeEvents()

	return m, nil
}

func (m *Manager) inputEvents() <-chan inputs.Event {
	if m.inputs == nil {
		return nil
	}
	return m.inputs.Events()
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents() {
	for {
		select {
		case event := <-m.inputEvents():
			m.handleInputsEvent(event)

		case event := <-m.analysis.Events():
			m.handleAnalysisEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

// handleInputsEvent converts and broadcasts input events. A reload re-runs
// the analysis when watching is enabled.
func (m *Manager) handleInputsEvent(event inputs.Event) {
	switch event.Type {
	case inputs.EventLoaded, inputs.EventReloaded:
		m.broadcast(InputsChangedEvent{Snapshot: event.Snapshot, Paths: event.Paths})

		if event.Type == inputs.EventReloaded && m.cfg.Watch {
			if err := m.StartRun(); err != nil && !errors.Is(err, analysis.ErrRunning) {
				m.broadcast(ErrorEvent{Service: "analysis", Error: err})
			}
		}

	case inputs.EventError:
		m.broadcast(ErrorEvent{Service: "inputs", Error: event.Error})
	}
}

func (m *Manager) handleAnalysisEvent(event analysis.Event) {
	switch event.Type {
	case analysis.EventRunStarted:
		m.broadcast(RunStartedEvent{RunID: event.RunID, Total: event.Progress.Total})

	case analysis.EventDeviceDone:
		m.broadcast(RunProgressEvent{RunID: event.RunID, Device: event.Device, Progress: event.Progress})

	case analysis.EventRunFinished:
		m.broadcast(RunFinishedEvent{Summary: event.Summary})
		m.checkNotifications(event.Summary)
		if runs, err := m.ListRuns(runListLimit); err == nil {
			m.broadcast(RunsChangedEvent{Runs: runs})
		}

	case analysis.EventRunFailed:
		m.broadcast(ErrorEvent{Service: "analysis", Error: event.Error})
	}
}

func (m *Manager) checkNotifications(s *models.Summary) {
	if !m.cfg.Notify || s == nil {
		return
	}

	title := "devicestats: run finished"
	body := fmt.Sprintf("%s devices processed, %s failed in %s",
		humanize.Comma(int64(s.Processed)),
		humanize.Comma(int64(len(s.Failures))),
		s.Duration().Round(time.Second),
	)
	if err := m.notify(title, body); err != nil {
		logger.Debug("notification failed", "error", err)
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	// Send to main event channel
	select {
	case m.eventChan <- event:
	default:
	}

	// Send to subscribers
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, waitForEvent(ch)
}

// waitForEvent returns a tea.Cmd that waits for the next event.
func waitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return waitForEvent(ch)
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Options returns run options for the current inputs.
func (m *Manager) Options() (analysis.Options, error) {
	if m.inputs == nil {
		return analysis.Options{}, ErrNoInputs
	}
	return BuildOptions(m.cfg, m.inputs.Snapshot(), m.source), nil
}

// StartRun launches a run in the background.
func (m *Manager) StartRun() error {
	opts, err := m.Options()
	if err != nil {
		return err
	}
	return m.analysis.Start(opts)
}

// CancelRun stops the run in progress.
func (m *Manager) CancelRun() {
	m.analysis.Cancel()
}

// Running reports whether a run is in progress.
func (m *Manager) Running() bool {
	return m.analysis.Running()
}

// LastSummary returns the most recent summary: the last run of this session,
// or else the newest stored run.
func (m *Manager) LastSummary() *models.Summary {
	if s := m.analysis.Last(); s != nil {
		return s
	}
	runs, err := m.ListRuns(1)
	if err != nil || len(runs) == 0 {
		return nil
	}
	s, err := m.GetSummary(runs[0].ID)
	if err != nil {
		logger.Warn("failed to load stored summary", "run", runs[0].ID, "error", err)
		return nil
	}
	return s
}

// ListRuns returns the newest stored runs.
func (m *Manager) ListRuns(limit int) ([]models.Run, error) {
	if m.database == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return m.database.ListRuns(limit)
}

// GetSummary loads a stored run.
func (m *Manager) GetSummary(runID string) (*models.Summary, error) {
	if m.database == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return m.database.GetSummary(runID)
}

// DeleteRun removes a stored run and broadcasts the new run list.
func (m *Manager) DeleteRun(runID string) error {
	if m.database == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := m.database.DeleteRun(runID); err != nil {
		return err
	}
	if runs, err := m.ListRuns(runListLimit); err == nil {
		m.broadcast(RunsChangedEvent{Runs: runs})
	}
	return nil
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Snapshot returns the current inputs, or nil when none are loaded.
func (m *Manager) Snapshot() *inputs.Snapshot {
	if m.inputs == nil {
		return nil
	}
	return m.inputs.Snapshot()
}

// Source returns the log source.
func (m *Manager) Source() decoder.Source {
	return m.source
}

// Inputs returns the inputs service, or nil when no manifest is configured.
func (m *Manager) Inputs() *inputs.Service {
	return m.inputs
}

// Analysis returns the analysis service.
func (m *Manager) Analysis() *analysis.Service {
	return m.analysis
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	if m.stopChan != nil {
		close(m.stopChan)
	}
	if m.analysis != nil {
		m.analysis.Cancel()
	}

	m.mu.Lock()
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
	m.mu.Unlock()

	var errs []error

	if m.inputs != nil {
		if err := m.inputs.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.database != nil {
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// InitialState returns the initial state of all services for TUI initialization.
func (m *Manager) InitialState() (*inputs.Snapshot, *models.Summary, []models.Run) {
	runs, err := m.ListRuns(runListLimit)
	if err != nil {
		logger.Warn("failed to list runs", "error", err)
	}
	return m.Snapshot(), m.LastSummary(), runs
}
