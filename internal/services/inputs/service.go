// Package inputs loads the run inputs (manifest and mapping) and reloads them
// when the files change on disk.
package inputs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/devicestats/internal/logger"
	"github.com/j-veylop/devicestats/internal/manifest"
	"github.com/j-veylop/devicestats/internal/models"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 100 * time.Millisecond

// Snapshot is one loaded set of inputs.
type Snapshot struct {
	LoadedAt time.Time
	Manifest *manifest.Manifest
	Mapping  *manifest.Mapping
}

// Load reads the manifest and, when mappingPath is set, the mapping.
func Load(manifestPath string, format models.Format, mappingPath string) (*Snapshot, error) {
	m, err := manifest.Read(manifestPath, format)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Manifest: m, LoadedAt: time.Now()}
	if mappingPath != "" {
		mapping, err := manifest.ReadMapping(mappingPath)
		if err != nil {
			return nil, err
		}
		snap.Mapping = mapping
	}
	return snap, nil
}

// Event represents an inputs service event.
type Event struct {
	Snapshot *Snapshot
	Error    error
	Paths    []string
	Type     EventType
}

// EventType defines the type of inputs event.
type EventType int

const (
	EventLoaded EventType = iota
	EventReloaded
	EventError
)

// Service holds the current inputs and watches their files.
type Service struct {
	mu            sync.RWMutex
	snapshot      *Snapshot
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	changed       map[string]struct{}
	manifestPath  string
	mappingPath   string
	format        models.Format
	debounce      time.Duration
}

// New loads the inputs and, when watch is set, starts watching them.
func New(manifestPath string, format models.Format, mappingPath string, watch bool, debounce time.Duration) (*Service, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	s := &Service{
		manifestPath: manifestPath,
		mappingPath:  mappingPath,
		format:       format,
		debounce:     debounce,
		eventChan:    make(chan Event, 100),
		stopChan:     make(chan struct{}),
		changed:      make(map[string]struct{}),
	}

	snap, err := Load(manifestPath, format, mappingPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load inputs: %w", err)
	}
	s.snapshot = snap

	if watch {
		if err := s.startWatcher(); err != nil {
			return nil, fmt.Errorf("failed to start file watcher: %w", err)
		}
	}

	s.sendEvent(Event{Type: EventLoaded, Snapshot: snap})
	return s, nil
}

// Events returns the event channel.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Snapshot returns the current inputs.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Paths returns the watched input files.
func (s *Service) Paths() []string {
	paths := []string{s.manifestPath}
	if s.mappingPath != "" {
		paths = append(paths, s.mappingPath)
	}
	return paths
}

// Reload re-reads the inputs. The previous snapshot is kept on failure.
func (s *Service) Reload() (*Snapshot, error) {
	snap, err := Load(s.manifestPath, s.format, s.mappingPath)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return snap, nil
}

// startWatcher watches the directories holding the inputs so that files
// replaced by rename are seen.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	dirs := make(map[string]struct{})
	for _, p := range s.Paths() {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			if closeErr := watcher.Close(); closeErr != nil {
				logger.Error("failed to close watcher", "error", closeErr)
			}
			return err
		}
	}

	go s.watchLoop()
	return nil
}

func (s *Service) watched(name string) (string, bool) {
	clean := filepath.Clean(name)
	for _, p := range s.Paths() {
		if filepath.Clean(p) == clean {
			return p, true
		}
	}
	return "", false
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			path, ok := s.watched(event.Name)
			if !ok {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.mu.Lock()
				s.changed[path] = struct{}{}
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(s.debounce, s.handleFileChange)
				s.mu.Unlock()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// handleFileChange reloads the inputs after an external change.
func (s *Service) handleFileChange() {
	s.mu.Lock()
	paths := make([]string, 0, len(s.changed))
	for p := range s.changed {
		paths = append(paths, p)
	}
	s.changed = make(map[string]struct{})
	s.mu.Unlock()

	// Editors that save via rename leave a short window with no file.
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			s.sendEvent(Event{Type: EventError, Error: err, Paths: paths})
			return
		}
	}

	snap, err := s.Reload()
	if err != nil {
		logger.Warn("Input reload failed", "paths", paths, "error", err)
		s.sendEvent(Event{Type: EventError, Error: err, Paths: paths})
		return
	}

	logger.Info("Inputs reloaded", "paths", paths, "devices", snap.Manifest.Len())
	s.sendEvent(Event{Type: EventReloaded, Snapshot: snap, Paths: paths})
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (s *Service) Close() error {
	close(s.stopChan)

	s.mu.Lock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.mu.Unlock()

	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
