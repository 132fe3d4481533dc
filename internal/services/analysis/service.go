// Package analysis runs a device population through the engine and folds the
// results into a summary.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/devicestats/internal/aggregate"
	"github.com/j-veylop/devicestats/internal/db"
	"github.com/j-veylop/devicestats/internal/decoder"
	"github.com/j-veylop/devicestats/internal/emit"
	"github.com/j-veylop/devicestats/internal/engine"
	"github.com/j-veylop/devicestats/internal/logger"
	"github.com/j-veylop/devicestats/internal/manifest"
	"github.com/j-veylop/devicestats/internal/models"
)

// ErrRunning is returned by Start while a run is in progress.
var ErrRunning = errors.New("a run is already in progress")

// EventType defines the type of analysis event.
type EventType int

const (
	EventRunStarted EventType = iota
	EventDeviceDone
	EventRunFinished
	EventRunFailed
)

// Event represents an analysis service event.
type Event struct {
	Summary  *models.Summary
	Error    error
	RunID    string
	Device   string
	Progress Progress
	Type     EventType
}

// Progress counts devices through a run.
type Progress struct {
	Done   int
	Total  int
	Failed int
}

// Fraction returns the completed share in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// Options describes one population run.
type Options struct {
	Source       decoder.Source
	Manifest     *manifest.Manifest
	Mapping      *manifest.Mapping
	ManifestPath string
	OutputDir    string
	Categories   []string
	Kinds        models.KindSet
	Layout       models.Layout
	Workers      int
	KeepRuns     int
	FilterApps   bool
}

// Service runs analyses and keeps the most recent summary.
type Service struct {
	mu        sync.RWMutex
	db        *db.DB
	last      *models.Summary
	cancel    context.CancelFunc
	eventChan chan Event
	running   bool
}

// New creates an analysis service. database may be nil, in which case runs
// are not recorded.
func New(database *db.DB) *Service {
	return &Service{
		db:        database,
		eventChan: make(chan Event, 100),
	}
}

// Events returns the event channel.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Last returns the summary of the most recent completed run.
func (s *Service) Last() *models.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Running reports whether a run is in progress.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Start launches a run in the background. Progress and the result arrive on
// Events.
func (s *Service) Start(opts Options) error {
	ctx, cancel := context.WithCancel(context.Background())
	if !s.begin(cancel) {
		cancel()
		return ErrRunning
	}
	go func() {
		defer cancel()
		_, _ = s.run(ctx, opts)
	}()
	return nil
}

// Cancel stops the run in progress, if any.
func (s *Service) Cancel() {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Run performs a run synchronously.
func (s *Service) Run(ctx context.Context, opts Options) (*models.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !s.begin(cancel) {
		return nil, ErrRunning
	}
	return s.run(ctx, opts)
}

func (s *Service) begin(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.cancel = cancel
	return true
}

func (s *Service) end(summary *models.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.cancel = nil
	if summary != nil {
		s.last = summary
	}
}

type deviceResult struct {
	profiles *models.DeviceProfiles
	failure  *models.DeviceFailure
	index    int
}

func (s *Service) run(ctx context.Context, opts Options) (*models.Summary, error) {
	runID := uuid.NewString()
	started := time.Now()

	summary, err := s.process(ctx, runID, opts)
	if err != nil {
		s.end(nil)
		logger.Error("Run failed", "run", runID, "error", err)
		s.sendEvent(Event{Type: EventRunFailed, RunID: runID, Error: err})
		return nil, err
	}
	summary.RunID = runID
	summary.StartedAt = started
	summary.FinishedAt = time.Now()

	if err := s.persist(opts, summary); err != nil {
		s.end(nil)
		s.sendEvent(Event{Type: EventRunFailed, RunID: runID, Error: err})
		return nil, err
	}

	s.end(summary)
	logger.Info("Run finished",
		"run", runID,
		"devices", summary.Devices,
		"processed", summary.Processed,
		"failed", len(summary.Failures),
		"duration", summary.Duration().Round(time.Millisecond),
	)
	s.sendEvent(Event{Type: EventRunFinished, RunID: runID, Summary: summary})
	return summary, nil
}

// process decodes every device on a bounded pool and folds the results into
// the aggregator in manifest order.
func (s *Service) process(ctx context.Context, runID string, opts Options) (*models.Summary, error) {
	if opts.Manifest == nil || opts.Manifest.Len() == 0 {
		return nil, manifest.ErrNoDevices
	}
	if opts.Source == nil {
		return nil, errors.New("no log source configured")
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	cfg := engine.Config{
		Categories: opts.Categories,
		Kinds:      opts.Kinds,
		Layout:     opts.Layout,
	}
	if opts.FilterApps && opts.Mapping != nil {
		cfg.Filter = opts.Mapping
	}
	eng := engine.New(cfg)

	var categorizer aggregate.Categorizer
	if opts.Mapping != nil {
		categorizer = opts.Mapping
	}
	agg := aggregate.New(opts.Layout, opts.Kinds, categorizer)

	total := opts.Manifest.Len()
	progress := Progress{Total: total}
	s.sendEvent(Event{Type: EventRunStarted, RunID: runID, Progress: progress})
	logger.Info("Run started", "run", runID, "devices", total, "workers", workers, "source", opts.Source.String())

	results := make(chan deviceResult, workers)
	var failures []models.DeviceFailure
	processed := 0

	folded := make(chan struct{})
	go func() {
		defer close(folded)
		pending := make(map[int]deviceResult)
		next := 0
		for r := range results {
			pending[r.index] = r
			for {
				cur, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++

				name := opts.Manifest.Entries[cur.index].Name
				progress.Done++
				if cur.failure != nil {
					failures = append(failures, *cur.failure)
					progress.Failed++
				} else if cur.profiles != nil {
					agg.Add(cur.profiles)
					processed++
				}
				s.sendEvent(Event{Type: EventDeviceDone, RunID: runID, Device: name, Progress: progress})
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(workers)
	for _, entry := range opts.Manifest.Entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results <- s.device(ctx, eng, opts, entry)
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	<-folded

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	summary := agg.Summary()
	summary.Devices = total
	summary.Processed = processed
	summary.Failures = failures
	return summary, nil
}

// device runs one device. Unreadable logs become failures; a log that breaks
// off mid-stream keeps the records decoded before the break.
func (s *Service) device(ctx context.Context, eng *engine.Engine, opts Options, entry manifest.Entry) deviceResult {
	res := deviceResult{index: entry.Index}
	if ctx.Err() != nil {
		return res
	}

	name := opts.Manifest.LogName(entry.Name)
	stream, err := decoder.Open(ctx, opts.Source, name, opts.Manifest.Format)
	if err != nil {
		logger.Warn("Skipping unreadable device log", "device", entry.Name, "error", err)
		res.failure = &models.DeviceFailure{Device: entry.Name, Reason: err.Error()}
		return res
	}
	defer func() {
		if err := stream.Close(); err != nil {
			logger.Debug("failed to close device log", "device", entry.Name, "error", err)
		}
	}()

	dp, err := eng.Run(ctx, entry.Name, stream.Records())
	if err != nil {
		return res
	}
	if err := stream.Err(); err != nil {
		logger.Warn("Device log ended early", "device", entry.Name, "lines", stream.Lines(), "error", err)
	}
	dp.Skipped += stream.Skipped()
	logger.Debug("Device processed",
		"device", entry.Name,
		"events", dp.Events,
		"skipped", dp.Skipped,
		"days", dp.Days.Total,
	)
	res.profiles = dp
	return res
}

// persist writes the summary tables and records the run.
func (s *Service) persist(opts Options, summary *models.Summary) error {
	if opts.OutputDir != "" {
		files, err := emit.Write(opts.OutputDir, summary)
		if err != nil {
			return fmt.Errorf("failed to write summary tables: %w", err)
		}
		logger.Info("Summary written", "dir", opts.OutputDir, "files", len(files))
	}

	if s.db == nil {
		return nil
	}

	run := RunRecord(opts, summary)
	if err := s.db.SaveSummary(run, summary); err != nil {
		return err
	}
	if opts.KeepRuns > 0 {
		if _, err := s.db.PruneRuns(opts.KeepRuns); err != nil {
			logger.Warn("failed to prune runs", "error", err)
		}
	}
	return nil
}

// RunRecord builds the stored run header for a summary.
func RunRecord(opts Options, summary *models.Summary) models.Run {
	format := models.FormatDA
	if opts.Manifest != nil {
		format = opts.Manifest.Format
	}
	return models.Run{
		ID:           summary.RunID,
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
		Manifest:     opts.ManifestPath,
		Format:       format.String(),
		Kinds:        summary.Kinds.String(),
		OutputDir:    opts.OutputDir,
		Devices:      summary.Devices,
		Processed:    summary.Processed,
		Failed:       len(summary.Failures),
		Contributing: len(summary.Contributions.All),
		SplitWeekday: summary.Layout.SplitWeekday,
	}
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Progress events may be dropped; the final event must not be.
		if event.Type == EventRunFinished || event.Type == EventRunFailed {
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
}
