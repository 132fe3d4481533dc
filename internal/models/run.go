package models

import "time"

// Run is a stored run header.
type Run struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	ID           string
	Manifest     string
	Format       string
	Kinds        string
	OutputDir    string
	Devices      int
	Processed    int
	Failed       int
	Contributing int
	SplitWeekday bool
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
