package models

import (
	"fmt"
	"sort"
	"time"
)

// Level is the aggregation level of a series.
type Level int

const (
	// LevelEntity aggregates one app (or the device-wide entity) across devices.
	LevelEntity Level = iota
	// LevelCategory rolls entity totals up by category.
	LevelCategory
	// LevelOverall aggregates each device's sum across entities.
	LevelOverall
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelEntity:
		return "entity"
	case LevelCategory:
		return "category"
	case LevelOverall:
		return "overall"
	default:
		return "unknown"
	}
}

// Span selects which days a series covers.
type Span int

const (
	// SpanAll uses the run's bucket layout as is.
	SpanAll Span = iota
	// SpanWeekdays is the Monday to Friday hourly mean of a weekday-split run.
	SpanWeekdays
	// SpanWeekend is the Saturday and Sunday hourly mean of a weekday-split run.
	SpanWeekend
)

// String returns the span name.
func (s Span) String() string {
	switch s {
	case SpanAll:
		return "all"
	case SpanWeekdays:
		return "weekdays"
	case SpanWeekend:
		return "weekend"
	default:
		return "unknown"
	}
}

// Series is one bucketed statistic series.
type Series struct {
	Name  string
	Stats []Statistic
	Kind  Kind
	Level Level
	Span  Span
}

// Sum returns the total of the series over all buckets.
func (s Series) Sum() float64 {
	var total float64
	for _, st := range s.Stats {
		total += st.Total
	}
	return total
}

// Contributions records which devices produced nonzero profiles.
type Contributions struct {
	CategoryUse    map[string][]string
	CategoryDemand map[string][]string
	Use            []string
	Demand         []string
	All            []string
}

// CategoryShare is one category's share of overall use and demand.
type CategoryShare struct {
	Category      string
	Use           float64
	UsePercent    float64
	Demand        float64
	DemandPercent float64
}

// Summary is the result of one population run.
type Summary struct {
	StartedAt     time.Time
	FinishedAt    time.Time
	Contributions Contributions
	RunID         string
	Series        []Series
	Shares        []CategoryShare
	Failures      []DeviceFailure
	Layout        Layout
	Kinds         KindSet
	// Devices counts manifest entries; Processed those folded into the series.
	Devices       int
	Processed     int
	OverallUse    float64
	OverallDemand float64
}

// DeviceFailure records a device whose log could not be read.
type DeviceFailure struct {
	Device string
	Reason string
}

// Find returns the series with the given key.
func (s *Summary) Find(kind Kind, level Level, span Span, name string) (Series, bool) {
	for _, series := range s.Series {
		if series.Kind == kind && series.Level == level && series.Span == span && series.Name == name {
			return series, true
		}
	}
	return Series{}, false
}

// Headline returns the device-level series of a kind over the full span: the
// overall rollup for per-app kinds, the device-wide entity otherwise.
func (s *Summary) Headline(kind Kind) (Series, bool) {
	if kind.PerApp() {
		return s.Find(kind, LevelOverall, SpanAll, OverallEntity)
	}
	return s.Find(kind, LevelEntity, SpanAll, OverallEntity)
}

// Names returns the sorted series names for a kind and level over the full span.
func (s *Summary) Names(kind Kind, level Level) []string {
	var names []string
	for _, series := range s.Series {
		if series.Kind == kind && series.Level == level && series.Span == SpanAll {
			names = append(names, series.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Duration returns how long the run took.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ParseLevel parses a level name.
func ParseLevel(s string) (Level, error) {
	for _, l := range []Level{LevelEntity, LevelCategory, LevelOverall} {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown level: %q", s)
}

// ParseSpan parses a span name.
func ParseSpan(s string) (Span, error) {
	for _, sp := range []Span{SpanAll, SpanWeekdays, SpanWeekend} {
		if sp.String() == s {
			return sp, nil
		}
	}
	return 0, fmt.Errorf("unknown span: %q", s)
}
