// Package aggregate folds normalized device profiles into population statistics.
package aggregate

import (
	"sort"

	"github.com/samber/lo"

	"github.com/j-veylop/devicestats/internal/models"
)

// Categorizer assigns apps to rollup categories.
type Categorizer interface {
	Category(app string) (string, bool)
	Categories() []string
}

type seriesKey struct {
	name string
	kind models.Kind
	span models.Span
}

type set map[string]struct{}

func (s set) add(v string) { s[v] = struct{}{} }

func (s set) sorted() []string {
	keys := lo.Keys(s)
	sort.Strings(keys)
	return keys
}

// Aggregator accumulates device profiles. It is not safe for concurrent use;
// callers fold one device at a time.
type Aggregator struct {
	mapping   Categorizer
	entity    map[seriesKey][][]float64
	overall   map[seriesKey][][]float64
	use       set
	demand    set
	all       set
	catUse    map[string]set
	catDemand map[string]set
	layout    models.Layout
	kinds     models.KindSet
	devices   int
}

// New returns an empty aggregator. mapping may be nil.
func New(layout models.Layout, kinds models.KindSet, mapping Categorizer) *Aggregator {
	a := &Aggregator{
		layout:    layout,
		kinds:     kinds,
		mapping:   mapping,
		entity:    make(map[seriesKey][][]float64),
		overall:   make(map[seriesKey][][]float64),
		use:       make(set),
		demand:    make(set),
		all:       make(set),
		catUse:    make(map[string]set),
		catDemand: make(map[string]set),
	}
	if mapping != nil {
		for _, c := range mapping.Categories() {
			a.catUse[c] = make(set)
			a.catDemand[c] = make(set)
		}
	}
	return a
}

// Devices returns the number of devices folded so far.
func (a *Aggregator) Devices() int {
	return a.devices
}

// Add folds one device's normalized profiles.
func (a *Aggregator) Add(dp *models.DeviceProfiles) {
	a.devices++
	if dp == nil || dp.Empty() {
		return
	}

	for _, kind := range a.kinds.Kinds() {
		entities := dp.Profiles[kind]
		if len(entities) == 0 {
			continue
		}
		names := lo.Keys(entities)
		sort.Strings(names)

		var sum models.Profile
		for _, name := range names {
			p := entities[name]
			a.addSpans(a.entity, kind, name, p, dp.Days)

			if kind.PerApp() {
				if sum == nil {
					sum = a.layout.NewProfile()
				}
				for i, v := range p {
					sum[i] += v
				}
			}

			cat, ok := a.category(name)
			switch {
			case kind == models.KindForeground:
				a.use.add(dp.Device)
				if ok {
					a.catSet(a.catUse, cat).add(dp.Device)
				}
			case kind.IsDemand():
				a.demand.add(dp.Device)
				if ok {
					a.catSet(a.catDemand, cat).add(dp.Device)
				}
			}
		}
		if sum != nil && !sum.IsZero() {
			a.addSpans(a.overall, kind, models.OverallEntity, sum, dp.Days)
		}
	}

	if _, ok := a.use[dp.Device]; ok {
		a.all.add(dp.Device)
	}
	if _, ok := a.demand[dp.Device]; ok {
		a.all.add(dp.Device)
	}
}

func (a *Aggregator) category(app string) (string, bool) {
	if a.mapping == nil {
		return "", false
	}
	return a.mapping.Category(app)
}

func (a *Aggregator) catSet(m map[string]set, cat string) set {
	s, ok := m[cat]
	if !ok {
		s = make(set)
		m[cat] = s
	}
	return s
}

// addSpans appends p to the full-span lists and, for weekday-split layouts,
// to the weekday and weekend hourly rollups.
func (a *Aggregator) addSpans(dst map[seriesKey][][]float64, kind models.Kind, name string, p models.Profile, days models.DayCounts) {
	appendProfile(dst, seriesKey{kind: kind, span: models.SpanAll, name: name}, p)
	if !a.layout.SplitWeekday {
		return
	}
	if wk := Rollup(p, days, 0, 5); !wk.IsZero() {
		appendProfile(dst, seriesKey{kind: kind, span: models.SpanWeekdays, name: name}, wk)
	}
	if we := Rollup(p, days, 5, 7); !we.IsZero() {
		appendProfile(dst, seriesKey{kind: kind, span: models.SpanWeekend, name: name}, we)
	}
}

func appendProfile(dst map[seriesKey][][]float64, key seriesKey, p models.Profile) {
	lists, ok := dst[key]
	if !ok {
		lists = make([][]float64, len(p))
		dst[key] = lists
	}
	for i, v := range p {
		lists[i] = append(lists[i], v)
	}
}

// Rollup converts a weekday-split daily-mean profile into an hourly daily
// mean over weekdays [from, to). Each weekday's mean is weighted by the
// number of days observed on it.
func Rollup(p models.Profile, days models.DayCounts, from, to int) models.Profile {
	out := make(models.Profile, models.HoursPerDay)
	var total int
	for wd := from; wd < to; wd++ {
		total += days.PerWeekday[wd]
	}
	if total == 0 || len(p) < to*models.HoursPerDay {
		return out
	}
	for wd := from; wd < to; wd++ {
		n := float64(days.PerWeekday[wd])
		for h := 0; h < models.HoursPerDay; h++ {
			out[h] += p[wd*models.HoursPerDay+h] * n
		}
	}
	for h := range out {
		out[h] /= float64(total)
	}
	return out
}
