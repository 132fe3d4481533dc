package aggregate

import (
	"sort"

	"github.com/samber/lo"

	"github.com/j-veylop/devicestats/internal/models"
)

var spans = []models.Span{models.SpanAll, models.SpanWeekdays, models.SpanWeekend}

// Summary computes the statistics accumulated so far. Series are ordered by
// kind, then level, then span, then name.
func (a *Aggregator) Summary() *models.Summary {
	s := &models.Summary{
		Layout:  a.layout,
		Kinds:   a.kinds,
		Devices: a.devices,
	}

	for _, kind := range a.kinds.Kinds() {
		for _, span := range spans {
			entities := a.seriesFor(a.entity, kind, span, models.LevelEntity)
			s.Series = append(s.Series, entities...)
			if kind.PerApp() {
				s.Series = append(s.Series, a.categorySeries(kind, span, entities)...)
				s.Series = append(s.Series, a.seriesFor(a.overall, kind, span, models.LevelOverall)...)
			}
		}
	}

	s.Contributions = a.contributions()
	s.Shares, s.OverallUse, s.OverallDemand = a.shares(s)
	return s
}

func (a *Aggregator) seriesFor(src map[seriesKey][][]float64, kind models.Kind, span models.Span, level models.Level) []models.Series {
	keys := lo.Filter(lo.Keys(src), func(k seriesKey, _ int) bool {
		return k.kind == kind && k.span == span
	})
	sort.Slice(keys, func(i, j int) bool { return keys[i].name < keys[j].name })

	out := make([]models.Series, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.Series{
			Kind:  kind,
			Level: level,
			Span:  span,
			Name:  k.name,
			Stats: ComputeSeries(src[k]),
		})
	}
	return out
}

// categorySeries rolls entity totals up by category: each bucket's values are
// the totals of the category's entities in that bucket.
func (a *Aggregator) categorySeries(kind models.Kind, span models.Span, entities []models.Series) []models.Series {
	if a.mapping == nil {
		return nil
	}
	byCat := make(map[string][][]float64)
	for _, e := range entities {
		cat, ok := a.mapping.Category(e.Name)
		if !ok {
			continue
		}
		lists, ok := byCat[cat]
		if !ok {
			lists = make([][]float64, len(e.Stats))
			byCat[cat] = lists
		}
		for i, st := range e.Stats {
			lists[i] = append(lists[i], st.Total)
		}
	}

	cats := lo.Keys(byCat)
	sort.Strings(cats)
	out := make([]models.Series, 0, len(cats))
	for _, cat := range cats {
		out = append(out, models.Series{
			Kind:  kind,
			Level: models.LevelCategory,
			Span:  span,
			Name:  cat,
			Stats: ComputeSeries(byCat[cat]),
		})
	}
	return out
}

func (a *Aggregator) contributions() models.Contributions {
	c := models.Contributions{
		Use:            a.use.sorted(),
		Demand:         a.demand.sorted(),
		All:            a.all.sorted(),
		CategoryUse:    make(map[string][]string, len(a.catUse)),
		CategoryDemand: make(map[string][]string, len(a.catDemand)),
	}
	for cat, devices := range a.catUse {
		c.CategoryUse[cat] = devices.sorted()
	}
	for cat, devices := range a.catDemand {
		c.CategoryDemand[cat] = devices.sorted()
	}
	return c
}

// shares reports each category's share of in-use foreground instances and of
// combined rx and tx bytes, over the full span.
func (a *Aggregator) shares(s *models.Summary) ([]models.CategoryShare, float64, float64) {
	var overallUse, overallDemand float64
	useByCat := make(map[string]float64)
	demandByCat := make(map[string]float64)

	for _, series := range s.Series {
		if series.Span != models.SpanAll {
			continue
		}
		switch {
		case series.Kind == models.KindForeground && series.Level == models.LevelOverall:
			overallUse += series.Sum()
		case series.Kind == models.KindForeground && series.Level == models.LevelCategory:
			useByCat[series.Name] += series.Sum()
		case series.Kind.IsDemand() && series.Level == models.LevelOverall:
			overallDemand += series.Sum()
		case series.Kind.IsDemand() && series.Level == models.LevelCategory:
			demandByCat[series.Name] += series.Sum()
		}
	}

	if a.mapping == nil {
		return nil, overallUse, overallDemand
	}
	cats := a.mapping.Categories()
	out := make([]models.CategoryShare, 0, len(cats))
	for _, cat := range cats {
		share := models.CategoryShare{
			Category: cat,
			Use:      useByCat[cat],
			Demand:   demandByCat[cat],
		}
		if overallUse > 0 {
			share.UsePercent = share.Use / overallUse * 100
		}
		if overallDemand > 0 {
			share.DemandPercent = share.Demand / overallDemand * 100
		}
		out = append(out, share)
	}
	return out, overallUse, overallDemand
}
