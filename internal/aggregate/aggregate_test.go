package aggregate

import (
	"math"
	"reflect"
	"testing"

	"github.com/j-veylop/devicestats/internal/models"
)

type fakeMapping map[string]string

func (m fakeMapping) Category(app string) (string, bool) {
	c, ok := m[app]
	return c, ok && c != ""
}

func (m fakeMapping) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range []string{"Games", "Social", "Tools"} {
		for _, v := range m {
			if v == c && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   models.Statistic
	}{
		{"empty", nil, models.Statistic{}},
		{"pair", []float64{6, 2}, models.Statistic{Total: 8, Mean: 4, Count: 2, Min: 2, Max: 6, Median: 4}},
		{"odd", []float64{5, 1, 3}, models.Statistic{Total: 9, Mean: 3, Count: 3, Min: 1, Max: 5, Median: 3}},
		{"zeros count", []float64{0, 0, 4, 8}, models.Statistic{Total: 12, Mean: 3, Count: 4, Min: 0, Max: 8, Median: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.values); got != tt.want {
				t.Errorf("Compute(%v) = %+v, want %+v", tt.values, got, tt.want)
			}
		})
	}
}

func TestCompute_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Compute(values)
	if !reflect.DeepEqual(values, []float64{3, 1, 2}) {
		t.Errorf("input modified: %v", values)
	}
}

func device(id string, days int, kind models.Kind, entity string, hour int, v float64) *models.DeviceProfiles {
	dp := models.NewDeviceProfiles(id)
	dp.Days = models.DayCounts{Total: days}
	p := models.Layout{}.NewProfile()
	p[hour] = v
	dp.Set(kind, entity, p)
	return dp
}

func TestAggregator_EntityStatistics(t *testing.T) {
	a := New(models.Layout{}, models.NewKindSet(models.KindForeground), nil)
	a.Add(device("d1", 2, models.KindForeground, "X", 3, 2))
	a.Add(device("d2", 2, models.KindForeground, "X", 3, 6))
	a.Add(models.NewDeviceProfiles("d3"))

	s := a.Summary()
	if s.Devices != 3 {
		t.Errorf("Devices = %d", s.Devices)
	}
	series, ok := s.Find(models.KindForeground, models.LevelEntity, models.SpanAll, "X")
	if !ok {
		t.Fatal("missing series for X")
	}
	want := models.Statistic{Total: 8, Mean: 4, Count: 2, Min: 2, Max: 6, Median: 4}
	if series.Stats[3] != want {
		t.Errorf("hour 3 = %+v, want %+v", series.Stats[3], want)
	}
	// Every contributing device supplies a value to every bucket.
	if series.Stats[0].Count != 2 || series.Stats[0].Total != 0 {
		t.Errorf("hour 0 = %+v", series.Stats[0])
	}
	if len(s.Contributions.Use) != 2 || len(s.Contributions.All) != 2 {
		t.Errorf("contributions = %+v", s.Contributions)
	}
}

func TestAggregator_EmptyBucketsAreZero(t *testing.T) {
	a := New(models.Layout{}, models.NewKindSet(models.KindRxBytes), nil)
	s := a.Summary()
	if len(s.Series) != 0 {
		t.Errorf("expected no series, got %d", len(s.Series))
	}
	if len(s.Contributions.All) != 0 {
		t.Errorf("expected no contributors")
	}
}

func TestAggregator_CategoriesAndShares(t *testing.T) {
	mapping := fakeMapping{"a": "Social", "b": "Social", "c": "Games", "d": ""}
	kinds := models.NewKindSet(models.KindForeground, models.KindRxBytes, models.KindTxBytes)
	agg := New(models.Layout{}, kinds, mapping)

	d1 := models.NewDeviceProfiles("d1")
	d1.Days.Total = 1
	fa := models.Layout{}.NewProfile()
	fa[1] = 3
	fb := models.Layout{}.NewProfile()
	fb[1] = 1
	fd := models.Layout{}.NewProfile()
	fd[2] = 4
	d1.Set(models.KindForeground, "a", fa)
	d1.Set(models.KindForeground, "b", fb)
	d1.Set(models.KindForeground, "d", fd)
	agg.Add(d1)

	d2 := models.NewDeviceProfiles("d2")
	d2.Days.Total = 1
	rx := models.Layout{}.NewProfile()
	rx[5] = 100
	tx := models.Layout{}.NewProfile()
	tx[5] = 300
	d2.Set(models.KindRxBytes, "c", rx)
	d2.Set(models.KindTxBytes, "a", tx)
	agg.Add(d2)

	s := agg.Summary()

	social, ok := s.Find(models.KindForeground, models.LevelCategory, models.SpanAll, "Social")
	if !ok {
		t.Fatal("missing Social category series")
	}
	if st := social.Stats[1]; st.Total != 4 || st.Count != 2 || st.Max != 3 {
		t.Errorf("Social hour 1 = %+v", st)
	}
	if _, ok := s.Find(models.KindForeground, models.LevelCategory, models.SpanAll, ""); ok {
		t.Error("uncategorized entity leaked into category output")
	}
	if _, ok := s.Find(models.KindForeground, models.LevelEntity, models.SpanAll, "d"); !ok {
		t.Error("uncategorized entity should appear at entity level")
	}

	overall, ok := s.Find(models.KindForeground, models.LevelOverall, models.SpanAll, models.OverallEntity)
	if !ok {
		t.Fatal("missing overall series")
	}
	if overall.Stats[1].Total != 4 || overall.Stats[2].Total != 4 || overall.Stats[1].Count != 1 {
		t.Errorf("overall = %+v %+v", overall.Stats[1], overall.Stats[2])
	}

	if s.OverallUse != 8 || s.OverallDemand != 400 {
		t.Errorf("OverallUse = %v, OverallDemand = %v", s.OverallUse, s.OverallDemand)
	}
	if len(s.Shares) != 2 {
		t.Fatalf("Shares = %+v", s.Shares)
	}
	for _, sh := range s.Shares {
		switch sh.Category {
		case "Social":
			if !approx(sh.UsePercent, 50) || !approx(sh.DemandPercent, 75) {
				t.Errorf("Social share = %+v", sh)
			}
		case "Games":
			if sh.Use != 0 || !approx(sh.DemandPercent, 25) {
				t.Errorf("Games share = %+v", sh)
			}
		}
	}

	c := s.Contributions
	if !reflect.DeepEqual(c.Use, []string{"d1"}) || !reflect.DeepEqual(c.Demand, []string{"d2"}) {
		t.Errorf("use/demand = %v / %v", c.Use, c.Demand)
	}
	if !reflect.DeepEqual(c.All, []string{"d1", "d2"}) {
		t.Errorf("all = %v", c.All)
	}
	if !reflect.DeepEqual(c.CategoryUse["Social"], []string{"d1"}) || len(c.CategoryUse["Games"]) != 0 {
		t.Errorf("category use = %v", c.CategoryUse)
	}
	if !reflect.DeepEqual(c.CategoryDemand["Games"], []string{"d2"}) {
		t.Errorf("category demand = %v", c.CategoryDemand)
	}
	if _, ok := c.CategoryUse["Games"]; !ok {
		t.Error("every mapped category should be reported, even with no devices")
	}
}

func TestRollup(t *testing.T) {
	layout := models.Layout{SplitWeekday: true}
	p := layout.NewProfile()
	p[layout.Index(0, 9)] = 3 // Monday daily mean
	p[layout.Index(1, 9)] = 6 // Tuesday daily mean
	p[layout.Index(6, 9)] = 2 // Sunday daily mean
	days := models.DayCounts{Total: 4, PerWeekday: [7]int{2, 1, 0, 0, 0, 0, 1}}

	wk := Rollup(p, days, 0, 5)
	if !approx(wk[9], 4) {
		t.Errorf("weekday hour 9 = %v, want 4", wk[9])
	}
	we := Rollup(p, days, 5, 7)
	if !approx(we[9], 2) {
		t.Errorf("weekend hour 9 = %v, want 2", we[9])
	}
	if none := Rollup(p, models.DayCounts{}, 0, 5); !none.IsZero() {
		t.Error("no days should roll up to zero")
	}
}

func TestAggregator_WeekdaySpans(t *testing.T) {
	layout := models.Layout{SplitWeekday: true}
	a := New(layout, models.NewKindSet(models.KindSMSSent), nil)

	dp := models.NewDeviceProfiles("d1")
	dp.Days = models.DayCounts{Total: 1, PerWeekday: [7]int{1}}
	p := layout.NewProfile()
	p[layout.Index(0, 9)] = 5
	dp.Set(models.KindSMSSent, models.OverallEntity, p)
	a.Add(dp)

	s := a.Summary()
	if _, ok := s.Find(models.KindSMSSent, models.LevelEntity, models.SpanAll, models.OverallEntity); !ok {
		t.Error("missing full-span series")
	}
	wk, ok := s.Find(models.KindSMSSent, models.LevelEntity, models.SpanWeekdays, models.OverallEntity)
	if !ok || wk.Stats[9].Total != 5 {
		t.Errorf("weekday series = %+v", wk)
	}
	if _, ok := s.Find(models.KindSMSSent, models.LevelEntity, models.SpanWeekend, models.OverallEntity); ok {
		t.Error("weekend series should be absent when no weekend activity")
	}
	if _, ok := s.Find(models.KindSMSSent, models.LevelOverall, models.SpanAll, models.OverallEntity); ok {
		t.Error("device-wide kinds do not get an overall series")
	}
}
