// Package location selects devices whose location traces are long enough,
// recent enough and mostly inside a geographic bounding box. The selection
// is written as a da manifest.
package location

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/devicestats/internal/decoder"
	"github.com/j-veylop/devicestats/internal/logger"
)

const dateLayout = "2006-01-02"

// Bounds is an open latitude/longitude box.
type Bounds struct {
	MinLon float64
	MaxLon float64
	MinLat float64
	MaxLat float64
}

// UK covers Great Britain and Ireland.
var UK = Bounds{MinLon: -11, MaxLon: 1.5, MinLat: 50, MaxLat: 60.5}

// Contains reports whether the point lies strictly inside the box.
func (b Bounds) Contains(lat, lon float64) bool {
	return lon > b.MinLon && lon < b.MaxLon && lat > b.MinLat && lat < b.MaxLat
}

// Criteria decide which traces are kept.
type Criteria struct {
	MinEnd        time.Time
	Bounds        Bounds
	MinDays       int
	MinProportion float64
}

// DefaultCriteria keeps devices seen on at least 35 days, last seen in 2014
// or later and inside the UK for at least half their samples.
func DefaultCriteria() Criteria {
	return Criteria{
		Bounds:        UK,
		MinDays:       35,
		MinEnd:        time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
		MinProportion: 0.5,
	}
}

// Trace summarizes one device's location samples.
type Trace struct {
	Start   time.Time
	End     time.Time
	Name    string
	Days    int
	Inside  int
	Outside int
	Skipped int
}

// PropData is the share of days with data between the first and last day.
func (t Trace) PropData() float64 {
	span := int(t.End.Sub(t.Start).Hours() / 24)
	if span <= 0 {
		return 0
	}
	return float64(t.Days-1) / float64(span)
}

// PropInside is the share of samples inside the bounds.
func (t Trace) PropInside() float64 {
	total := t.Inside + t.Outside
	if total == 0 {
		return 0
	}
	return float64(t.Inside) / float64(total)
}

// Scan reads "timestamp|lat|lon" lines. Lines with another field count or
// unparseable values are skipped.
func Scan(name string, r io.Reader, bounds Bounds) (Trace, error) {
	t := Trace{Name: name}
	days := make(map[time.Time]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Split(strings.TrimSpace(scanner.Text()), "|")
		if len(fields) != 3 {
			t.Skipped++
			continue
		}
		day, err := time.Parse(dateLayout, strings.SplitN(fields[0], "T", 2)[0])
		if err != nil {
			t.Skipped++
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if errLat != nil || errLon != nil {
			t.Skipped++
			continue
		}

		days[day] = struct{}{}
		if bounds.Contains(lat, lon) {
			t.Inside++
		} else {
			t.Outside++
		}
	}
	if err := scanner.Err(); err != nil {
		return t, fmt.Errorf("failed to read %s: %w", name, err)
	}

	seen := lo.Keys(days)
	sort.Slice(seen, func(i, j int) bool { return seen[i].Before(seen[j]) })
	t.Days = len(seen)
	if t.Days > 0 {
		t.Start = seen[0]
		t.End = seen[len(seen)-1]
	}
	return t, nil
}

// Reason names the first criterion a trace fails, or "" when it passes.
func (c Criteria) Reason(t Trace) string {
	switch {
	case t.Days < c.MinDays:
		return "too few days"
	case t.End.Before(c.MinEnd):
		return "too old"
	case t.PropInside() < c.MinProportion:
		return "outside bounds"
	default:
		return ""
	}
}

// Selection is a kept trace with its 1-based position in the scanned list.
type Selection struct {
	Trace
	Index int
}

// Select scans every log in src and returns the traces meeting c, in listing
// order. Unreadable logs are logged and skipped.
func Select(ctx context.Context, src decoder.ListSource, c Criteria, workers int) ([]Selection, error) {
	names, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	traces := make([]*Trace, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		g.Go(func() error {
			rc, err := decoder.OpenReader(gctx, src, name)
			if err != nil {
				logger.Warn("Skipping unreadable location log", "device", name, "error", err)
				return nil
			}
			defer rc.Close()
			t, err := Scan(name, rc, c.Bounds)
			if err != nil {
				logger.Warn("Skipping unreadable location log", "device", name, "error", err)
				return nil
			}
			traces[i] = &t
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Selection
	for i, t := range traces {
		if t == nil {
			continue
		}
		if reason := c.Reason(*t); reason != "" {
			logger.Debug("Device rejected", "device", t.Name, "reason", reason)
			continue
		}
		out = append(out, Selection{Trace: *t, Index: i + 1})
	}
	return out, nil
}

// WriteManifest writes selections as a da manifest with a header row.
func WriteManifest(w io.Writer, sel []Selection) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "i FileName Start End Days PropData InUK OutUK PropUK")
	for _, s := range sel {
		fmt.Fprintf(bw, "%d %s %s %s %d %s %d %d %s\n",
			s.Index,
			s.Name,
			s.Start.Format(dateLayout),
			s.End.Format(dateLayout),
			s.Days,
			strconv.FormatFloat(s.PropData(), 'g', 12, 64),
			s.Inside,
			s.Outside,
			strconv.FormatFloat(s.PropInside(), 'g', 12, 64),
		)
	}
	return bw.Flush()
}
