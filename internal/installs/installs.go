// Package installs counts, across devices, how many devices have each app
// installed.
package installs

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/devicestats/internal/decoder"
	"github.com/j-veylop/devicestats/internal/logger"
)

const internetPermission = "android.permission.INTERNET"

// App is the last reported install status of one app on a device.
type App struct {
	Name     string
	Market   string
	Internet bool
}

// ParseDevice reads "time|count|apps" lines where apps is a comma-separated
// list of "name@uid:perms:market" entries. The last status of each app wins.
// It returns the number of malformed lines alongside the apps.
func ParseDevice(r io.Reader) (map[string]App, int, error) {
	apps := make(map[string]App)
	bad := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		items := strings.Split(scanner.Text(), "|")
		if len(items) < 3 {
			bad++
			continue
		}
		for _, entry := range strings.Split(items[2], ",") {
			entry = strings.TrimSpace(entry)
			if len(entry) <= 2 {
				continue
			}
			// Entries without perms and market predate the current format.
			details := strings.Split(entry, ":")
			if len(details) < 3 {
				continue
			}
			name, _, _ := strings.Cut(details[0], "@")
			apps[name] = App{
				Name:     name,
				Market:   details[len(details)-1],
				Internet: strings.Contains(details[1], internetPermission),
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, bad, fmt.Errorf("failed to read install log: %w", err)
	}
	return apps, bad, nil
}

// Count is the number of devices with an app, split by market and by
// whether the app holds the internet permission.
type Count struct {
	Markets    map[string]int
	App        string
	Devices    int
	Internet   int
	NoInternet int
}

// Counter accumulates per-device app sets. It is safe for concurrent use.
type Counter struct {
	mu      sync.Mutex
	counts  map[string]*Count
	devices int
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]*Count)}
}

// Add counts one device's apps.
func (c *Counter) Add(apps map[string]App) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.devices++
	for name, app := range apps {
		cnt, ok := c.counts[name]
		if !ok {
			cnt = &Count{App: name, Markets: make(map[string]int)}
			c.counts[name] = cnt
		}
		cnt.Devices++
		cnt.Markets[app.Market]++
		if app.Internet {
			cnt.Internet++
		} else {
			cnt.NoInternet++
		}
	}
}

// Devices returns the number of devices added.
func (c *Counter) Devices() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.devices
}

// Results returns apps installed on at least threshold devices, most
// installed first. Ties are ordered by descending name.
func (c *Counter) Results(threshold int) []Count {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := lo.FilterMap(lo.Values(c.counts), func(cnt *Count, _ int) (Count, bool) {
		return *cnt, cnt.Devices >= threshold
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Devices != out[j].Devices {
			return out[i].Devices > out[j].Devices
		}
		return out[i].App > out[j].App
	})
	return out
}

// CountSource parses every log in src. Unreadable logs are logged and skipped.
func CountSource(ctx context.Context, src decoder.ListSource, workers int) (*Counter, error) {
	names, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	counter := NewCounter()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, name := range names {
		g.Go(func() error {
			rc, err := decoder.OpenReader(gctx, src, name)
			if err != nil {
				logger.Warn("Skipping unreadable install log", "device", name, "error", err)
				return nil
			}
			defer rc.Close()
			apps, bad, err := ParseDevice(rc)
			if err != nil {
				logger.Warn("Skipping unreadable install log", "device", name, "error", err)
				return nil
			}
			if bad > 0 {
				logger.Debug("Malformed install lines", "device", name, "lines", bad)
			}
			counter.Add(apps)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counter, nil
}

// Write writes counts as ';'-delimited rows: app, devices, internet,
// no internet, then market=count pairs sorted by market.
func Write(w io.Writer, counts []Count) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write([]string{"App", "Devices", "Internet", "NoInternet", "Markets"}); err != nil {
		return err
	}
	for _, c := range counts {
		markets := lo.Keys(c.Markets)
		sort.Strings(markets)
		pairs := lo.Map(markets, func(m string, _ int) string {
			return m + "=" + strconv.Itoa(c.Markets[m])
		})
		row := []string{
			c.App,
			strconv.Itoa(c.Devices),
			strconv.Itoa(c.Internet),
			strconv.Itoa(c.NoInternet),
			strings.Join(pairs, ","),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
