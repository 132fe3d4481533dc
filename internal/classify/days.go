package classify

import "github.com/j-veylop/devicestats/internal/models"

// DayTracker counts distinct days in scan order. A new day starts whenever the
// date differs from the previously observed one; the log is not re-sorted.
type DayTracker struct {
	last   string
	counts models.DayCounts
}

// Observe records ev and reports whether it opened a new day.
func (d *DayTracker) Observe(ev models.Event) bool {
	if ev.Date == d.last {
		return false
	}
	d.last = ev.Date
	d.counts.Total++
	if ev.Weekday >= 0 && ev.Weekday < models.DaysPerWeek {
		d.counts.PerWeekday[ev.Weekday]++
	}
	return true
}

// Counts returns the days seen so far.
func (d *DayTracker) Counts() models.DayCounts {
	return d.counts
}
