package classify

import (
	"strings"
	"time"
)

// InvalidTimestamp is what the log producer writes when it could not read the clock.
const InvalidTimestamp = "(invalid date)"

const dateLayout = "2006-01-02"

// daLayout is the Device Analyzer form, e.g. 2013-08-23T10:16:38.111-0600.
const daLayout = "2006-01-02T15:04:05.999999999-0700"

// wallClockLayout reads the date and time ahead of any zone suffix.
const wallClockLayout = "2006-01-02T15:04:05"

var timeFormats = []string{
	daLayout,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05 -0700 MST",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseTimestamp parses a log timestamp, keeping the wall clock it was written in.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == InvalidTimestamp {
		return time.Time{}, false
	}
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return parseWallClock(s)
}

// parseWallClock takes the date and time from a T-separated timestamp whose
// zone suffix no layout accepts. The zone is dropped; hour and date are what
// the device clock showed.
func parseWallClock(s string) (time.Time, bool) {
	n := len(wallClockLayout)
	if len(s) <= n || s[10] != 'T' {
		return time.Time{}, false
	}
	t, err := time.Parse(wallClockLayout, s[:n])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
