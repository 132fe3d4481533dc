package classify

import (
	"testing"

	"github.com/j-veylop/devicestats/internal/models"
)

func TestClassify(t *testing.T) {
	set := NewCategorySet("app", " screen ", "", "hf", "net")
	tests := []struct {
		name string
		path []string
		want bool
	}{
		{"app", []string{"app", "name"}, true},
		{"net", []string{"net", "app", "10012", "rx_bytes"}, true},
		{"sms excluded", []string{"sms", "count", "inbox"}, false},
		{"empty", nil, false},
		{"substring only", []string{"apps"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.path, set); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantOK   bool
		wantHour int
		wantDate string
	}{
		{"device analyzer", "2013-08-23T10:16:38.111-0600", true, 10, "2013-08-23"},
		{"device analyzer utc", "2013-08-23T10:16:38.111+0000", true, 10, "2013-08-23"},
		{"device analyzer no millis", "2013-08-23T10:16:38-0600", true, 10, "2013-08-23"},
		{"offset crosses midnight", "2013-08-23T23:30:00.000+0100", true, 23, "2013-08-23"},
		{"negative offset near midnight", "2013-08-24T00:10:00.500-0800", true, 0, "2013-08-24"},
		{"unknown zone suffix", "2013-08-23T07:05:00.000 BST", true, 7, "2013-08-23"},
		{"plain", "2014-03-05 08:15:00", true, 8, "2014-03-05"},
		{"millis", "2014-03-05 23:59:59.123", true, 23, "2014-03-05"},
		{"zone keeps wall clock", "2014-03-05 06:00:00 +0100", true, 6, "2014-03-05"},
		{"rfc3339", "2014-03-05T10:00:00Z", true, 10, "2014-03-05"},
		{"sentinel", InvalidTimestamp, false, 0, ""},
		{"garbage", "yesterday", false, 0, ""},
		{"date only", "2013-08-23T", false, 0, ""},
		{"empty", "", false, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := ParseTimestamp(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseTimestamp(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if ts.Hour() != tt.wantHour {
				t.Errorf("hour = %d, want %d", ts.Hour(), tt.wantHour)
			}
			if got := ts.Format(dateLayout); got != tt.wantDate {
				t.Errorf("date = %s, want %s", got, tt.wantDate)
			}
		})
	}
}

func TestClassifier_Event(t *testing.T) {
	c := New(NewCategorySet(DefaultCategories...))

	ev, ok := c.Event("dev1", models.Record{
		Timestamp: "2014-03-05T08:15:00.250-0600",
		EntryType: "screen|power",
		Value:     "on",
	})
	if !ok {
		t.Fatal("expected event")
	}
	if ev.Device != "dev1" || ev.Date != "2014-03-05" || ev.Hour != 8 {
		t.Errorf("unexpected event %+v", ev)
	}
	// 2014-03-05 was a Wednesday.
	if ev.Weekday != 2 {
		t.Errorf("Weekday = %d, want 2", ev.Weekday)
	}
	if len(ev.Path) != 2 || ev.Path[1] != "power" {
		t.Errorf("Path = %v", ev.Path)
	}

	if _, ok := c.Event("dev1", models.Record{Timestamp: InvalidTimestamp, EntryType: "screen|power"}); ok {
		t.Error("invalid timestamp should be rejected")
	}
	if _, ok := c.Event("dev1", models.Record{Timestamp: "2014-03-05 08:15:00", EntryType: "wifi|scan"}); ok {
		t.Error("unknown category should be rejected")
	}
}

func TestDayTracker(t *testing.T) {
	c := New(NewCategorySet("screen"))
	stamps := []string{
		"2014-03-03T23:00:00.000-0500", // Mon, already Tue in UTC
		"2014-03-03T23:30:00.000-0500",
		"2014-03-04T00:10:00.000+0100", // Tue, still Mon in UTC
		"2014-03-03T23:59:00.000-0500", // out of order, counts again
		"2014-03-08T12:00:00.000+0000", // Sat
	}
	var d DayTracker
	var opened int
	for _, s := range stamps {
		ev, ok := c.Event("dev", models.Record{Timestamp: s, EntryType: "screen|power", Value: "on"})
		if !ok {
			t.Fatalf("event %q rejected", s)
		}
		if d.Observe(ev) {
			opened++
		}
	}
	got := d.Counts()
	if opened != 4 || got.Total != 4 {
		t.Errorf("opened = %d, Total = %d, want 4", opened, got.Total)
	}
	if got.PerWeekday[0] != 2 || got.PerWeekday[1] != 1 || got.PerWeekday[5] != 1 {
		t.Errorf("PerWeekday = %v", got.PerWeekday)
	}
}
