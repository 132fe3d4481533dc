package engine

import (
	"context"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/j-veylop/devicestats/internal/models"
)

// rec builds a record stamped in the Device Analyzer form. ts is the device
// wall clock as "YYYY-MM-DD HH:MM:SS"; the +0100 offset must not move it.
func rec(ts, entryType, value string) models.Record {
	return models.Record{Entry: "1", Num: "1", Timestamp: daStamp(ts), EntryType: entryType, Value: value}
}

// daStamp leaves anything that is not a wall clock stamp, such as the
// invalid-date sentinel, untouched.
func daStamp(wall string) string {
	if len(wall) != len("2006-01-02 15:04:05") {
		return wall
	}
	return strings.Replace(wall, " ", "T", 1) + ".000+0100"
}

func allKinds() models.KindSet {
	return models.NewKindSet(models.AllKinds()...)
}

func newTestEngine(kinds models.KindSet) *Engine {
	return New(Config{Kinds: kinds})
}

func runDevice(t *testing.T, e *Engine, records []models.Record) *models.DeviceProfiles {
	t.Helper()
	out, err := e.Run(context.Background(), "dev", slices.Values(records))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return out
}

// inUse puts the device in the screen-on, unlocked state at the given time.
func inUse(ts string) []models.Record {
	return []models.Record{
		rec(ts, "screen|power", "on"),
		rec(ts, "hf|locked", "false"),
	}
}

func TestCounterState(t *testing.T) {
	c := NewCounterState()
	values := []int64{100, 150, 90, 95, 95}
	var got []int64
	for _, v := range values {
		if d, ok := c.Observe("app", models.KindRxBytes, v); ok {
			got = append(got, d)
		}
	}
	want := []int64{50, 90, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("deltas = %v, want %v", got, want)
	}

	if _, ok := c.Observe("app", models.KindTxBytes, 10); ok {
		t.Error("first tx sighting should only set the baseline")
	}
}

func TestSMSCounter(t *testing.T) {
	c := NewSMSCounter()
	values := []int64{5, 7, 3, 4, 4}
	var got []int64
	for _, v := range values {
		if d, ok := c.Observe(models.KindSMSInbox, v); ok {
			got = append(got, d)
		}
	}
	want := []int64{2, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("deltas = %v, want %v", got, want)
	}
}

func TestAppIdentityTable(t *testing.T) {
	tbl := NewAppIdentityTable()
	tbl.Claim("A", "X")
	if name, ok := tbl.Resolve("X"); !ok || name != "A" {
		t.Fatalf("Resolve(X) = %q, %v", name, ok)
	}
	tbl.Claim("B", "X")
	if name, _ := tbl.Resolve("X"); name != "B" {
		t.Errorf("Resolve(X) = %q, want B", name)
	}
	if tbl.ID("A") != "" {
		t.Errorf("A should be unresolved, has %q", tbl.ID("A"))
	}

	tbl.Claim("B", "Y")
	if _, ok := tbl.Resolve("X"); ok {
		t.Error("X should be released when B moves to Y")
	}
	if name, _ := tbl.Resolve("Y"); name != "B" {
		t.Errorf("Resolve(Y) = %q", name)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d", tbl.Len())
	}
}

func TestForegroundCorrelation(t *testing.T) {
	var f ForegroundCorrelation
	if f.Resolve("1") {
		t.Error("nothing outstanding should not match")
	}
	f.Expect("1")
	if !f.Pending() {
		t.Error("pid should be pending")
	}
	if f.Resolve("2") {
		t.Error("mismatched pid should not match")
	}
	if f.Pending() {
		t.Error("mismatch should clear the pending pid")
	}
	f.Expect("3")
	if !f.Resolve("3") {
		t.Error("matching pid should resolve")
	}
	f.ScreenOn = true
	if f.InUse() {
		t.Error("locked device is not in use")
	}
	f.Unlocked = true
	if !f.InUse() {
		t.Error("screen on and unlocked is in use")
	}
}

func TestRun_DataDeltas(t *testing.T) {
	e := newTestEngine(models.NewKindSet(models.KindRxBytes, models.KindTxBytes))
	records := []models.Record{
		rec("2014-03-05 00:10:00", "app|installed", "com.a@1:INTERNET:10012:market"),
		rec("2014-03-05 01:00:00", "net|app|10012|rx_bytes", "100"),
		rec("2014-03-05 02:00:00", "net|app|10012|rx_bytes", "150"),
		rec("2014-03-05 03:00:00", "net|app|10012|rx_bytes", "90"),
		rec("2014-03-05 04:00:00", "net|app|10012|rx_bytes", "95"),
		rec("2014-03-05 04:30:00", "net|app|99999|rx_bytes", "500"),
		rec("2014-03-05 05:00:00", "net|app|10012|tx_bytes", "abc"),
	}
	out := runDevice(t, e, records)
	p, ok := out.Get(models.KindRxBytes, "com.a")
	if !ok {
		t.Fatal("missing rx profile")
	}
	want := map[int]float64{2: 50, 3: 90, 4: 5}
	for h := 0; h < 24; h++ {
		if p[h] != want[h] {
			t.Errorf("hour %d = %v, want %v", h, p[h], want[h])
		}
	}
	if _, ok := out.Get(models.KindTxBytes, "com.a"); ok {
		t.Error("malformed tx value should not produce a profile")
	}
	if len(out.Profiles[models.KindRxBytes]) != 1 {
		t.Errorf("unresolved id produced a profile: %v", out.Profiles[models.KindRxBytes])
	}
}

func TestRun_IdentityOverwrite(t *testing.T) {
	e := newTestEngine(models.NewKindSet(models.KindRxBytes))
	records := []models.Record{
		rec("2014-03-05 00:00:00", "app|installed", "A@1:p:X:m"),
		rec("2014-03-05 01:00:00", "net|app|X|rx_bytes", "10"),
		rec("2014-03-05 02:00:00", "net|app|X|rx_bytes", "20"),
		rec("2014-03-05 03:00:00", "app|installed", "B@1:p:X:m"),
		rec("2014-03-05 04:00:00", "net|app|X|rx_bytes", "30"),
		rec("2014-03-05 05:00:00", "net|app|X|rx_bytes", "45"),
	}
	out := runDevice(t, e, records)

	a, ok := out.Get(models.KindRxBytes, "A")
	if !ok || a[2] != 10 || a.Sum() != 10 {
		t.Errorf("A profile = %v", a)
	}
	b, ok := out.Get(models.KindRxBytes, "B")
	if !ok || b[5] != 15 || b.Sum() != 15 {
		t.Errorf("B profile = %v", b)
	}
}

func TestRun_ForegroundCorrelation(t *testing.T) {
	e := newTestEngine(models.NewKindSet(models.KindForeground, models.KindOtherForeground))
	records := inUse("2014-03-05 09:00:00")
	records = append(records,
		rec("2014-03-05 09:01:00", "app|100|importance", "foreground"),
		rec("2014-03-05 09:01:01", "app|100|name", "com.a:main"),
		// mismatch: clears pid, no instance
		rec("2014-03-05 09:02:00", "app|200|importance", "foreground"),
		rec("2014-03-05 09:02:01", "app|201|name", "com.b"),
		// stale pid must not resolve later
		rec("2014-03-05 09:03:00", "app|200|name", "com.b"),
		// non-foreground importance does nothing
		rec("2014-03-05 09:04:00", "app|300|importance", "background"),
		rec("2014-03-05 09:04:01", "app|300|name", "com.c"),
		// locked: counted as other
		rec("2014-03-05 10:00:00", "hf|locked", "true"),
		rec("2014-03-05 10:01:00", "app|400|importance", "foreground"),
		rec("2014-03-05 10:01:01", "app|400|name", "com.a"),
	)
	out := runDevice(t, e, records)

	fg, ok := out.Get(models.KindForeground, "com.a")
	if !ok || fg[9] != 1 || fg.Sum() != 1 {
		t.Errorf("foreground com.a = %v", fg)
	}
	if _, ok := out.Get(models.KindForeground, "com.b"); ok {
		t.Error("pid mismatch produced a foreground instance")
	}
	if _, ok := out.Get(models.KindForeground, "com.c"); ok {
		t.Error("background importance produced a foreground instance")
	}
	other, ok := out.Get(models.KindOtherForeground, "com.a")
	if !ok || other[10] != 1 {
		t.Errorf("other foreground com.a = %v", other)
	}
}

func TestRun_NameFilter(t *testing.T) {
	e := New(Config{
		Kinds:  models.NewKindSet(models.KindForeground, models.KindRxBytes),
		Filter: filter{"com.a": true},
	})
	records := inUse("2014-03-05 09:00:00")
	records = append(records,
		rec("2014-03-05 09:01:00", "app|1|importance", "foreground"),
		rec("2014-03-05 09:01:01", "app|1|name", "com.b"),
		rec("2014-03-05 09:02:00", "app|installed", "com.a@7:p:11:m,com.b@8:p:12:m"),
		rec("2014-03-05 09:03:00", "net|app|12|rx_bytes", "1"),
		rec("2014-03-05 09:04:00", "net|app|12|rx_bytes", "2"),
	)
	out := runDevice(t, e, records)
	if !out.Empty() {
		t.Errorf("filtered apps should produce nothing: %v", out.Profiles)
	}
}

type filter map[string]bool

func (f filter) Contains(name string) bool { return f[name] }

func TestRun_ScreenSession(t *testing.T) {
	e := newTestEngine(models.NewKindSet(models.KindScreenTime, models.KindScreenSessions))
	records := []models.Record{
		rec("2014-03-05 08:00:00", "screen|power", "on"),
		rec("2014-03-05 08:05:30", "screen|power", "off"),
		// session crossing the hour is bucketed at its start
		rec("2014-03-05 10:59:00", "screen|power", "on"),
		rec("2014-03-05 11:01:00", "screen|power", "off"),
		// off without on closes nothing
		rec("2014-03-05 12:00:00", "screen|power", "off"),
	}
	out := runDevice(t, e, records)
	secs, _ := out.Get(models.KindScreenTime, models.OverallEntity)
	if secs[8] != 330 || secs[10] != 120 || secs[11] != 0 {
		t.Errorf("screen time = %v", secs)
	}
	sessions, _ := out.Get(models.KindScreenSessions, models.OverallEntity)
	if sessions[8] != 1 || sessions[10] != 1 || sessions.Sum() != 2 {
		t.Errorf("sessions = %v", sessions)
	}
}

func TestRun_DeviceAnalyzerTimestamps(t *testing.T) {
	e := newTestEngine(models.NewKindSet(models.KindScreenTime, models.KindScreenSessions))
	records := []models.Record{
		{Entry: "1", Num: "1", Timestamp: "2013-08-23T08:00:00.000+0100", EntryType: "screen|power", Value: "on"},
		{Entry: "2", Num: "2", Timestamp: "2013-08-23T08:05:30.000+0100", EntryType: "screen|power", Value: "off"},
		{Entry: "3", Num: "3", Timestamp: "2013-08-23T22:00:00.111-0600", EntryType: "screen|power", Value: "on"},
		{Entry: "4", Num: "4", Timestamp: "2013-08-23T22:00:10.111-0600", EntryType: "screen|power", Value: "off"},
	}

	dev := e.NewDevice("dev")
	for _, r := range records {
		if !dev.Observe(r) {
			t.Fatalf("record %s rejected", r.Timestamp)
		}
	}
	if got := dev.Days().Total; got != 1 {
		t.Errorf("days = %d, want 1", got)
	}
	raw, ok := dev.Raw(models.KindScreenTime, models.OverallEntity)
	if !ok || raw[8] != 330 || raw[22] != 10 {
		t.Errorf("raw screen time = %v", raw)
	}

	out := runDevice(t, e, records)
	if out.Empty() {
		t.Fatal("device with Device Analyzer timestamps produced no profiles")
	}
	secs, _ := out.Get(models.KindScreenTime, models.OverallEntity)
	if secs[8] != 330 {
		t.Errorf("screen time at 08 = %v, want 330", secs[8])
	}
}

func TestRun_SMSAndPhone(t *testing.T) {
	e := newTestEngine(models.NewKindSet(models.KindSMSInbox, models.KindSMSSent, models.KindCallTime, models.KindCalls))
	records := []models.Record{
		rec("2014-03-05 07:00:00", "sms|count|inbox", "3"),
		rec("2014-03-05 07:30:00", "sms|count|inbox", "5"),
		rec("2014-03-05 08:00:00", "sms|count|sent", "1"),
		rec("2014-03-05 08:10:00", "sms|count|sent", "0"),
		rec("2014-03-05 08:20:00", "sms|count|sent", "2"),
		rec("2014-03-05 13:59:00", "phone|offhook", ""),
		rec("2014-03-05 14:01:00", "phone|idle", ""),
		rec("2014-03-05 15:00:00", "phone|idle", ""),
		rec("2014-03-05 16:00:00", "phone|offhook", ""),
		rec("2014-03-05 16:00:30", "phone|unknown", ""),
		rec("2014-03-05 16:01:00", "phone|ringing", ""),
	}
	out := runDevice(t, e, records)

	inbox, _ := out.Get(models.KindSMSInbox, models.OverallEntity)
	if inbox[7] != 2 || inbox.Sum() != 2 {
		t.Errorf("inbox = %v", inbox)
	}
	sent, _ := out.Get(models.KindSMSSent, models.OverallEntity)
	if sent[8] != 2 || sent.Sum() != 2 {
		t.Errorf("sent = %v", sent)
	}
	callTime, _ := out.Get(models.KindCallTime, models.OverallEntity)
	if callTime[13] != 120 || callTime[16] != 60 || callTime.Sum() != 180 {
		t.Errorf("call time = %v", callTime)
	}
	calls, _ := out.Get(models.KindCalls, models.OverallEntity)
	if calls.Sum() != 2 {
		t.Errorf("calls = %v", calls)
	}
}

func TestRun_Normalization(t *testing.T) {
	e := newTestEngine(models.NewKindSet(models.KindForeground))
	var records []models.Record
	records = append(records, inUse("2014-03-05 03:00:00")...)
	for i := 0; i < 3; i++ {
		records = append(records,
			rec("2014-03-05 03:10:00", "app|1|importance", "foreground"),
			rec("2014-03-05 03:10:01", "app|1|name", "X"),
		)
	}
	records = append(records, inUse("2014-03-06 03:00:00")...)
	records = append(records,
		rec("2014-03-06 03:10:00", "app|1|importance", "foreground"),
		rec("2014-03-06 03:10:01", "app|1|name", "X"),
	)
	out := runDevice(t, e, records)
	if out.Days.Total != 2 {
		t.Fatalf("days = %d, want 2", out.Days.Total)
	}
	p, ok := out.Get(models.KindForeground, "X")
	if !ok || p[3] != 2.0 {
		t.Errorf("normalized hour 3 = %v", p)
	}
}

func TestRun_IgnoredCategoriesDoNotCountDays(t *testing.T) {
	e := newTestEngine(models.NewKindSet(models.KindSMSInbox))
	records := []models.Record{
		rec("2014-03-01 10:00:00", "screen|power", "on"),
		rec("2014-03-02 10:00:00", "wifi|scan", "x"),
		rec("2014-03-03 10:00:00", "sms|count|inbox", "1"),
		rec("2014-03-03 11:00:00", "sms|count|inbox", "5"),
	}
	out := runDevice(t, e, records)
	if out.Days.Total != 1 {
		t.Errorf("days = %d, want 1", out.Days.Total)
	}
	if out.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", out.Skipped)
	}
	p, _ := out.Get(models.KindSMSInbox, models.OverallEntity)
	if p[11] != 4 {
		t.Errorf("inbox = %v", p)
	}
}

func TestRun_NoEvents(t *testing.T) {
	e := newTestEngine(allKinds())
	out := runDevice(t, e, []models.Record{
		rec("(invalid date)", "screen|power", "on"),
		rec("2014-03-01 10:00:00", "wifi|scan", "x"),
	})
	if !out.Empty() || out.Days.Total != 0 || out.Events != 0 {
		t.Errorf("expected no profiles, got %+v", out)
	}
}

func TestRun_WeekdaySplit(t *testing.T) {
	e := New(Config{
		Kinds:  models.NewKindSet(models.KindSMSInbox),
		Layout: models.Layout{SplitWeekday: true},
	})
	// 2014-03-03 and 2014-03-10 are Mondays, 2014-03-04 a Tuesday.
	records := []models.Record{
		rec("2014-03-03 09:00:00", "sms|count|inbox", "0"),
		rec("2014-03-03 09:30:00", "sms|count|inbox", "4"),
		rec("2014-03-04 09:00:00", "sms|count|inbox", "10"),
		rec("2014-03-10 09:00:00", "sms|count|inbox", "12"),
	}
	out := runDevice(t, e, records)
	p, _ := out.Get(models.KindSMSInbox, models.OverallEntity)
	if len(p) != 168 {
		t.Fatalf("profile size = %d", len(p))
	}
	layout := models.Layout{SplitWeekday: true}
	if got := p[layout.Index(0, 9)]; got != 3 {
		t.Errorf("Monday 09 = %v, want 3", got)
	}
	if got := p[layout.Index(1, 9)]; got != 6 {
		t.Errorf("Tuesday 09 = %v, want 6", got)
	}
}

func TestRun_Idempotent(t *testing.T) {
	e := newTestEngine(allKinds())
	records := inUse("2014-03-05 08:00:00")
	records = append(records,
		rec("2014-03-05 08:01:00", "app|installed", "com.a@1:p:5:m"),
		rec("2014-03-05 08:02:00", "app|9|importance", "foreground"),
		rec("2014-03-05 08:02:01", "app|9|name", "com.a"),
		rec("2014-03-05 08:03:00", "net|app|5|rx_bytes", "10"),
		rec("2014-03-05 09:03:00", "net|app|5|rx_bytes", "25"),
		rec("2014-03-05 09:30:00", "screen|power", "off"),
		rec("2014-03-06 10:00:00", "sms|count|sent", "1"),
		rec("2014-03-06 10:30:00", "sms|count|sent", "3"),
	)
	first := runDevice(t, e, records)
	second := runDevice(t, e, records)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("runs differ:\n%+v\n%+v", first, second)
	}
	if first.Empty() {
		t.Error("expected profiles")
	}
}

func TestRun_Cancelled(t *testing.T) {
	e := newTestEngine(allKinds())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records := make([]models.Record, ctxCheckInterval)
	for i := range records {
		records[i] = rec("2014-03-05 08:00:00", "screen|power", "on")
	}
	if _, err := e.Run(ctx, "dev", slices.Values(records)); err == nil {
		t.Error("expected cancellation error")
	}
}

func TestNormalize(t *testing.T) {
	layout := models.Layout{}
	p := layout.NewProfile()
	p[3] = 4
	zero := layout.NewProfile()
	raw := map[models.Kind]map[string]models.Profile{
		models.KindForeground: {"X": p, "Y": zero},
	}

	out := Normalize("dev", raw, models.DayCounts{Total: 2}, layout)
	got, ok := out.Get(models.KindForeground, "X")
	if !ok || got[3] != 2 {
		t.Errorf("X = %v", got)
	}
	if p[3] != 4 {
		t.Error("Normalize modified the raw profile")
	}
	if _, ok := out.Get(models.KindForeground, "Y"); ok {
		t.Error("all-zero profile should be dropped")
	}

	empty := Normalize("dev", raw, models.DayCounts{}, layout)
	if !empty.Empty() {
		t.Error("zero days should produce no profiles")
	}
}
