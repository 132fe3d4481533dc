package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/devicestats/internal/classify"
	"github.com/j-veylop/devicestats/internal/models"
)

// Phone states that take part in call detection.
const (
	phoneOffhook = "offhook"
	phoneIdle    = "idle"
	phoneCalling = "calling"
	phoneRinging = "ringing"
)

type screenSession struct {
	start time.Time
	open  bool
}

type phoneState struct {
	since time.Time
	last  string
}

// Device is the mutable state of one device's replay.
type Device struct {
	classifier *classify.Classifier
	identity   *AppIdentityTable
	counters   *CounterState
	sms        *SMSCounter
	raw        map[models.Kind]map[string]models.Profile
	phone      phoneState
	screen     screenSession
	id         string
	cfg        Config
	days       classify.DayTracker
	fg         ForegroundCorrelation
	events     int
	rejected   int
}

// Observe classifies rec and, if it is of interest, steps the state machine.
func (d *Device) Observe(rec models.Record) bool {
	ev, ok := d.classifier.Event(d.id, rec)
	if !ok {
		d.rejected++
		return false
	}
	d.Step(ev)
	return true
}

// Step applies one classified event.
func (d *Device) Step(ev models.Event) {
	d.events++
	d.days.Observe(ev)

	head := ev.Token(0)
	switch {
	case ev.HasToken("importance") && strings.Contains(ev.Value, "foreground"):
		d.fg.Expect(ev.Token(1))

	case ev.HasToken("app") && ev.HasToken("name") && d.fg.Pending():
		d.stepAppName(ev)

	case head == "hf" && ev.Token(1) == "locked":
		d.fg.Unlocked = !strings.Contains(ev.Value, "true")

	case head == "screen" && ev.Token(1) == "power":
		d.stepScreen(ev)

	case head == "net" && ev.Token(1) == "app":
		d.stepNet(ev)

	case head == "app" && ev.Token(1) == "installed":
		d.stepInstalled(ev)

	case head == "sms" && ev.Token(1) == "count":
		d.stepSMS(ev)

	case head == "phone":
		d.stepPhone(ev)
	}
}

func (d *Device) stepAppName(ev models.Event) {
	if !d.fg.Resolve(ev.Token(1)) {
		return
	}
	name, _, _ := strings.Cut(ev.Value, ":")
	if !d.accepts(name) {
		return
	}
	kind := models.KindOtherForeground
	if d.fg.InUse() {
		kind = models.KindForeground
	}
	d.add(kind, name, ev.Weekday, ev.Hour, 1)
}

func (d *Device) stepScreen(ev models.Event) {
	if strings.Contains(ev.Value, "off") {
		d.fg.ScreenOn = false
		if d.screen.open {
			start := d.screen.start
			d.screen = screenSession{}
			secs := ev.Time.Sub(start).Seconds()
			if secs < 0 {
				return
			}
			wd, hour := models.Weekday(start.Weekday()), start.Hour()
			d.add(models.KindScreenTime, models.OverallEntity, wd, hour, secs)
			d.add(models.KindScreenSessions, models.OverallEntity, wd, hour, 1)
		}
		return
	}
	d.fg.ScreenOn = true
	d.screen = screenSession{start: ev.Time, open: true}
}

func (d *Device) stepNet(ev models.Event) {
	var kind models.Kind
	switch ev.Token(3) {
	case "rx_bytes":
		kind = models.KindRxBytes
	case "tx_bytes":
		kind = models.KindTxBytes
	default:
		return
	}
	name, ok := d.identity.Resolve(ev.Token(2))
	if !ok {
		return
	}
	value, err := strconv.ParseInt(strings.TrimSpace(ev.Value), 10, 64)
	if err != nil {
		return
	}
	if delta, ok := d.counters.Observe(name, kind, value); ok {
		d.add(kind, name, ev.Weekday, ev.Hour, float64(delta))
	}
}

func (d *Device) stepInstalled(ev models.Event) {
	for _, entry := range strings.Split(ev.Value, ",") {
		name, info, found := strings.Cut(entry, "@")
		if !found || name == "" {
			continue
		}
		fields := strings.Split(info, ":")
		if len(fields) < 2 {
			continue
		}
		if !d.accepts(name) {
			continue
		}
		d.identity.Claim(name, fields[len(fields)-2])
	}
}

func (d *Device) stepSMS(ev models.Event) {
	var kind models.Kind
	switch ev.Token(2) {
	case "inbox":
		kind = models.KindSMSInbox
	case "sent":
		kind = models.KindSMSSent
	default:
		return
	}
	value, err := strconv.ParseInt(strings.TrimSpace(ev.Value), 10, 64)
	if err != nil {
		return
	}
	if delta, ok := d.sms.Observe(kind, value); ok {
		d.add(kind, models.OverallEntity, ev.Weekday, ev.Hour, float64(delta))
	}
}

func (d *Device) stepPhone(ev models.Event) {
	state := ev.Token(1)
	switch state {
	case phoneOffhook, phoneIdle, phoneCalling, phoneRinging:
	default:
		return
	}
	if d.phone.last == phoneOffhook && state != phoneOffhook {
		start := d.phone.since
		if secs := ev.Time.Sub(start).Seconds(); secs >= 0 {
			wd, hour := models.Weekday(start.Weekday()), start.Hour()
			d.add(models.KindCallTime, models.OverallEntity, wd, hour, secs)
			d.add(models.KindCalls, models.OverallEntity, wd, hour, 1)
		}
	}
	d.phone = phoneState{last: state, since: ev.Time}
}

func (d *Device) accepts(name string) bool {
	return d.cfg.Filter == nil || d.cfg.Filter.Contains(name)
}

func (d *Device) add(kind models.Kind, entity string, weekday, hour int, v float64) {
	if !d.cfg.Kinds.Has(kind) {
		return
	}
	m, ok := d.raw[kind]
	if !ok {
		m = make(map[string]models.Profile)
		d.raw[kind] = m
	}
	p, ok := m[entity]
	if !ok {
		p = d.cfg.Layout.NewProfile()
		m[entity] = p
	}
	p.Add(d.cfg.Layout.Index(weekday, hour), v)
}

// Raw returns the accumulated, unnormalized profile for a kind and entity.
func (d *Device) Raw(kind models.Kind, entity string) (models.Profile, bool) {
	p, ok := d.raw[kind][entity]
	return p, ok
}

// Days returns the distinct days observed so far.
func (d *Device) Days() models.DayCounts {
	return d.days.Counts()
}

// Identity exposes the device's app identity table.
func (d *Device) Identity() *AppIdentityTable {
	return d.identity
}

// Finish normalizes the accumulated profiles.
func (d *Device) Finish() *models.DeviceProfiles {
	out := Normalize(d.id, d.raw, d.days.Counts(), d.cfg.Layout)
	out.Events = d.events
	out.Skipped = d.rejected
	return out
}
