package models

import "fmt"

// HoursPerDay is the number of hour buckets in a day.
const HoursPerDay = 24

// DaysPerWeek is the number of weekday slots in a split layout.
const DaysPerWeek = 7

// WeekdayNames are the Monday-based weekday labels.
var WeekdayNames = [DaysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Layout describes the bucket shape of a profile.
type Layout struct {
	SplitWeekday bool
}

// Size returns the number of buckets.
func (l Layout) Size() int {
	if l.SplitWeekday {
		return DaysPerWeek * HoursPerDay
	}
	return HoursPerDay
}

// Index maps a weekday and hour to a bucket index.
func (l Layout) Index(weekday, hour int) int {
	if l.SplitWeekday {
		return weekday*HoursPerDay + hour
	}
	return hour
}

// Bucket splits a bucket index into weekday and hour. Weekday is -1 for hourly layouts.
func (l Layout) Bucket(i int) (weekday, hour int) {
	if l.SplitWeekday {
		return i / HoursPerDay, i % HoursPerDay
	}
	return -1, i
}

// Label returns a column label for bucket i.
func (l Layout) Label(i int) string {
	weekday, hour := l.Bucket(i)
	if weekday < 0 {
		return fmt.Sprintf("%02d", hour)
	}
	return fmt.Sprintf("%s %02d", WeekdayNames[weekday], hour)
}

// NewProfile allocates an empty profile for the layout.
func (l Layout) NewProfile() Profile {
	return make(Profile, l.Size())
}

// Profile is a bucketed series of accumulated values for one device, kind and entity.
type Profile []float64

// Add accumulates v into bucket i.
func (p Profile) Add(i int, v float64) {
	p[i] += v
}

// IsZero reports whether every bucket is zero.
func (p Profile) IsZero() bool {
	for _, v := range p {
		if v != 0 {
			return false
		}
	}
	return true
}

// Sum returns the total over all buckets.
func (p Profile) Sum() float64 {
	var total float64
	for _, v := range p {
		total += v
	}
	return total
}

// Clone returns an independent copy.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	copy(out, p)
	return out
}

// DayCounts holds the number of distinct calendar days a device was observed.
type DayCounts struct {
	Total      int
	PerWeekday [DaysPerWeek]int
}

// Weekdays returns the number of Monday to Friday days.
func (d DayCounts) Weekdays() int {
	n := 0
	for _, c := range d.PerWeekday[:5] {
		n += c
	}
	return n
}

// Weekend returns the number of Saturday and Sunday days.
func (d DayCounts) Weekend() int {
	return d.PerWeekday[5] + d.PerWeekday[6]
}

// OverallEntity keys profiles of kinds that are not split per app.
const OverallEntity = "all"

// DeviceProfiles is the normalized output of one device.
type DeviceProfiles struct {
	Profiles map[Kind]map[string]Profile
	Device   string
	Days     DayCounts
	Events   int
	Skipped  int
}

// NewDeviceProfiles returns an empty profile set for a device.
func NewDeviceProfiles(device string) *DeviceProfiles {
	return &DeviceProfiles{
		Device:   device,
		Profiles: make(map[Kind]map[string]Profile),
	}
}

// Set stores a profile for the given kind and entity.
func (d *DeviceProfiles) Set(kind Kind, entity string, p Profile) {
	m, ok := d.Profiles[kind]
	if !ok {
		m = make(map[string]Profile)
		d.Profiles[kind] = m
	}
	m[entity] = p
}

// Get returns the profile for a kind and entity, if present.
func (d *DeviceProfiles) Get(kind Kind, entity string) (Profile, bool) {
	p, ok := d.Profiles[kind][entity]
	return p, ok
}

// Empty reports whether no profile survived normalization.
func (d *DeviceProfiles) Empty() bool {
	for _, m := range d.Profiles {
		if len(m) > 0 {
			return false
		}
	}
	return true
}
