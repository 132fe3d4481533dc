package models

import (
	"strings"
	"time"
)

// Record is one raw five-field log line.
type Record struct {
	Entry     string
	Num       string
	Timestamp string
	EntryType string
	Value     string
}

// Path splits the EntryType into its category path.
func (r Record) Path() []string {
	return strings.Split(r.EntryType, "|")
}

// Event is a classified record with its timestamp resolved for bucketing.
type Event struct {
	Time    time.Time
	Device  string
	Date    string
	Path    []string
	Value   string
	Hour    int
	Weekday int
}

// Token returns the i-th path token or "" when the path is shorter.
func (e Event) Token(i int) string {
	if i < 0 || i >= len(e.Path) {
		return ""
	}
	return e.Path[i]
}

// HasToken reports whether any path token equals tok.
func (e Event) HasToken(tok string) bool {
	for _, t := range e.Path {
		if t == tok {
			return true
		}
	}
	return false
}

// Weekday converts a time.Weekday to a Monday-based index.
func Weekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}
