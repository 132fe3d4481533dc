// Package classify turns raw records into bucketed events and tracks day boundaries.
package classify

import (
	"strings"

	"github.com/j-veylop/devicestats/internal/models"
)

// DefaultCategories is the full set of EntryType categories the engine understands.
var DefaultCategories = []string{"app", "screen", "hf", "net", "sms", "phone"}

// CategorySet is the set of leading EntryType tokens of interest.
type CategorySet map[string]struct{}

// NewCategorySet builds a set from category names, ignoring blanks.
func NewCategorySet(categories ...string) CategorySet {
	set := make(CategorySet, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// Has reports whether c is a category of interest.
func (s CategorySet) Has(c string) bool {
	_, ok := s[c]
	return ok
}

// Classify reports whether the first token of path is in the category set.
func Classify(path []string, categories CategorySet) bool {
	if len(path) == 0 {
		return false
	}
	return categories.Has(path[0])
}

// Classifier converts records of one device into events.
type Classifier struct {
	categories CategorySet
}

// New returns a classifier for the given category set.
func New(categories CategorySet) *Classifier {
	return &Classifier{categories: categories}
}

// Event classifies rec and resolves its timestamp. The second result is false
// when the record is outside the category set or its timestamp is invalid.
func (c *Classifier) Event(device string, rec models.Record) (models.Event, bool) {
	path := rec.Path()
	if !Classify(path, c.categories) {
		return models.Event{}, false
	}
	ts, ok := ParseTimestamp(rec.Timestamp)
	if !ok {
		return models.Event{}, false
	}
	return models.Event{
		Device:  device,
		Time:    ts,
		Date:    ts.Format(dateLayout),
		Hour:    ts.Hour(),
		Weekday: models.Weekday(ts.Weekday()),
		Path:    path,
		Value:   rec.Value,
	}, true
}
