package engine

import "github.com/j-veylop/devicestats/internal/models"

type counterKey struct {
	entity string
	kind   models.Kind
}

// CounterState tracks the last cumulative value of each byte counter.
//
// The first observation only sets the baseline. A larger value yields the
// difference; a smaller value is treated as a counter reset and yields the
// new value itself; an equal value yields nothing.
type CounterState struct {
	last map[counterKey]int64
}

// NewCounterState returns an empty counter table.
func NewCounterState() *CounterState {
	return &CounterState{last: make(map[counterKey]int64)}
}

// Observe records value and returns the delta to score, if any.
func (c *CounterState) Observe(entity string, kind models.Kind, value int64) (int64, bool) {
	key := counterKey{entity: entity, kind: kind}
	prev, seen := c.last[key]
	c.last[key] = value
	switch {
	case !seen:
		return 0, false
	case value > prev:
		return value - prev, true
	case value < prev:
		return value, true
	default:
		return 0, false
	}
}

// SMSCounter tracks the running message count per direction. Unlike byte
// counters a decrease only moves the baseline.
type SMSCounter struct {
	last map[models.Kind]int64
}

// NewSMSCounter returns an empty SMS counter.
func NewSMSCounter() *SMSCounter {
	return &SMSCounter{last: make(map[models.Kind]int64)}
}

// Observe records value for the direction and returns the increase, if any.
func (c *SMSCounter) Observe(kind models.Kind, value int64) (int64, bool) {
	prev, seen := c.last[kind]
	c.last[kind] = value
	if !seen || value <= prev {
		return 0, false
	}
	return value - prev, true
}
