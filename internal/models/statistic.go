package models

// Statistic summarizes one bucket across contributors.
// Every field is zero when nothing contributed.
type Statistic struct {
	Total  float64
	Mean   float64
	Min    float64
	Max    float64
	Median float64
	Count  int
}

// StatField selects one field of a Statistic.
type StatField int

const (
	// StatTotal is the sum of contributions.
	StatTotal StatField = iota
	// StatMean is the arithmetic mean of contributions.
	StatMean
	// StatCount is the number of contributors.
	StatCount
	// StatMin is the smallest contribution.
	StatMin
	// StatMax is the largest contribution.
	StatMax
	// StatMedian is the median contribution.
	StatMedian
)

// StatFields lists the fields in output order.
var StatFields = []StatField{StatTotal, StatMean, StatCount, StatMin, StatMax, StatMedian}

// String returns the field name used in table names.
func (f StatField) String() string {
	switch f {
	case StatTotal:
		return "total"
	case StatMean:
		return "mean"
	case StatCount:
		return "count"
	case StatMin:
		return "min"
	case StatMax:
		return "max"
	case StatMedian:
		return "median"
	default:
		return "unknown"
	}
}

// Value extracts the field from s.
func (f StatField) Value(s Statistic) float64 {
	switch f {
	case StatTotal:
		return s.Total
	case StatMean:
		return s.Mean
	case StatCount:
		return float64(s.Count)
	case StatMin:
		return s.Min
	case StatMax:
		return s.Max
	case StatMedian:
		return s.Median
	default:
		return 0
	}
}
