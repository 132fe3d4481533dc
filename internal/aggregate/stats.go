package aggregate

import (
	"slices"

	"github.com/j-veylop/devicestats/internal/models"
)

// Compute summarizes the values contributed to one bucket.
// An empty list yields the zero Statistic.
func Compute(values []float64) models.Statistic {
	if len(values) == 0 {
		return models.Statistic{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var total float64
	for _, v := range values {
		total += v
	}
	return models.Statistic{
		Total:  total,
		Mean:   total / float64(len(values)),
		Count:  len(values),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: median(sorted),
	}
}

// median expects sorted input; an even count averages the two middle values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// ComputeSeries summarizes every bucket of a list-per-bucket accumulator.
func ComputeSeries(buckets [][]float64) []models.Statistic {
	out := make([]models.Statistic, len(buckets))
	for i, values := range buckets {
		out[i] = Compute(values)
	}
	return out
}
