package components

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/j-veylop/devicestats/internal/models"
)

// FormatValue renders v in the unit of kind.
func FormatValue(kind models.Kind, v float64) string {
	switch kind.Unit() {
	case "bytes":
		if v < 0 {
			v = 0
		}
		return humanize.Bytes(uint64(math.Round(v)))
	case "seconds":
		return (time.Duration(v) * time.Second).Round(time.Second).String()
	default:
		if v == math.Trunc(v) {
			return humanize.Comma(int64(v))
		}
		return humanize.CommafWithDigits(v, 1)
	}
}

// Formatter returns FormatValue bound to kind.
func Formatter(kind models.Kind) func(float64) string {
	return func(v float64) string {
		return FormatValue(kind, v)
	}
}
