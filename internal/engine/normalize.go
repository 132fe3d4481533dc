package engine

import "github.com/j-veylop/devicestats/internal/models"

// Normalize divides each raw profile by the number of distinct days the device
// was observed (per weekday for split layouts) and drops profiles that end up
// all zero. A device seen on zero days yields no profiles.
func Normalize(device string, raw map[models.Kind]map[string]models.Profile, days models.DayCounts, layout models.Layout) *models.DeviceProfiles {
	out := models.NewDeviceProfiles(device)
	out.Days = days
	if days.Total == 0 {
		return out
	}
	for kind, entities := range raw {
		for entity, p := range entities {
			norm := layout.NewProfile()
			for i, v := range p {
				if v == 0 {
					continue
				}
				div := days.Total
				if wd, _ := layout.Bucket(i); wd >= 0 {
					div = days.PerWeekday[wd]
				}
				if div > 0 {
					norm[i] = v / float64(div)
				}
			}
			if norm.IsZero() {
				continue
			}
			out.Set(kind, entity, norm)
		}
	}
	return out
}
