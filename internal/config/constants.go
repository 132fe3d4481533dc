package config

import (
	"strings"

	"github.com/j-veylop/devicestats/internal/models"
)

// Presets name the kind sets of the common analyses.
var Presets = map[string]models.KindSet{
	"foreground": models.NewKindSet(models.KindForeground),
	"use":        models.NewKindSet(models.KindForeground, models.KindOtherForeground, models.KindScreenTime, models.KindScreenSessions),
	"data":       models.NewKindSet(models.KindRxBytes, models.KindTxBytes),
	"overall":    models.NewKindSet(models.KindForeground, models.KindRxBytes, models.KindTxBytes),
	"comms":      models.NewKindSet(models.KindSMSInbox, models.KindSMSSent, models.KindCallTime, models.KindCalls),
	"all":        models.NewKindSet(models.AllKinds()...),
}

// ParseKinds accepts a preset name or a comma-separated list of kind names.
func ParseKinds(s string) (models.KindSet, error) {
	if set, ok := Presets[strings.ToLower(strings.TrimSpace(s))]; ok {
		return set, nil
	}
	return models.ParseKindSet(s)
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Bounds of the region used by the location filter (the UK by default).
const (
	defaultMinLon = -11.0
	defaultMaxLon = 1.5
	defaultMinLat = 50.0
	defaultMaxLat = 60.5
)
