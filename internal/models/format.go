package models

import (
	"fmt"
	"strings"
)

// Format identifies an ingestion pipeline: its manifest layout and log encoding.
type Format int

const (
	// FormatDA reads whitespace-delimited manifests and gzip-compressed ";" logs.
	FormatDA Format = iota
	// FormatLancs reads one-name-per-line manifests and plain ";" CSV logs.
	FormatLancs
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatDA:
		return "da"
	case FormatLancs:
		return "lancs"
	default:
		return "unknown"
	}
}

// LogExt returns the log file extension for the format.
func (f Format) LogExt() string {
	if f == FormatLancs {
		return ".csv"
	}
	return ".csv.gz"
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "da":
		return FormatDA, nil
	case "lancs":
		return FormatLancs, nil
	default:
		return 0, fmt.Errorf("unknown format: %q", s)
	}
}
