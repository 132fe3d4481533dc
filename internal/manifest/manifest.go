// Package manifest reads the device list and the app category mapping.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/j-veylop/devicestats/internal/models"
)

// ErrNoDevices is returned when a manifest lists no devices.
var ErrNoDevices = errors.New("manifest lists no devices")

// daColumns is the column layout of a da manifest row.
var daColumns = []string{"i", "FileName", "Start", "End", "Days", "PropData", "InUK", "OutUK", "PropUK"}

// Entry is one device row. Only Name is used by the engine; the remaining
// columns are carried through as metadata.
type Entry struct {
	Meta  map[string]string
	Name  string
	Index int
}

// Manifest is an ordered list of devices.
type Manifest struct {
	Entries []Entry
	Format  models.Format
}

// Read opens and parses a manifest file.
func Read(path string, format models.Format) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return Parse(f, format)
}

// Parse reads a manifest from r. Blank lines and a leading header row are skipped.
func Parse(r io.Reader, format models.Format) (*Manifest, error) {
	m := &Manifest{Format: format}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		switch format {
		case models.FormatLancs:
			entry = Entry{Name: line}
		default:
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			if fields[1] == "FileName" {
				continue
			}
			entry = Entry{Name: fields[1], Meta: make(map[string]string, len(fields))}
			for i, v := range fields {
				if i < len(daColumns) {
					entry.Meta[daColumns[i]] = v
				}
			}
		}
		entry.Index = len(m.Entries)
		m.Entries = append(m.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(m.Entries) == 0 {
		return nil, ErrNoDevices
	}
	return m, nil
}

// Names returns the device names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		names[i] = e.Name
	}
	return names
}

// LogName returns the log file name for a device.
func (m *Manifest) LogName(device string) string {
	return device + m.Format.LogExt()
}

// Len returns the number of devices.
func (m *Manifest) Len() int {
	return len(m.Entries)
}

// Days returns the da "Days" column of an entry, or 0 when absent.
func (e Entry) Days() int {
	n, _ := strconv.Atoi(e.Meta["Days"])
	return n
}
