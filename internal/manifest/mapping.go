package manifest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// App is one mapping row.
type App struct {
	FullName string
	Name     string
	Category string
}

// Mapping maps log app names to display names and categories.
// A nil Mapping maps nothing.
type Mapping struct {
	apps  map[string]App
	order []string
}

// ReadMapping opens and parses a mapping file.
func ReadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping: %w", err)
	}
	return ParseMapping(bytes.NewReader(data))
}

// ParseMapping reads "FullName;Name;Category" rows, or FullName-only rows
// separated by commas. A "FullName" header row is skipped.
func ParseMapping(r io.Reader) (*Mapping, error) {
	br := bufio.NewReader(r)
	comma := ','
	if head, _ := br.Peek(4096); bytes.Contains(firstLine(head), []byte{';'}) {
		comma = ';'
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	m := &Mapping{apps: make(map[string]App)}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse mapping: %w", err)
		}
		app := App{FullName: strings.TrimSpace(row[0])}
		if app.FullName == "" || app.FullName == "FullName" {
			continue
		}
		if len(row) > 1 {
			app.Name = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			app.Category = strings.TrimSpace(row[2])
		}
		if _, dup := m.apps[app.FullName]; !dup {
			m.order = append(m.order, app.FullName)
		}
		m.apps[app.FullName] = app
	}
	return m, nil
}

func firstLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i]
	}
	return b
}

// Contains reports whether the app is listed.
func (m *Mapping) Contains(app string) bool {
	if m == nil {
		return false
	}
	_, ok := m.apps[app]
	return ok
}

// Category returns the app's category; the second result is false when the
// app is unlisted or has no category.
func (m *Mapping) Category(app string) (string, bool) {
	if m == nil {
		return "", false
	}
	a, ok := m.apps[app]
	if !ok || a.Category == "" {
		return "", false
	}
	return a.Category, true
}

// DisplayName returns the mapped short name, falling back to app.
func (m *Mapping) DisplayName(app string) string {
	if m == nil {
		return app
	}
	if a, ok := m.apps[app]; ok && a.Name != "" {
		return a.Name
	}
	return app
}

// Names returns the listed full names in file order.
func (m *Mapping) Names() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.order...)
}

// Categories returns the distinct non-empty categories, sorted.
func (m *Mapping) Categories() []string {
	if m == nil {
		return nil
	}
	cats := lo.Uniq(lo.Compact(lo.Map(m.order, func(name string, _ int) string {
		return m.apps[name].Category
	})))
	sort.Strings(cats)
	return cats
}

// Len returns the number of listed apps.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.apps)
}
