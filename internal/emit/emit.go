// Package emit writes run summaries as ";"-delimited tables.
package emit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/j-veylop/devicestats/internal/models"
)

// TableName returns the base file name for a series group and statistic.
func TableName(kind models.Kind, level models.Level, span models.Span, field models.StatField) string {
	name := kind.String()
	if level != models.LevelEntity {
		name += "_" + level.String()
	}
	if span != models.SpanAll {
		name += "_" + span.String()
	}
	return name + "_" + field.String() + ".csv"
}

type groupKey struct {
	kind  models.Kind
	level models.Level
	span  models.Span
}

// Write writes every table of s into dir and returns the paths written.
func Write(dir string, s *models.Summary) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	groups := lo.GroupBy(s.Series, func(series models.Series) groupKey {
		return groupKey{kind: series.Kind, level: series.Level, span: series.Span}
	})
	keys := lo.Keys(groups)
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		if a.level != b.level {
			return a.level < b.level
		}
		return a.span < b.span
	})

	for _, key := range keys {
		series := groups[key]
		layout := s.Layout
		if key.span != models.SpanAll {
			layout = models.Layout{}
		}
		for _, field := range models.StatFields {
			path := filepath.Join(dir, TableName(key.kind, key.level, key.span, field))
			if err := writeTable(path, layout, series, field); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}

	for _, f := range []struct {
		name string
		rows [][]string
	}{
		{"contribution.csv", contributionRows(s)},
		{"category_contribution.csv", categoryContributionRows(s)},
		{"category_shares.csv", shareRows(s)},
		{"failures.csv", failureRows(s)},
	} {
		path := filepath.Join(dir, f.name)
		if err := writeRows(path, f.rows); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeTable(path string, layout models.Layout, series []models.Series, field models.StatField) error {
	header := make([]string, 0, layout.Size()+1)
	header = append(header, "name")
	for i := 0; i < layout.Size(); i++ {
		header = append(header, layout.Label(i))
	}
	rows := [][]string{header}
	for _, s := range series {
		row := make([]string, 0, len(s.Stats)+1)
		row = append(row, s.Name)
		for _, st := range s.Stats {
			row = append(row, formatFloat(field.Value(st)))
		}
		rows = append(rows, row)
	}
	return writeRows(path, rows)
}

func contributionRows(s *models.Summary) [][]string {
	return [][]string{
		{"use", strconv.Itoa(len(s.Contributions.Use))},
		{"demand", strconv.Itoa(len(s.Contributions.Demand))},
		{"total no of devices", strconv.Itoa(len(s.Contributions.All))},
	}
}

func categoryContributionRows(s *models.Summary) [][]string {
	cats := lo.Uniq(append(lo.Keys(s.Contributions.CategoryUse), lo.Keys(s.Contributions.CategoryDemand)...))
	sort.Strings(cats)
	rows := [][]string{{"category", "use", "demand"}}
	for _, c := range cats {
		rows = append(rows, []string{
			c,
			strconv.Itoa(len(s.Contributions.CategoryUse[c])),
			strconv.Itoa(len(s.Contributions.CategoryDemand[c])),
		})
	}
	return rows
}

func shareRows(s *models.Summary) [][]string {
	rows := [][]string{
		{"overall use", formatFloat(s.OverallUse)},
		{"overall demand", formatFloat(s.OverallDemand)},
		{"category", "use", "use_percent", "demand", "demand_percent"},
	}
	for _, sh := range s.Shares {
		rows = append(rows, []string{
			sh.Category,
			formatFloat(sh.Use),
			formatFloat(sh.UsePercent),
			formatFloat(sh.Demand),
			formatFloat(sh.DemandPercent),
		})
	}
	return rows
}

func failureRows(s *models.Summary) [][]string {
	rows := [][]string{{"device", "reason"}}
	for _, f := range s.Failures {
		rows = append(rows, []string{f.Device, f.Reason})
	}
	return rows
}

func writeRows(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
