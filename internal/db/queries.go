package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/j-veylop/devicestats/internal/logger"
	"github.com/j-veylop/devicestats/internal/models"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// SaveSummary stores a run header and its summary in one transaction.
func (db *DB) SaveSummary(run models.Run, s *models.Summary) error {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, finished_at, manifest, format, kinds, split_weekday,
			output_dir, devices, processed, failed, contributing, overall_use, overall_demand
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.Format(timeLayout),
		nullTime(run.FinishedAt),
		run.Manifest,
		run.Format,
		run.Kinds,
		boolToInt(run.SplitWeekday),
		run.OutputDir,
		run.Devices,
		run.Processed,
		run.Failed,
		run.Contributing,
		s.OverallUse,
		s.OverallDemand,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	seriesStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO series (run_id, kind, level, span, name) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare series insert: %w", err)
	}
	defer func() { _ = seriesStmt.Close() }()

	statStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO statistics (series_id, bucket, total, mean, count, min, max, median)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statistics insert: %w", err)
	}
	defer func() { _ = statStmt.Close() }()

	for _, series := range s.Series {
		res, err := seriesStmt.ExecContext(ctx, run.ID, series.Kind.String(), series.Level.String(), series.Span.String(), series.Name)
		if err != nil {
			return fmt.Errorf("failed to insert series %s/%s: %w", series.Kind, series.Name, err)
		}
		seriesID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read series id: %w", err)
		}
		for bucket, st := range series.Stats {
			if st.Count == 0 {
				continue
			}
			if _, err := statStmt.ExecContext(ctx, seriesID, bucket, st.Total, st.Mean, st.Count, st.Min, st.Max, st.Median); err != nil {
				return fmt.Errorf("failed to insert statistic: %w", err)
			}
		}
	}

	if err := insertContributions(ctx, tx, run.ID, s.Contributions); err != nil {
		return err
	}

	for _, sh := range s.Shares {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shares (run_id, category, use_total, use_percent, demand_total, demand_percent)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, sh.Category, sh.Use, sh.UsePercent, sh.Demand, sh.DemandPercent)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}

	for _, f := range s.Failures {
		if _, err := tx.ExecContext(ctx, `INSERT INTO failures (run_id, device, reason) VALUES (?, ?, ?)`,
			run.ID, f.Device, f.Reason); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	logger.Debug("Stored run", "id", run.ID, "series", len(s.Series))
	return nil
}

func insertContributions(ctx context.Context, tx *sql.Tx, runID string, c models.Contributions) error {
	insert := func(scope, category, device string) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO contributions (run_id, scope, category, device) VALUES (?, ?, ?, ?)`,
			runID, scope, category, device)
		if err != nil {
			return fmt.Errorf("failed to insert contribution: %w", err)
		}
		return nil
	}
	for scope, devices := range map[string][]string{scopeUse: c.Use, scopeDemand: c.Demand, scopeAll: c.All} {
		for _, d := range devices {
			if err := insert(scope, "", d); err != nil {
				return err
			}
		}
	}
	for scope, byCat := range map[string]map[string][]string{scopeUse: c.CategoryUse, scopeDemand: c.CategoryDemand} {
		for cat, devices := range byCat {
			// An empty device marks a mapped category nobody contributed to.
			if err := insert(scope, cat, ""); err != nil {
				return err
			}
			for _, d := range devices {
				if err := insert(scope, cat, d); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

const runColumns = `
	id, started_at, finished_at, manifest, format, kinds, split_weekday,
	output_dir, devices, processed, failed, contributing
`

func scanRun(row interface{ Scan(...any) error }) (models.Run, error) {
	var run models.Run
	var started string
	var finished sql.NullString
	var split int
	err := row.Scan(
		&run.ID,
		&started,
		&finished,
		&run.Manifest,
		&run.Format,
		&run.Kinds,
		&split,
		&run.OutputDir,
		&run.Devices,
		&run.Processed,
		&run.Failed,
		&run.Contributing,
	)
	if err != nil {
		return run, err
	}
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	run.SplitWeekday = split != 0
	return run, nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(limit int) ([]models.Run, error) {
	rows, err := db.QueryContext(context.Background(),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run header.
func (db *DB) GetRun(id string) (models.Run, error) {
	row := db.QueryRowContext(context.Background(), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrRunNotFound
	}
	if err != nil {
		return run, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetSeries loads every series of a run for one kind. Buckets without a
// stored row are zero.
func (db *DB) GetSeries(runID string, kind models.Kind, buckets int) ([]models.Series, error) {
	rows, err := db.QueryContext(context.Background(), `
		SELECT s.id, s.level, s.span, s.name,
			COALESCE(st.bucket, -1), COALESCE(st.total, 0), COALESCE(st.mean, 0), COALESCE(st.count, 0),
			COALESCE(st.min, 0), COALESCE(st.max, 0), COALESCE(st.median, 0)
		FROM series s
		LEFT JOIN statistics st ON st.series_id = s.id
		WHERE s.run_id = ? AND s.kind = ?
		ORDER BY s.id, st.bucket
	`, runID, kind.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Series
	index := make(map[int64]int)
	for rows.Next() {
		var id int64
		var level, span, name string
		var bucket int
		var st models.Statistic
		if err := rows.Scan(&id, &level, &span, &name, &bucket,
			&st.Total, &st.Mean, &st.Count, &st.Min, &st.Max, &st.Median); err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		i, ok := index[id]
		if !ok {
			lv, err := models.ParseLevel(level)
			if err != nil {
				return nil, err
			}
			sp, err := models.ParseSpan(span)
			if err != nil {
				return nil, err
			}
			size := buckets
			if sp != models.SpanAll {
				size = models.HoursPerDay
			}
			out = append(out, models.Series{
				Kind:  kind,
				Level: lv,
				Span:  sp,
				Name:  name,
				Stats: make([]models.Statistic, size),
			})
			i = len(out) - 1
			index[id] = i
		}
		if bucket >= 0 && bucket < len(out[i].Stats) {
			out[i].Stats[bucket] = st
		}
	}
	return out, rows.Err()
}

// GetContributions loads a run's contribution sets.
func (db *DB) GetContributions(runID string) (models.Contributions, error) {
	c := models.Contributions{
		CategoryUse:    make(map[string][]string),
		CategoryDemand: make(map[string][]string),
	}
	rows, err := db.QueryContext(context.Background(), `
		SELECT scope, category, device FROM contributions
		WHERE run_id = ?
		ORDER BY scope, category, device
	`, runID)
	if err != nil {
		return c, fmt.Errorf("failed to query contributions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var scope, category, device string
		if err := rows.Scan(&scope, &category, &device); err != nil {
			return c, fmt.Errorf("failed to scan contribution: %w", err)
		}
		if category == "" {
			switch scope {
			case scopeUse:
				c.Use = append(c.Use, device)
			case scopeDemand:
				c.Demand = append(c.Demand, device)
			case scopeAll:
				c.All = append(c.All, device)
			}
			continue
		}
		target := c.CategoryUse
		if scope == scopeDemand {
			target = c.CategoryDemand
		}
		if device == "" {
			if _, ok := target[category]; !ok {
				target[category] = []string{}
			}
			continue
		}
		target[category] = append(target[category], device)
	}
	return c, rows.Err()
}

// GetShares loads a run's category shares, sorted by category.
func (db *DB) GetShares(runID string) ([]models.CategoryShare, error) {
	rows, err := db.QueryContext(context.Background(), `
		SELECT category, use_total, use_percent, demand_total, demand_percent
		FROM shares WHERE run_id = ? ORDER BY category
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shares: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.CategoryShare
	for rows.Next() {
		var sh models.CategoryShare
		if err := rows.Scan(&sh.Category, &sh.Use, &sh.UsePercent, &sh.Demand, &sh.DemandPercent); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// GetSummary rebuilds a stored run's summary.
func (db *DB) GetSummary(runID string) (*models.Summary, error) {
	run, err := db.GetRun(runID)
	if err != nil {
		return nil, err
	}
	kinds, err := models.ParseKindSet(run.Kinds)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored kinds: %w", err)
	}
	s := &models.Summary{
		RunID:      run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Layout:     models.Layout{SplitWeekday: run.SplitWeekday},
		Kinds:      kinds,
		Devices:    run.Devices,
		Processed:  run.Processed,
	}
	if err := db.QueryRowContext(context.Background(),
		`SELECT overall_use, overall_demand FROM runs WHERE id = ?`, runID,
	).Scan(&s.OverallUse, &s.OverallDemand); err != nil {
		return nil, fmt.Errorf("failed to read run totals: %w", err)
	}

	for _, kind := range kinds.Kinds() {
		series, err := db.GetSeries(runID, kind, s.Layout.Size())
		if err != nil {
			return nil, err
		}
		s.Series = append(s.Series, series...)
	}
	sort.SliceStable(s.Series, func(i, j int) bool {
		a, b := s.Series[i], s.Series[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Span != b.Span {
			return a.Span < b.Span
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.Name < b.Name
	})

	if s.Contributions, err = db.GetContributions(runID); err != nil {
		return nil, err
	}
	if s.Shares, err = db.GetShares(runID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(context.Background(),
		`SELECT device, reason FROM failures WHERE run_id = ? ORDER BY device`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var f models.DeviceFailure
		if err := rows.Scan(&f.Device, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		s.Failures = append(s.Failures, f)
	}
	return s, rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (db *DB) DeleteRun(id string) error {
	res, err := db.ExecContext(context.Background(), `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// PruneRuns keeps the newest keep runs and deletes the rest.
func (db *DB) PruneRuns(keep int) (int64, error) {
	res, err := db.ExecContext(context.Background(), `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logger.Info("Pruned old runs", "deleted", n, "kept", keep)
	}
	return n, nil
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(timeLayout), Valid: true}
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
