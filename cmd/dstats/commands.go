package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/devicestats/internal/config"
	"github.com/j-veylop/devicestats/internal/db"
	"github.com/j-veylop/devicestats/internal/decoder"
	"github.com/j-veylop/devicestats/internal/installs"
	"github.com/j-veylop/devicestats/internal/location"
	"github.com/j-veylop/devicestats/internal/logger"
	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/services"
	"github.com/j-veylop/devicestats/internal/services/analysis"
	"github.com/j-veylop/devicestats/internal/services/inputs"
	"github.com/j-veylop/devicestats/internal/ui/components"
)

const defaultHistoryLimit = 20

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// inputFlags holds flag values that need parsing before they reach the config.
type inputFlags struct {
	format string
	kinds  string
}

// bindSourceFlags binds the log location flags directly to cfg.
func bindSourceFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.LogDir, "logs", cfg.LogDir, "directory holding the device logs")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "read logs from this S3 bucket")
	fs.StringVar(&cfg.S3Prefix, "s3-prefix", cfg.S3Prefix, "key prefix of the logs in the bucket")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "devices processed in parallel")
}

// bindInputFlags binds the analysis input flags. Call apply after parsing.
func bindInputFlags(fs *flag.FlagSet, cfg *config.Config) *inputFlags {
	in := &inputFlags{
		format: cfg.Format.String(),
		kinds:  cfg.Kinds.String(),
	}
	bindSourceFlags(fs, cfg)
	fs.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "device manifest")
	fs.StringVar(&cfg.MappingPath, "mapping", cfg.MappingPath, "app category mapping")
	fs.StringVar(&in.format, "format", in.format, "manifest and log format: da or lancs")
	fs.StringVar(&in.kinds, "kinds", in.kinds, "kind preset or comma-separated kind names")
	fs.BoolVar(&cfg.SplitWeekday, "split", cfg.SplitWeekday, "split hours by weekday")
	fs.BoolVar(&cfg.FilterApps, "filter-apps", cfg.FilterApps, "drop apps missing from the mapping")
	return in
}

func (in *inputFlags) apply(cfg *config.Config) error {
	format, err := models.ParseFormat(in.format)
	if err != nil {
		return err
	}
	kinds, err := config.ParseKinds(in.kinds)
	if err != nil {
		return err
	}
	cfg.Format = format
	cfg.Kinds = kinds
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return nil
}

// openOutput returns stdout for "" and "-", otherwise a created file.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, f.Close, nil
}

func listSource(ctx context.Context, cfg *config.Config) (decoder.ListSource, error) {
	src, err := services.NewSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ls, ok := src.(decoder.ListSource)
	if !ok {
		return nil, fmt.Errorf("log source %v cannot list its logs", src)
	}
	return ls, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runAnalysis runs one population analysis headless.
func runAnalysis(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	fs := newFlagSet("run")
	in := bindInputFlags(fs, cfg)
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "summary table directory (empty disables)")
	noDB := fs.Bool("no-db", false, "do not record the run")
	quiet := fs.Bool("q", false, "do not print progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := in.apply(cfg); err != nil {
		return err
	}
	logger.Setup(os.Stderr, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return err
	}
	snap, err := inputs.Load(cfg.ManifestPath, cfg.Format, cfg.MappingPath)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	src, err := services.NewSource(ctx, cfg)
	if err != nil {
		return err
	}

	var database *db.DB
	if !*noDB {
		database, err = db.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		defer func() { _ = database.Close() }()
	}

	svc := analysis.New(database)
	done := make(chan struct{})
	if !*quiet {
		go printProgress(os.Stderr, svc.Events(), done)
	}

	summary, err := svc.Run(ctx, services.BuildOptions(cfg, snap, src))
	close(done)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("run cancelled")
		}
		return err
	}

	printSummary(os.Stdout, summary, cfg.OutputDir)
	return nil
}

// printProgress reports device progress on one line until done closes.
func printProgress(w io.Writer, events <-chan analysis.Event, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev := <-events:
			if ev.Type == analysis.EventDeviceDone {
				fmt.Fprintf(w, "\r%d/%d devices", ev.Progress.Done, ev.Progress.Total)
				if ev.Progress.Done == ev.Progress.Total {
					fmt.Fprintln(w)
				}
			}
		}
	}
}

func printSummary(w io.Writer, s *models.Summary, outputDir string) {
	fmt.Fprintf(w, "Run %s\n", s.RunID)
	fmt.Fprintf(w, "  devices:      %d processed of %d, %d failed\n", s.Processed, s.Devices, len(s.Failures))
	fmt.Fprintf(w, "  contributing: %d use, %d demand, %d any\n",
		len(s.Contributions.Use), len(s.Contributions.Demand), len(s.Contributions.All))
	fmt.Fprintf(w, "  duration:     %s\n", s.Duration().Round(time.Millisecond))

	for _, kind := range s.Kinds.Kinds() {
		if series, ok := s.Headline(kind); ok {
			fmt.Fprintf(w, "  %-17s %s\n", kind.String()+":", components.FormatValue(kind, series.Sum()))
		}
	}
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  failed %s: %s\n", f.Device, f.Reason)
	}
	if outputDir != "" {
		fmt.Fprintf(w, "Tables written to %s\n", outputDir)
	}
}

// runInstalls counts installed apps across install logs.
func runInstalls(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	fs := newFlagSet("installs")
	bindSourceFlags(fs, cfg)
	fs.IntVar(&cfg.MinInstalls, "threshold", cfg.MinInstalls, "minimum devices an app must be installed on")
	out := fs.String("o", "-", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger.Setup(os.Stderr, cfg.LogLevel)

	ctx, stop := signalContext()
	defer stop()

	src, err := listSource(ctx, cfg)
	if err != nil {
		return err
	}
	counter, err := installs.CountSource(ctx, src, cfg.Workers)
	if err != nil {
		return fmt.Errorf("failed to count installs: %w", err)
	}
	counts := counter.Results(cfg.MinInstalls)

	w, closeOut, err := openOutput(*out)
	if err != nil {
		return err
	}
	if err := installs.Write(w, counts); err != nil {
		_ = closeOut()
		return fmt.Errorf("failed to write installs: %w", err)
	}
	logger.Info("Installs counted", "devices", counter.Devices(), "apps", len(counts))
	return closeOut()
}

// runLocations selects devices by location and writes a da manifest.
func runLocations(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	fs := newFlagSet("locations")
	bindSourceFlags(fs, cfg)
	fs.IntVar(&cfg.Location.MinDays, "min-days", cfg.Location.MinDays, "minimum days of data")
	fs.Float64Var(&cfg.Location.MinProportion, "min-prop", cfg.Location.MinProportion, "minimum share of samples inside the bounds")
	minEnd := fs.String("min-end", cfg.Location.MinEnd.Format("2006-01-02"), "earliest accepted last-seen date")
	out := fs.String("o", "-", "output manifest")
	if err := fs.Parse(args); err != nil {
		return err
	}
	end, err := time.Parse("2006-01-02", *minEnd)
	if err != nil {
		return fmt.Errorf("invalid -min-end: %w", err)
	}
	cfg.Location.MinEnd = end
	logger.Setup(os.Stderr, cfg.LogLevel)

	ctx, stop := signalContext()
	defer stop()

	src, err := listSource(ctx, cfg)
	if err != nil {
		return err
	}
	sel, err := location.Select(ctx, src, criteria(cfg.Location), cfg.Workers)
	if err != nil {
		return fmt.Errorf("failed to select devices: %w", err)
	}

	w, closeOut, err := openOutput(*out)
	if err != nil {
		return err
	}
	if err := location.WriteManifest(w, sel); err != nil {
		_ = closeOut()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	logger.Info("Devices selected", "kept", len(sel))
	return closeOut()
}

func criteria(c config.LocationConfig) location.Criteria {
	return location.Criteria{
		MinEnd:        c.MinEnd,
		MinDays:       c.MinDays,
		MinProportion: c.MinProportion,
		Bounds: location.Bounds{
			MinLon: c.MinLon,
			MaxLon: c.MaxLon,
			MinLat: c.MinLat,
			MaxLat: c.MaxLat,
		},
	}
}

// runHistory lists, deletes or prunes stored runs.
func runHistory(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	fs := newFlagSet("history")
	limit := fs.Int("n", defaultHistoryLimit, "number of runs to list")
	del := fs.String("delete", "", "delete the run with this ID")
	prune := fs.Int("prune", 0, "keep only the newest N runs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logger.Setup(os.Stderr, cfg.LogLevel)

	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer func() { _ = database.Close() }()

	switch {
	case *del != "":
		if err := database.DeleteRun(*del); err != nil {
			return err
		}
		fmt.Printf("Deleted run %s\n", *del)
		return nil
	case *prune > 0:
		n, err := database.PruneRuns(*prune)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d runs\n", n)
		return nil
	}

	runs, err := database.ListRuns(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs")
		return nil
	}
	fmt.Println(historyTable(runs))
	return nil
}

func historyTable(runs []models.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			humanize.Time(r.StartedAt),
			r.Duration().Round(time.Millisecond).String(),
			fmt.Sprintf("%d/%d", r.Processed, r.Devices),
			humanize.Comma(int64(r.Failed)),
			r.Kinds,
			r.Manifest,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "TOOK", "DEVICES", "FAILED", "KINDS", "MANIFEST").
		Rows(rows...).
		String()
}
