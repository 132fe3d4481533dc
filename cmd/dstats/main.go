// Package main is the entry point for dstats. Without a subcommand it runs
// the terminal UI; the subcommands run analyses and filters headless.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/devicestats/internal/app"
	"github.com/j-veylop/devicestats/internal/config"
	"github.com/j-veylop/devicestats/internal/logger"
	"github.com/j-veylop/devicestats/internal/services"
	"github.com/j-veylop/devicestats/internal/ui/tabs/categories"
	"github.com/j-veylop/devicestats/internal/ui/tabs/info"
	"github.com/j-veylop/devicestats/internal/ui/tabs/overview"
	"github.com/j-veylop/devicestats/internal/ui/tabs/profiles"
	"github.com/j-veylop/devicestats/internal/ui/tabs/runs"
	"github.com/j-veylop/devicestats/internal/version"
)

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// dispatch picks the subcommand named by args[0]. No arguments, or flags
// only, start the terminal UI.
func dispatch(args []string) error {
	if len(args) == 0 {
		return runTUI(nil)
	}

	switch args[0] {
	case "-v", "--version", "version":
		fmt.Println(version.Info())
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	case "run":
		return runAnalysis(args[1:])
	case "installs":
		return runInstalls(args[1:])
	case "locations":
		return runLocations(args[1:])
	case "history":
		return runHistory(args[1:])
	case "tui":
		return runTUI(args[1:])
	}

	if args[0] != "" && args[0][0] == '-' {
		return runTUI(args)
	}
	return fmt.Errorf("unknown command %q (see dstats help)", args[0])
}

// runTUI contains the terminal UI startup, separated for cleaner error handling.
func runTUI(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	fs := newFlagSet("tui")
	in := bindInputFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := in.apply(cfg); err != nil {
		return err
	}

	// The UI owns the terminal, so logs go to a file.
	closeLog, err := logger.SetupFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)

	// Tab order matches app.TabID.
	state := model.GetState()
	model.SetTabs([]app.Tab{
		overview.New(state),
		profiles.New(state),
		categories.New(state),
		runs.New(state),
		info.New(state, cfg),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	go func() {
		<-sigChan
		svcManager.CancelRun()
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// printUsage prints the command-line usage information.
func printUsage() {
	fmt.Println(`dstats - hourly activity profiles for a device population

Usage:
  dstats [flags]                 Start the terminal UI
  dstats run [flags]             Analyse the population and write summary tables
  dstats installs [flags]        Count app installs across install logs
  dstats locations [flags]       Select devices by location and write a manifest
  dstats history [flags]         List or delete stored runs
  dstats version                 Show version information
  dstats help                    Show this help message

Input flags (run, tui):
  -manifest PATH      Device manifest
  -format da|lancs    Manifest and log format
  -logs DIR           Directory holding the device logs
  -mapping PATH       App category mapping
  -kinds LIST         Preset (foreground, use, data, overall, comms, all)
                      or comma-separated kind names
  -split              Split hours by weekday
  -filter-apps        Drop apps missing from the mapping
  -workers N          Devices analysed in parallel

Run flags:
  -out DIR            Summary table directory (empty disables)
  -no-db              Do not record the run

Keyboard Shortcuts:
  1-5             Switch between tabs (Overview, Profiles, Categories, Runs, Info)
  Tab/Shift+Tab   Navigate between tabs
  s               Start a run
  x               Cancel the run in progress
  r               Refresh
  ?               Toggle help
  q, Ctrl+C       Quit

Environment Variables:
  DSTATS_MANIFEST, DSTATS_FORMAT, DSTATS_LOG_DIR, DSTATS_MAPPING,
  DSTATS_OUTPUT_DIR, DSTATS_DATABASE_PATH, DSTATS_KINDS, DSTATS_CATEGORIES,
  DSTATS_SPLIT_WEEKDAY, DSTATS_FILTER_APPS, DSTATS_WORKERS, DSTATS_KEEP_RUNS,
  DSTATS_S3_BUCKET, DSTATS_S3_PREFIX, DSTATS_S3_REGION, DSTATS_WATCH,
  DSTATS_WATCH_DEBOUNCE, DSTATS_NOTIFY, DSTATS_LOG_FILE, DSTATS_LOG_LEVEL,
  DSTATS_LOCATION_MIN_DAYS, DSTATS_LOCATION_MIN_END,
  DSTATS_LOCATION_MIN_PROPORTION, DSTATS_MIN_INSTALLS

Configuration:
  The application looks for .env files in the following locations:
  - Current directory
  - ~/.config/devicestats/.env
  - ~/.devicestats/.env`)
}
