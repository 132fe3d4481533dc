// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/j-veylop/devicestats/internal/models"
)

// ErrNoManifest is returned by Validate when no manifest is configured.
var ErrNoManifest = errors.New("no manifest configured (set DSTATS_MANIFEST or pass -manifest)")

// Config holds the application configuration.
type Config struct {
	ManifestPath  string
	LogDir        string
	MappingPath   string
	OutputDir     string
	DatabasePath  string
	LogFile       string
	LogLevel      string
	S3Bucket      string
	S3Prefix      string
	S3Region      string
	Categories    []string
	Location      LocationConfig
	Format        models.Format
	Kinds         models.KindSet
	Workers       int
	KeepRuns      int
	WatchDebounce time.Duration
	MinInstalls   int
	SplitWeekday  bool
	FilterApps    bool
	Notify        bool
	Watch         bool
}

// LocationConfig holds the thresholds of the location filter.
type LocationConfig struct {
	MinEnd        time.Time
	MinDays       int
	MinProportion float64
	MinLon        float64
	MaxLon        float64
	MinLat        float64
	MaxLat        float64
}

// Default values
const (
	defaultKinds         = "overall"
	defaultKeepRuns      = 50
	defaultWatchDebounce = 2 * time.Second
	defaultMinDays       = 35
	defaultMinProportion = 0.5
	defaultMinEnd        = "2014-01-01"
	defaultMinInstalls   = 1
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	format, err := models.ParseFormat(getEnvString("DSTATS_FORMAT", "da"))
	if err != nil {
		return nil, err
	}
	kinds, err := ParseKinds(getEnvString("DSTATS_KINDS", defaultKinds))
	if err != nil {
		return nil, err
	}
	minEnd, err := time.Parse("2006-01-02", getEnvString("DSTATS_LOCATION_MIN_END", defaultMinEnd))
	if err != nil {
		return nil, fmt.Errorf("invalid DSTATS_LOCATION_MIN_END: %w", err)
	}

	cfg := &Config{
		ManifestPath:  getEnvString("DSTATS_MANIFEST", ""),
		LogDir:        getEnvString("DSTATS_LOG_DIR", "."),
		MappingPath:   getEnvString("DSTATS_MAPPING", ""),
		OutputDir:     getEnvString("DSTATS_OUTPUT_DIR", "out"),
		DatabasePath:  getEnvString("DSTATS_DATABASE_PATH", getDefaultDatabasePath()),
		LogFile:       getEnvString("DSTATS_LOG_FILE", getDefaultLogPath()),
		LogLevel:      getEnvString("DSTATS_LOG_LEVEL", "info"),
		S3Bucket:      getEnvString("DSTATS_S3_BUCKET", ""),
		S3Prefix:      getEnvString("DSTATS_S3_PREFIX", ""),
		S3Region:      getEnvString("DSTATS_S3_REGION", ""),
		Categories:    splitList(getEnvString("DSTATS_CATEGORIES", "")),
		Format:        format,
		Kinds:         kinds,
		Workers:       getEnvInt("DSTATS_WORKERS", runtime.NumCPU()),
		KeepRuns:      getEnvInt("DSTATS_KEEP_RUNS", defaultKeepRuns),
		WatchDebounce: getEnvDuration("DSTATS_WATCH_DEBOUNCE", defaultWatchDebounce),
		MinInstalls:   getEnvInt("DSTATS_MIN_INSTALLS", defaultMinInstalls),
		SplitWeekday:  getEnvBool("DSTATS_SPLIT_WEEKDAY", false),
		FilterApps:    getEnvBool("DSTATS_FILTER_APPS", false),
		Notify:        getEnvBool("DSTATS_NOTIFY", false),
		Watch:         getEnvBool("DSTATS_WATCH", true),
		Location: LocationConfig{
			MinEnd:        minEnd,
			MinDays:       getEnvInt("DSTATS_LOCATION_MIN_DAYS", defaultMinDays),
			MinProportion: getEnvFloat("DSTATS_LOCATION_MIN_PROPORTION", defaultMinProportion),
			MinLon:        defaultMinLon,
			MaxLon:        defaultMaxLon,
			MinLat:        defaultMinLat,
			MaxLat:        defaultMaxLat,
		},
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that a population run can start.
func (c *Config) Validate() error {
	if c.ManifestPath == "" {
		return ErrNoManifest
	}
	if c.Kinds == 0 {
		return errors.New("no kinds selected")
	}
	if c.FilterApps && c.MappingPath == "" {
		return errors.New("app filtering needs a mapping file (DSTATS_MAPPING)")
	}
	return nil
}

// UseS3 reports whether logs are read from S3.
func (c *Config) UseS3() bool {
	return c.S3Bucket != ""
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "devicestats", ".env"),
			filepath.Join(home, ".devicestats", ".env"),
		)
	}

	return paths
}

// getDefaultDatabasePath returns the default path for the run store.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "runs.db"
	}
	return filepath.Join(home, ".config", "devicestats", "runs.db")
}

// getDefaultLogPath returns where the terminal UI writes its log.
func getDefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dstats.log"
	}
	return filepath.Join(home, ".config", "devicestats", "dstats.log")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
