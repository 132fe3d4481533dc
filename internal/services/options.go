package services

import (
	"context"

	"github.com/j-veylop/devicestats/internal/config"
	"github.com/j-veylop/devicestats/internal/decoder"
	"github.com/j-veylop/devicestats/internal/models"
	"github.com/j-veylop/devicestats/internal/services/analysis"
	"github.com/j-veylop/devicestats/internal/services/inputs"
)

// NewSource returns the log source configured by cfg: S3 when a bucket is
// set, the log directory otherwise.
func NewSource(ctx context.Context, cfg *config.Config) (decoder.Source, error) {
	if cfg.UseS3() {
		return decoder.NewS3Source(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region)
	}
	return decoder.FileSource{Dir: cfg.LogDir}, nil
}

// BuildOptions combines configuration, loaded inputs and a source into run options.
func BuildOptions(cfg *config.Config, snap *inputs.Snapshot, src decoder.Source) analysis.Options {
	opts := analysis.Options{
		Source:       src,
		ManifestPath: cfg.ManifestPath,
		OutputDir:    cfg.OutputDir,
		Categories:   cfg.Categories,
		Kinds:        cfg.Kinds,
		Layout:       models.Layout{SplitWeekday: cfg.SplitWeekday},
		Workers:      cfg.Workers,
		KeepRuns:     cfg.KeepRuns,
		FilterApps:   cfg.FilterApps,
	}
	if snap != nil {
		opts.Manifest = snap.Manifest
		opts.Mapping = snap.Mapping
	}
	return opts
}
