package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baassets/pipeline/internal/catalog"
	"github.com/baassets/pipeline/internal/charrelation"
	"github.com/baassets/pipeline/internal/config"
	"github.com/baassets/pipeline/internal/diskspace"
	"github.com/baassets/pipeline/internal/pipeline"
	"github.com/baassets/pipeline/internal/progress"
	"github.com/baassets/pipeline/internal/region"
	"github.com/baassets/pipeline/internal/schema"
)

func newRunCmd() *cobra.Command {
	var flags config.Flags
	var downloadingExtract bool
	var maxRetries, baseThreads, maxWorkers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve a region's catalog and download/extract its assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("downloading-extract") {
				flags.DownloadingExtract = &downloadingExtract
			}
			if cmd.Flags().Changed("max-retries") {
				flags.MaxRetries = maxRetries
			}
			if cmd.Flags().Changed("threads") {
				flags.BaseThreads = baseThreads
			}
			if cmd.Flags().Changed("max-workers") {
				flags.MaxWorkers = maxWorkers
			}

			cfg, err := config.Resolve(flags)
			if err != nil {
				return err
			}

			return runPipeline(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&flags.Region, "region", "", "region to run against: cn, gl, or jp (required)")
	cmd.MarkFlagRequired("region")
	cmd.Flags().StringVar(&flags.Version, "version", "", "version override (cn rejects an override and always resolves from its server)")
	cmd.Flags().IntVar(&baseThreads, "threads", config.DefaultBaseThreads, "base worker thread count")
	cmd.Flags().IntVar(&maxWorkers, "max-workers", config.DefaultMaxWorkers, "worker pool cap for dynamic scaling")
	cmd.Flags().IntVar(&maxRetries, "max-retries", config.DefaultMaxRetries, "max retry attempts per HTTP request")
	cmd.Flags().StringVar(&flags.Proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().BoolVar(&downloadingExtract, "downloading-extract", false, "extract each entry as it finishes downloading, instead of batching extraction after the download phase")
	cmd.Flags().StringSliceVar(&flags.ResourceTypes, "resource-type", nil, "restrict to one or more of: bundle, media, table (default: all)")
	cmd.Flags().StringVar(&flags.RawDir, "raw-dir", "", "downloaded-file directory (default: {REGION}RawData)")
	cmd.Flags().StringVar(&flags.ExtractDir, "extract-dir", "", "extracted-file directory (default: {REGION}Extracted)")
	cmd.Flags().StringVar(&flags.TempDir, "temp-dir", "", "scratch directory for apk/bundle unpacking (default: {REGION}Temp)")
	cmd.Flags().StringSliceVar(&flags.Search, "search", nil, "free-text catalog path filter")
	cmd.Flags().StringSliceVar(&flags.AdvancedSearch, "advanced-search", nil, "character-name keyword filter, resolved through the cached relation table")

	return cmd
}

func runPipeline(cmd *cobra.Command, cfg config.Config) error {
	ctx := GetContext()
	log := GetLogger()

	regionOpts := region.Options{
		Proxy:      cfg.Proxy,
		MaxRetries: cfg.MaxRetries,
		TempDir:    cfg.TempDir,
		RawDir:     cfg.RawDir,
		Version:    cfg.Version,
		Logger:     log.Zerolog(),
	}

	driver, err := region.New(region.Name(cfg.Region), regionOpts)
	if err != nil {
		return err
	}

	log.Info().Str("region", cfg.Region).Msg("resolving catalog")
	cat, info, err := driver.Run(ctx)
	if err != nil {
		return fmt.Errorf("cliapp: resolve catalog: %w", err)
	}
	log.Info().Str("version", info.Version).Int("entries", cat.Len()).Msg("catalog resolved")

	if len(cfg.ResourceTypes) > 0 {
		cat = cat.FilterByType(cfg.ResourceTypes...)
	}
	for _, term := range cfg.Search {
		cat = cat.SearchByPath(term)
	}
	if len(cfg.AdvancedSearch) > 0 {
		ids, err := charrelation.Search(cfg.ExtractDir, cfg.Version, cfg.Region, cfg.AdvancedSearch)
		if err != nil {
			return fmt.Errorf("cliapp: advanced search: %w", err)
		}
		matched := catalog.New()
		for _, id := range ids {
			matched.Merge(cat.SearchByPath(id))
		}
		cat = matched
	}
	cat = cat.Dedup()

	var total uint64
	for _, e := range cat.Entries() {
		total += e.Size
	}
	if err := diskspace.CheckAvailableSpace(cfg.RawDir, int64(total), 1.1); err != nil {
		return fmt.Errorf("cliapp: %w", err)
	}

	sink := progress.NewSink()
	renderer := newBarRenderer(sink)
	renderer.Start()
	defer renderer.Stop()

	result, err := pipeline.Run(ctx, cat, pipeline.Options{
		RawDir:             cfg.RawDir,
		ExtractDir:         cfg.ExtractDir,
		Proxy:              cfg.Proxy,
		MaxRetries:         cfg.MaxRetries,
		BaseThreads:        cfg.BaseThreads,
		MaxWorkers:         cfg.MaxWorkers,
		DownloadingExtract: cfg.DownloadingExtract,
		Registry:           schema.NewRegistry(),
		Sink:               sink,
		Logger:             log.Zerolog(),
	})
	renderer.Stop()

	log.Info().
		Int("downloaded", result.Downloaded).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed.Len()).
		Int("rounds", result.RetryRounds).
		Msg("pipeline finished")

	if err != nil {
		return fmt.Errorf("cliapp: pipeline: %w", err)
	}
	if result.Failed.Len() > 0 {
		return fmt.Errorf("cliapp: %d entries failed after %d rounds", result.Failed.Len(), result.RetryRounds)
	}
	return nil
}
