package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heartmarshall/prondict/internal/adapter/export"
	"github.com/heartmarshall/prondict/internal/adapter/postgres"
	dictrepo "github.com/heartmarshall/prondict/internal/adapter/postgres/dictionary"
	issuerepo "github.com/heartmarshall/prondict/internal/adapter/postgres/issue"
	"github.com/heartmarshall/prondict/internal/adapter/provider/phoible"
	"github.com/heartmarshall/prondict/internal/app/builder"
	"github.com/heartmarshall/prondict/internal/app/builder/cmu"
	"github.com/heartmarshall/prondict/internal/app/builder/kaikki"
	"github.com/heartmarshall/prondict/internal/config"
	"github.com/heartmarshall/prondict/internal/phonetic"
	"github.com/heartmarshall/prondict/internal/service/dictionary"
	"github.com/heartmarshall/prondict/internal/service/issues"
	"github.com/heartmarshall/prondict/internal/service/metadata"
)

// Compile-time interface assertions.
var (
	_ builder.Extractor         = (*kaikki.Extractor)(nil)
	_ builder.Extractor         = (*cmu.Extractor)(nil)
	_ builder.DictionaryBuilder = (*dictionary.Service)(nil)
	_ builder.Exporter          = (*export.FileExporter)(nil)
	_ builder.IssueSource       = (*issues.Collector)(nil)
	_ builder.DictionaryStore   = (*dictrepo.Repo)(nil)
	_ builder.IssueStore        = (*issuerepo.Repo)(nil)
	_ phonetic.Source           = (*phoible.Provider)(nil)
)

// ErrBuildFailed is returned by Run when at least one language failed.
var ErrBuildFailed = errors.New("build finished with errors")

// Run is the composition root of a build. cfg must be validated.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := NewLogger(cfg.Log)

	logger.InfoContext(ctx, "starting prondict",
		slog.String("version", BuildVersion()),
		slog.String("languages", strings.Join(cfg.Build.Languages, ",")),
		slog.String("source", cfg.Build.Source),
		slog.String("format", cfg.Build.Format),
	)

	results, err := build(ctx, logger, cfg)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		attrs := []any{
			slog.String("language", r.Language.String()),
			slog.Int("raw", r.Raw),
			slog.Int("words", r.Words),
			slog.Int("pronunciations", r.Pronunciations),
			slog.String("output", r.OutputPath),
			slog.Bool("persisted", r.Persisted),
			slog.Duration("duration", r.Duration),
		}
		for kind, n := range r.Issues {
			attrs = append(attrs, slog.Int(string(kind), n))
		}
		if r.Err != nil {
			failed++
			logger.ErrorContext(ctx, "language summary", append(attrs, slog.String("error", r.Err.Error()))...)
			continue
		}
		logger.InfoContext(ctx, "language summary", attrs...)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d languages failed", ErrBuildFailed, failed, len(results))
	}
	return nil
}

func build(ctx context.Context, logger *slog.Logger, cfg *config.Config) ([]builder.LanguageResult, error) {
	extractor, err := newExtractor(logger, cfg.Build)
	if err != nil {
		return nil, err
	}

	var source phonetic.Source = phonetic.DefaultStaticSource()
	if cfg.Phonetic.ReferenceURL != "" {
		source = phoible.NewProviderWithURL(cfg.Phonetic.ReferenceURL, cfg.Phonetic.Timeout, logger)
	}
	inventories, err := phonetic.NewCache(logger, source, cfg.Phonetic.CacheSize)
	if err != nil {
		return nil, err
	}

	table := metadata.DefaultTable()
	if cfg.Build.CuratedPath != "" {
		table, err = metadata.LoadTableFile(cfg.Build.CuratedPath)
		if err != nil {
			return nil, fmt.Errorf("load curated metadata: %w", err)
		}
	}

	format, err := export.ParseFormat(cfg.Build.Format)
	if err != nil {
		return nil, err
	}

	collector := issues.NewCollector()
	service := dictionary.NewService(
		logger,
		metadata.NewResolver(logger, table, inventories),
		issues.Multi{collector, issues.NewLogReporter(logger)},
	)

	var stores builder.Stores
	if cfg.Build.Persist && !cfg.Build.DryRun {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}

		stores = builder.Stores{
			Dictionaries: dictrepo.New(pool, postgres.NewTxManager(pool)),
			Issues:       issuerepo.New(pool),
		}
	}

	pipeline := builder.NewPipeline(
		logger,
		extractor,
		service,
		export.NewFileExporter(cfg.Build.OutputDir, format),
		collector,
		stores,
		builder.ConfigFrom(cfg.Build),
	)
	if err := pipeline.Run(ctx); err != nil {
		return nil, err
	}

	return pipeline.Results(), nil
}

func newExtractor(logger *slog.Logger, cfg config.BuildConfig) (builder.Extractor, error) {
	if cfg.InputPath == "" {
		return nil, fmt.Errorf("build input path is required")
	}
	switch cfg.Source {
	case config.SourceKaikki:
		return kaikki.NewExtractor(logger, cfg.InputPath, kaikki.DefaultEdition), nil
	case config.SourceCMU:
		return cmu.NewExtractor(logger, cfg.InputPath), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}
