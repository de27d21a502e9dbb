// Package builder orchestrates dictionary builds: one extraction pass over a
// source, then one build per language, followed by export and optional
// persistence of the dictionary and its issues.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/prondict/internal/config"
	"github.com/heartmarshall/prondict/internal/domain"
	"github.com/heartmarshall/prondict/internal/service/issues"
	"github.com/heartmarshall/prondict/pkg/ctxutil"
)

// Extractor reads raw word/pronunciation pairs from a source.
// Implemented by kaikki.Extractor and cmu.Extractor.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, langs []domain.Language) (map[domain.Language][]domain.WordPronunciation, error)
}

// DictionaryBuilder turns raw pairs into a dictionary. Implemented by dictionary.Service.
type DictionaryBuilder interface {
	Build(ctx context.Context, lang domain.Language, raw []domain.WordPronunciation) (*domain.Dictionary, error)
}

// Exporter writes a dictionary somewhere and returns where.
type Exporter interface {
	Export(dict *domain.Dictionary) (string, error)
}

// IssueSource returns the issues reported so far for a language.
// Implemented by issues.Collector.
type IssueSource interface {
	ForLanguage(lang domain.Language) []domain.Issue
}

// DictionaryStore replaces the stored dictionary of a language.
type DictionaryStore interface {
	Replace(ctx context.Context, runID uuid.UUID, dict *domain.Dictionary) error
}

// IssueStore appends issues of a run.
type IssueStore interface {
	SaveAll(ctx context.Context, runID uuid.UUID, list []domain.Issue) (int, error)
}

// Stores groups the optional persistence backends. Persistence is skipped
// when Dictionaries is nil.
type Stores struct {
	Dictionaries DictionaryStore
	Issues       IssueStore
}

// Config holds pipeline settings.
type Config struct {
	Languages   []domain.Language
	Concurrency int
	DryRun      bool
}

// ConfigFrom converts validated build settings into a pipeline Config.
func ConfigFrom(cfg config.BuildConfig) Config {
	langs := make([]domain.Language, 0, len(cfg.Languages))
	for _, code := range cfg.Languages {
		langs = append(langs, domain.Language(code))
	}
	return Config{Languages: langs, Concurrency: cfg.Concurrency, DryRun: cfg.DryRun}
}

// LanguageResult holds the outcome of one language build.
type LanguageResult struct {
	Language       domain.Language
	Raw            int
	Words          int
	Pronunciations int
	Issues         map[domain.IssueKind]int
	OutputPath     string
	Persisted      bool
	Duration       time.Duration
	Err            error
}

// Pipeline runs a build over all configured languages.
type Pipeline struct {
	log       *slog.Logger
	extractor Extractor
	builder   DictionaryBuilder
	exporter  Exporter
	issues    IssueSource
	stores    Stores
	cfg       Config

	mu      sync.Mutex
	runID   uuid.UUID
	results map[domain.Language]LanguageResult
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	log *slog.Logger,
	extractor Extractor,
	builder DictionaryBuilder,
	exporter Exporter,
	issueSource IssueSource,
	stores Stores,
	cfg Config,
) *Pipeline {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Pipeline{
		log:       log.With("component", "pipeline"),
		extractor: extractor,
		builder:   builder,
		exporter:  exporter,
		issues:    issueSource,
		stores:    stores,
		cfg:       cfg,
		results:   make(map[domain.Language]LanguageResult),
	}
}

// RunID returns the ID of the last run, or uuid.Nil before Run.
func (p *Pipeline) RunID() uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runID
}

// Results returns per-language results in configured language order.
func (p *Pipeline) Results() []LanguageResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]LanguageResult, 0, len(p.results))
	for _, lang := range p.cfg.Languages {
		if r, ok := p.results[lang]; ok {
			out = append(out, r)
		}
	}
	return out
}

// HasErrors returns true if any language failed.
func (p *Pipeline) HasErrors() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Run extracts the source once and builds every configured language, at most
// Concurrency at a time. A failing language is recorded in its result and does
// not stop the others. Run itself fails only when extraction fails or ctx is
// cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.New()
	p.mu.Lock()
	p.runID = runID
	p.mu.Unlock()
	ctx = ctxutil.WithRunID(ctx, runID)

	start := time.Now()
	p.log.InfoContext(ctx, "starting build",
		slog.String("run_id", runID.String()),
		slog.String("source", p.extractor.Name()),
		slog.Int("languages", len(p.cfg.Languages)),
		slog.Bool("dry_run", p.cfg.DryRun),
	)

	raw, err := p.extractor.Extract(ctx, p.cfg.Languages)
	if err != nil {
		return fmt.Errorf("extract %s: %w", p.extractor.Name(), err)
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	for _, lang := range p.cfg.Languages {
		g.Go(func() error {
			result := p.buildLanguage(ctx, runID, lang, raw[lang])

			p.mu.Lock()
			p.results[lang] = result
			p.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("build cancelled: %w", err)
	}

	p.log.InfoContext(ctx, "build completed",
		slog.String("run_id", runID.String()),
		slog.Int("languages", len(p.cfg.Languages)),
		slog.Bool("has_errors", p.HasErrors()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (p *Pipeline) buildLanguage(ctx context.Context, runID uuid.UUID, lang domain.Language, raw []domain.WordPronunciation) LanguageResult {
	start := time.Now()
	ctx = ctxutil.WithLanguage(ctx, lang.String())
	result := LanguageResult{Language: lang, Raw: len(raw)}

	finish := func(err error) LanguageResult {
		result.Err = err
		result.Duration = time.Since(start)
		if err != nil {
			p.log.WarnContext(ctx, "language failed",
				slog.String("language", lang.String()),
				slog.String("error", err.Error()),
				slog.Duration("duration", result.Duration),
			)
		} else {
			p.log.InfoContext(ctx, "language completed",
				slog.String("language", lang.String()),
				slog.Int("words", result.Words),
				slog.Int("pronunciations", result.Pronunciations),
				slog.String("output", result.OutputPath),
				slog.Duration("duration", result.Duration),
			)
		}
		return result
	}

	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	dict, err := p.builder.Build(ctx, lang, raw)
	if err != nil {
		return finish(err)
	}
	result.Words = dict.Len()
	result.Pronunciations = dict.PronunciationCount()

	langIssues := p.issues.ForLanguage(lang)
	result.Issues = issues.CountKinds(langIssues)

	if p.cfg.DryRun {
		return finish(nil)
	}

	path, err := p.exporter.Export(dict)
	if err != nil {
		return finish(fmt.Errorf("export %s: %w", lang, err))
	}
	result.OutputPath = path

	if p.stores.Dictionaries == nil {
		return finish(nil)
	}

	if err := p.stores.Dictionaries.Replace(ctx, runID, dict); err != nil {
		return finish(fmt.Errorf("persist %s dictionary: %w", lang, err))
	}
	if p.stores.Issues != nil {
		if _, err := p.stores.Issues.SaveAll(ctx, runID, langIssues); err != nil {
			return finish(fmt.Errorf("persist %s issues: %w", lang, err))
		}
	}
	result.Persisted = true

	return finish(nil)
}
