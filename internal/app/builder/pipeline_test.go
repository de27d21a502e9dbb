package builder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/prondict/internal/config"
	"github.com/heartmarshall/prondict/internal/domain"
	"github.com/heartmarshall/prondict/internal/service/issues"
	"github.com/heartmarshall/prondict/pkg/ctxutil"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, langs []domain.Language) (map[domain.Language][]domain.WordPronunciation, error)
}

func (m *mockExtractor) Name() string { return "mock" }

func (m *mockExtractor) Extract(ctx context.Context, langs []domain.Language) (map[domain.Language][]domain.WordPronunciation, error) {
	return m.ExtractFunc(ctx, langs)
}

type mockBuilder struct {
	BuildFunc func(ctx context.Context, lang domain.Language, raw []domain.WordPronunciation) (*domain.Dictionary, error)
}

func (m *mockBuilder) Build(ctx context.Context, lang domain.Language, raw []domain.WordPronunciation) (*domain.Dictionary, error) {
	return m.BuildFunc(ctx, lang, raw)
}

type mockExporter struct {
	mu       sync.Mutex
	exported []domain.Language
	err      error
}

func (m *mockExporter) Export(dict *domain.Dictionary) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exported = append(m.exported, dict.Metadata.Language)
	return "/out/" + dict.Metadata.Language.String() + ".tsv", nil
}

type mockDictionaryStore struct {
	mu     sync.Mutex
	runIDs map[domain.Language]uuid.UUID
	err    error
}

func (m *mockDictionaryStore) Replace(_ context.Context, runID uuid.UUID, dict *domain.Dictionary) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runIDs == nil {
		m.runIDs = make(map[domain.Language]uuid.UUID)
	}
	m.runIDs[dict.Metadata.Language] = runID
	return nil
}

type mockIssueStore struct {
	saved atomic.Int64
}

func (m *mockIssueStore) SaveAll(_ context.Context, _ uuid.UUID, list []domain.Issue) (int, error) {
	m.saved.Add(int64(len(list)))
	return len(list), nil
}

// echoBuilder builds one entry per raw pair and reports one grapheme issue
// for every word equal to "bad".
func echoBuilder(reporter domain.IssueReporter) *mockBuilder {
	return &mockBuilder{BuildFunc: func(_ context.Context, lang domain.Language, raw []domain.WordPronunciation) (*domain.Dictionary, error) {
		meta := domain.Metadata{Language: lang}
		var entries []domain.DictionaryEntry
		for _, r := range raw {
			if r.Word == "bad" {
				reporter.Report(domain.InvalidGraphemeInWordIssue{Raw: r, Grapheme: "?", Metadata: meta})
				continue
			}
			entries = append(entries, domain.DictionaryEntry{Word: r.Word, Pronunciations: []string{r.Pronunciation}})
		}
		return domain.NewDictionary(entries, meta), nil
	}}
}

func staticExtractor(data map[domain.Language][]domain.WordPronunciation) *mockExtractor {
	return &mockExtractor{ExtractFunc: func(context.Context, []domain.Language) (map[domain.Language][]domain.WordPronunciation, error) {
		return data, nil
	}}
}

func pair(lang domain.Language, word, pron string) domain.WordPronunciation {
	return domain.WordPronunciation{SourceEdition: "test", Language: lang, Word: word, Pronunciation: pron}
}

func sampleData() map[domain.Language][]domain.WordPronunciation {
	return map[domain.Language][]domain.WordPronunciation{
		"en": {pair("en", "run", "ɹʌn"), pair("en", "bad", "bæd"), pair("en", "tin", "tɪn")},
		"de": {pair("de", "bar", "baʁ")},
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPipeline_Run_ExportsEveryLanguage(t *testing.T) {
	t.Parallel()

	collector := issues.NewCollector()
	exporter := &mockExporter{}
	p := NewPipeline(newTestLogger(), staticExtractor(sampleData()), echoBuilder(collector), exporter, collector,
		Stores{}, Config{Languages: []domain.Language{"en", "de"}, Concurrency: 2})

	require.NoError(t, p.Run(context.Background()))

	results := p.Results()
	require.Len(t, results, 2)
	assert.Equal(t, domain.Language("en"), results[0].Language)
	assert.Equal(t, domain.Language("de"), results[1].Language)

	en := results[0]
	assert.Equal(t, 3, en.Raw)
	assert.Equal(t, 2, en.Words)
	assert.Equal(t, 2, en.Pronunciations)
	assert.Equal(t, map[domain.IssueKind]int{domain.IssueInvalidGraphemeInWord: 1}, en.Issues)
	assert.Equal(t, "/out/en.tsv", en.OutputPath)
	assert.False(t, en.Persisted)
	assert.NoError(t, en.Err)

	assert.Empty(t, results[1].Issues)
	assert.ElementsMatch(t, []domain.Language{"en", "de"}, exporter.exported)
	assert.False(t, p.HasErrors())
	assert.NotEqual(t, uuid.Nil, p.RunID())
}

func TestPipeline_Run_DryRunSkipsExportAndPersist(t *testing.T) {
	t.Parallel()

	collector := issues.NewCollector()
	exporter := &mockExporter{}
	dicts := &mockDictionaryStore{}
	p := NewPipeline(newTestLogger(), staticExtractor(sampleData()), echoBuilder(collector), exporter, collector,
		Stores{Dictionaries: dicts, Issues: &mockIssueStore{}},
		Config{Languages: []domain.Language{"en"}, Concurrency: 1, DryRun: true})

	require.NoError(t, p.Run(context.Background()))

	results := p.Results()
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Words)
	assert.Empty(t, results[0].OutputPath)
	assert.Empty(t, exporter.exported)
	assert.Empty(t, dicts.runIDs)
}

func TestPipeline_Run_PersistsWithRunID(t *testing.T) {
	t.Parallel()

	collector := issues.NewCollector()
	dicts := &mockDictionaryStore{}
	issueStore := &mockIssueStore{}
	p := NewPipeline(newTestLogger(), staticExtractor(sampleData()), echoBuilder(collector), &mockExporter{}, collector,
		Stores{Dictionaries: dicts, Issues: issueStore},
		Config{Languages: []domain.Language{"en", "de"}, Concurrency: 2})

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, p.RunID(), dicts.runIDs["en"])
	assert.Equal(t, p.RunID(), dicts.runIDs["de"])
	assert.Equal(t, int64(1), issueStore.saved.Load())
	for _, r := range p.Results() {
		assert.True(t, r.Persisted, "language %s not persisted", r.Language)
	}
}

func TestPipeline_Run_LanguageFailureIsIsolated(t *testing.T) {
	t.Parallel()

	collector := issues.NewCollector()
	boom := errors.New("boom")
	inner := echoBuilder(collector)
	builder := &mockBuilder{BuildFunc: func(ctx context.Context, lang domain.Language, raw []domain.WordPronunciation) (*domain.Dictionary, error) {
		if lang == "de" {
			return nil, boom
		}
		return inner.Build(ctx, lang, raw)
	}}

	p := NewPipeline(newTestLogger(), staticExtractor(sampleData()), builder, &mockExporter{}, collector,
		Stores{}, Config{Languages: []domain.Language{"en", "de"}, Concurrency: 2})

	require.NoError(t, p.Run(context.Background()))

	results := p.Results()
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.True(t, p.HasErrors())
}

func TestPipeline_Run_ExportFailure(t *testing.T) {
	t.Parallel()

	collector := issues.NewCollector()
	diskFull := errors.New("disk full")
	dicts := &mockDictionaryStore{}
	p := NewPipeline(newTestLogger(), staticExtractor(sampleData()), echoBuilder(collector), &mockExporter{err: diskFull}, collector,
		Stores{Dictionaries: dicts}, Config{Languages: []domain.Language{"de"}, Concurrency: 1})

	require.NoError(t, p.Run(context.Background()))

	results := p.Results()
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, diskFull)
	assert.Empty(t, dicts.runIDs, "failed export must not be persisted")
}

func TestPipeline_Run_PersistFailure(t *testing.T) {
	t.Parallel()

	collector := issues.NewCollector()
	dbDown := errors.New("db down")
	p := NewPipeline(newTestLogger(), staticExtractor(sampleData()), echoBuilder(collector), &mockExporter{}, collector,
		Stores{Dictionaries: &mockDictionaryStore{err: dbDown}}, Config{Languages: []domain.Language{"de"}, Concurrency: 1})

	require.NoError(t, p.Run(context.Background()))

	results := p.Results()
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, dbDown)
	assert.Equal(t, "/out/de.tsv", results[0].OutputPath)
	assert.False(t, results[0].Persisted)
}

func TestPipeline_Run_ExtractFailure(t *testing.T) {
	t.Parallel()

	collector := issues.NewCollector()
	missing := errors.New("no such file")
	extractor := &mockExtractor{ExtractFunc: func(context.Context, []domain.Language) (map[domain.Language][]domain.WordPronunciation, error) {
		return nil, missing
	}}

	p := NewPipeline(newTestLogger(), extractor, echoBuilder(collector), &mockExporter{}, collector,
		Stores{}, Config{Languages: []domain.Language{"en"}, Concurrency: 1})

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, missing)
	assert.Empty(t, p.Results())
}

func TestPipeline_Run_LanguageWithoutData(t *testing.T) {
	t.Parallel()

	collector := issues.NewCollector()
	p := NewPipeline(newTestLogger(), staticExtractor(sampleData()), echoBuilder(collector), &mockExporter{}, collector,
		Stores{}, Config{Languages: []domain.Language{"fr"}, Concurrency: 1})

	require.NoError(t, p.Run(context.Background()))

	results := p.Results()
	require.Len(t, results, 1)
	assert.Zero(t, results[0].Raw)
	assert.Zero(t, results[0].Words)
	assert.NoError(t, results[0].Err)
}

func TestPipeline_Run_RespectsConcurrencyLimit(t *testing.T) {
	t.Parallel()

	var active, peak atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 4)

	builder := &mockBuilder{BuildFunc: func(_ context.Context, lang domain.Language, _ []domain.WordPronunciation) (*domain.Dictionary, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		started <- struct{}{}
		<-release
		active.Add(-1)
		return domain.NewDictionary(nil, domain.Metadata{Language: lang}), nil
	}}

	langs := []domain.Language{"a", "b", "c", "d"}
	p := NewPipeline(newTestLogger(), staticExtractor(nil), builder, &mockExporter{}, issues.NewCollector(),
		Stores{}, Config{Languages: langs, Concurrency: 2})

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background()) }()

	<-started
	<-started
	close(release)
	require.NoError(t, <-done)

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Len(t, p.Results(), 4)
}

func TestPipeline_Run_PropagatesRunAndLanguage(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := make(map[domain.Language]string)
	var runIDs []uuid.UUID

	builder := &mockBuilder{BuildFunc: func(ctx context.Context, lang domain.Language, _ []domain.WordPronunciation) (*domain.Dictionary, error) {
		id, ok := ctxutil.RunIDFromCtx(ctx)
		if !ok {
			return nil, errors.New("run id missing")
		}
		mu.Lock()
		seen[lang] = ctxutil.LanguageFromCtx(ctx)
		runIDs = append(runIDs, id)
		mu.Unlock()
		return domain.NewDictionary(nil, domain.Metadata{Language: lang}), nil
	}}

	p := NewPipeline(newTestLogger(), staticExtractor(nil), builder, &mockExporter{}, issues.NewCollector(),
		Stores{}, Config{Languages: []domain.Language{"en", "de"}, Concurrency: 2})

	require.NoError(t, p.Run(context.Background()))
	assert.False(t, p.HasErrors())
	assert.Equal(t, map[domain.Language]string{"en": "en", "de": "de"}, seen)
	for _, id := range runIDs {
		assert.Equal(t, p.RunID(), id)
	}
}

func TestPipeline_Run_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	collector := issues.NewCollector()
	p := NewPipeline(newTestLogger(), staticExtractor(sampleData()), echoBuilder(collector), &mockExporter{}, collector,
		Stores{}, Config{Languages: []domain.Language{"en"}, Concurrency: 1})

	err := p.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigFrom(t *testing.T) {
	t.Parallel()

	cfg := ConfigFrom(config.BuildConfig{Languages: []string{"en", "de"}, Concurrency: 3, DryRun: true})

	assert.Equal(t, []domain.Language{"en", "de"}, cfg.Languages)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.True(t, cfg.DryRun)
}

func TestNewPipeline_ClampsConcurrency(t *testing.T) {
	t.Parallel()

	p := NewPipeline(newTestLogger(), staticExtractor(nil), echoBuilder(issues.NewCollector()), &mockExporter{}, issues.NewCollector(),
		Stores{}, Config{Concurrency: 0})
	assert.Equal(t, 1, p.cfg.Concurrency)
}
