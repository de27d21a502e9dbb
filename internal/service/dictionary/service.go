// Package dictionary aggregates normalized pronunciations into a sorted
// pronunciation dictionary.
package dictionary

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/heartmarshall/prondict/internal/domain"
	"github.com/heartmarshall/prondict/internal/service/normalize"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type metadataResolver interface {
	Resolve(ctx context.Context, lang domain.Language, raw []domain.WordPronunciation, reporter domain.IssueReporter) (domain.Metadata, error)
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// pronunciationLocale orders pronunciations of every language.
var pronunciationLocale = language.English

// Service builds dictionaries. It is safe for concurrent use as long as
// the reporter is.
type Service struct {
	log      *slog.Logger
	resolver metadataResolver
	reporter domain.IssueReporter
}

// NewService creates a dictionary Service. Issues found while building are
// sent to reporter, which may be nil.
func NewService(logger *slog.Logger, resolver metadataResolver, reporter domain.IssueReporter) *Service {
	return &Service{
		log:      logger.With("service", "dictionary"),
		resolver: resolver,
		reporter: reporter,
	}
}

// Build resolves metadata for lang once, normalizes every raw pair and
// returns the deduplicated, collated dictionary. Invalid pairs are reported
// and skipped; only a metadata resolution failure is returned as an error.
func (s *Service) Build(ctx context.Context, lang domain.Language, raw []domain.WordPronunciation) (*domain.Dictionary, error) {
	start := time.Now()

	meta, err := s.resolver.Resolve(ctx, lang, raw, s.reporter)
	if err != nil {
		return nil, fmt.Errorf("build %s dictionary: %w", lang, err)
	}

	n := normalize.New(meta, s.reporter)
	sets := make(map[string]map[string]struct{})
	normalized := 0
	for _, wp := range raw {
		for _, out := range n.Normalize(wp) {
			set, ok := sets[out.Word]
			if !ok {
				set = make(map[string]struct{})
				sets[out.Word] = set
			}
			set[out.Pronunciation] = struct{}{}
			normalized++
		}
	}

	entries := assemble(lang, sets)
	dict := domain.NewDictionary(entries, meta)

	s.log.InfoContext(ctx, "dictionary built",
		slog.String("language", lang.String()),
		slog.Int("raw", len(raw)),
		slog.Int("normalized", normalized),
		slog.Int("words", dict.Len()),
		slog.Int("pronunciations", dict.PronunciationCount()),
		slog.Duration("duration", time.Since(start)),
	)
	return dict, nil
}

// assemble orders words by the collation of lang and each pronunciation
// set by the fixed pronunciation collation.
func assemble(lang domain.Language, sets map[string]map[string]struct{}) []domain.DictionaryEntry {
	words := make([]string, 0, len(sets))
	for w := range sets {
		words = append(words, w)
	}
	slices.SortFunc(words, compareWith(collate.New(lang.Tag())))

	byPron := compareWith(collate.New(pronunciationLocale))
	entries := make([]domain.DictionaryEntry, 0, len(words))
	for _, w := range words {
		prons := make([]string, 0, len(sets[w]))
		for p := range sets[w] {
			prons = append(prons, p)
		}
		slices.SortFunc(prons, byPron)
		entries = append(entries, domain.DictionaryEntry{Word: w, Pronunciations: prons})
	}
	return entries
}

// compareWith orders by c and breaks collation ties by byte order, so
// strings the collator treats as equal still sort deterministically.
func compareWith(c *collate.Collator) func(a, b string) int {
	return func(a, b string) int {
		if r := c.CompareString(a, b); r != 0 {
			return r
		}
		return strings.Compare(a, b)
	}
}
