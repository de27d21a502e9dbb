// Package metadata resolves per-language normalization metadata, either from
// the curated table or by synthesizing a draft from the raw data.
package metadata

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/heartmarshall/prondict/internal/domain"
	"github.com/heartmarshall/prondict/internal/phonetic"
	"github.com/heartmarshall/prondict/internal/service/charstats"
	"github.com/heartmarshall/prondict/internal/service/normalize"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type inventoryLookup interface {
	Get(ctx context.Context, lang domain.Language) (*domain.PhoneticInventory, error)
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

// Resolver returns the metadata a language is normalized against.
type Resolver struct {
	log         *slog.Logger
	table       *Table
	inventories inventoryLookup
}

// NewResolver creates a Resolver. inventories may be nil, in which case
// missing-metadata reports carry no reference entry.
func NewResolver(logger *slog.Logger, table *Table, inventories inventoryLookup) *Resolver {
	return &Resolver{
		log:         logger.With("service", "metadata"),
		table:       table,
		inventories: inventories,
	}
}

// Resolve returns the curated metadata for lang. When none exists, draft
// metadata is synthesized from raw and a MissingMetadataIssue is reported.
// The only error is a failed reference lookup, wrapping domain.ErrResolution.
func (r *Resolver) Resolve(
	ctx context.Context,
	lang domain.Language,
	raw []domain.WordPronunciation,
	reporter domain.IssueReporter,
) (domain.Metadata, error) {
	if meta, ok := r.table.Lookup(lang); ok {
		r.log.DebugContext(ctx, "curated metadata", slog.String("language", lang.String()))
		return meta, nil
	}

	meta, dist := Synthesize(lang, raw)

	var ref *domain.PhoneticInventory
	if r.inventories != nil {
		var err error
		ref, err = r.inventories.Get(ctx, lang)
		if err != nil {
			return domain.Metadata{}, fmt.Errorf("%w: %s: %w", domain.ErrResolution, lang, err)
		}
	}

	r.log.WarnContext(ctx, "no curated metadata, synthesized draft",
		slog.String("language", lang.String()),
		slog.Int("graphemes", len(meta.Graphemes)),
		slog.Int("phonemes", len(meta.Phonemes)),
		slog.Bool("reference", ref != nil),
	)

	if reporter != nil {
		reporter.Report(domain.MissingMetadataIssue{
			Metadata:      meta,
			Distributions: dist,
			Reference:     ref,
		})
	}
	return meta, nil
}

// Synthesize infers draft metadata from raw. Graphemes come from the
// distinct case-folded words; phonemes come from every pronunciation,
// restricted to reference IPA symbols. Replacement lists are empty.
func Synthesize(lang domain.Language, raw []domain.WordPronunciation) (domain.Metadata, domain.Distributions) {
	folder := normalize.NewFolder(lang)

	seen := make(map[string]struct{}, len(raw))
	words := make([]string, 0, len(raw))
	prons := make([]string, 0, len(raw))
	for _, wp := range raw {
		w := folder.Fold(wp.Word)
		if _, ok := seen[w]; !ok {
			seen[w] = struct{}{}
			words = append(words, w)
		}
		prons = append(prons, wp.Pronunciation)
	}

	g := charstats.Analyze(charstats.Graphemes(words))
	p := charstats.Analyze(charstats.Flatten(prons, phonetic.ValidSymbols))

	meta := domain.Metadata{
		Language:             lang,
		Description:          Describe(lang),
		Graphemes:            g.Symbols,
		Phonemes:             p.Symbols,
		GraphemeReplacements: []domain.Replacement{},
		PhonemeReplacements:  []domain.Replacement{},
	}
	return meta, domain.Distributions{Graphemes: g.Distribution, Phonemes: p.Distribution}
}

// Describe returns the English name of lang, or the raw code when the code
// is not a known language.
func Describe(lang domain.Language) string {
	tag, err := language.Parse(string(lang))
	if err != nil {
		return string(lang)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return string(lang)
}
