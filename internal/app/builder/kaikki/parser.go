package kaikki

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/heartmarshall/prondict/internal/domain"
)

const (
	// DefaultEdition names the English-language Wiktionary dump.
	DefaultEdition = "enwiktionary"

	// maxLineSize is the buffer size for bufio.Scanner (16 MB).
	maxLineSize = 16 << 20
)

// Parse streams a Kaikki JSONL dump and returns the raw pairs of every
// requested language, in file order. An empty langs accepts every language.
// Each IPA string of an entry yields one pair; nothing is deduplicated.
// Words are composed to NFC. IPA is left as written, since composing or
// decomposing it would change which phonetic symbols it contains.
func Parse(ctx context.Context, r io.Reader, edition string, langs []domain.Language) (map[domain.Language][]domain.WordPronunciation, Stats, error) {
	wanted := make(map[domain.Language]struct{}, len(langs))
	for _, l := range langs {
		wanted[l] = struct{}{}
	}

	out := make(map[domain.Language][]domain.WordPronunciation, len(langs))
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		if stats.TotalLines%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}
		stats.TotalLines++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var entry kaikkiEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			stats.MalformedLines++
			continue
		}

		lang := domain.Language(entry.LangCode)
		if lang == "" {
			continue
		}
		if _, ok := wanted[lang]; len(wanted) > 0 && !ok {
			continue
		}

		word := norm.NFC.String(domain.CleanText(entry.Word))
		if word == "" {
			continue
		}
		stats.MatchedLines++

		for _, s := range entry.Sounds {
			ipa := strings.TrimSpace(s.IPA)
			if ipa == "" {
				continue
			}
			out[lang] = append(out[lang], domain.WordPronunciation{
				SourceEdition: edition,
				Language:      lang,
				Word:          word,
				Pronunciation: ipa,
			})
			stats.Pairs++
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scanner error: %w", err)
	}

	return out, stats, nil
}

// ParseFile is Parse over the file at path.
func ParseFile(ctx context.Context, path, edition string, langs []domain.Language) (map[domain.Language][]domain.WordPronunciation, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f, edition, langs)
}

// Extractor reads pairs from a Kaikki dump file.
type Extractor struct {
	log     *slog.Logger
	path    string
	edition string
}

// NewExtractor creates an Extractor for the dump at path. An empty edition
// defaults to DefaultEdition.
func NewExtractor(logger *slog.Logger, path, edition string) *Extractor {
	if edition == "" {
		edition = DefaultEdition
	}
	return &Extractor{log: logger.With("extractor", "kaikki"), path: path, edition: edition}
}

// Name identifies the source in logs.
func (e *Extractor) Name() string { return "kaikki" }

// Extract streams the dump once for all requested languages.
func (e *Extractor) Extract(ctx context.Context, langs []domain.Language) (map[domain.Language][]domain.WordPronunciation, error) {
	out, stats, err := ParseFile(ctx, e.path, e.edition, langs)
	if err != nil {
		return nil, fmt.Errorf("parse kaikki %s: %w", e.path, err)
	}
	e.log.InfoContext(ctx, "kaikki parsed",
		slog.Int("total_lines", stats.TotalLines),
		slog.Int("malformed_lines", stats.MalformedLines),
		slog.Int("matched_lines", stats.MatchedLines),
		slog.Int("pairs", stats.Pairs),
	)
	return out, nil
}
