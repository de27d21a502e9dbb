// Package cmu extracts English word/pronunciation pairs from the CMU
// Pronouncing Dictionary, converting ARPAbet to IPA.
package cmu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/prondict/internal/domain"
)

const (
	// SourceEdition tags every pair produced by this package.
	SourceEdition = "cmudict"

	language domain.Language = "en"
)

// errSkipLine signals that a line should be skipped (comment, empty, etc.).
var errSkipLine = errors.New("skip line")

// arpabetMap maps ARPAbet phonemes (without stress markers) to IPA symbols.
var arpabetMap = map[string]string{
	"AA": "ɑ",
	"AE": "æ",
	"AH": "ʌ",
	"AO": "ɔ",
	"AW": "aʊ",
	"AY": "aɪ",
	"B":  "b",
	"CH": "tʃ",
	"D":  "d",
	"DH": "ð",
	"EH": "ɛ",
	"ER": "ɝ",
	"EY": "eɪ",
	"F":  "f",
	"G":  "ɡ",
	"HH": "h",
	"IH": "ɪ",
	"IY": "i",
	"JH": "dʒ",
	"K":  "k",
	"L":  "l",
	"M":  "m",
	"N":  "n",
	"NG": "ŋ",
	"OW": "oʊ",
	"OY": "ɔɪ",
	"P":  "p",
	"R":  "ɹ",
	"S":  "s",
	"SH": "ʃ",
	"T":  "t",
	"TH": "θ",
	"UH": "ʊ",
	"UW": "u",
	"V":  "v",
	"W":  "w",
	"Y":  "j",
	"Z":  "z",
	"ZH": "ʒ",
}

// unstressedSchwa is used for AH0, which CMU uses for reduced vowels.
const unstressedSchwa = "ə"

// Stats holds parser statistics for logging.
type Stats struct {
	TotalLines     int
	CommentLines   int
	ParsedLines    int
	MalformedLines int
	UniqueWords    int
}

// Parse reads a CMU dict stream. Both the classic "WORD  PH PH" layout and
// the newer "word ph ph # comment" layout are accepted.
func Parse(ctx context.Context, r io.Reader) ([]domain.WordPronunciation, Stats, error) {
	var (
		stats Stats
		pairs []domain.WordPronunciation
		words = make(map[string]struct{})
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if stats.TotalLines%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}
		stats.TotalLines++
		line := scanner.Text()

		word, ipa, err := parseLine(line)
		if errors.Is(err, errSkipLine) {
			if isComment(line) {
				stats.CommentLines++
			}
			continue
		}
		if err != nil {
			stats.MalformedLines++
			continue
		}

		stats.ParsedLines++
		words[word] = struct{}{}
		pairs = append(pairs, domain.WordPronunciation{
			SourceEdition: SourceEdition,
			Language:      language,
			Word:          word,
			Pronunciation: ipa,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scanner error: %w", err)
	}

	stats.UniqueWords = len(words)
	return pairs, stats, nil
}

// ParseFile is Parse over the file at path.
func ParseFile(ctx context.Context, path string) ([]domain.WordPronunciation, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f)
}

func isComment(line string) bool {
	return strings.HasPrefix(line, ";;;") || strings.HasPrefix(line, "#")
}

// arpabetToIPA converts an ARPAbet phoneme (without stress) to its IPA equivalent.
func arpabetToIPA(phoneme string) (string, bool) {
	ipa, ok := arpabetMap[phoneme]
	return ipa, ok
}

// splitStress separates the trailing stress digit (0, 1, 2) from an ARPAbet
// phoneme. Consonants carry no stress and return -1.
func splitStress(phoneme string) (string, int) {
	if len(phoneme) == 0 {
		return phoneme, -1
	}
	last := phoneme[len(phoneme)-1]
	if last >= '0' && last <= '2' {
		return phoneme[:len(phoneme)-1], int(last - '0')
	}
	return phoneme, -1
}

// phonemesToIPA converts ARPAbet phonemes to an IPA transcription wrapped
// in slashes. Stress is dropped; AH0 becomes a schwa.
func phonemesToIPA(phonemes []string) (string, error) {
	var b strings.Builder
	b.WriteByte('/')
	for _, p := range phonemes {
		base, stress := splitStress(p)
		if base == "AH" && stress == 0 {
			b.WriteString(unstressedSchwa)
			continue
		}
		ipa, ok := arpabetToIPA(base)
		if !ok {
			return "", fmt.Errorf("unknown phoneme %q", p)
		}
		b.WriteString(ipa)
	}
	b.WriteByte('/')
	return b.String(), nil
}

// parseLine parses a single line from a CMU dict file.
// Returns the word, its IPA transcription, or errSkipLine for comments/empty lines.
func parseLine(line string) (string, string, error) {
	if i := strings.Index(line, " #"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || isComment(line) {
		return "", "", errSkipLine
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", fmt.Errorf("no phonemes in %q", line)
	}

	ipa, err := phonemesToIPA(fields[1:])
	if err != nil {
		return "", "", err
	}
	return stripVariant(fields[0]), ipa, nil
}

// stripVariant removes the alternate-pronunciation suffix from a CMU word
// such as "HOUSE(2)".
func stripVariant(raw string) string {
	idx := strings.IndexByte(raw, '(')
	if idx <= 0 || !strings.HasSuffix(raw, ")") {
		return raw
	}
	return raw[:idx]
}

// Extractor reads English pairs from a CMU dictionary file.
type Extractor struct {
	log  *slog.Logger
	path string
}

// NewExtractor creates an Extractor reading path.
func NewExtractor(logger *slog.Logger, path string) *Extractor {
	return &Extractor{log: logger.With("extractor", "cmu"), path: path}
}

// Name identifies the source in logs.
func (e *Extractor) Name() string { return "cmu" }

// Extract returns the English pairs. Requests for other languages yield
// no pairs for those languages.
func (e *Extractor) Extract(ctx context.Context, langs []domain.Language) (map[domain.Language][]domain.WordPronunciation, error) {
	out := make(map[domain.Language][]domain.WordPronunciation, 1)
	wanted := len(langs) == 0
	for _, l := range langs {
		if l == language {
			wanted = true
		} else {
			e.log.WarnContext(ctx, "language not provided by source", slog.String("language", l.String()))
		}
	}
	if !wanted {
		return out, nil
	}

	pairs, stats, err := ParseFile(ctx, e.path)
	if err != nil {
		return nil, fmt.Errorf("parse cmu %s: %w", e.path, err)
	}
	e.log.InfoContext(ctx, "cmu parsed",
		slog.Int("total_lines", stats.TotalLines),
		slog.Int("parsed_lines", stats.ParsedLines),
		slog.Int("malformed_lines", stats.MalformedLines),
		slog.Int("unique_words", stats.UniqueWords),
	)
	out[language] = pairs
	return out, nil
}
