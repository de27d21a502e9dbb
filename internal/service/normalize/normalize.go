// Package normalize turns raw word/pronunciation strings into canonical
// ones, validated against the alphabets of a language's metadata.
package normalize

import (
	"regexp"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/heartmarshall/prondict/internal/domain"
	"github.com/heartmarshall/prondict/internal/phonetic"
)

// optionalSegmentRe matches a parenthesized optional segment. It is
// non-greedy: each "(" pairs with the first ")" after it.
var optionalSegmentRe = regexp.MustCompile(`\((.*?)\)`)

// Normalizer normalizes raw pairs against one Metadata.
// It is not safe for concurrent use.
type Normalizer struct {
	meta      domain.Metadata
	reporter  domain.IssueReporter
	folder    *Folder
	graphemes map[string]struct{}
	phonemes  map[string]struct{}
}

// New returns a Normalizer for meta. Issues found while normalizing are
// sent to reporter.
func New(meta domain.Metadata, reporter domain.IssueReporter) *Normalizer {
	return &Normalizer{
		meta:      meta,
		reporter:  reporter,
		folder:    NewFolder(meta.Language),
		graphemes: toSet(meta.Graphemes),
		phonemes:  toSet(meta.Phonemes),
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// Normalize returns one normalized record per surviving pronunciation
// candidate, or nothing when the word itself is rejected.
func (n *Normalizer) Normalize(raw domain.WordPronunciation) []domain.WordPronunciation {
	word, ok := n.NormalizeWord(raw)
	if !ok {
		return nil
	}

	prons := n.NormalizePronunciation(raw)
	out := make([]domain.WordPronunciation, 0, len(prons))
	for _, p := range prons {
		out = append(out, domain.WordPronunciation{
			SourceEdition: raw.SourceEdition,
			Language:      raw.Language,
			Word:          word,
			Pronunciation: p,
		})
	}
	return out
}

// NormalizeWord case-folds raw.Word, applies the grapheme replacements and
// checks every grapheme against the alphabet. The first unknown grapheme
// rejects the word.
func (n *Normalizer) NormalizeWord(raw domain.WordPronunciation) (string, bool) {
	word := n.folder.Fold(raw.Word)
	word = domain.ApplyAll(n.meta.GraphemeReplacements, word)

	state := -1
	rest := word
	for len(rest) > 0 {
		var g string
		g, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if _, ok := n.graphemes[g]; !ok {
			n.report(domain.InvalidGraphemeInWordIssue{
				Raw:         raw,
				PartialWord: word,
				Grapheme:    g,
				Metadata:    n.meta,
			})
			return "", false
		}
	}
	return word, true
}

// NormalizePronunciation returns the valid candidates derived from
// raw.Pronunciation, minimal variant first. Empty candidates are dropped.
func (n *Normalizer) NormalizePronunciation(raw domain.WordPronunciation) []string {
	p := StripDelimiters(raw.Pronunciation)
	p = phonetic.StripNonEssential(p)
	p = domain.ApplyAll(n.meta.PhonemeReplacements, p)

	candidates := ExpandAlternations(p)
	valid := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if n.checkPhonemes(raw, c) {
			valid = append(valid, c)
		}
	}
	return valid
}

func (n *Normalizer) checkPhonemes(raw domain.WordPronunciation, candidate string) bool {
	for sym := range phonetic.Symbols(candidate) {
		if _, ok := n.phonemes[sym]; !ok {
			n.report(domain.InvalidPhonemeInPronunciationIssue{
				Raw:      raw,
				Phoneme:  sym,
				Metadata: n.meta,
			})
			return false
		}
	}
	return true
}

func (n *Normalizer) report(issue domain.Issue) {
	if n.reporter != nil {
		n.reporter.Report(issue)
	}
}

// StripDelimiters removes one layer of surrounding /…/ or […].
func StripDelimiters(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/"):
		return s[1 : len(s)-1]
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return s[1 : len(s)-1]
	}
	return s
}

// ExpandAlternations returns the minimal variant (optional segments
// dropped) and the maximal variant (segments kept without parentheses).
// When they are equal a single candidate is returned.
func ExpandAlternations(s string) []string {
	minimal := optionalSegmentRe.ReplaceAllString(s, "")
	maximal := optionalSegmentRe.ReplaceAllString(s, "$1")
	if minimal == maximal {
		return []string{minimal}
	}
	return []string{minimal, maximal}
}
