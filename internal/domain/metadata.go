package domain

import (
	"fmt"
	"regexp"
)

// Replacement is a rewrite rule applied to every match of Pattern.
// Pattern is an RE2 regular expression; Replacement may reference
// capture groups ($1, ${name}).
type Replacement struct {
	Pattern     string `json:"pattern"     yaml:"pattern"`
	Replacement string `json:"replacement" yaml:"replacement"`

	re *regexp.Regexp
}

// NewReplacement compiles pattern and returns the rule.
func NewReplacement(pattern, replacement string) (Replacement, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Replacement{}, fmt.Errorf("compile replacement pattern %q: %w", pattern, err)
	}
	return Replacement{Pattern: pattern, Replacement: replacement, re: re}, nil
}

// MustReplacement is like NewReplacement but panics on an invalid pattern.
// Intended for package-level tables and tests.
func MustReplacement(pattern, replacement string) Replacement {
	r, err := NewReplacement(pattern, replacement)
	if err != nil {
		panic(err)
	}
	return r
}

// Apply substitutes every occurrence of the pattern in s.
func (r Replacement) Apply(s string) string {
	if r.re == nil {
		// Zero-value or hand-built rules are compiled on demand.
		r.re = regexp.MustCompile(r.Pattern)
	}
	return r.re.ReplaceAllString(s, r.Replacement)
}

// ApplyAll runs rules in declared order; later rules see the output of
// earlier ones.
func ApplyAll(rules []Replacement, s string) string {
	for _, r := range rules {
		s = r.Apply(s)
	}
	return s
}

// Metadata is the per-language configuration driving normalization.
//
// Graphemes and Phonemes are the complete alphabets valid after the
// replacements have run, most frequent first.
type Metadata struct {
	Language             Language      `json:"language"`
	Description          string        `json:"description"`
	Graphemes            []string      `json:"graphemes"`
	Phonemes             []string      `json:"phonemes"`
	GraphemeReplacements []Replacement `json:"grapheme_replacements"`
	PhonemeReplacements  []Replacement `json:"phoneme_replacements"`
}

// Distributions holds relative symbol frequencies observed in a corpus.
// Each map sums to 1.0 unless it is empty.
type Distributions struct {
	Graphemes map[string]float64 `json:"graphemes"`
	Phonemes  map[string]float64 `json:"phonemes"`
}

// PhoneticInventory is an existing reference entry describing the sound
// inventory of a language. Used only to enrich diagnostics.
type PhoneticInventory struct {
	Language Language `json:"language"`
	Name     string   `json:"name"`
	Source   string   `json:"source"`
	Phonemes []string `json:"phonemes"`
}
