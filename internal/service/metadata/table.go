package metadata

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/prondict/internal/domain"
)

//go:embed curated.yaml
var curatedYAML []byte

// Table is the read-only set of curated metadata, keyed by language.
// A Table is safe for concurrent use once constructed.
type Table struct {
	entries map[domain.Language]domain.Metadata
	order   []domain.Language
}

// NewTable builds a Table from already validated entries. Later entries
// with the same language replace earlier ones.
func NewTable(entries ...domain.Metadata) *Table {
	t := &Table{entries: make(map[domain.Language]domain.Metadata, len(entries))}
	for _, m := range entries {
		if _, ok := t.entries[m.Language]; !ok {
			t.order = append(t.order, m.Language)
		}
		t.entries[m.Language] = m
	}
	return t
}

// Lookup returns the curated metadata for lang. The returned value does
// not share slices with the table.
func (t *Table) Lookup(lang domain.Language) (domain.Metadata, bool) {
	if t == nil {
		return domain.Metadata{}, false
	}
	m, ok := t.entries[lang]
	if !ok {
		return domain.Metadata{}, false
	}
	m.Graphemes = slices.Clone(m.Graphemes)
	m.Phonemes = slices.Clone(m.Phonemes)
	m.GraphemeReplacements = slices.Clone(m.GraphemeReplacements)
	m.PhonemeReplacements = slices.Clone(m.PhonemeReplacements)
	return m, true
}

// Languages returns the curated languages in declaration order.
func (t *Table) Languages() []domain.Language {
	if t == nil {
		return nil
	}
	return slices.Clone(t.order)
}

// Len returns the number of curated languages.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

type tableFile struct {
	Languages []tableEntry `yaml:"languages"`
}

type tableEntry struct {
	Language             string      `yaml:"language"`
	Description          string      `yaml:"description"`
	Graphemes            []string    `yaml:"graphemes"`
	Phonemes             []string    `yaml:"phonemes"`
	GraphemeReplacements []ruleEntry `yaml:"grapheme_replacements"`
	PhonemeReplacements  []ruleEntry `yaml:"phoneme_replacements"`
}

type ruleEntry struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// LoadTable reads a curated table in YAML form. Every entry is validated
// and every replacement pattern compiled; all problems are returned
// together as a *domain.ValidationError.
func LoadTable(r io.Reader) (*Table, error) {
	var f tableFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode curated table: %w", err)
	}

	var (
		errs    []domain.FieldError
		entries = make([]domain.Metadata, 0, len(f.Languages))
		seen    = make(map[string]struct{}, len(f.Languages))
	)
	for i, e := range f.Languages {
		field := fmt.Sprintf("languages[%d]", i)
		if e.Language == "" {
			errs = append(errs, domain.FieldError{Field: field + ".language", Message: "required"})
			continue
		}
		field = fmt.Sprintf("languages[%s]", e.Language)
		if _, dup := seen[e.Language]; dup {
			errs = append(errs, domain.FieldError{Field: field, Message: "duplicate language"})
			continue
		}
		seen[e.Language] = struct{}{}

		if len(e.Graphemes) == 0 {
			errs = append(errs, domain.FieldError{Field: field + ".graphemes", Message: "required"})
		}
		if len(e.Phonemes) == 0 {
			errs = append(errs, domain.FieldError{Field: field + ".phonemes", Message: "required"})
		}
		gr, gerrs := compileRules(field+".grapheme_replacements", e.GraphemeReplacements)
		pr, perrs := compileRules(field+".phoneme_replacements", e.PhonemeReplacements)
		errs = append(errs, gerrs...)
		errs = append(errs, perrs...)

		desc := e.Description
		if desc == "" {
			desc = Describe(domain.Language(e.Language))
		}
		entries = append(entries, domain.Metadata{
			Language:             domain.Language(e.Language),
			Description:          desc,
			Graphemes:            e.Graphemes,
			Phonemes:             e.Phonemes,
			GraphemeReplacements: gr,
			PhonemeReplacements:  pr,
		})
	}

	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}
	return NewTable(entries...), nil
}

func compileRules(field string, rules []ruleEntry) ([]domain.Replacement, []domain.FieldError) {
	var (
		out  = make([]domain.Replacement, 0, len(rules))
		errs []domain.FieldError
	)
	for i, r := range rules {
		rep, err := domain.NewReplacement(r.Pattern, r.Replacement)
		if err != nil {
			errs = append(errs, domain.FieldError{
				Field:   fmt.Sprintf("%s[%d].pattern", field, i),
				Message: err.Error(),
			})
			continue
		}
		out = append(out, rep)
	}
	return out, errs
}

// LoadTableFile reads a curated table from path.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open curated table: %w", err)
	}
	defer f.Close()

	t, err := LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("load curated table %s: %w", path, err)
	}
	return t, nil
}

// DefaultTable returns the curated table shipped with the binary.
func DefaultTable() *Table {
	t, err := LoadTable(bytes.NewReader(curatedYAML))
	if err != nil {
		panic(fmt.Sprintf("metadata: embedded curated table: %v", err))
	}
	return t
}
