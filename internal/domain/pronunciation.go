package domain

import "golang.org/x/text/language"

// Language is an opaque language identifier (usually an ISO 639 code).
// Two languages are equal only if their codes match exactly.
type Language string

func (l Language) String() string { return string(l) }

// WordPronunciation is a single (word, pronunciation) record.
//
// Raw records come straight from an extractor and may contain anything.
// Normalized records are produced by the normalizer and satisfy the
// grapheme/phoneme constraints of the metadata they were checked against.
// They are never re-validated.
type WordPronunciation struct {
	SourceEdition string   `json:"source_edition"`
	Language      Language `json:"language"`
	Word          string   `json:"word"`
	Pronunciation string   `json:"pronunciation"`
}

// Tag returns the BCP 47 tag for the language, or language.Und when the
// code is not a valid locale identifier.
func (l Language) Tag() language.Tag {
	tag, err := language.Parse(string(l))
	if err != nil {
		return language.Und
	}
	return tag
}
