// Package kaikki extracts raw word/pronunciation pairs from Kaikki
// Wiktionary JSONL dumps. It does not interpret markup or merge entries.
package kaikki

// Stats holds parser statistics for logging.
type Stats struct {
	TotalLines     int
	MalformedLines int
	MatchedLines   int
	Pairs          int
}

// kaikkiEntry mirrors the Kaikki JSONL structure (only fields we need).
type kaikkiEntry struct {
	Word     string        `json:"word"`
	Lang     string        `json:"lang"`
	LangCode string        `json:"lang_code"`
	Sounds   []kaikkiSound `json:"sounds"`
}

// kaikkiSound mirrors a sound entry from Kaikki.
type kaikkiSound struct {
	IPA  string   `json:"ipa"`
	Tags []string `json:"tags"`
}
