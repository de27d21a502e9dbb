package domain

import (
	"strings"
)

// CleanText prepares extracted text for the normalization pipeline:
//   - trims leading/trailing whitespace
//   - turns tabs and newlines into spaces
//   - compresses multiple spaces into one
//
// Case, diacritics, hyphens and apostrophes are preserved; case folding is
// language dependent and happens later.
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if r == '\t' || r == '\n' || r == '\r' {
			r = ' '
		}
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
