// Package phonetic holds the reference IPA symbol sets used by the
// normalization pipeline and the reference inventory lookup used for
// diagnostics.
package phonetic

import (
	"iter"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// A phonetic symbol is a single code point. Diacritics and modifier letters
// are separate symbols, as on the IPA chart.

const (
	pulmonicConsonants = "pbtdʈɖcɟkɡgqɢʔmɱnɳɲŋɴʙrʀⱱɾɽɸβfvθðszʃʒʂʐçʝxɣχʁħʕhɦɬɮʋɹɻjɰlɭʎʟ"
	otherConsonants    = "ʘǀǃǂǁɓɗʄɠʛʼʍwɥʜʢʡɕʑɺɧ"
	vowels             = "iyɨʉɯuɪʏʊeøɘɵɤoəɛœɜɞʌɔæɐaɶɑɒɚɝ"
	length             = "ːˑ"
	modifierLetters    = "ʰʱʷʲˠˤⁿˡʴʵʶᵊ˞"
	// Combining diacritics: voicing, place, phonation, nasalization, syllabicity.
	combiningMarks     = "\u0325\u030a\u032c\u0339\u031c\u031f\u0320\u0308\u033d\u0329\u030d\u032f\u0311\u0324\u0330\u033c\u0334\u031d\u031e\u0318\u0319\u032a\u033a\u033b\u0303\u031a\u0306"
	tones              = "˥˦˧˨˩ꜜꜛ\u030b\u0301\u0304\u0300\u030f"

	// Stress, syllabification, linking and intonation marks. They carry no
	// segmental information and are dropped before alphabet checks.
	nonEssentialMarks = "ˈˌ.‿\u035c\u0361|‖↗↘"
)

var (
	validSymbols        = buildSet(pulmonicConsonants, otherConsonants, vowels, length, modifierLetters, combiningMarks, tones)
	nonEssentialSymbols = buildSet(nonEssentialMarks)

	stripNonEssential = runes.Remove(runes.Predicate(IsNonEssential))
)

func buildSet(groups ...string) map[rune]struct{} {
	set := make(map[rune]struct{})
	for _, g := range groups {
		for _, r := range g {
			set[r] = struct{}{}
		}
	}
	return set
}

// IsValid reports whether sym is a single symbol of the reference IPA set.
func IsValid(sym string) bool {
	r, size := utf8.DecodeRuneInString(sym)
	if size == 0 || size != len(sym) {
		return false
	}
	_, ok := validSymbols[r]
	return ok
}

// IsNonEssential reports whether r is a marker that does not take part in
// alphabet membership checks.
func IsNonEssential(r rune) bool {
	_, ok := nonEssentialSymbols[r]
	return ok
}

// StripNonEssential removes every non-essential symbol from s.
func StripNonEssential(s string) string {
	out, _, err := transform.String(stripNonEssential, s)
	if err != nil {
		// runes.Remove never fails on valid strings; keep the input otherwise.
		return s
	}
	return out
}

// Symbols yields the phonetic symbols of s one at a time.
func Symbols(s string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for len(s) > 0 {
			_, size := utf8.DecodeRuneInString(s)
			if !yield(s[:size]) {
				return
			}
			s = s[size:]
		}
	}
}

// ValidSymbols yields only those symbols of s that belong to the reference set.
func ValidSymbols(s string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for sym := range Symbols(s) {
			if !IsValid(sym) {
				continue
			}
			if !yield(sym) {
				return
			}
		}
	}
}
