// Package charstats computes frequency distributions over symbol streams.
package charstats

import (
	"iter"
	"slices"

	"github.com/rivo/uniseg"
)

// Result is the outcome of Analyze.
type Result struct {
	// Symbols are the distinct symbols, most frequent first. Ties keep
	// first-encountered order.
	Symbols []string
	// Distribution maps each symbol to count/total.
	Distribution map[string]float64
}

// Analyze consumes seq once and returns its symbol frequencies.
// An empty sequence yields an empty result.
func Analyze(seq iter.Seq[string]) Result {
	counts := make(map[string]int)
	var order []string
	total := 0

	for sym := range seq {
		if _, seen := counts[sym]; !seen {
			order = append(order, sym)
		}
		counts[sym]++
		total++
	}

	result := Result{
		Symbols:      make([]string, 0, len(order)),
		Distribution: make(map[string]float64, len(order)),
	}
	if total == 0 {
		return result
	}

	result.Symbols = append(result.Symbols, order...)
	slices.SortStableFunc(result.Symbols, func(a, b string) int {
		return counts[b] - counts[a]
	})
	for sym, n := range counts {
		result.Distribution[sym] = float64(n) / float64(total)
	}
	return result
}

// Graphemes flattens words into their user-perceived characters.
func Graphemes(words []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, w := range words {
			state := -1
			rest := w
			for len(rest) > 0 {
				var cluster string
				cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
				if !yield(cluster) {
					return
				}
			}
		}
	}
}

// Flatten concatenates per-string symbol sequences produced by split.
func Flatten(items []string, split func(string) iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, item := range items {
			for sym := range split(item) {
				if !yield(sym) {
					return
				}
			}
		}
	}
}
