// Package issues provides sinks for structured issues raised while
// building a dictionary.
package issues

import (
	"context"
	"log/slog"
	"sync"

	"github.com/heartmarshall/prondict/internal/domain"
)

// Collector keeps every reported issue in order. Safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	issues []domain.Issue
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report implements domain.IssueReporter.
func (c *Collector) Report(issue domain.Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = append(c.issues, issue)
}

// Issues returns a copy of the collected issues in report order.
func (c *Collector) Issues() []domain.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Issue, len(c.issues))
	copy(out, c.issues)
	return out
}

// Len returns the number of collected issues.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issues)
}

// CountByKind returns how many issues of each kind were collected.
func (c *Collector) CountByKind() map[domain.IssueKind]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CountKinds(c.issues)
}

// OfKind returns the collected issues of one kind.
func (c *Collector) OfKind(kind domain.IssueKind) []domain.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Issue
	for _, is := range c.issues {
		if is.Kind() == kind {
			out = append(out, is)
		}
	}
	return out
}

// ForLanguage returns the collected issues raised for lang, in report order.
func (c *Collector) ForLanguage(lang domain.Language) []domain.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Issue
	for _, is := range c.issues {
		if is.IssueLanguage() == lang {
			out = append(out, is)
		}
	}
	return out
}

// CountKinds tallies issues by kind.
func CountKinds(list []domain.Issue) map[domain.IssueKind]int {
	counts := make(map[domain.IssueKind]int)
	for _, is := range list {
		counts[is.Kind()]++
	}
	return counts
}

// LogReporter writes each issue to a logger. Missing metadata is logged at
// warn level, per-record problems at debug level.
type LogReporter struct {
	log *slog.Logger
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{log: logger.With("component", "issues")}
}

// Report implements domain.IssueReporter.
func (r *LogReporter) Report(issue domain.Issue) {
	ctx := context.Background()
	attrs := []slog.Attr{
		slog.String("kind", string(issue.Kind())),
		slog.String("language", string(issue.IssueLanguage())),
	}

	switch is := issue.(type) {
	case domain.MissingMetadataIssue:
		attrs = append(attrs,
			slog.Int("graphemes", len(is.Metadata.Graphemes)),
			slog.Int("phonemes", len(is.Metadata.Phonemes)),
			slog.Bool("has_reference", is.Reference != nil),
		)
		r.log.LogAttrs(ctx, slog.LevelWarn, "no curated metadata, synthesized draft", attrs...)
	case domain.InvalidGraphemeInWordIssue:
		attrs = append(attrs,
			slog.String("word", is.Raw.Word),
			slog.String("partial_word", is.PartialWord),
			slog.String("grapheme", is.Grapheme),
		)
		r.log.LogAttrs(ctx, slog.LevelDebug, "invalid grapheme in word", attrs...)
	case domain.InvalidPhonemeInPronunciationIssue:
		attrs = append(attrs,
			slog.String("word", is.Raw.Word),
			slog.String("pronunciation", is.Raw.Pronunciation),
			slog.String("phoneme", is.Phoneme),
		)
		r.log.LogAttrs(ctx, slog.LevelDebug, "invalid phoneme in pronunciation", attrs...)
	default:
		r.log.LogAttrs(ctx, slog.LevelInfo, "issue", attrs...)
	}
}

// Multi fans an issue out to several reporters.
type Multi []domain.IssueReporter

// Report implements domain.IssueReporter.
func (m Multi) Report(issue domain.Issue) {
	for _, r := range m {
		if r != nil {
			r.Report(issue)
		}
	}
}
