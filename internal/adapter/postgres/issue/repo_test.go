package issue_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/prondict/internal/adapter/postgres/issue"
	"github.com/heartmarshall/prondict/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/prondict/internal/domain"
)

func newRepo(t *testing.T) *issue.Repo {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	return issue.New(testhelper.SetupTestDB(t))
}

func sampleIssues(lang domain.Language) []domain.Issue {
	meta := domain.Metadata{Language: lang, Graphemes: []string{"a"}, Phonemes: []string{"a"}}
	raw := domain.WordPronunciation{SourceEdition: "test", Language: lang, Word: "ro2bot", Pronunciation: "/ɹoʊbɒt/"}
	return []domain.Issue{
		domain.InvalidGraphemeInWordIssue{Raw: raw, PartialWord: "ro2bot", Grapheme: "2", Metadata: meta},
		domain.InvalidPhonemeInPronunciationIssue{Raw: raw, Phoneme: "ɒ", Metadata: meta},
		domain.InvalidPhonemeInPronunciationIssue{Raw: raw, Phoneme: "ʊ", Metadata: meta},
		domain.MissingMetadataIssue{Metadata: meta},
	}
}

func TestRepo_SaveAllAndList(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	runID := uuid.New()
	lang := domain.Language("x-" + uuid.New().String()[:8])

	n, err := repo.SaveAll(ctx, runID, sampleIssues(lang))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	all, err := repo.List(ctx, issue.Filter{RunID: runID})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for _, rec := range all {
		assert.Equal(t, runID, rec.RunID)
		assert.Equal(t, lang, rec.Language)
		assert.NotEqual(t, uuid.Nil, rec.ID)
	}

	phonemes, err := repo.List(ctx, issue.Filter{RunID: runID, Kind: domain.IssueInvalidPhonemeInPronunciation})
	require.NoError(t, err)
	require.Len(t, phonemes, 2)

	var payload struct {
		Phoneme string                   `json:"phoneme"`
		Raw     domain.WordPronunciation `json:"raw"`
	}
	require.NoError(t, json.Unmarshal(phonemes[0].Payload, &payload))
	assert.Contains(t, []string{"ɒ", "ʊ"}, payload.Phoneme)
	assert.Equal(t, "ro2bot", payload.Raw.Word)

	limited, err := repo.List(ctx, issue.Filter{RunID: runID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRepo_ListByLanguage(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	runID := uuid.New()
	langA := domain.Language("x-" + uuid.New().String()[:8])
	langB := domain.Language("x-" + uuid.New().String()[:8])

	_, err := repo.SaveAll(ctx, runID, append(sampleIssues(langA), sampleIssues(langB)[:1]...))
	require.NoError(t, err)

	got, err := repo.List(ctx, issue.Filter{Language: langB})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.IssueInvalidGraphemeInWord, got[0].Kind)
}

func TestRepo_CountByKind(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	runID := uuid.New()

	_, err := repo.SaveAll(ctx, runID, sampleIssues("en"))
	require.NoError(t, err)

	counts, err := repo.CountByKind(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, map[domain.IssueKind]int{
		domain.IssueInvalidGraphemeInWord:         1,
		domain.IssueInvalidPhonemeInPronunciation: 2,
		domain.IssueMissingMetadata:               1,
	}, counts)
}

func TestRepo_SaveAllEmpty(t *testing.T) {
	t.Parallel()

	// Empty input returns before touching the pool.
	repo := issue.New(nil)
	n, err := repo.SaveAll(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
