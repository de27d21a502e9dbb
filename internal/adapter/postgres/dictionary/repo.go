// Package dictionary stores built pronunciation dictionaries in PostgreSQL.
// A language has at most one stored dictionary; saving replaces it.
package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/prondict/internal/adapter/postgres"
	"github.com/heartmarshall/prondict/internal/domain"
)

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Summary describes a stored dictionary without its entries.
type Summary struct {
	Language           domain.Language
	Description        string
	RunID              uuid.UUID
	WordCount          int
	PronunciationCount int
	BuiltAt            time.Time
}

// Repo provides dictionary persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	tx   txManager
}

// New creates a new dictionary repository.
func New(pool *pgxpool.Pool, tx txManager) *Repo {
	return &Repo{pool: pool, tx: tx}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Replace stores dict as the current dictionary of its language, dropping
// whatever was stored before. Readers never see a partially written one.
func (r *Repo) Replace(ctx context.Context, runID uuid.UUID, dict *domain.Dictionary) error {
	lang := dict.Metadata.Language

	metaJSON, err := json.Marshal(dict.Metadata)
	if err != nil {
		return fmt.Errorf("dictionary %s marshal metadata: %w", lang, err)
	}

	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.pool)

		_, err := q.Exec(ctx,
			`INSERT INTO dictionaries (language, description, metadata, run_id, word_count, pronunciation_count, built_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now())
			 ON CONFLICT (language) DO UPDATE SET
			     description = EXCLUDED.description,
			     metadata = EXCLUDED.metadata,
			     run_id = EXCLUDED.run_id,
			     word_count = EXCLUDED.word_count,
			     pronunciation_count = EXCLUDED.pronunciation_count,
			     built_at = EXCLUDED.built_at`,
			lang.String(), dict.Metadata.Description, metaJSON, runID, dict.Len(), dict.PronunciationCount(),
		)
		if err != nil {
			return postgres.MapError(err, "dictionary", lang.String())
		}

		if _, err := q.Exec(ctx, `DELETE FROM dictionary_entries WHERE language = $1`, lang.String()); err != nil {
			return postgres.MapError(err, "dictionary_entries", lang.String())
		}

		if dict.Len() == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, e := range dict.Entries {
			batch.Queue(
				`INSERT INTO dictionary_entries (language, position, word, pronunciations)
				 VALUES ($1, $2, $3, $4)`,
				lang.String(), i, e.Word, e.Pronunciations,
			)
		}

		results := q.SendBatch(ctx, batch)
		defer results.Close()

		for range batch.Len() {
			if _, err := results.Exec(); err != nil {
				return postgres.MapError(err, "dictionary_entry", lang.String())
			}
		}

		return nil
	})
}

// Delete removes the stored dictionary of lang. Entries cascade.
func (r *Repo) Delete(ctx context.Context, lang domain.Language) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	tag, err := q.Exec(ctx, `DELETE FROM dictionaries WHERE language = $1`, lang.String())
	if err != nil {
		return postgres.MapError(err, "dictionary", lang.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dictionary %s: %w", lang, domain.ErrNotFound)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// Get loads the stored dictionary of lang with its entries in stored order.
func (r *Repo) Get(ctx context.Context, lang domain.Language) (*domain.Dictionary, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	var metaJSON []byte
	err := q.QueryRow(ctx, `SELECT metadata FROM dictionaries WHERE language = $1`, lang.String()).Scan(&metaJSON)
	if err != nil {
		return nil, postgres.MapError(err, "dictionary", lang.String())
	}

	var meta domain.Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("dictionary %s unmarshal metadata: %w", lang, err)
	}

	sql, args, err := postgres.Builder().
		Select("word", "pronunciations").
		From("dictionary_entries").
		Where(squirrel.Eq{"language": lang.String()}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dictionary_entries query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, "dictionary_entries", lang.String())
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DictionaryEntry, error) {
		var e domain.DictionaryEntry
		err := row.Scan(&e.Word, &e.Pronunciations)
		return e, err
	})
	if err != nil {
		return nil, postgres.MapError(err, "dictionary_entries", lang.String())
	}

	return domain.NewDictionary(entries, meta), nil
}

// List returns summaries of all stored dictionaries ordered by language.
func (r *Repo) List(ctx context.Context) ([]Summary, error) {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder().
		Select("language", "description", "run_id", "word_count", "pronunciation_count", "built_at").
		From("dictionaries").
		OrderBy("language ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dictionaries query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list dictionaries: %w", err)
	}

	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var (
			s    Summary
			lang string
		)
		err := row.Scan(&lang, &s.Description, &s.RunID, &s.WordCount, &s.PronunciationCount, &s.BuiltAt)
		s.Language = domain.Language(lang)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan dictionaries: %w", err)
	}

	return summaries, nil
}
