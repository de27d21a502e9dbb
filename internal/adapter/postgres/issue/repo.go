// Package issue stores the issues raised during dictionary builds.
// Rows are append-only; each carries the run that produced it.
package issue

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

// Record is a stored issue. Payload is the JSON encoding of the issue.
type Record struct {
	ID        uuid.UUID
	RunID     uuid.UUID
	Language  domain.Language
	Kind      domain.IssueKind
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	RunID    uuid.UUID
	Language domain.Language
	Kind     domain.IssueKind
	Limit    uint64
}

// Repo provides issue persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new issue repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// SaveAll inserts issues of one run using pgx.Batch and returns the number
// of inserted rows.
func (r *Repo) SaveAll(ctx context.Context, runID uuid.UUID, issues []domain.Issue) (int, error) {
	if len(issues) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, is := range issues {
		payload, err := json.Marshal(is)
		if err != nil {
			return 0, fmt.Errorf("build_issue marshal %s: %w", is.Kind(), err)
		}
		batch.Queue(
			`INSERT INTO build_issues (id, run_id, language, kind, payload)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), runID, is.IssueLanguage().String(), string(is.Kind()), payload,
		)
	}

	q := postgres.QuerierFromCtx(ctx, r.pool)
	results := q.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int
	for range batch.Len() {
		tag, err := results.Exec()
		if err != nil {
			return inserted, postgres.MapError(err, "build_issue", runID.String())
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// List returns stored issues matching f, oldest first.
func (r *Repo) List(ctx context.Context, f Filter) ([]Record, error) {
	query := postgres.Builder().
		Select("id", "run_id", "language", "kind", "payload", "created_at").
		From("build_issues").
		OrderBy("created_at ASC", "id ASC")

	if f.RunID != uuid.Nil {
		query = query.Where(squirrel.Eq{"run_id": f.RunID})
	}
	if f.Language != "" {
		query = query.Where(squirrel.Eq{"language": f.Language.String()})
	}
	if f.Kind != "" {
		query = query.Where(squirrel.Eq{"kind": string(f.Kind)})
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build build_issues query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list build_issues: %w", err)
	}

	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("scan build_issues: %w", err)
	}

	return records, nil
}

// CountByKind returns the number of stored issues per kind for one run.
func (r *Repo) CountByKind(ctx context.Context, runID uuid.UUID) (map[domain.IssueKind]int, error) {
	sql, args, err := postgres.Builder().
		Select("kind", "count(*)").
		From("build_issues").
		Where(squirrel.Eq{"run_id": runID}).
		GroupBy("kind").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build build_issues count query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("count build_issues: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.IssueKind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan build_issues count: %w", err)
		}
		counts[domain.IssueKind(kind)] = n
	}

	return counts, rows.Err()
}

func scanRecord(row pgx.CollectableRow) (Record, error) {
	var (
		rec        Record
		lang, kind string
	)
	err := row.Scan(&rec.ID, &rec.RunID, &lang, &kind, &rec.Payload, &rec.CreatedAt)
	rec.Language = domain.Language(lang)
	rec.Kind = domain.IssueKind(kind)
	return rec, err
}
