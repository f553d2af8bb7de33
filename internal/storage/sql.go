package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/dacars/sitemapd/internal/models"
)

var buildColumns = []string{
	"id", "started_at", "duration_ms", "entry_count", "url_count", "blog_source", "fallback_cause", "created_at",
}

var auditColumns = []string{
	"id", "url", "status_code", "title", "lang", "canonical", "alternates", "issues", "issue_count", "checked_at",
}

// sqlStore holds the queries shared by both drivers. Dialects differ in
// placeholders, schema and how the issues list is stored.
type sqlStore struct {
	db          *sql.DB
	sb          sq.StatementBuilderType
	issuesValue func([]string) any
	issuesDest  func(*[]string) any
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) exec(ctx context.Context, queries []string) error {
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (s *sqlStore) SaveBuild(ctx context.Context, b *models.BuildRecord) error {
	query, args, err := s.sb.Insert("builds").
		Columns(buildColumns...).
		Values(b.ID, b.StartedAt, b.DurationMs, b.EntryCount, b.URLCount, string(b.BlogSource), b.FallbackCause, b.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *sqlStore) GetBuild(ctx context.Context, id uuid.UUID) (*models.BuildRecord, error) {
	query, args, err := s.sb.Select(buildColumns...).From("builds").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return nil, err
	}
	b, err := scanBuild(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *sqlStore) ListBuilds(ctx context.Context, limit, offset int) ([]*models.BuildRecord, error) {
	query, args, err := s.sb.Select(buildColumns...).
		From("builds").
		OrderBy("started_at DESC").
		Limit(clampLimit(limit)).
		Offset(clampOffset(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	builds := []*models.BuildRecord{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (*models.BuildRecord, error) {
	var (
		b      models.BuildRecord
		source string
	)
	err := row.Scan(&b.ID, &b.StartedAt, &b.DurationMs, &b.EntryCount, &b.URLCount, &source, &b.FallbackCause, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.BlogSource = models.EntrySource(source)
	return &b, nil
}

// SaveAuditResults upserts results by URL inside one transaction.
func (s *sqlStore) SaveAuditResults(ctx context.Context, results []*models.AuditResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range results {
		query, args, err := s.sb.Insert("audit_results").
			Columns(auditColumns...).
			Values(r.ID, r.URL, r.StatusCode, r.Title, r.Lang, r.Canonical,
				jsonColumn[map[string]string]{v: &r.Alternates},
				s.issuesValue(r.Issues), len(r.Issues), r.CheckedAt).
			Suffix(`ON CONFLICT (url) DO UPDATE SET
                status_code = excluded.status_code,
                title = excluded.title,
                lang = excluded.lang,
                canonical = excluded.canonical,
                alternates = excluded.alternates,
                issues = excluded.issues,
                issue_count = excluded.issue_count,
                checked_at = excluded.checked_at`).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save audit %s: %w", r.URL, err)
		}
	}
	return tx.Commit()
}

func (s *sqlStore) ListAuditResults(ctx context.Context, filter AuditFilter) ([]*models.AuditResult, error) {
	q := s.sb.Select(auditColumns...).
		From("audit_results").
		OrderBy("checked_at DESC", "url").
		Limit(clampLimit(filter.Limit)).
		Offset(clampOffset(filter.Offset))
	if filter.FailingOnly {
		q = q.Where(sq.Gt{"issue_count": 0})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*models.AuditResult{}
	for rows.Next() {
		var (
			r          models.AuditResult
			issueCount int
		)
		err := rows.Scan(&r.ID, &r.URL, &r.StatusCode, &r.Title, &r.Lang, &r.Canonical,
			jsonColumn[map[string]string]{v: &r.Alternates},
			s.issuesDest(&r.Issues), &issueCount, &r.CheckedAt)
		if err != nil {
			return nil, err
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}
