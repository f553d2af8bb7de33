package storage

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

type PostgresStore struct {
	sqlStore
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresStore{sqlStore{
		db:          db,
		sb:          sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		issuesValue: func(v []string) any { return pq.Array(v) },
		issuesDest:  func(v *[]string) any { return pq.Array(v) },
	}}, nil
}

func (s *PostgresStore) Initialize() error {
	return s.exec(context.Background(), []string{
		`CREATE TABLE IF NOT EXISTS builds (
            id UUID PRIMARY KEY,
            started_at TIMESTAMPTZ NOT NULL,
            duration_ms BIGINT NOT NULL,
            entry_count INTEGER NOT NULL,
            url_count INTEGER NOT NULL,
            blog_source VARCHAR(32) NOT NULL,
            fallback_cause TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS audit_results (
            id UUID PRIMARY KEY,
            url VARCHAR(2048) UNIQUE NOT NULL,
            status_code INTEGER NOT NULL,
            title TEXT NOT NULL DEFAULT '',
            lang VARCHAR(35) NOT NULL DEFAULT '',
            canonical VARCHAR(2048) NOT NULL DEFAULT '',
            alternates JSONB,
            issues TEXT[],
            issue_count INTEGER NOT NULL DEFAULT 0,
            checked_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_results_failing ON audit_results(issue_count) WHERE issue_count > 0`,
	})
}
