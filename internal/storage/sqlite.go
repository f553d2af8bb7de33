package storage

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	sqlStore
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer avoids "database is locked" and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{sqlStore{
		db:          db,
		sb:          sq.StatementBuilder.PlaceholderFormat(sq.Question),
		issuesValue: func(v []string) any { return jsonColumn[[]string]{v: &v} },
		issuesDest:  func(v *[]string) any { return jsonColumn[[]string]{v: v} },
	}}, nil
}

func (s *SQLiteStore) Initialize() error {
	return s.exec(context.Background(), []string{
		`CREATE TABLE IF NOT EXISTS builds (
            id TEXT PRIMARY KEY,
            started_at DATETIME NOT NULL,
            duration_ms INTEGER NOT NULL,
            entry_count INTEGER NOT NULL,
            url_count INTEGER NOT NULL,
            blog_source TEXT NOT NULL,
            fallback_cause TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS audit_results (
            id TEXT PRIMARY KEY,
            url TEXT UNIQUE NOT NULL,
            status_code INTEGER NOT NULL,
            title TEXT NOT NULL DEFAULT '',
            lang TEXT NOT NULL DEFAULT '',
            canonical TEXT NOT NULL DEFAULT '',
            alternates TEXT,
            issues TEXT,
            issue_count INTEGER NOT NULL DEFAULT 0,
            checked_at DATETIME NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_results_issue_count ON audit_results(issue_count)`,
	})
}
