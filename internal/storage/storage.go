package storage

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dacars/sitemapd/internal/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("storage: not found")

type Store interface {
	Initialize() error
	Close() error

	// Build history
	SaveBuild(ctx context.Context, build *models.BuildRecord) error
	GetBuild(ctx context.Context, id uuid.UUID) (*models.BuildRecord, error)
	ListBuilds(ctx context.Context, limit, offset int) ([]*models.BuildRecord, error)

	// Audit results, one row per URL
	SaveAuditResults(ctx context.Context, results []*models.AuditResult) error
	ListAuditResults(ctx context.Context, filter AuditFilter) ([]*models.AuditResult, error)
}

// AuditFilter narrows ListAuditResults. A zero Limit means DefaultLimit.
type AuditFilter struct {
	FailingOnly bool
	Limit       int
	Offset      int
}

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

func clampLimit(limit int) uint64 {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return uint64(limit)
}

func clampOffset(offset int) uint64 {
	if offset < 0 {
		return 0
	}
	return uint64(offset)
}

// Open connects to driver ("postgres" or "sqlite3") and creates the schema.
func Open(driverName, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driverName {
	case "postgres":
		s, err = NewPostgresStore(dsn)
	case "sqlite3", "sqlite":
		s, err = NewSQLiteStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driverName)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if err := s.Initialize(); err != nil {
		s.Close()
		return nil, fmt.Errorf("initialize %s: %w", driverName, err)
	}
	return s, nil
}

// jsonColumn stores a value as JSON text.
type jsonColumn[T any] struct {
	v *T
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c jsonColumn[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("jsonColumn: unsupported source %T", src)
	}
	return json.Unmarshal(raw, c.v)
}
