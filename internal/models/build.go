package models

import (
	"time"

	"github.com/google/uuid"
)

// NewBuildRecord creates a build record with generated UUID and timestamps
func NewBuildRecord(startedAt time.Time) *BuildRecord {
	return &BuildRecord{
		ID:        uuid.New(),
		StartedAt: startedAt,
		CreatedAt: time.Now(),
	}
}

// NewAuditResult creates an audit result for url with generated UUID
func NewAuditResult(url string) *AuditResult {
	return &AuditResult{
		ID:        uuid.New(),
		URL:       url,
		CheckedAt: time.Now(),
	}
}
