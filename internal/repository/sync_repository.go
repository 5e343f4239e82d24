// Package repository persists the synchronization audit trail.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncAttempt is one recorded synchronization outcome for an abstract SKU.
// Attempts are an audit trail; aggregates themselves are never persisted.
type SyncAttempt struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SKU          string    `gorm:"type:varchar(255);not null;index" json:"sku"`
	State        string    `gorm:"type:varchar(50);not null" json:"state"`
	ExternalID   *string   `gorm:"type:varchar(255)" json:"externalId,omitempty"`
	ErrorPayload *string   `gorm:"type:text" json:"errorPayload,omitempty"`
	DurationMS   int64     `json:"durationMs"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name
func (SyncAttempt) TableName() string {
	return "catalog_sync_attempts"
}

// SyncRepository stores sync attempts. A nil repository disables auditing.
type SyncRepository struct {
	db *gorm.DB
}

// NewSyncRepository creates a repository over the given database.
func NewSyncRepository(db *gorm.DB) *SyncRepository {
	return &SyncRepository{db: db}
}

// Migrate creates the attempt table if needed.
func (r *SyncRepository) Migrate() error {
	return r.db.AutoMigrate(&SyncAttempt{})
}

// RecordAttempt persists one attempt.
func (r *SyncRepository) RecordAttempt(ctx context.Context, attempt *SyncAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(attempt).Error
}

// ListAttempts returns recent attempts, optionally filtered by SKU.
func (r *SyncRepository) ListAttempts(ctx context.Context, sku string, limit int) ([]SyncAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Model(&SyncAttempt{})
	if sku != "" {
		query = query.Where("sku = ?", sku)
	}
	var attempts []SyncAttempt
	err := query.Order("created_at DESC").Limit(limit).Find(&attempts).Error
	return attempts, err
}

// CountByState returns attempt counts grouped by terminal state.
func (r *SyncRepository) CountByState(ctx context.Context) (map[string]int64, error) {
	type row struct {
		State string
		N     int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&SyncAttempt{}).
		Select("state, count(*) as n").
		Group("state").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.State] = r.N
	}
	return counts, nil
}
