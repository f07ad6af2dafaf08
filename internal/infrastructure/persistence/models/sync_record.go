package models

import (
	"time"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// SyncRecordModel is the persistence model of accounting.SyncRecord. The
// composite unique index is the concurrency guard for upserts.
type SyncRecordModel struct {
	BaseModel
	EntityType   string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_sync_records_identity,priority:1"`
	EntityID     string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_sync_records_identity,priority:2"`
	SystemID     string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_sync_records_identity,priority:3"`
	ExternalID   string     `gorm:"type:varchar(100)"`
	Status       string     `gorm:"type:varchar(20);not null;index:idx_sync_records_status"`
	LastSyncAt   *time.Time
	ErrorMessage string     `gorm:"type:text"`
	RetryCount   int        `gorm:"not null"`
	NextRetryAt  *time.Time `gorm:"index:idx_sync_records_next_retry"`
}

// TableName returns the table name for GORM
func (SyncRecordModel) TableName() string {
	return "accounting_sync_records"
}

// SyncRecordModelFromDomain converts a domain record to its model
func SyncRecordModelFromDomain(r *accounting.SyncRecord) *SyncRecordModel {
	return &SyncRecordModel{
		BaseModel: BaseModel{
			ID:        r.ID,
			CreatedAt: utc(r.CreatedAt),
			UpdatedAt: utc(r.UpdatedAt),
		},
		EntityType:   r.EntityType.String(),
		EntityID:     r.EntityID,
		SystemID:     r.SystemID,
		ExternalID:   r.ExternalID,
		Status:       r.Status.String(),
		LastSyncAt:   utcPtr(r.LastSyncAt),
		ErrorMessage: r.ErrorMessage,
		RetryCount:   r.RetryCount,
		NextRetryAt:  utcPtr(r.NextRetryAt),
	}
}

// ToDomain converts the model to a domain record
func (m *SyncRecordModel) ToDomain() *accounting.SyncRecord {
	return &accounting.SyncRecord{
		ID:           m.ID,
		EntityType:   accounting.EntityType(m.EntityType),
		EntityID:     m.EntityID,
		SystemID:     m.SystemID,
		ExternalID:   m.ExternalID,
		Status:       accounting.SyncStatus(m.Status),
		LastSyncAt:   m.LastSyncAt,
		ErrorMessage: m.ErrorMessage,
		RetryCount:   m.RetryCount,
		NextRetryAt:  m.NextRetryAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
