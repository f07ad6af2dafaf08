package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/infrastructure/persistence/models"
)

// identityColumns is the conflict target of the sync record upsert
var identityColumns = []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}, {Name: "system_id"}}

// GormSyncRecordRepository implements accounting.SyncRecordRepository using GORM
type GormSyncRecordRepository struct {
	db *gorm.DB
}

// NewGormSyncRecordRepository creates a new GormSyncRecordRepository
func NewGormSyncRecordRepository(db *gorm.DB) *GormSyncRecordRepository {
	return &GormSyncRecordRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormSyncRecordRepository) WithTx(tx *gorm.DB) *GormSyncRecordRepository {
	return &GormSyncRecordRepository{db: tx}
}

// FindByIdentity finds the record of one entity in one system
func (r *GormSyncRecordRepository) FindByIdentity(ctx context.Context, entityType accounting.EntityType, entityID, systemID string) (*accounting.SyncRecord, error) {
	var model models.SyncRecordModel
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ? AND system_id = ?", entityType.String(), entityID, systemID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accounting.ErrSyncRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a record by id
func (r *GormSyncRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*accounting.SyncRecord, error) {
	var model models.SyncRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accounting.ErrSyncRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert inserts the record or updates the row holding the same identity.
// When another writer created the row first, the record takes over its id.
func (r *GormSyncRecordRepository) Upsert(ctx context.Context, record *accounting.SyncRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}

	model := models.SyncRecordModelFromDomain(record)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: identityColumns,
			DoUpdates: clause.AssignmentColumns([]string{
				"external_id",
				"status",
				"last_sync_at",
				"error_message",
				"retry_count",
				"next_retry_at",
				"updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("upsert sync record: %w", err)
	}

	var stored models.SyncRecordModel
	err = r.db.WithContext(ctx).
		Select("id", "created_at").
		Where("entity_type = ? AND entity_id = ? AND system_id = ?", model.EntityType, model.EntityID, model.SystemID).
		First(&stored).Error
	if err != nil {
		return fmt.Errorf("reload sync record id: %w", err)
	}
	record.ID = stored.ID
	record.CreatedAt = stored.CreatedAt
	return nil
}

// FindRetryable returns failed records still under the retry budget whose
// backoff has elapsed, oldest first
func (r *GormSyncRecordRepository) FindRetryable(ctx context.Context, now time.Time, maxRetries, limit int) ([]accounting.SyncRecord, error) {
	var rows []models.SyncRecordModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < ?", accounting.SyncStatusFailed.String(), maxRetries).
		Where("(next_retry_at IS NULL OR next_retry_at <= ?)", now.UTC()).
		Order("updated_at ASC").
		Scopes(limitRows(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

// FindByStatus returns records in the given status, oldest first
func (r *GormSyncRecordRepository) FindByStatus(ctx context.Context, status accounting.SyncStatus, limit int) ([]accounting.SyncRecord, error) {
	var rows []models.SyncRecordModel
	err := r.db.WithContext(ctx).
		Where("status = ?", status.String()).
		Order("updated_at ASC").
		Scopes(limitRows(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

// List returns a filtered page of records
func (r *GormSyncRecordRepository) List(ctx context.Context, filter accounting.SyncRecordFilter) ([]accounting.SyncRecord, error) {
	orderBy := ValidateSortField(filter.OrderBy, SyncRecordSortFields, "updated_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.SyncRecordModel{}), filter).
		Order(fmt.Sprintf("%s %s", orderBy, orderDir))
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []models.SyncRecordModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

// Count counts the records matching the filter, ignoring paging
func (r *GormSyncRecordRepository) Count(ctx context.Context, filter accounting.SyncRecordFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.SyncRecordModel{}), filter).
		Count(&count).Error
	return count, err
}

// FindStaleFailed returns one page of failed records not updated since olderThan
func (r *GormSyncRecordRepository) FindStaleFailed(ctx context.Context, olderThan time.Time, offset, limit int) ([]accounting.SyncRecord, error) {
	var rows []models.SyncRecordModel
	query := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", accounting.SyncStatusFailed.String(), olderThan.UTC()).
		Order("updated_at ASC").
		Order("id ASC").
		Scopes(limitRows(limit))
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

// Delete removes a record by id
func (r *GormSyncRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.SyncRecordModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return accounting.ErrSyncRecordNotFound
	}
	return nil
}

func (r *GormSyncRecordRepository) applyFilter(query *gorm.DB, filter accounting.SyncRecordFilter) *gorm.DB {
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType.String())
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.SystemID != "" {
		query = query.Where("system_id = ?", filter.SystemID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status.String())
	}
	return query
}

// limitRows applies a LIMIT only for positive values
func limitRows(limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit > 0 {
			return db.Limit(limit)
		}
		return db
	}
}

func toDomainRecords(rows []models.SyncRecordModel) []accounting.SyncRecord {
	records := make([]accounting.SyncRecord, 0, len(rows))
	for i := range rows {
		records = append(records, *rows[i].ToDomain())
	}
	return records
}

var _ accounting.SyncRecordRepository = (*GormSyncRecordRepository)(nil)
