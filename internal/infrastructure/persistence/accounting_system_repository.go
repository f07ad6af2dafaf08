package persistence

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/infrastructure/persistence/models"
)

// GormAccountingSystemRepository implements accounting.SystemConfigRepository
type GormAccountingSystemRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormAccountingSystemRepository creates a new GormAccountingSystemRepository
func NewGormAccountingSystemRepository(db *gorm.DB, logger *zap.Logger) *GormAccountingSystemRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormAccountingSystemRepository{db: db, logger: logger}
}

// FindActive returns every active system ordered by id. Rows with malformed
// credentials or settings are logged and left out.
func (r *GormAccountingSystemRepository) FindActive(ctx context.Context) ([]accounting.AccountingSystemConfig, error) {
	var rows []models.AccountingSystemModel
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	configs := make([]accounting.AccountingSystemConfig, 0, len(rows))
	for i := range rows {
		cfg, err := rows[i].ToDomain()
		if err != nil {
			r.logger.Warn("Skipping malformed accounting system", zap.String("system_id", rows[i].ID), zap.Error(err))
			continue
		}
		configs = append(configs, *cfg)
	}
	return configs, nil
}

// FindByID returns one system, active or not
func (r *GormAccountingSystemRepository) FindByID(ctx context.Context, systemID string) (*accounting.AccountingSystemConfig, error) {
	var model models.AccountingSystemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", systemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accounting.ErrSystemNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// Save inserts or replaces a system
func (r *GormAccountingSystemRepository) Save(ctx context.Context, config *accounting.AccountingSystemConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	now := time.Now()
	if config.CreatedAt.IsZero() {
		config.CreatedAt = now
	}
	config.UpdatedAt = now

	model, err := models.AccountingSystemModelFromDomain(config)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "provider_type", "credentials", "settings", "is_active", "updated_at"}),
		}).
		Create(model).Error
}

var _ accounting.SystemConfigRepository = (*GormAccountingSystemRepository)(nil)
