package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// OrphanCleaner deletes failed sync records whose local entity is gone.
// The sweeps never delete records; purging is an explicit operator or
// scheduled action.
type OrphanCleaner struct {
	records   accounting.SyncRecordRepository
	entities  accounting.EntityReader
	retention time.Duration
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrphanCleaner creates a cleaner. Records untouched for retention are
// candidates.
func NewOrphanCleaner(records accounting.SyncRecordRepository, entities accounting.EntityReader, retention time.Duration, batchSize int, logger *zap.Logger) *OrphanCleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OrphanCleaner{
		records:   records,
		entities:  entities,
		retention: retention,
		batchSize: batchSize,
		logger:    logger.Named("orphan_cleaner"),
		now:       time.Now,
	}
}

// PurgeExpired purges orphans older than the configured retention
func (c *OrphanCleaner) PurgeExpired(ctx context.Context) (int, error) {
	return c.Purge(ctx, c.now().Add(-c.retention))
}

// Purge deletes failed records not updated since olderThan whose entity no
// longer exists. Records whose entity still exists are kept. Candidates are
// read a batch at a time until every stale record was examined.
func (c *OrphanCleaner) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	purged, offset := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		candidates, err := c.records.FindStaleFailed(ctx, olderThan, offset, c.batchSize)
		if err != nil {
			return purged, fmt.Errorf("accounting: load orphan candidates: %w", err)
		}

		kept := 0
		for i := range candidates {
			deleted, err := c.purgeIfOrphaned(ctx, &candidates[i])
			if err != nil {
				return purged, err
			}
			if deleted {
				purged++
			} else {
				kept++
			}
		}

		// deleted rows leave the result set, so only kept rows move the page
		offset += kept
		if len(candidates) < c.batchSize {
			return purged, nil
		}
	}
}

func (c *OrphanCleaner) purgeIfOrphaned(ctx context.Context, record *accounting.SyncRecord) (bool, error) {
	_, err := loadEntity(ctx, c.entities, record.EntityType, record.EntityID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, accounting.ErrEntityNotFound):
		c.logger.Warn("Could not check entity, keeping record",
			zap.String("record_id", record.ID.String()),
			zap.Error(err),
		)
		return false, nil
	}

	if err := c.records.Delete(ctx, record.ID); err != nil {
		return false, fmt.Errorf("accounting: delete orphan %s: %w", record.ID, err)
	}
	c.logger.Info("Purged orphaned sync record",
		zap.String("record_id", record.ID.String()),
		zap.String("entity_type", record.EntityType.String()),
		zap.String("entity_id", record.EntityID),
		zap.String("system_id", record.SystemID),
	)
	return true, nil
}
