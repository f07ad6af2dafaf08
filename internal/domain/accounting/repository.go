package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Adapter is the port every external accounting system implements.
// Sync operations never return errors: validation, transport and provider
// failures are all reported through an unsuccessful SyncResult.
type Adapter interface {
	// ProviderType identifies the adapter implementation
	ProviderType() ProviderType
	// TestConnection reports whether the external system is reachable
	TestConnection(ctx context.Context) bool
	SyncPayment(ctx context.Context, payment *Payment) *SyncResult
	SyncInvoice(ctx context.Context, invoice *Invoice) *SyncResult
	SyncExpense(ctx context.Context, expense *Expense) *SyncResult
	// HandleConflict decides how a detected conflict must be resolved
	HandleConflict(ctx context.Context, conflict *DataConflict) *Resolution
	// GetExternalData fetches the external copy of an entity, normalized to
	// the ConflictFields keys plus any provider-specific extras
	GetExternalData(ctx context.Context, entityType EntityType, externalID string) (map[string]any, error)
	// UpdateExternal overwrites the existing external record with the local
	// entity. The external id never changes.
	UpdateExternal(ctx context.Context, entity Entity, externalID string) error
}

// SyncRecordFilter narrows sync record queries
type SyncRecordFilter struct {
	EntityType EntityType
	EntityID   string
	SystemID   string
	Status     SyncStatus
	// OrderBy is a column name; stores fall back to updated_at for unknown ones
	OrderBy  string
	OrderDir string
	Limit    int
	Offset   int
}

// SyncRecordRepository is the durable sync status store
type SyncRecordRepository interface {
	// FindByIdentity returns ErrSyncRecordNotFound when no record exists
	FindByIdentity(ctx context.Context, entityType EntityType, entityID, systemID string) (*SyncRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*SyncRecord, error)
	// Upsert atomically inserts or updates by (entity type, entity id, system id)
	Upsert(ctx context.Context, record *SyncRecord) error
	// FindRetryable returns failed records with retry_count < maxRetries whose
	// next retry is unset or due at now
	FindRetryable(ctx context.Context, now time.Time, maxRetries, limit int) ([]SyncRecord, error)
	FindByStatus(ctx context.Context, status SyncStatus, limit int) ([]SyncRecord, error)
	List(ctx context.Context, filter SyncRecordFilter) ([]SyncRecord, error)
	Count(ctx context.Context, filter SyncRecordFilter) (int64, error)
	// FindStaleFailed pages through failed records not touched since
	// olderThan, oldest first with the id as tie-breaker
	FindStaleFailed(ctx context.Context, olderThan time.Time, offset, limit int) ([]SyncRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SystemConfigRepository loads registered accounting systems
type SystemConfigRepository interface {
	FindActive(ctx context.Context) ([]AccountingSystemConfig, error)
	FindByID(ctx context.Context, systemID string) (*AccountingSystemConfig, error)
	Save(ctx context.Context, config *AccountingSystemConfig) error
}

// EntityReader looks local entities up by id. Implementations return
// ErrEntityNotFound when the entity no longer exists.
type EntityReader interface {
	GetPayment(ctx context.Context, id string) (*Payment, error)
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	GetExpense(ctx context.Context, id string) (*Expense, error)
}

// LocalWriter applies external data to a local entity when a conflict is
// resolved in favour of the external system
type LocalWriter interface {
	ApplyExternalData(ctx context.Context, entityType EntityType, entityID string, data map[string]any) error
}
