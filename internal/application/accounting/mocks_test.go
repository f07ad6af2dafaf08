package accounting

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// ---------------------------------------------------------------------------
// Adapter and collaborator mocks
// ---------------------------------------------------------------------------

// MockAdapter is a mock implementation of accounting.Adapter
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) ProviderType() accounting.ProviderType {
	return accounting.ProviderTypeGeneric
}

func (m *MockAdapter) TestConnection(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockAdapter) SyncPayment(ctx context.Context, payment *accounting.Payment) *accounting.SyncResult {
	args := m.Called(ctx, payment)
	return args.Get(0).(*accounting.SyncResult)
}

func (m *MockAdapter) SyncInvoice(ctx context.Context, invoice *accounting.Invoice) *accounting.SyncResult {
	args := m.Called(ctx, invoice)
	return args.Get(0).(*accounting.SyncResult)
}

func (m *MockAdapter) SyncExpense(ctx context.Context, expense *accounting.Expense) *accounting.SyncResult {
	args := m.Called(ctx, expense)
	return args.Get(0).(*accounting.SyncResult)
}

func (m *MockAdapter) HandleConflict(ctx context.Context, conflict *accounting.DataConflict) *accounting.Resolution {
	args := m.Called(ctx, conflict)
	return args.Get(0).(*accounting.Resolution)
}

func (m *MockAdapter) GetExternalData(ctx context.Context, entityType accounting.EntityType, externalID string) (map[string]any, error) {
	args := m.Called(ctx, entityType, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockAdapter) UpdateExternal(ctx context.Context, entity accounting.Entity, externalID string) error {
	args := m.Called(ctx, entity, externalID)
	return args.Error(0)
}

// MockEntityReader is a mock implementation of accounting.EntityReader
type MockEntityReader struct {
	mock.Mock
}

func (m *MockEntityReader) GetPayment(ctx context.Context, id string) (*accounting.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Payment), args.Error(1)
}

func (m *MockEntityReader) GetInvoice(ctx context.Context, id string) (*accounting.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Invoice), args.Error(1)
}

func (m *MockEntityReader) GetExpense(ctx context.Context, id string) (*accounting.Expense, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.Expense), args.Error(1)
}

// MockSystemConfigRepository is a mock implementation of accounting.SystemConfigRepository
type MockSystemConfigRepository struct {
	mock.Mock
}

func (m *MockSystemConfigRepository) FindActive(ctx context.Context) ([]accounting.AccountingSystemConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]accounting.AccountingSystemConfig), args.Error(1)
}

func (m *MockSystemConfigRepository) FindByID(ctx context.Context, systemID string) (*accounting.AccountingSystemConfig, error) {
	args := m.Called(ctx, systemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.AccountingSystemConfig), args.Error(1)
}

func (m *MockSystemConfigRepository) Save(ctx context.Context, config *accounting.AccountingSystemConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

// MockLocalWriter is a mock implementation of accounting.LocalWriter
type MockLocalWriter struct {
	mock.Mock
}

func (m *MockLocalWriter) ApplyExternalData(ctx context.Context, entityType accounting.EntityType, entityID string, data map[string]any) error {
	args := m.Called(ctx, entityType, entityID, data)
	return args.Error(0)
}

// stubBuilder returns preconfigured adapters by system id
type stubBuilder struct {
	adapters map[string]accounting.Adapter
}

func (b *stubBuilder) Build(sys *accounting.AccountingSystemConfig) (accounting.Adapter, error) {
	if sys.ProviderType != accounting.ProviderTypeGeneric && sys.ProviderType != accounting.ProviderTypeOmie {
		return nil, accounting.ErrUnknownProvider
	}
	adapter, ok := b.adapters[sys.ID]
	if !ok {
		return nil, accounting.ErrMissingCredentials
	}
	return adapter, nil
}

// ---------------------------------------------------------------------------
// In-memory sync record store
// ---------------------------------------------------------------------------

type memRecordRepo struct {
	mu        sync.Mutex
	records   map[string]accounting.SyncRecord
	upsertErr error
}

func newMemRecordRepo(records ...accounting.SyncRecord) *memRecordRepo {
	r := &memRecordRepo{records: make(map[string]accounting.SyncRecord)}
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		r.records[recordKey(rec.EntityType, rec.EntityID, rec.SystemID)] = rec
	}
	return r
}

func recordKey(entityType accounting.EntityType, entityID, systemID string) string {
	return string(entityType) + "|" + entityID + "|" + systemID
}

func (r *memRecordRepo) get(entityType accounting.EntityType, entityID, systemID string) (accounting.SyncRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordKey(entityType, entityID, systemID)]
	return rec, ok
}

func (r *memRecordRepo) sorted(keep func(accounting.SyncRecord) bool, limit int) []accounting.SyncRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]accounting.SyncRecord, 0)
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *memRecordRepo) FindByIdentity(ctx context.Context, entityType accounting.EntityType, entityID, systemID string) (*accounting.SyncRecord, error) {
	rec, ok := r.get(entityType, entityID, systemID)
	if !ok {
		return nil, accounting.ErrSyncRecordNotFound
	}
	return &rec, nil
}

func (r *memRecordRepo) FindByID(ctx context.Context, id uuid.UUID) (*accounting.SyncRecord, error) {
	found := r.sorted(func(rec accounting.SyncRecord) bool { return rec.ID == id }, 1)
	if len(found) == 0 {
		return nil, accounting.ErrSyncRecordNotFound
	}
	return &found[0], nil
}

func (r *memRecordRepo) Upsert(ctx context.Context, record *accounting.SyncRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.records[recordKey(record.EntityType, record.EntityID, record.SystemID)] = *record
	return nil
}

func (r *memRecordRepo) FindRetryable(ctx context.Context, now time.Time, maxRetries, limit int) ([]accounting.SyncRecord, error) {
	return r.sorted(func(rec accounting.SyncRecord) bool { return rec.IsRetryable(now, maxRetries) }, limit), nil
}

func (r *memRecordRepo) FindByStatus(ctx context.Context, status accounting.SyncStatus, limit int) ([]accounting.SyncRecord, error) {
	return r.sorted(func(rec accounting.SyncRecord) bool { return rec.Status == status }, limit), nil
}

func (r *memRecordRepo) List(ctx context.Context, filter accounting.SyncRecordFilter) ([]accounting.SyncRecord, error) {
	return r.sorted(func(rec accounting.SyncRecord) bool {
		return (filter.Status == "" || rec.Status == filter.Status) &&
			(filter.SystemID == "" || rec.SystemID == filter.SystemID)
	}, filter.Limit), nil
}

func (r *memRecordRepo) Count(ctx context.Context, filter accounting.SyncRecordFilter) (int64, error) {
	filter.Limit = 0
	records, _ := r.List(ctx, filter)
	return int64(len(records)), nil
}

func (r *memRecordRepo) FindStaleFailed(ctx context.Context, olderThan time.Time, offset, limit int) ([]accounting.SyncRecord, error) {
	stale := r.sorted(func(rec accounting.SyncRecord) bool {
		return rec.Status == accounting.SyncStatusFailed && rec.UpdatedAt.Before(olderThan)
	}, 0)
	if offset >= len(stale) {
		return []accounting.SyncRecord{}, nil
	}
	stale = stale[offset:]
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (r *memRecordRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, rec := range r.records {
		if rec.ID == id {
			delete(r.records, key)
			return nil
		}
	}
	return accounting.ErrSyncRecordNotFound
}
