package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	appaccounting "github.com/erp/acctsync/internal/application/accounting"
	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/infrastructure/scheduler"
)

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) SyncEntity(ctx context.Context, entityType accounting.EntityType, entityID string) ([]appaccounting.SyncOutcome, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appaccounting.SyncOutcome), args.Error(1)
}

func (m *MockSyncService) TestAllConnections(ctx context.Context) map[string]bool {
	args := m.Called(ctx)
	return args.Get(0).(map[string]bool)
}

func (m *MockSyncService) MarkConflict(ctx context.Context, entityType accounting.EntityType, entityID, systemID, externalID, reason string) (*accounting.SyncRecord, error) {
	args := m.Called(ctx, entityType, entityID, systemID, externalID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.SyncRecord), args.Error(1)
}

func (m *MockSyncService) GetRecord(ctx context.Context, id uuid.UUID) (*accounting.SyncRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accounting.SyncRecord), args.Error(1)
}

func (m *MockSyncService) ListRecords(ctx context.Context, filter accounting.SyncRecordFilter) ([]accounting.SyncRecord, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]accounting.SyncRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockSyncService) CountByStatus(ctx context.Context, filter accounting.SyncRecordFilter) (map[accounting.SyncStatus]int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[accounting.SyncStatus]int64), args.Error(1)
}

type MockSweepRunner struct {
	mock.Mock
}

func (m *MockSweepRunner) RunNow(ctx context.Context, name string) (scheduler.Run, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(scheduler.Run), args.Error(1)
}

func (m *MockSweepRunner) History() []scheduler.Run {
	args := m.Called()
	return args.Get(0).([]scheduler.Run)
}

type MockOrphanPurger struct {
	mock.Mock
}

func (m *MockOrphanPurger) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *MockOrphanPurger) PurgeExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
