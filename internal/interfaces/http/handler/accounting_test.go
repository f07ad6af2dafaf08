package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appaccounting "github.com/erp/acctsync/internal/application/accounting"
	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/infrastructure/auth"
	"github.com/erp/acctsync/internal/infrastructure/scheduler"
	"github.com/erp/acctsync/internal/interfaces/http/dto"
	"github.com/erp/acctsync/internal/interfaces/http/middleware"
)

var handlerNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type handlerFixture struct {
	router *gin.Engine
	sync   *MockSyncService
	sweeps *MockSweepRunner
	purger *MockOrphanPurger
}

// newHandlerFixture authenticates every request with the given scopes
func newHandlerFixture(t *testing.T, scopes ...string) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	f := &handlerFixture{
		sync:   new(MockSyncService),
		sweeps: new(MockSweepRunner),
		purger: new(MockOrphanPurger),
	}
	h := NewAccountingHandler(f.sync, f.sweeps, f.purger, zap.NewNop())
	h.nowFn = func() time.Time { return handlerNow }

	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-1")
		c.Set(middleware.JWTClaimsKey, &auth.Claims{Scopes: scopes})
		c.Set(middleware.JWTSubjectKey, "ops")
		c.Next()
	})
	h.RegisterRoutes(f.router.Group("/api/v1"))

	t.Cleanup(func() {
		f.sync.AssertExpectations(t)
		f.sweeps.AssertExpectations(t)
		f.purger.AssertExpectations(t)
	})
	return f
}

func (f *handlerFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func sampleRecord(status accounting.SyncStatus) *accounting.SyncRecord {
	return &accounting.SyncRecord{
		ID:         uuid.New(),
		EntityType: accounting.EntityTypePayment,
		EntityID:   "pay-1",
		SystemID:   "books",
		ExternalID: "ext-9",
		Status:     status,
		CreatedAt:  handlerNow,
		UpdatedAt:  handlerNow,
	}
}

func TestAccountingHandler_ListSyncRecords(t *testing.T) {
	f := newHandlerFixture(t, auth.ScopeRead)

	want := accounting.SyncRecordFilter{
		SystemID: "books",
		Status:   accounting.SyncStatusFailed,
		OrderBy:  "retry_count",
		OrderDir: "desc",
		Limit:    dto.DefaultListLimit,
		Offset:   10,
	}
	f.sync.On("ListRecords", mock.Anything, want).
		Return([]accounting.SyncRecord{*sampleRecord(accounting.SyncStatusFailed)}, int64(11), nil)

	w := f.do(http.MethodGet, "/api/v1/accounting/sync-records?system_id=books&status=failed&order_by=retry_count&order_dir=desc&offset=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var records []dto.SyncRecordResponse
	env := decode(t, w, &records)
	assert.True(t, env.Success)
	require.Len(t, records, 1)
	assert.Equal(t, "failed", records[0].Status)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(11), env.Meta.Total)
	assert.Equal(t, dto.DefaultListLimit, env.Meta.Limit)
}

func TestAccountingHandler_ListSyncRecords_InvalidQuery(t *testing.T) {
	f := newHandlerFixture(t, auth.ScopeRead)

	w := f.do(http.MethodGet, "/api/v1/accounting/sync-records?status=lost&order_by=amount", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	env := decode(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	assert.Len(t, env.Error.Details, 2)
}

func TestAccountingHandler_GetStatusSummary(t *testing.T) {
	f := newHandlerFixture(t, auth.ScopeRead)

	f.sync.On("CountByStatus", mock.Anything, mock.MatchedBy(func(filter accounting.SyncRecordFilter) bool {
		return filter.EntityType == accounting.EntityTypeInvoice
	})).Return(map[accounting.SyncStatus]int64{
		accounting.SyncStatusPending:  1,
		accounting.SyncStatusSuccess:  7,
		accounting.SyncStatusFailed:   2,
		accounting.SyncStatusConflict: 0,
	}, nil)

	w := f.do(http.MethodGet, "/api/v1/accounting/sync-records/summary?entity_type=invoice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary dto.StatusSummaryResponse
	decode(t, w, &summary)
	assert.Equal(t, int64(10), summary.Total)
	assert.Equal(t, int64(7), summary.ByStatus["success"])
}

func TestAccountingHandler_GetSyncRecord(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeRead)
		record := sampleRecord(accounting.SyncStatusSuccess)
		f.sync.On("GetRecord", mock.Anything, record.ID).Return(record, nil)

		w := f.do(http.MethodGet, "/api/v1/accounting/sync-records/"+record.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.SyncRecordResponse
		decode(t, w, &resp)
		assert.Equal(t, record.ID.String(), resp.ID)
		assert.Equal(t, "ext-9", resp.ExternalID)
	})

	t.Run("not found", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeRead)
		id := uuid.New()
		f.sync.On("GetRecord", mock.Anything, id).Return(nil, accounting.ErrSyncRecordNotFound)

		w := f.do(http.MethodGet, "/api/v1/accounting/sync-records/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeNotFound, env.Error.Code)
		assert.Equal(t, "req-1", env.Error.RequestID)
	})

	t.Run("malformed id", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeRead)
		w := f.do(http.MethodGet, "/api/v1/accounting/sync-records/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAccountingHandler_TriggerSync(t *testing.T) {
	t.Run("returns one outcome per system", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeWrite)
		record := sampleRecord(accounting.SyncStatusSuccess)
		f.sync.On("SyncEntity", mock.Anything, accounting.EntityTypePayment, "pay-1").Return([]appaccounting.SyncOutcome{
			{SystemID: "books", Status: appaccounting.OutcomeSynced, Record: record},
			{SystemID: "omie", Status: appaccounting.OutcomeFailed, Error: "HTTP 503"},
		}, nil)

		w := f.do(http.MethodPost, "/api/v1/accounting/sync", dto.TriggerSyncRequest{EntityType: "payment", EntityID: "pay-1"})
		require.Equal(t, http.StatusOK, w.Code)

		var outcomes []dto.SyncOutcomeResponse
		decode(t, w, &outcomes)
		require.Len(t, outcomes, 2)
		assert.Equal(t, "synced", outcomes[0].Status)
		require.NotNil(t, outcomes[0].Record)
		assert.Equal(t, "HTTP 503", outcomes[1].Error)
		assert.Nil(t, outcomes[1].Record)
	})

	t.Run("unknown entity", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeWrite)
		f.sync.On("SyncEntity", mock.Anything, accounting.EntityTypeExpense, "exp-404").
			Return(nil, accounting.ErrEntityNotFound)

		w := f.do(http.MethodPost, "/api/v1/accounting/sync", dto.TriggerSyncRequest{EntityType: "expense", EntityID: "exp-404"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects unknown entity type", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeWrite)
		w := f.do(http.MethodPost, "/api/v1/accounting/sync", map[string]string{"entity_type": "refund", "entity_id": "r-1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("read scope is not enough", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeRead)
		w := f.do(http.MethodPost, "/api/v1/accounting/sync", dto.TriggerSyncRequest{EntityType: "payment", EntityID: "pay-1"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAccountingHandler_MarkConflict(t *testing.T) {
	t.Run("marks record", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeWrite)
		record := sampleRecord(accounting.SyncStatusConflict)
		f.sync.On("MarkConflict", mock.Anything, accounting.EntityTypePayment, "pay-1", "books", "ext-9", "amount differs").
			Return(record, nil)

		w := f.do(http.MethodPost, "/api/v1/accounting/sync-records/conflict", dto.MarkConflictRequest{
			EntityType: "payment", EntityID: "pay-1", SystemID: "books", ExternalID: "ext-9", Reason: "amount differs",
		})
		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.SyncRecordResponse
		decode(t, w, &resp)
		assert.Equal(t, "conflict", resp.Status)
	})

	t.Run("no external id known", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeWrite)
		f.sync.On("MarkConflict", mock.Anything, accounting.EntityTypePayment, "pay-2", "books", "", "dup").
			Return(nil, accounting.ErrInvalidStatusChange)

		w := f.do(http.MethodPost, "/api/v1/accounting/sync-records/conflict", dto.MarkConflictRequest{
			EntityType: "payment", EntityID: "pay-2", SystemID: "books", Reason: "dup",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeInvalidState, env.Error.Code)
	})
}

func TestAccountingHandler_Sweeps(t *testing.T) {
	t.Run("retry sweep runs the retry task", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeWrite)
		f.sweeps.On("RunNow", mock.Anything, scheduler.TaskRetryFailed).Return(scheduler.Run{
			Task: scheduler.TaskRetryFailed, Status: scheduler.RunStatusSuccess, Processed: 4,
		}, nil)

		w := f.do(http.MethodPost, "/api/v1/accounting/sweeps/retry", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var run scheduler.Run
		decode(t, w, &run)
		assert.Equal(t, 4, run.Processed)
	})

	t.Run("sweep held elsewhere", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeWrite)
		f.sweeps.On("RunNow", mock.Anything, scheduler.TaskResolveConflicts).
			Return(scheduler.Run{Status: scheduler.RunStatusSkipped}, scheduler.ErrSweepInProgress)

		w := f.do(http.MethodPost, "/api/v1/accounting/sweeps/conflicts", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		env := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeSweepInProgress, env.Error.Code)
	})

	t.Run("failed sweep hides the cause", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeWrite)
		f.sweeps.On("RunNow", mock.Anything, scheduler.TaskRetryFailed).
			Return(scheduler.Run{Status: scheduler.RunStatusFailed}, errors.New("db down"))

		w := f.do(http.MethodPost, "/api/v1/accounting/sweeps/retry", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})

	t.Run("history", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeRead)
		f.sweeps.On("History").Return([]scheduler.Run{
			{Task: scheduler.TaskResolveConflicts}, {Task: scheduler.TaskRetryFailed},
		})

		w := f.do(http.MethodGet, "/api/v1/accounting/sweeps/history", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var runs []scheduler.Run
		decode(t, w, &runs)
		assert.Len(t, runs, 2)
	})
}

func TestAccountingHandler_TestConnections(t *testing.T) {
	f := newHandlerFixture(t, auth.ScopeWrite)
	f.sync.On("TestAllConnections", mock.Anything).Return(map[string]bool{"omie": false, "books": true})

	w := f.do(http.MethodPost, "/api/v1/accounting/connections/test", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []dto.ConnectionStatusResponse
	decode(t, w, &resp)
	assert.Equal(t, []dto.ConnectionStatusResponse{
		{SystemID: "books", Connected: true},
		{SystemID: "omie", Connected: false},
	}, resp)
}

func TestAccountingHandler_PurgeOrphans(t *testing.T) {
	t.Run("configured retention", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeWrite)
		f.purger.On("PurgeExpired", mock.Anything).Return(3, nil)

		w := f.do(http.MethodPost, "/api/v1/accounting/orphans/purge", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.PurgeOrphansResponse
		decode(t, w, &resp)
		assert.Equal(t, 3, resp.Deleted)
	})

	t.Run("explicit age", func(t *testing.T) {
		f := newHandlerFixture(t, auth.ScopeWrite)
		f.purger.On("Purge", mock.Anything, handlerNow.Add(-48*time.Hour)).Return(1, nil)

		w := f.do(http.MethodPost, "/api/v1/accounting/orphans/purge", dto.PurgeOrphansRequest{OlderThanHours: 48})
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		h := NewAccountingHandler(new(MockSyncService), new(MockSweepRunner), nil, nil)
		r := gin.New()
		r.POST("/purge", h.PurgeOrphans)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/purge", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
