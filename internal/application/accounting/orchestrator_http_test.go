package accounting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/infrastructure/erp"
)

// booksServer records requests made to a generic REST provider
type booksServer struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]map[string]any
}

func (s *booksServer) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	s.requests = append(s.requests, key)
	if r.Body != nil && r.Method != http.MethodGet {
		var body map[string]any
		if json.NewDecoder(r.Body).Decode(&body) == nil {
			if s.bodies == nil {
				s.bodies = make(map[string]map[string]any)
			}
			s.bodies[key] = body
		}
	}
}

func (s *booksServer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *booksServer) body(key string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[key]
}

// newGenericFixture wires the orchestrator to a real generic REST adapter
// built by the provider factory against an httptest server
func newGenericFixture(t *testing.T, records *memRecordRepo, clock *time.Time, config OrchestratorConfig, handler http.HandlerFunc) (*SyncOrchestrator, *MockEntityReader) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	configs := new(MockSystemConfigRepository)
	configs.On("FindActive", mock.Anything).Return([]accounting.AccountingSystemConfig{{
		ID:           "books",
		ProviderType: accounting.ProviderTypeGeneric,
		IsActive:     true,
		Credentials:  map[string]string{"api_key": "test_api_key"},
		Settings: map[string]any{
			accounting.SettingBaseURL:            server.URL,
			accounting.SettingConflictResolution: "local_wins",
		},
	}}, nil)

	entities := new(MockEntityReader)
	orchestrator := NewSyncOrchestrator(
		configs, records, entities, erp.NewFactory(nil, zap.NewNop()),
		config, zap.NewNop(),
		WithClock(func() time.Time { return *clock }),
	)
	require.NoError(t, orchestrator.Initialize(context.Background()))
	return orchestrator, entities
}

func TestSyncOrchestrator_GenericProvider_SyncsMinorUnitPayment(t *testing.T) {
	clock := testNow
	books := &booksServer{}
	orchestrator, _ := newGenericFixture(t, newMemRecordRepo(), &clock, DefaultOrchestratorConfig(), func(w http.ResponseWriter, r *http.Request) {
		books.record(r)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ext-1"}`))
	})

	payment := testPayment("pay-1")
	payment.Amount = decimal.New(15000, -2)

	outcomes := orchestrator.SyncPayment(context.Background(), payment)

	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSynced, outcomes[0].Status)
	record := outcomes[0].Record
	assert.Equal(t, accounting.SyncStatusSuccess, record.Status)
	assert.Equal(t, "ext-1", record.ExternalID)
	assert.Equal(t, 0, record.RetryCount)
	assert.Nil(t, record.NextRetryAt)

	assert.Equal(t, []string{"POST /payments"}, books.seen())
	assert.Equal(t, "150.00", books.body("POST /payments")["amount"])
}

func TestSyncOrchestrator_GenericProvider_TimeoutThenRetrySucceeds(t *testing.T) {
	clock := testNow
	records := newMemRecordRepo()
	config := DefaultOrchestratorConfig()
	config.AdapterTimeout = 100 * time.Millisecond

	var calls atomic.Int32
	orchestrator, entities := newGenericFixture(t, records, &clock, config, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ext-1"}`))
	})

	payment := testPayment("pay-1")
	outcomes := orchestrator.SyncPayment(context.Background(), payment)

	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	record, ok := records.get(accounting.EntityTypePayment, "pay-1", "books")
	require.True(t, ok)
	assert.Equal(t, accounting.SyncStatusFailed, record.Status)
	assert.Equal(t, 0, record.RetryCount)
	require.NotNil(t, record.NextRetryAt)
	assert.Equal(t, testNow.Add(config.RetryPolicy.BaseDelay), *record.NextRetryAt)
	assert.Contains(t, record.ErrorMessage, "timed out")

	// not due yet
	report, err := orchestrator.RetryFailedSyncs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Examined)

	clock = testNow.Add(config.RetryPolicy.BaseDelay + time.Second)
	entities.On("GetPayment", mock.Anything, "pay-1").Return(payment, nil)

	report, err = orchestrator.RetryFailedSyncs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Examined: 1, Succeeded: 1}, report)

	record, _ = records.get(accounting.EntityTypePayment, "pay-1", "books")
	assert.Equal(t, accounting.SyncStatusSuccess, record.Status)
	assert.Equal(t, "ext-1", record.ExternalID)
	assert.Empty(t, record.ErrorMessage)
	assert.Nil(t, record.NextRetryAt)
}

func TestSyncOrchestrator_GenericProvider_LocalWinsUpdatesInPlace(t *testing.T) {
	tests := []struct {
		name       string
		putStatus  int
		wantStatus accounting.SyncStatus
		wantReport SweepReport
	}{
		{
			name:       "update accepted",
			putStatus:  http.StatusOK,
			wantStatus: accounting.SyncStatusSuccess,
			wantReport: SweepReport{Examined: 1, Succeeded: 1},
		},
		{
			name:       "update rejected as conflict",
			putStatus:  http.StatusConflict,
			wantStatus: accounting.SyncStatusConflict,
			wantReport: SweepReport{Examined: 1, Errors: 1},
		},
		{
			name:       "update fails on server",
			putStatus:  http.StatusInternalServerError,
			wantStatus: accounting.SyncStatusConflict,
			wantReport: SweepReport{Examined: 1, Errors: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testNow
			records := newMemRecordRepo(conflictRecord("pay-1"))
			books := &booksServer{}

			orchestrator, entities := newGenericFixture(t, records, &clock, DefaultOrchestratorConfig(), func(w http.ResponseWriter, r *http.Request) {
				books.record(r)
				switch r.Method {
				case http.MethodGet:
					_, _ = w.Write([]byte(`{"id":"ext-pay-1","amount":"150.00","description":"Other","date":"2024-05-01"}`))
				case http.MethodPut:
					w.WriteHeader(tt.putStatus)
					_, _ = w.Write([]byte(`{"id":"ext-pay-1"}`))
				default:
					w.WriteHeader(http.StatusCreated)
					_, _ = w.Write([]byte(`{"id":"ext-NEW"}`))
				}
			})
			entities.On("GetPayment", mock.Anything, "pay-1").Return(testPayment("pay-1"), nil)

			report, err := orchestrator.ResolveConflicts(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.wantReport, report)
			assert.Equal(t, []string{"GET /payments/ext-pay-1", "PUT /payments/ext-pay-1"}, books.seen())
			assert.Equal(t, "Consulting", books.body("PUT /payments/ext-pay-1")["description"])

			record, _ := records.get(accounting.EntityTypePayment, "pay-1", "books")
			assert.Equal(t, tt.wantStatus, record.Status)
			assert.Equal(t, "ext-pay-1", record.ExternalID)
		})
	}
}
