package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appaccounting "github.com/erp/acctsync/internal/application/accounting"
	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/infrastructure/auth"
	"github.com/erp/acctsync/internal/infrastructure/scheduler"
	"github.com/erp/acctsync/internal/interfaces/http/dto"
	"github.com/erp/acctsync/internal/interfaces/http/middleware"
)

// SyncService is the part of the sync orchestrator the API drives
type SyncService interface {
	SyncEntity(ctx context.Context, entityType accounting.EntityType, entityID string) ([]appaccounting.SyncOutcome, error)
	TestAllConnections(ctx context.Context) map[string]bool
	MarkConflict(ctx context.Context, entityType accounting.EntityType, entityID, systemID, externalID, reason string) (*accounting.SyncRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*accounting.SyncRecord, error)
	ListRecords(ctx context.Context, filter accounting.SyncRecordFilter) ([]accounting.SyncRecord, int64, error)
	CountByStatus(ctx context.Context, filter accounting.SyncRecordFilter) (map[accounting.SyncStatus]int64, error)
}

// SweepRunner runs sweep tasks on demand under the same lock as the schedule
type SweepRunner interface {
	RunNow(ctx context.Context, name string) (scheduler.Run, error)
	History() []scheduler.Run
}

// OrphanPurger deletes failed records whose local entity is gone
type OrphanPurger interface {
	Purge(ctx context.Context, olderThan time.Time) (int, error)
	PurgeExpired(ctx context.Context) (int, error)
}

var _ SyncService = (*appaccounting.SyncOrchestrator)(nil)
var _ SweepRunner = (*scheduler.SweepScheduler)(nil)
var _ OrphanPurger = (*appaccounting.OrphanCleaner)(nil)

// AccountingHandler serves the sync status and sync control endpoints
type AccountingHandler struct {
	BaseHandler
	sync   SyncService
	sweeps SweepRunner
	purger OrphanPurger
	nowFn  func() time.Time
}

// NewAccountingHandler creates an AccountingHandler. purger may be nil when
// orphan cleanup is not configured.
func NewAccountingHandler(sync SyncService, sweeps SweepRunner, purger OrphanPurger, logger *zap.Logger) *AccountingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountingHandler{
		BaseHandler: BaseHandler{logger: logger},
		sync:        sync,
		sweeps:      sweeps,
		purger:      purger,
		nowFn:       time.Now,
	}
}

// RegisterRoutes mounts the handler under rg. Reads need the read scope and
// everything that changes state needs the write scope.
func (h *AccountingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/accounting")

	read := g.Group("", middleware.RequireScope(auth.ScopeRead))
	read.GET("/sync-records", h.ListSyncRecords)
	read.GET("/sync-records/summary", h.GetStatusSummary)
	read.GET("/sync-records/:id", h.GetSyncRecord)
	read.GET("/sweeps/history", h.GetSweepHistory)

	write := g.Group("", middleware.RequireScope(auth.ScopeWrite))
	write.POST("/sync", h.TriggerSync)
	write.POST("/sync-records/conflict", h.MarkConflict)
	write.POST("/sweeps/retry", h.RunRetrySweep)
	write.POST("/sweeps/conflicts", h.RunConflictSweep)
	write.POST("/connections/test", h.TestConnections)
	write.POST("/orphans/purge", h.PurgeOrphans)
}

// ListSyncRecords returns a filtered page of sync records
func (h *AccountingHandler) ListSyncRecords(c *gin.Context) {
	var query dto.ListSyncRecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := query.Filter()
	records, total, err := h.sync.ListRecords(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ToSyncRecordResponses(records), total, filter.Limit, filter.Offset)
}

// GetStatusSummary counts records per status. entity_type and system_id
// narrow the count; status, paging and ordering are ignored.
func (h *AccountingHandler) GetStatusSummary(c *gin.Context) {
	var query dto.ListSyncRecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	counts, err := h.sync.CountByStatus(c.Request.Context(), query.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.StatusSummaryResponse{ByStatus: make(map[string]int64, len(counts))}
	for status, n := range counts {
		resp.ByStatus[status.String()] = n
		resp.Total += n
	}
	h.Success(c, resp)
}

// GetSyncRecord returns one sync record by id
func (h *AccountingHandler) GetSyncRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid sync record id")
		return
	}

	record, err := h.sync.GetRecord(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToSyncRecordResponse(record))
}

// TriggerSync pushes one local entity to every registered system now
func (h *AccountingHandler) TriggerSync(c *gin.Context) {
	var req dto.TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	outcomes, err := h.sync.SyncEntity(c.Request.Context(), accounting.EntityType(req.EntityType), req.EntityID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Manual sync triggered",
		zap.String("entity_type", req.EntityType),
		zap.String("entity_id", req.EntityID),
		zap.String("operator", middleware.GetJWTSubject(c)),
		zap.Int("systems", len(outcomes)),
	)
	h.Success(c, dto.ToSyncOutcomeResponses(outcomes))
}

// MarkConflict flags one (entity, system) pair as conflicting so the
// conflict sweep picks it up
func (h *AccountingHandler) MarkConflict(c *gin.Context) {
	var req dto.MarkConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	record, err := h.sync.MarkConflict(c.Request.Context(),
		accounting.EntityType(req.EntityType), req.EntityID, req.SystemID, req.ExternalID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Sync record marked as conflict",
		zap.String("record_id", record.ID.String()),
		zap.String("system_id", req.SystemID),
		zap.String("operator", middleware.GetJWTSubject(c)),
	)
	h.Success(c, dto.ToSyncRecordResponse(record))
}

// RunRetrySweep runs the failed-sync retry sweep now
func (h *AccountingHandler) RunRetrySweep(c *gin.Context) {
	h.runSweep(c, scheduler.TaskRetryFailed)
}

// RunConflictSweep runs the conflict resolution sweep now
func (h *AccountingHandler) RunConflictSweep(c *gin.Context) {
	h.runSweep(c, scheduler.TaskResolveConflicts)
}

func (h *AccountingHandler) runSweep(c *gin.Context, task string) {
	run, err := h.sweeps.RunNow(c.Request.Context(), task)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, run)
}

// GetSweepHistory returns recent sweep runs, newest first
func (h *AccountingHandler) GetSweepHistory(c *gin.Context) {
	h.Success(c, h.sweeps.History())
}

// TestConnections checks every registered system
func (h *AccountingHandler) TestConnections(c *gin.Context) {
	results := h.sync.TestAllConnections(c.Request.Context())

	resp := make([]dto.ConnectionStatusResponse, 0, len(results))
	for id, ok := range results {
		resp = append(resp, dto.ConnectionStatusResponse{SystemID: id, Connected: ok})
	}
	sort.Slice(resp, func(i, j int) bool { return resp[i].SystemID < resp[j].SystemID })
	h.Success(c, resp)
}

// PurgeOrphans deletes failed records whose local entity no longer exists.
// older_than_hours overrides the configured retention.
func (h *AccountingHandler) PurgeOrphans(c *gin.Context) {
	if h.purger == nil {
		h.NotFound(c, "Orphan cleanup is not configured")
		return
	}

	var req dto.PurgeOrphansRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	var (
		deleted int
		err     error
	)
	if req.OlderThanHours > 0 {
		deleted, err = h.purger.Purge(c.Request.Context(), h.nowFn().Add(-time.Duration(req.OlderThanHours)*time.Hour))
	} else {
		deleted, err = h.purger.PurgeExpired(c.Request.Context())
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Orphaned sync records purged",
		zap.Int("deleted", deleted),
		zap.String("operator", middleware.GetJWTSubject(c)),
	)
	h.Success(c, dto.PurgeOrphansResponse{Deleted: deleted})
}
