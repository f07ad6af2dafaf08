package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/domain/shared"
	"github.com/erp/acctsync/internal/infrastructure/auth"
	"github.com/erp/acctsync/internal/interfaces/http/dto"
	"github.com/erp/acctsync/internal/interfaces/http/middleware"
)

// EventHandler accepts sync trigger events pushed by the business system
type EventHandler struct {
	BaseHandler
	publisher shared.EventPublisher
}

// NewEventHandler creates an EventHandler publishing to publisher
func NewEventHandler(publisher shared.EventPublisher, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{BaseHandler: BaseHandler{logger: logger}, publisher: publisher}
}

// RegisterRoutes mounts POST /accounting/events behind the write scope
func (h *EventHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/accounting/events", middleware.RequireScope(auth.ScopeWrite), h.Ingest)
}

// Ingest publishes one trigger event. Adapter failures are recorded on the
// sync records and still answer 202; a handler error (e.g. the entity could
// not be loaded) answers 5xx so the sender delivers the event again.
func (h *EventHandler) Ingest(c *gin.Context) {
	var req dto.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	evt, err := accounting.RecordedSyncTrigger(uuid.MustParse(req.EventID), req.EventType, req.EntityID, req.OccurredAt)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.publisher.Publish(c.Request.Context(), evt); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, dto.IngestEventResponse{EventID: req.EventID})
}
