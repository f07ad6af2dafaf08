// Package handler implements the operator API of the accounting sync service.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/infrastructure/scheduler"
	"github.com/erp/acctsync/internal/interfaces/http/dto"
	"github.com/erp/acctsync/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	logger *zap.Logger
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, limit, offset int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, limit, offset))
}

// Accepted sends a 202 response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps service errors onto API error codes. Unknown errors are
// logged and reported as internal errors without their message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var validation *accounting.ValidationError
	switch {
	case errors.Is(err, accounting.ErrSyncRecordNotFound):
		h.NotFound(c, "Sync record not found")
	case errors.Is(err, accounting.ErrEntityNotFound):
		h.NotFound(c, "Entity not found")
	case errors.Is(err, scheduler.ErrTaskNotFound):
		h.NotFound(c, "Sweep task not configured")
	case errors.Is(err, accounting.ErrUnsupportedEntity):
		h.BadRequest(c, "Unsupported entity type")
	case errors.As(err, &validation):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, validation.Error())
	case errors.Is(err, accounting.ErrInvalidStatusChange):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, "Sync record cannot change to the requested status")
	case errors.Is(err, scheduler.ErrSweepInProgress):
		h.Error(c, http.StatusConflict, dto.ErrCodeSweepInProgress, "Sweep already in progress")
	default:
		if h.logger != nil {
			h.logger.Error("Request failed",
				zap.Error(err),
				zap.String("path", c.FullPath()),
				zap.String("request_id", getRequestID(c)),
			)
		}
		_ = c.Error(err)
		h.InternalError(c, "An unexpected error occurred")
	}
}
