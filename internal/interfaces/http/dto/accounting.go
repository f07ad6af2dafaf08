package dto

import (
	"time"

	appaccounting "github.com/erp/acctsync/internal/application/accounting"
	"github.com/erp/acctsync/internal/domain/accounting"
)

// ListSyncRecordsQuery filters GET /accounting/sync-records
type ListSyncRecordsQuery struct {
	EntityType string `form:"entity_type" binding:"omitempty,oneof=payment invoice expense"`
	EntityID   string `form:"entity_id" binding:"omitempty,max=128"`
	SystemID   string `form:"system_id" binding:"omitempty,max=128"`
	Status     string `form:"status" binding:"omitempty,oneof=pending success failed conflict"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=created_at updated_at last_sync_at next_retry_at retry_count entity_id system_id status"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset     int    `form:"offset" binding:"omitempty,min=0"`
}

// DefaultListLimit is used when the query has no limit
const DefaultListLimit = 50

// Filter converts the query into a repository filter
func (q ListSyncRecordsQuery) Filter() accounting.SyncRecordFilter {
	limit := q.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	return accounting.SyncRecordFilter{
		EntityType: accounting.EntityType(q.EntityType),
		EntityID:   q.EntityID,
		SystemID:   q.SystemID,
		Status:     accounting.SyncStatus(q.Status),
		OrderBy:    q.OrderBy,
		OrderDir:   q.OrderDir,
		Limit:      limit,
		Offset:     q.Offset,
	}
}

// SyncRecordResponse is the API form of a sync record
type SyncRecordResponse struct {
	ID           string     `json:"id"`
	EntityType   string     `json:"entity_type"`
	EntityID     string     `json:"entity_id"`
	SystemID     string     `json:"system_id"`
	ExternalID   string     `json:"external_id,omitempty"`
	Status       string     `json:"status"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	RetryCount   int        `json:"retry_count"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ToSyncRecordResponse converts a domain record
func ToSyncRecordResponse(r *accounting.SyncRecord) SyncRecordResponse {
	return SyncRecordResponse{
		ID:           r.ID.String(),
		EntityType:   r.EntityType.String(),
		EntityID:     r.EntityID,
		SystemID:     r.SystemID,
		ExternalID:   r.ExternalID,
		Status:       r.Status.String(),
		LastSyncAt:   r.LastSyncAt,
		ErrorMessage: r.ErrorMessage,
		RetryCount:   r.RetryCount,
		NextRetryAt:  r.NextRetryAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ToSyncRecordResponses converts a page of records
func ToSyncRecordResponses(records []accounting.SyncRecord) []SyncRecordResponse {
	out := make([]SyncRecordResponse, len(records))
	for i := range records {
		out[i] = ToSyncRecordResponse(&records[i])
	}
	return out
}

// StatusSummaryResponse counts records per status
type StatusSummaryResponse struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// TriggerSyncRequest asks for an immediate sync of one local entity
type TriggerSyncRequest struct {
	EntityType string `json:"entity_type" binding:"required,oneof=payment invoice expense"`
	EntityID   string `json:"entity_id" binding:"required,max=128"`
}

// SyncOutcomeResponse is the per-system result of a triggered sync
type SyncOutcomeResponse struct {
	SystemID string              `json:"system_id"`
	Status   string              `json:"status"`
	Error    string              `json:"error,omitempty"`
	Record   *SyncRecordResponse `json:"record,omitempty"`
}

// ToSyncOutcomeResponses converts orchestrator outcomes
func ToSyncOutcomeResponses(outcomes []appaccounting.SyncOutcome) []SyncOutcomeResponse {
	out := make([]SyncOutcomeResponse, len(outcomes))
	for i, o := range outcomes {
		out[i] = SyncOutcomeResponse{
			SystemID: o.SystemID,
			Status:   string(o.Status),
			Error:    o.Error,
		}
		if o.Record != nil {
			rec := ToSyncRecordResponse(o.Record)
			out[i].Record = &rec
		}
	}
	return out
}

// MarkConflictRequest flags a record as conflicting
type MarkConflictRequest struct {
	EntityType string `json:"entity_type" binding:"required,oneof=payment invoice expense"`
	EntityID   string `json:"entity_id" binding:"required,max=128"`
	SystemID   string `json:"system_id" binding:"required,max=128"`
	ExternalID string `json:"external_id" binding:"omitempty,max=128"`
	Reason     string `json:"reason" binding:"required,max=1000"`
}

// PurgeOrphansRequest overrides the configured orphan retention
type PurgeOrphansRequest struct {
	OlderThanHours int `json:"older_than_hours" binding:"omitempty,min=1"`
}

// PurgeOrphansResponse reports how many records were deleted
type PurgeOrphansResponse struct {
	Deleted int `json:"deleted"`
}

// ConnectionStatusResponse is the result of testing one system
type ConnectionStatusResponse struct {
	SystemID  string `json:"system_id"`
	Connected bool   `json:"connected"`
}

// IngestEventRequest is a sync trigger delivered by the business system.
// Redeliveries must reuse EventID.
type IngestEventRequest struct {
	EventID    string    `json:"event_id" binding:"required,uuid"`
	EventType  string    `json:"event_type" binding:"required,oneof=PaymentRecorded InvoiceIssued ExpenseRecorded"`
	EntityID   string    `json:"entity_id" binding:"required,max=128"`
	OccurredAt time.Time `json:"occurred_at"`
}

// IngestEventResponse acknowledges an accepted event
type IngestEventResponse struct {
	EventID string `json:"event_id"`
}
