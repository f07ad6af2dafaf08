package accounting

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// RetryPolicy
// ---------------------------------------------------------------------------

// RetryPolicy controls how failed sync records are rescheduled
type RetryPolicy struct {
	// MaxRetries is the number of retries before a record is left alone
	MaxRetries int
	// BaseDelay is multiplied by 2^retryCount to obtain the next delay
	BaseDelay time.Duration
	// MaxDelay caps the computed delay; zero disables the cap
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the default retry policy (5 retries, 1 minute base)
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  time.Minute,
	}
}

// Delay returns BaseDelay * 2^retryCount, capped by MaxDelay when set
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	// Keeps the shift from overflowing time.Duration for realistic base delays
	if retryCount > 20 {
		retryCount = 20
	}
	delay := p.BaseDelay * time.Duration(int64(1)<<uint(retryCount))
	if p.MaxDelay > 0 && (delay <= 0 || delay > p.MaxDelay) {
		return p.MaxDelay
	}
	return delay
}

// NextRetryAt returns the time at which a record with retryCount may be retried
func (p RetryPolicy) NextRetryAt(retryCount int, now time.Time) time.Time {
	return now.Add(p.Delay(retryCount))
}

// ---------------------------------------------------------------------------
// SyncRecord
// ---------------------------------------------------------------------------

// SyncRecord is the durable sync state of one local entity against one
// external system. Its identity is (EntityType, EntityID, SystemID).
type SyncRecord struct {
	ID           uuid.UUID
	EntityType   EntityType
	EntityID     string
	SystemID     string
	ExternalID   string
	Status       SyncStatus
	LastSyncAt   *time.Time
	ErrorMessage string
	RetryCount   int
	NextRetryAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSyncRecord creates a pending sync record for the given identity
func NewSyncRecord(entityType EntityType, entityID, systemID string) (*SyncRecord, error) {
	if !entityType.IsValid() || entityID == "" || systemID == "" {
		return nil, ErrInvalidSyncRecord
	}
	now := time.Now()
	return &SyncRecord{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		SystemID:   systemID,
		Status:     SyncStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsSynced returns true if the entity already reached the external system
func (r *SyncRecord) IsSynced() bool {
	return r.Status == SyncStatusSuccess
}

// IsRetryable reports whether the retry sweep may pick this record up at now
func (r *SyncRecord) IsRetryable(now time.Time, maxRetries int) bool {
	if r.Status != SyncStatusFailed || r.RetryCount >= maxRetries {
		return false
	}
	return r.NextRetryAt == nil || !r.NextRetryAt.After(now)
}

// RecordSuccess marks the record as synchronized
func (r *SyncRecord) RecordSuccess(externalID string, at time.Time) {
	r.Status = SyncStatusSuccess
	if externalID != "" {
		r.ExternalID = externalID
	}
	r.LastSyncAt = &at
	r.ErrorMessage = ""
	r.NextRetryAt = nil
	r.UpdatedAt = at
}

// RecordConflict marks the record as diverging from the external copy
func (r *SyncRecord) RecordConflict(externalID, message string, at time.Time) {
	r.Status = SyncStatusConflict
	if externalID != "" {
		r.ExternalID = externalID
	}
	r.LastSyncAt = &at
	r.ErrorMessage = message
	r.NextRetryAt = nil
	r.UpdatedAt = at
}

// RecordFailure marks the record as failed and schedules the next retry from
// the current retry count
func (r *SyncRecord) RecordFailure(message string, policy RetryPolicy, at time.Time) {
	if message == "" {
		message = "unknown error"
	}
	next := policy.NextRetryAt(r.RetryCount, at)
	r.Status = SyncStatusFailed
	r.LastSyncAt = &at
	r.ErrorMessage = message
	r.NextRetryAt = &next
	r.UpdatedAt = at
}

// RecordRetryFailure bumps the retry count and reschedules the record
func (r *SyncRecord) RecordRetryFailure(message string, policy RetryPolicy, at time.Time) {
	r.RetryCount++
	r.RecordFailure(message, policy, at)
}

// Exhaust marks a failed record as not worth retrying (e.g. validation errors)
func (r *SyncRecord) Exhaust(maxRetries int) {
	if r.RetryCount < maxRetries {
		r.RetryCount = maxRetries
	}
	r.NextRetryAt = nil
}

// ApplyResult folds an adapter result produced by a first-time or manual sync
// into the record
func (r *SyncRecord) ApplyResult(result *SyncResult, policy RetryPolicy, at time.Time) {
	switch {
	case result.Success:
		r.RecordSuccess(result.ExternalID, at)
	case result.Conflict:
		r.RecordConflict(result.ExternalID, result.ErrorMessage, at)
	default:
		r.RecordFailure(result.ErrorMessage, policy, at)
		if !result.Retryable {
			r.Exhaust(policy.MaxRetries)
		}
	}
}

// ApplyRetryResult folds an adapter result produced by the retry sweep into
// the record
func (r *SyncRecord) ApplyRetryResult(result *SyncResult, policy RetryPolicy, at time.Time) {
	switch {
	case result.Success:
		r.RecordSuccess(result.ExternalID, at)
	case result.Conflict:
		r.RecordConflict(result.ExternalID, result.ErrorMessage, at)
	default:
		r.RecordRetryFailure(result.ErrorMessage, policy, at)
		if !result.Retryable {
			r.Exhaust(policy.MaxRetries)
		}
	}
}

// MarkConflict moves a record into conflict on operator or adapter request
func (r *SyncRecord) MarkConflict(externalID, reason string, at time.Time) error {
	if externalID == "" && r.ExternalID == "" {
		return ErrInvalidStatusChange
	}
	r.RecordConflict(externalID, reason, at)
	return nil
}

// ResolveConflict closes a conflict after the chosen resolution was applied
func (r *SyncRecord) ResolveConflict(at time.Time) error {
	if r.Status != SyncStatusConflict {
		return ErrInvalidStatusChange
	}
	r.RecordSuccess("", at)
	return nil
}
