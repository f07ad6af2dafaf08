package accounting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SyncResult is the outcome of one adapter sync call. Adapters never return
// errors from sync operations; every failure is folded into a result.
type SyncResult struct {
	Success      bool
	ExternalID   string
	ErrorMessage string
	Timestamp    time.Time
	RetryCount   int
	// Conflict is set when the external system already holds a diverging copy
	Conflict bool
	// Retryable is false for failures that will not go away on their own
	Retryable bool
}

// NewSuccessResult creates a successful sync result
func NewSuccessResult(externalID string) *SyncResult {
	return &SyncResult{
		Success:    true,
		ExternalID: externalID,
		Timestamp:  time.Now(),
	}
}

// NewConflictResult creates a result signalling a remote conflict
func NewConflictResult(externalID, message string) *SyncResult {
	return &SyncResult{
		ExternalID:   externalID,
		ErrorMessage: message,
		Timestamp:    time.Now(),
		Conflict:     true,
	}
}

// NewFailureResult converts err into an unsuccessful result, classifying
// whether the failure is worth retrying
func NewFailureResult(err error) *SyncResult {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &SyncResult{
		ErrorMessage: msg,
		Timestamp:    time.Now(),
		Retryable:    IsRetryableError(err),
	}
}

// IsRetryableError reports whether a sync failure caused by err may succeed later
func IsRetryableError(err error) bool {
	if err == nil {
		return true
	}
	if IsValidationError(err) {
		return false
	}
	var fault *ProviderFault
	if errors.As(err, &fault) {
		return fault.Retryable
	}
	if errors.Is(err, ErrUnsupportedEntity) || errors.Is(err, ErrExternalIDMalformed) {
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Conflicts
// ---------------------------------------------------------------------------

// ConflictFields are the fields compared between local and external copies
var ConflictFields = []string{"amount", "description", "date", "status"}

// DataConflict describes a divergence between a local entity and its external copy
type DataConflict struct {
	EntityType     EntityType
	EntityID       string
	SystemID       string
	ExternalID     string
	LocalData      map[string]any
	ExternalData   map[string]any
	ConflictFields []string
	DetectedAt     time.Time
}

// NewDataConflict builds a conflict and computes the diverging fields
func NewDataConflict(record *SyncRecord, local, external map[string]any) *DataConflict {
	return &DataConflict{
		EntityType:     record.EntityType,
		EntityID:       record.EntityID,
		SystemID:       record.SystemID,
		ExternalID:     record.ExternalID,
		LocalData:      local,
		ExternalData:   external,
		ConflictFields: DetectConflictFields(local, external),
		DetectedAt:     time.Now(),
	}
}

// HasDifferences returns true if at least one compared field diverges
func (c *DataConflict) HasDifferences() bool {
	return len(c.ConflictFields) > 0
}

// Resolution is the adapter's decision for a DataConflict
type Resolution struct {
	Action       ResolutionAction
	ResolvedData map[string]any
	Notes        string
}

// DetectConflictFields returns the ConflictFields whose values differ between
// local and external. A field set on only one side counts as a difference;
// a field blank on both sides is skipped.
func DetectConflictFields(local, external map[string]any) []string {
	diff := make([]string, 0)
	for _, field := range ConflictFields {
		lv, ev := local[field], external[field]
		lblank, eblank := isBlank(lv), isBlank(ev)
		switch {
		case lblank && eblank:
			continue
		case lblank != eblank:
			diff = append(diff, field)
		case !valuesEqual(field, lv, ev):
			diff = append(diff, field)
		}
	}
	return diff
}

// isBlank reports whether v carries no comparable value
func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case time.Time:
		return t.IsZero()
	case *time.Time:
		return t == nil || t.IsZero()
	case *decimal.Decimal:
		return t == nil
	default:
		return false
	}
}

func valuesEqual(field string, a, b any) bool {
	switch field {
	case "amount":
		da, errA := toDecimal(a)
		db, errB := toDecimal(b)
		if errA == nil && errB == nil {
			return da.Equal(db)
		}
	case "date":
		return normalizeDate(a) == normalizeDate(b)
	}
	return strings.TrimSpace(fmt.Sprint(a)) == strings.TrimSpace(fmt.Sprint(b))
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, ErrInvalidResponse
		}
		return *n, nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case fmt.Stringer:
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, ErrInvalidResponse
	}
}

// ParseAmount converts a numeric value from a local snapshot or an external
// payload into a decimal
func ParseAmount(v any) (decimal.Decimal, error) {
	return toDecimal(v)
}

// ParseDate parses a date carried by an external payload
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %v", ErrInvalidResponse, v)
}

// dateLayouts are the layouts accepted when normalizing external dates
var dateLayouts = []string{time.RFC3339, "2006-01-02", "02/01/2006", "2006-01-02 15:04:05"}

// normalizeDate renders v as a UTC calendar date so that offsets on either
// side cannot shift the day
func normalizeDate(v any) string {
	switch d := v.(type) {
	case time.Time:
		return d.UTC().Format("2006-01-02")
	case *time.Time:
		if d != nil {
			return d.UTC().Format("2006-01-02")
		}
		return ""
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format("2006-01-02")
			}
		}
		return s
	default:
		return fmt.Sprint(v)
	}
}
