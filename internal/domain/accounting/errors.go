package accounting

import (
	"errors"
	"strings"
)

// ---------------------------------------------------------------------------
// Accounting Sync Errors
// ---------------------------------------------------------------------------

var (
	// Configuration errors
	ErrUnknownProvider     = errors.New("accounting: unknown provider type")
	ErrMissingCredentials  = errors.New("accounting: missing provider credentials")
	ErrInvalidSystemConfig = errors.New("accounting: invalid accounting system config")
	ErrSystemNotFound      = errors.New("accounting: accounting system not found")
	ErrSystemNotRegistered = errors.New("accounting: accounting system not registered")

	// Transport and provider errors
	ErrTransport           = errors.New("accounting: transport failure")
	ErrProviderFault       = errors.New("accounting: provider rejected request")
	ErrInvalidResponse     = errors.New("accounting: invalid provider response")
	ErrUnsupportedEntity   = errors.New("accounting: unsupported entity type")
	ErrExternalIDMalformed = errors.New("accounting: malformed external id")

	// Sync record errors
	ErrSyncRecordNotFound  = errors.New("accounting: sync record not found")
	ErrInvalidSyncRecord   = errors.New("accounting: invalid sync record")
	ErrInvalidStatusChange = errors.New("accounting: invalid sync status transition")

	// Entity lookup errors
	ErrEntityNotFound = errors.New("accounting: entity not found")
)

// ValidationError reports every required field that was missing from an
// entity before it was sent to an external system. It is never retried.
type ValidationError struct {
	Fields []string
}

// NewValidationError creates a ValidationError for the given missing fields
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return "required fields missing: " + strings.Join(e.Fields, ", ")
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProviderFault is a business error reported by the external system inside an
// otherwise successful response (for example an RPC "faultstring").
type ProviderFault struct {
	Code      string
	Message   string
	Retryable bool
}

// Error implements the error interface
func (f *ProviderFault) Error() string {
	if f.Code != "" {
		return f.Code + ": " + f.Message
	}
	return f.Message
}

// Unwrap lets errors.Is match ErrProviderFault
func (f *ProviderFault) Unwrap() error {
	return ErrProviderFault
}
