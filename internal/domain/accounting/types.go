package accounting

// ---------------------------------------------------------------------------
// EntityType identifies the kind of local entity being synchronized
// ---------------------------------------------------------------------------

// EntityType identifies the kind of local entity being synchronized
type EntityType string

const (
	EntityTypePayment EntityType = "payment"
	EntityTypeInvoice EntityType = "invoice"
	EntityTypeExpense EntityType = "expense"
)

// AllEntityTypes lists every synchronizable entity type
var AllEntityTypes = []EntityType{EntityTypePayment, EntityTypeInvoice, EntityTypeExpense}

// IsValid returns true if the entity type is known
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypePayment, EntityTypeInvoice, EntityTypeExpense:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityType
func (t EntityType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// SyncStatus represents the state of one (entity, system) pair
// ---------------------------------------------------------------------------

// SyncStatus represents the state of one (entity, system) pair
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSuccess  SyncStatus = "success"
	SyncStatusFailed   SyncStatus = "failed"
	SyncStatusConflict SyncStatus = "conflict"
)

// IsValid returns true if the status is known
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSuccess, SyncStatusFailed, SyncStatusConflict:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// ProviderType selects the adapter implementation for a system
// ---------------------------------------------------------------------------

// ProviderType selects the adapter implementation for a system
type ProviderType string

const (
	// ProviderTypeGeneric is a configurable REST accounting API
	ProviderTypeGeneric ProviderType = "generic"
	// ProviderTypeOmie is the Omie ERP RPC-over-HTTP API
	ProviderTypeOmie ProviderType = "omie"
)

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// ---------------------------------------------------------------------------
// Conflict handling
// ---------------------------------------------------------------------------

// ConflictStrategy is the configured policy an adapter applies to conflicts
type ConflictStrategy string

const (
	ConflictStrategyLocalWins    ConflictStrategy = "local_wins"
	ConflictStrategyExternalWins ConflictStrategy = "external_wins"
	ConflictStrategyManual       ConflictStrategy = "manual"
)

// ParseConflictStrategy maps a configured value to a strategy.
// Unknown values fall back to manual.
func ParseConflictStrategy(s string) ConflictStrategy {
	switch ConflictStrategy(s) {
	case ConflictStrategyLocalWins:
		return ConflictStrategyLocalWins
	case ConflictStrategyExternalWins:
		return ConflictStrategyExternalWins
	default:
		return ConflictStrategyManual
	}
}

// ResolutionAction is the decision returned by an adapter for a conflict
type ResolutionAction string

const (
	ResolutionUseLocal    ResolutionAction = "use_local"
	ResolutionUseExternal ResolutionAction = "use_external"
	ResolutionManual      ResolutionAction = "manual"
)

// String returns the string representation of ResolutionAction
func (a ResolutionAction) String() string {
	return string(a)
}
