package accounting

import "github.com/erp/acctsync/internal/domain/accounting"

// OutcomeStatus summarizes what happened for one system during a sync call
type OutcomeStatus string

const (
	OutcomeSynced   OutcomeStatus = "synced"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFailed   OutcomeStatus = "failed"
	OutcomeConflict OutcomeStatus = "conflict"
	// OutcomeError means the sync status store could not be read or written
	OutcomeError OutcomeStatus = "error"
)

// SyncOutcome is the per-system result of SyncPayment, SyncInvoice or SyncExpense
type SyncOutcome struct {
	SystemID string
	Status   OutcomeStatus
	Record   *accounting.SyncRecord
	Error    string
}

// SweepReport counts what a retry or conflict sweep did
type SweepReport struct {
	Examined  int `json:"examined"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Conflicts int `json:"conflicts"`
	Manual    int `json:"manual"`
	Skipped   int `json:"skipped"`
	Orphaned  int `json:"orphaned"`
	Errors    int `json:"errors"`
}
