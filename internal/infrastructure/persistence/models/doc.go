// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel shared by uuid-keyed models
//   - sync_record.go: accounting_sync_records, the sync status store
//   - accounting_system.go: accounting_systems, registered external systems
//   - ledger.go: read views over payments, invoices, invoice items, expenses and clients
package models
