// Package accounting contains the Accounting Sync bounded context.
// This context keeps payments, invoices and expenses produced by the primary
// business system consistent with one or more external accounting/ERP systems.
//
// Key concepts:
//   - Adapter: Port interface for talking to one external accounting system
//   - SyncRecord: Entity tracking the sync state of one (entity, system) pair
//   - AccountingSystemConfig: Configuration of one registered external system
//   - DataConflict / Resolution: Value objects used by the conflict sweep
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package accounting
