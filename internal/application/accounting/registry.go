package accounting

import (
	"sort"
	"sync"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// RegisteredSystem pairs a system config with its live adapter
type RegisteredSystem struct {
	Config  accounting.AccountingSystemConfig
	Adapter accounting.Adapter
}

// AdapterRegistry holds one adapter per active accounting system.
// It is replaced wholesale on Initialize and read concurrently afterwards.
type AdapterRegistry struct {
	mu      sync.RWMutex
	systems map[string]RegisteredSystem
}

// NewAdapterRegistry creates an empty registry
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{systems: make(map[string]RegisteredSystem)}
}

// Replace swaps the registry contents
func (r *AdapterRegistry) Replace(systems map[string]RegisteredSystem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systems = systems
}

// Get returns the system registered under systemID
func (r *AdapterRegistry) Get(systemID string) (RegisteredSystem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sys, ok := r.systems[systemID]
	return sys, ok
}

// Snapshot returns the registered systems ordered by id
func (r *AdapterRegistry) Snapshot() []RegisteredSystem {
	r.mu.RLock()
	out := make([]RegisteredSystem, 0, len(r.systems))
	for _, sys := range r.systems {
		out = append(out, sys)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Config.ID < out[j].Config.ID })
	return out
}

// SystemIDs returns the registered system ids in order
func (r *AdapterRegistry) SystemIDs() []string {
	snapshot := r.Snapshot()
	ids := make([]string, len(snapshot))
	for i, sys := range snapshot {
		ids[i] = sys.Config.ID
	}
	return ids
}

// Len returns the number of registered systems
func (r *AdapterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.systems)
}
