package erp

import (
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// BuilderFunc builds an adapter for one registered accounting system
type BuilderFunc func(sys *accounting.AccountingSystemConfig, httpClient *http.Client, logger *zap.Logger) (accounting.Adapter, error)

// Factory maps provider types to adapter builders
type Factory struct {
	mu         sync.RWMutex
	builders   map[accounting.ProviderType]BuilderFunc
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFactory creates a factory with the generic and Omie providers
// registered. httpClient may be nil.
func NewFactory(httpClient *http.Client, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{
		builders:   make(map[accounting.ProviderType]BuilderFunc),
		httpClient: httpClient,
		logger:     logger,
	}
	f.Register(accounting.ProviderTypeGeneric, buildGeneric)
	f.Register(accounting.ProviderTypeOmie, buildOmie)
	return f
}

// Register adds or replaces the builder of a provider type
func (f *Factory) Register(providerType accounting.ProviderType, builder BuilderFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[providerType] = builder
}

// Build creates the adapter for sys. Unknown provider types return
// accounting.ErrUnknownProvider.
func (f *Factory) Build(sys *accounting.AccountingSystemConfig) (accounting.Adapter, error) {
	if err := sys.Validate(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	builder, ok := f.builders[sys.ProviderType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", accounting.ErrUnknownProvider, sys.ProviderType)
	}

	logger := f.logger.With(zap.String("system_id", sys.ID))
	return builder(sys, f.httpClient, logger)
}

func buildGeneric(sys *accounting.AccountingSystemConfig, httpClient *http.Client, logger *zap.Logger) (accounting.Adapter, error) {
	cfg, err := NewGenericConfigFromSystem(sys)
	if err != nil {
		return nil, err
	}
	adapter, err := NewGenericAdapter(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

func buildOmie(sys *accounting.AccountingSystemConfig, httpClient *http.Client, logger *zap.Logger) (accounting.Adapter, error) {
	cfg, err := NewOmieConfigFromSystem(sys)
	if err != nil {
		return nil, err
	}
	adapter, err := NewOmieAdapter(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}
