package erp

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
)

func TestFactory_Build(t *testing.T) {
	factory := NewFactory(nil, zap.NewNop())

	tests := []struct {
		name     string
		sys      *accounting.AccountingSystemConfig
		provider accounting.ProviderType
		wantErr  error
	}{
		{
			name: "generic",
			sys: &accounting.AccountingSystemConfig{
				ID:           "books",
				ProviderType: accounting.ProviderTypeGeneric,
				Credentials:  map[string]string{"api_key": "key"},
				Settings:     map[string]any{"base_url": "https://books.example.com"},
			},
			provider: accounting.ProviderTypeGeneric,
		},
		{
			name: "omie",
			sys: &accounting.AccountingSystemConfig{
				ID:           "omie",
				ProviderType: accounting.ProviderTypeOmie,
				Credentials:  map[string]string{"app_key": "k", "app_secret": "s"},
			},
			provider: accounting.ProviderTypeOmie,
		},
		{
			name: "omie without secret",
			sys: &accounting.AccountingSystemConfig{
				ID:           "omie",
				ProviderType: accounting.ProviderTypeOmie,
				Credentials:  map[string]string{"app_key": "k"},
			},
			wantErr: accounting.ErrMissingCredentials,
		},
		{
			name:    "unknown provider",
			sys:     &accounting.AccountingSystemConfig{ID: "x", ProviderType: "quickbooks"},
			wantErr: accounting.ErrUnknownProvider,
		},
		{
			name:    "invalid config",
			sys:     &accounting.AccountingSystemConfig{ProviderType: accounting.ProviderTypeOmie},
			wantErr: accounting.ErrInvalidSystemConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := factory.Build(tt.sys)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, adapter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, adapter.ProviderType())
		})
	}
}

func TestFactory_Register(t *testing.T) {
	factory := NewFactory(nil, nil)
	called := false
	factory.Register("custom", func(sys *accounting.AccountingSystemConfig, _ *http.Client, _ *zap.Logger) (accounting.Adapter, error) {
		called = true
		return NewOmieAdapter(NewOmieConfig("k", "s"), nil, nil)
	})

	adapter, err := factory.Build(&accounting.AccountingSystemConfig{ID: "c", ProviderType: "custom"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.NotNil(t, adapter)
}
