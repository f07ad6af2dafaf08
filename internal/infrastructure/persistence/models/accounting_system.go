package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// AccountingSystemModel is the persistence model of a registered external
// accounting system. Credentials and settings are stored as JSON documents.
type AccountingSystemModel struct {
	ID              string    `gorm:"type:varchar(100);primaryKey"`
	Name            string    `gorm:"type:varchar(200);not null"`
	ProviderType    string    `gorm:"type:varchar(20);not null"`
	CredentialsJSON string    `gorm:"column:credentials;type:jsonb;not null"`
	SettingsJSON    string    `gorm:"column:settings;type:jsonb;not null"`
	IsActive        bool      `gorm:"not null;index"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountingSystemModel) TableName() string {
	return "accounting_systems"
}

// AccountingSystemModelFromDomain converts a system config to its model
func AccountingSystemModelFromDomain(c *accounting.AccountingSystemConfig) (*AccountingSystemModel, error) {
	credentials := c.Credentials
	if credentials == nil {
		credentials = map[string]string{}
	}
	settings := c.Settings
	if settings == nil {
		settings = map[string]any{}
	}

	credJSON, err := json.Marshal(credentials)
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	return &AccountingSystemModel{
		ID:              c.ID,
		Name:            c.Name,
		ProviderType:    c.ProviderType.String(),
		CredentialsJSON: string(credJSON),
		SettingsJSON:    string(settingsJSON),
		IsActive:        c.IsActive,
		CreatedAt:       utc(c.CreatedAt),
		UpdatedAt:       utc(c.UpdatedAt),
	}, nil
}

// ToDomain converts the model to a system config. Malformed JSON documents
// are reported so the system is skipped instead of built half-configured.
func (m *AccountingSystemModel) ToDomain() (*accounting.AccountingSystemConfig, error) {
	cfg := &accounting.AccountingSystemConfig{
		ID:           m.ID,
		Name:         m.Name,
		ProviderType: accounting.ProviderType(m.ProviderType),
		Credentials:  map[string]string{},
		Settings:     map[string]any{},
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.CredentialsJSON != "" {
		if err := json.Unmarshal([]byte(m.CredentialsJSON), &cfg.Credentials); err != nil {
			return nil, fmt.Errorf("%w: credentials of %s: %v", accounting.ErrInvalidSystemConfig, m.ID, err)
		}
	}
	if m.SettingsJSON != "" {
		if err := json.Unmarshal([]byte(m.SettingsJSON), &cfg.Settings); err != nil {
			return nil, fmt.Errorf("%w: settings of %s: %v", accounting.ErrInvalidSystemConfig, m.ID, err)
		}
	}
	return cfg, nil
}
