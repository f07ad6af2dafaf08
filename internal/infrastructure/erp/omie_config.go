package erp

import (
	"errors"
	"fmt"
	"time"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// OmieConfig holds configuration for the Omie ERP API
type OmieConfig struct {
	// AppKey is the application key issued by Omie
	AppKey string
	// AppSecret is the application secret issued by Omie
	AppSecret string
	// APIBaseURL is the RPC root; each call appends a service path
	APIBaseURL string
	// DefaultPaymentCategory is the receivable category code
	DefaultPaymentCategory string
	// DefaultExpenseCategory is the payable category code
	DefaultExpenseCategory string
	ConflictStrategy       accounting.ConflictStrategy
	TimeoutSeconds         int
	RateLimitRPS           float64
}

const (
	// OmieProductionAPIURL is the production API root
	OmieProductionAPIURL = "https://app.omie.com.br/api/v1/"

	OmieDefaultPaymentCategory = "1.01.01"
	OmieDefaultExpenseCategory = "3.01.01"
)

// Errors for Omie configuration
var (
	ErrOmieConfigMissingAppKey    = errors.New("omie: app key is required")
	ErrOmieConfigMissingAppSecret = errors.New("omie: app secret is required")
)

// NewOmieConfig creates a new Omie configuration with defaults
func NewOmieConfig(appKey, appSecret string) *OmieConfig {
	return &OmieConfig{
		AppKey:                 appKey,
		AppSecret:              appSecret,
		APIBaseURL:             OmieProductionAPIURL,
		DefaultPaymentCategory: OmieDefaultPaymentCategory,
		DefaultExpenseCategory: OmieDefaultExpenseCategory,
		ConflictStrategy:       accounting.ConflictStrategyManual,
		TimeoutSeconds:         30,
	}
}

// NewOmieConfigFromSystem reads an OmieConfig out of a registered system
func NewOmieConfigFromSystem(sys *accounting.AccountingSystemConfig) (*OmieConfig, error) {
	cfg := &OmieConfig{
		AppKey:                 sys.Credential("app_key"),
		AppSecret:              sys.Credential("app_secret"),
		APIBaseURL:             sys.SettingString(accounting.SettingBaseURL, ""),
		DefaultPaymentCategory: sys.SettingString("default_payment_category", ""),
		DefaultExpenseCategory: sys.SettingString("default_expense_category", ""),
		ConflictStrategy:       sys.ConflictStrategy(accounting.ConflictStrategyManual),
		TimeoutSeconds:         int(sys.Timeout() / time.Second),
		RateLimitRPS:           sys.SettingFloat(accounting.SettingRateLimitRPS, 0),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the Omie configuration and fills defaults
func (c *OmieConfig) Validate() error {
	if c.AppKey == "" {
		return fmt.Errorf("%w: %v", accounting.ErrMissingCredentials, ErrOmieConfigMissingAppKey)
	}
	if c.AppSecret == "" {
		return fmt.Errorf("%w: %v", accounting.ErrMissingCredentials, ErrOmieConfigMissingAppSecret)
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = OmieProductionAPIURL
	}
	if c.DefaultPaymentCategory == "" {
		c.DefaultPaymentCategory = OmieDefaultPaymentCategory
	}
	if c.DefaultExpenseCategory == "" {
		c.DefaultExpenseCategory = OmieDefaultExpenseCategory
	}
	if c.ConflictStrategy == "" {
		c.ConflictStrategy = accounting.ConflictStrategyManual
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
