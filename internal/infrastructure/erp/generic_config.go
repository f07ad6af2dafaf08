package erp

import (
	"errors"
	"fmt"
	"time"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// GenericEndpoints are the resource paths of a generic REST accounting API
type GenericEndpoints struct {
	Payments string
	Invoices string
	Expenses string
	// Test is requested with GET by TestConnection
	Test string
}

// GenericConfig holds configuration for a generic REST accounting API
type GenericConfig struct {
	// BaseURL is the API root, e.g. https://books.example.com/api
	BaseURL string
	// APIKey is sent as a bearer token
	APIKey    string
	Endpoints GenericEndpoints
	// DefaultPaymentCategory is sent when a payment has no category
	DefaultPaymentCategory string
	// DefaultExpenseCategory is sent when an expense has no category
	DefaultExpenseCategory string
	// AmountFormat selects how amounts are sent: GenericAmountFormatDecimal
	// ("150.00") or GenericAmountFormatMinor (15000)
	AmountFormat     string
	CustomHeaders    map[string]string
	ConflictStrategy accounting.ConflictStrategy
	TimeoutSeconds   int
	RateLimitRPS     float64
}

// Defaults for generic configuration
const (
	GenericDefaultPaymentsEndpoint = "/payments"
	GenericDefaultInvoicesEndpoint = "/invoices"
	GenericDefaultExpensesEndpoint = "/expenses"
	GenericDefaultTestEndpoint     = "/health"
	GenericDefaultPaymentCategory  = "services"
	GenericDefaultExpenseCategory  = "operational"

	GenericAmountFormatDecimal = "decimal"
	GenericAmountFormatMinor   = "minor"
)

// Errors for generic configuration
var (
	ErrGenericConfigMissingBaseURL = errors.New("generic: base url is required")
	ErrGenericConfigMissingAPIKey  = errors.New("generic: api key is required")
	ErrGenericConfigAmountFormat   = errors.New("generic: amount format must be decimal or minor")
)

// NewGenericConfigFromSystem reads a GenericConfig out of a registered system
func NewGenericConfigFromSystem(sys *accounting.AccountingSystemConfig) (*GenericConfig, error) {
	endpoints := sys.SettingStringMap("endpoints")

	cfg := &GenericConfig{
		BaseURL: sys.SettingString(accounting.SettingBaseURL, sys.Credential("base_url")),
		APIKey:  sys.Credential("api_key"),
		Endpoints: GenericEndpoints{
			Payments: endpoints["payments"],
			Invoices: endpoints["invoices"],
			Expenses: endpoints["expenses"],
			Test:     sys.SettingString("test_endpoint", ""),
		},
		DefaultPaymentCategory: sys.SettingString("default_payment_category", ""),
		DefaultExpenseCategory: sys.SettingString("default_expense_category", ""),
		AmountFormat:           sys.SettingString("amount_format", ""),
		CustomHeaders:          sys.SettingStringMap(accounting.SettingCustomHeaders),
		ConflictStrategy:       sys.ConflictStrategy(accounting.ConflictStrategyLocalWins),
		TimeoutSeconds:         int(sys.Timeout() / time.Second),
		RateLimitRPS:           sys.SettingFloat(accounting.SettingRateLimitRPS, 0),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration and fills defaults
func (c *GenericConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: %v", accounting.ErrMissingCredentials, ErrGenericConfigMissingBaseURL)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: %v", accounting.ErrMissingCredentials, ErrGenericConfigMissingAPIKey)
	}
	if c.Endpoints.Payments == "" {
		c.Endpoints.Payments = GenericDefaultPaymentsEndpoint
	}
	if c.Endpoints.Invoices == "" {
		c.Endpoints.Invoices = GenericDefaultInvoicesEndpoint
	}
	if c.Endpoints.Expenses == "" {
		c.Endpoints.Expenses = GenericDefaultExpensesEndpoint
	}
	if c.Endpoints.Test == "" {
		c.Endpoints.Test = GenericDefaultTestEndpoint
	}
	if c.DefaultPaymentCategory == "" {
		c.DefaultPaymentCategory = GenericDefaultPaymentCategory
	}
	if c.DefaultExpenseCategory == "" {
		c.DefaultExpenseCategory = GenericDefaultExpenseCategory
	}
	switch c.AmountFormat {
	case "":
		c.AmountFormat = GenericAmountFormatDecimal
	case GenericAmountFormatDecimal, GenericAmountFormatMinor:
	default:
		return ErrGenericConfigAmountFormat
	}
	if c.ConflictStrategy == "" {
		c.ConflictStrategy = accounting.ConflictStrategyLocalWins
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// endpointFor returns the resource path of an entity type
func (c *GenericConfig) endpointFor(entityType accounting.EntityType) (string, error) {
	switch entityType {
	case accounting.EntityTypePayment:
		return c.Endpoints.Payments, nil
	case accounting.EntityTypeInvoice:
		return c.Endpoints.Invoices, nil
	case accounting.EntityTypeExpense:
		return c.Endpoints.Expenses, nil
	default:
		return "", fmt.Errorf("%w: %s", accounting.ErrUnsupportedEntity, entityType)
	}
}
