package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// GenericAdapter implements accounting.Adapter for configurable REST APIs
type GenericAdapter struct {
	config *GenericConfig
	helper *RequestHelper
	logger *zap.Logger
}

var _ accounting.Adapter = (*GenericAdapter)(nil)

// NewGenericAdapter creates a new generic REST adapter
func NewGenericAdapter(config *GenericConfig, httpClient *http.Client, logger *zap.Logger) (*GenericAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GenericAdapter{
		config: config,
		helper: NewRequestHelper(RequestHelperConfig{
			BaseURL:      config.BaseURL,
			BearerToken:  config.APIKey,
			Headers:      config.CustomHeaders,
			Timeout:      time.Duration(config.TimeoutSeconds) * time.Second,
			RateLimitRPS: config.RateLimitRPS,
		}, httpClient),
		logger: logger.Named("generic_adapter"),
	}, nil
}

// ProviderType returns ProviderTypeGeneric
func (a *GenericAdapter) ProviderType() accounting.ProviderType {
	return accounting.ProviderTypeGeneric
}

// TestConnection issues a GET against the configured test endpoint
func (a *GenericAdapter) TestConnection(ctx context.Context) bool {
	if err := a.helper.Do(ctx, http.MethodGet, a.config.Endpoints.Test, nil, nil); err != nil {
		a.logger.Warn("Connection test failed", zap.Error(err))
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Sync Operations
// ---------------------------------------------------------------------------

// SyncPayment posts a payment as an income record
func (a *GenericAdapter) SyncPayment(ctx context.Context, payment *accounting.Payment) *accounting.SyncResult {
	payload, err := a.paymentPayload(payment)
	if err != nil {
		return accounting.NewFailureResult(err)
	}
	return a.create(ctx, a.config.Endpoints.Payments, payload)
}

// SyncInvoice posts an invoice with its items
func (a *GenericAdapter) SyncInvoice(ctx context.Context, invoice *accounting.Invoice) *accounting.SyncResult {
	payload, err := a.invoicePayload(invoice)
	if err != nil {
		return accounting.NewFailureResult(err)
	}
	return a.create(ctx, a.config.Endpoints.Invoices, payload)
}

// SyncExpense posts an expense record
func (a *GenericAdapter) SyncExpense(ctx context.Context, expense *accounting.Expense) *accounting.SyncResult {
	payload, err := a.expensePayload(expense)
	if err != nil {
		return accounting.NewFailureResult(err)
	}
	return a.create(ctx, a.config.Endpoints.Expenses, payload)
}

// UpdateExternal replaces {endpoint}/{externalID} with the local entity using
// the same payload a create would send
func (a *GenericAdapter) UpdateExternal(ctx context.Context, entity accounting.Entity, externalID string) error {
	if strings.TrimSpace(externalID) == "" {
		return fmt.Errorf("%w: empty id", accounting.ErrExternalIDMalformed)
	}
	endpoint, err := a.config.endpointFor(entity.EntityType())
	if err != nil {
		return err
	}

	var payload any
	switch e := entity.(type) {
	case *accounting.Payment:
		payload, err = a.paymentPayload(e)
	case *accounting.Invoice:
		payload, err = a.invoicePayload(e)
	case *accounting.Expense:
		payload, err = a.expensePayload(e)
	default:
		err = fmt.Errorf("%w: %s", accounting.ErrUnsupportedEntity, entity.EntityType())
	}
	if err != nil {
		return err
	}

	if err := a.helper.Do(ctx, http.MethodPut, recordPath(endpoint, externalID), payload, nil); err != nil {
		a.logger.Debug("Update request failed",
			zap.String("endpoint", endpoint),
			zap.String("external_id", externalID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (a *GenericAdapter) paymentPayload(payment *accounting.Payment) (genericPayment, error) {
	if err := ValidateRequired(map[string]any{
		"amount":      payment.Amount,
		"description": payment.Description,
		"date":        payment.Date,
	}); err != nil {
		return genericPayment{}, err
	}

	category := payment.Category
	if category == "" {
		category = a.config.DefaultPaymentCategory
	}

	return genericPayment{
		ID:          payment.ID,
		Amount:      a.amount(payment.Amount),
		Description: payment.Description,
		Date:        FormatDate(payment.Date, GenericDateLayout),
		Type:        "income",
		Category:    category,
		ClientID:    payment.ClientID,
		Metadata:    genericMetadata{Source: metadataSource, OriginalID: payment.ID},
	}, nil
}

func (a *GenericAdapter) invoicePayload(invoice *accounting.Invoice) (genericInvoice, error) {
	if err := ValidateRequired(map[string]any{
		"number":    invoice.Number,
		"amount":    invoice.Amount,
		"client_id": invoice.ClientID,
	}); err != nil {
		return genericInvoice{}, err
	}

	status := invoice.Status
	if status == "" {
		status = "pending"
	}

	items := make([]genericInvoiceItem, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		items = append(items, genericInvoiceItem{
			Description: item.Description,
			Quantity:    item.EffectiveQuantity().String(),
			UnitPrice:   a.amount(item.UnitPrice),
			Total:       a.amount(item.EffectiveTotal()),
		})
	}

	return genericInvoice{
		ID:       invoice.ID,
		Number:   invoice.Number,
		Amount:   a.amount(invoice.Amount),
		ClientID: invoice.ClientID,
		DueDate:  FormatDate(invoice.DueDate, GenericDateLayout),
		Status:   status,
		Items:    items,
		Metadata: genericMetadata{Source: metadataSource, OriginalID: invoice.ID},
	}, nil
}

func (a *GenericAdapter) expensePayload(expense *accounting.Expense) (genericPayment, error) {
	if err := ValidateRequired(map[string]any{
		"amount":      expense.Amount,
		"description": expense.Description,
		"date":        expense.Date,
	}); err != nil {
		return genericPayment{}, err
	}

	category := expense.Category
	if category == "" {
		category = a.config.DefaultExpenseCategory
	}

	return genericPayment{
		ID:          expense.ID,
		Amount:      a.amount(expense.Amount),
		Description: expense.Description,
		Date:        FormatDate(expense.Date, GenericDateLayout),
		Type:        "expense",
		Category:    category,
		Metadata:    genericMetadata{Source: metadataSource, OriginalID: expense.ID},
	}, nil
}

// amount renders d as a two decimal string, or as integer minor units when
// the provider counts cents
func (a *GenericAdapter) amount(d decimal.Decimal) any {
	if a.config.AmountFormat == GenericAmountFormatMinor {
		return ToMinorUnits(d)
	}
	return FormatCurrency(d)
}

// create posts payload and maps the response to a SyncResult. A 409 whose body
// names the existing record is reported as a conflict.
func (a *GenericAdapter) create(ctx context.Context, endpoint string, payload any) *accounting.SyncResult {
	var resp genericCreateResponse
	err := a.helper.Do(ctx, http.MethodPost, endpoint, payload, &resp)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusConflict {
			var existing genericCreateResponse
			if json.Unmarshal(httpErr.Body, &existing) == nil {
				if id := stringifyID(existing.ID); id != "" {
					return accounting.NewConflictResult(id, "record already exists in external system")
				}
			}
		}
		a.logger.Debug("Create request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return failureResult(err)
	}

	externalID := stringifyID(resp.ID)
	if externalID == "" {
		return accounting.NewFailureResult(fmt.Errorf("%w: response carries no id", accounting.ErrInvalidResponse))
	}
	return accounting.NewSuccessResult(externalID)
}

// ---------------------------------------------------------------------------
// Conflicts
// ---------------------------------------------------------------------------

// HandleConflict applies the configured conflict strategy
func (a *GenericAdapter) HandleConflict(ctx context.Context, conflict *accounting.DataConflict) *accounting.Resolution {
	return resolveByStrategy(a.config.ConflictStrategy, conflict, "conflict requires manual resolution")
}

// GetExternalData fetches {endpoint}/{externalID}. Invoice number and due date
// are exposed as description and date so they line up with local snapshots.
func (a *GenericAdapter) GetExternalData(ctx context.Context, entityType accounting.EntityType, externalID string) (map[string]any, error) {
	endpoint, err := a.config.endpointFor(entityType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(externalID) == "" {
		return nil, fmt.Errorf("%w: empty id", accounting.ErrExternalIDMalformed)
	}

	data := make(map[string]any)
	if err := a.helper.Do(ctx, http.MethodGet, recordPath(endpoint, externalID), nil, &data); err != nil {
		return nil, err
	}

	if a.config.AmountFormat == GenericAmountFormatMinor {
		if minor, ok := minorUnitsOf(data["amount"]); ok {
			data["amount"] = FormatMinorUnits(minor)
		}
	}

	if entityType == accounting.EntityTypeInvoice {
		if _, ok := data["description"]; !ok {
			if number, ok := data["number"]; ok {
				data["description"] = number
			}
		}
		if _, ok := data["date"]; !ok {
			if due, ok := data["due_date"]; ok {
				data["date"] = due
			}
		}
	}
	return data, nil
}

// recordPath joins a collection endpoint and a record id
func recordPath(endpoint, externalID string) string {
	return strings.TrimRight(endpoint, "/") + "/" + url.PathEscape(externalID)
}

// minorUnitsOf reads an integer amount decoded from JSON
func minorUnitsOf(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n).Round(0).IntPart(), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return 0, false
		}
		return d.Round(0).IntPart(), true
	case string:
		d, err := ParseCurrency(n)
		if err != nil {
			return 0, false
		}
		return d.Round(0).IntPart(), true
	default:
		return 0, false
	}
}

// stringifyID renders JSON ids, which may be strings or numbers
func stringifyID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
