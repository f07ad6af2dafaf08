package accounting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entity is a local record that can be pushed to an external system
type Entity interface {
	EntityID() string
	EntityType() EntityType
	// Snapshot returns the comparable fields used by conflict detection
	Snapshot() map[string]any
}

// Client is the counterparty referenced by payments and invoices
type Client struct {
	ID       string
	Name     string
	Document string // tax id (CPF/CNPJ or equivalent)
	Email    string
	Phone    string
}

// Payment is money received from a client
type Payment struct {
	ID          string
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	ClientID    string
	Client      *Client
	Category    string
	Status      string
}

// EntityID returns the payment id
func (p *Payment) EntityID() string { return p.ID }

// EntityType returns EntityTypePayment
func (p *Payment) EntityType() EntityType { return EntityTypePayment }

// Snapshot returns the comparable payment fields
func (p *Payment) Snapshot() map[string]any {
	return withStatus(map[string]any{
		"amount":      p.Amount,
		"description": p.Description,
		"date":        p.Date,
	}, p.Status)
}

// InvoiceItem is one billed line of an invoice
type InvoiceItem struct {
	ID          string
	Code        string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// EffectiveQuantity returns the quantity, defaulting to one
func (i InvoiceItem) EffectiveQuantity() decimal.Decimal {
	if i.Quantity.IsZero() {
		return decimal.NewFromInt(1)
	}
	return i.Quantity
}

// EffectiveTotal returns the line total, falling back to the unit price
func (i InvoiceItem) EffectiveTotal() decimal.Decimal {
	if i.Total.IsZero() {
		return i.UnitPrice
	}
	return i.Total
}

// Invoice is a bill issued to a client
type Invoice struct {
	ID       string
	Number   string
	Amount   decimal.Decimal
	ClientID string
	Client   *Client
	IssuedAt time.Time
	DueDate  time.Time
	Status   string
	Items    []InvoiceItem
}

// EntityID returns the invoice id
func (i *Invoice) EntityID() string { return i.ID }

// EntityType returns EntityTypeInvoice
func (i *Invoice) EntityType() EntityType { return EntityTypeInvoice }

// Snapshot returns the comparable invoice fields. The invoice number stands in
// for the description and the due date for the date.
func (i *Invoice) Snapshot() map[string]any {
	return withStatus(map[string]any{
		"amount":      i.Amount,
		"description": i.Number,
		"date":        i.DueDate,
	}, i.Status)
}

// Expense is money paid out by the business
type Expense struct {
	ID          string
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	Category    string
	SupplierID  string
	Status      string
}

// EntityID returns the expense id
func (e *Expense) EntityID() string { return e.ID }

// EntityType returns EntityTypeExpense
func (e *Expense) EntityType() EntityType { return EntityTypeExpense }

// Snapshot returns the comparable expense fields
func (e *Expense) Snapshot() map[string]any {
	return withStatus(map[string]any{
		"amount":      e.Amount,
		"description": e.Description,
		"date":        e.Date,
	}, e.Status)
}

func withStatus(snapshot map[string]any, status string) map[string]any {
	if status != "" {
		snapshot["status"] = status
	}
	return snapshot
}
