package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// The ledger models are read views over the tables owned by the primary
// business system. The sync service only writes to them when a conflict is
// resolved in favour of the external system.

// ClientModel is a counterparty of payments and invoices
type ClientModel struct {
	ID        string `gorm:"type:varchar(100);primaryKey"`
	Name      string `gorm:"type:varchar(200);not null"`
	Document  string `gorm:"type:varchar(50)"`
	Email     string `gorm:"type:varchar(200)"`
	Phone     string `gorm:"type:varchar(50)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the model to a domain client
func (m *ClientModel) ToDomain() *accounting.Client {
	return &accounting.Client{
		ID:       m.ID,
		Name:     m.Name,
		Document: m.Document,
		Email:    m.Email,
		Phone:    m.Phone,
	}
}

// PaymentModel is a payment received
type PaymentModel struct {
	ID          string          `gorm:"type:varchar(100);primaryKey"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Description string          `gorm:"type:varchar(500)"`
	Date        time.Time       `gorm:"not null"`
	ClientID    string          `gorm:"type:varchar(100);index"`
	Category    string          `gorm:"type:varchar(50)"`
	Status      string          `gorm:"type:varchar(20)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the model to a domain payment
func (m *PaymentModel) ToDomain() *accounting.Payment {
	return &accounting.Payment{
		ID:          m.ID,
		Amount:      m.Amount,
		Description: m.Description,
		Date:        m.Date,
		ClientID:    m.ClientID,
		Category:    m.Category,
		Status:      m.Status,
	}
}

// InvoiceModel is an invoice issued to a client
type InvoiceModel struct {
	ID        string             `gorm:"type:varchar(100);primaryKey"`
	Number    string             `gorm:"type:varchar(50);not null"`
	Amount    decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	ClientID  string             `gorm:"type:varchar(100);index"`
	IssuedAt  time.Time
	DueDate   time.Time
	Status    string             `gorm:"type:varchar(20)"`
	Items     []InvoiceItemModel `gorm:"foreignKey:InvoiceID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the model and its preloaded items to a domain invoice
func (m *InvoiceModel) ToDomain() *accounting.Invoice {
	items := make([]accounting.InvoiceItem, 0, len(m.Items))
	for i := range m.Items {
		items = append(items, m.Items[i].ToDomain())
	}
	return &accounting.Invoice{
		ID:       m.ID,
		Number:   m.Number,
		Amount:   m.Amount,
		ClientID: m.ClientID,
		IssuedAt: m.IssuedAt,
		DueDate:  m.DueDate,
		Status:   m.Status,
		Items:    items,
	}
}

// InvoiceItemModel is a billed line of an invoice
type InvoiceItemModel struct {
	ID          string          `gorm:"type:varchar(100);primaryKey"`
	InvoiceID   string          `gorm:"type:varchar(100);not null;index"`
	Position    int             `gorm:"not null"`
	Code        string          `gorm:"type:varchar(50)"`
	Description string          `gorm:"type:varchar(500)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4)"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2)"`
	Total       decimal.Decimal `gorm:"type:decimal(18,2)"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the model to a domain invoice item
func (m *InvoiceItemModel) ToDomain() accounting.InvoiceItem {
	return accounting.InvoiceItem{
		ID:          m.ID,
		Code:        m.Code,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Total:       m.Total,
	}
}

// ExpenseModel is money paid out
type ExpenseModel struct {
	ID          string          `gorm:"type:varchar(100);primaryKey"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Description string          `gorm:"type:varchar(500)"`
	Date        time.Time       `gorm:"not null"`
	Category    string          `gorm:"type:varchar(50)"`
	SupplierID  string          `gorm:"type:varchar(100)"`
	Status      string          `gorm:"type:varchar(20)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ToDomain converts the model to a domain expense
func (m *ExpenseModel) ToDomain() *accounting.Expense {
	return &accounting.Expense{
		ID:          m.ID,
		Amount:      m.Amount,
		Description: m.Description,
		Date:        m.Date,
		Category:    m.Category,
		SupplierID:  m.SupplierID,
		Status:      m.Status,
	}
}

// AllModels lists every model for schema setup in tests and development
func AllModels() []any {
	return []any{
		&SyncRecordModel{},
		&AccountingSystemModel{},
		&ClientModel{},
		&PaymentModel{},
		&InvoiceModel{},
		&InvoiceItemModel{},
		&ExpenseModel{},
	}
}
