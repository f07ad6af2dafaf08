package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/erp/acctsync/internal/domain/accounting"
	"github.com/erp/acctsync/internal/infrastructure/persistence/models"
)

// GormLedgerRepository reads payments, invoices and expenses for the sync
// orchestrator and applies external data when a conflict is resolved in
// favour of the external system
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// GetPayment loads a payment and its client
func (r *GormLedgerRepository) GetPayment(ctx context.Context, id string) (*accounting.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, entityLookupError(err, accounting.EntityTypePayment, id)
	}

	payment := model.ToDomain()
	client, err := r.findClient(ctx, model.ClientID)
	if err != nil {
		return nil, err
	}
	payment.Client = client
	return payment, nil
}

// GetInvoice loads an invoice with its items in position order and its client
func (r *GormLedgerRepository) GetInvoice(ctx context.Context, id string) (*accounting.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, entityLookupError(err, accounting.EntityTypeInvoice, id)
	}

	invoice := model.ToDomain()
	client, err := r.findClient(ctx, model.ClientID)
	if err != nil {
		return nil, err
	}
	invoice.Client = client
	return invoice, nil
}

// GetExpense loads an expense
func (r *GormLedgerRepository) GetExpense(ctx context.Context, id string) (*accounting.Expense, error) {
	var model models.ExpenseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, entityLookupError(err, accounting.EntityTypeExpense, id)
	}
	return model.ToDomain(), nil
}

// ApplyExternalData overwrites the compared fields of a local entity with the
// external values. Fields the entity does not carry are ignored.
func (r *GormLedgerRepository) ApplyExternalData(ctx context.Context, entityType accounting.EntityType, entityID string, data map[string]any) error {
	var model any
	// invoices keep the number in place of a description and the due date in place of a date
	columns := map[string]string{"amount": "amount", "description": "description", "date": "date", "status": "status"}

	switch entityType {
	case accounting.EntityTypePayment:
		model = &models.PaymentModel{}
	case accounting.EntityTypeExpense:
		model = &models.ExpenseModel{}
	case accounting.EntityTypeInvoice:
		model = &models.InvoiceModel{}
		columns["description"] = "number"
		columns["date"] = "due_date"
	default:
		return fmt.Errorf("%w: %s", accounting.ErrUnsupportedEntity, entityType)
	}

	updates, err := externalUpdates(data, columns)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(model).Where("id = ?", entityID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", accounting.ErrEntityNotFound, entityType, entityID)
	}
	return nil
}

func (r *GormLedgerRepository) findClient(ctx context.Context, clientID string) (*accounting.Client, error) {
	if clientID == "" {
		return nil, nil
	}
	var model models.ClientModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// externalUpdates converts external values into column updates
func externalUpdates(data map[string]any, columns map[string]string) (map[string]any, error) {
	updates := make(map[string]any)
	for field, column := range columns {
		value, ok := data[field]
		if !ok || value == nil {
			continue
		}
		switch field {
		case "amount":
			amount, err := accounting.ParseAmount(value)
			if err != nil {
				return nil, fmt.Errorf("external amount %v: %w", value, err)
			}
			updates[column] = amount
		case "date":
			date, err := accounting.ParseDate(value)
			if err != nil {
				return nil, err
			}
			updates[column] = date.UTC()
		default:
			updates[column] = fmt.Sprint(value)
		}
	}
	return updates, nil
}

func entityLookupError(err error, entityType accounting.EntityType, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", accounting.ErrEntityNotFound, entityType, id)
	}
	return err
}

var (
	_ accounting.EntityReader = (*GormLedgerRepository)(nil)
	_ accounting.LocalWriter  = (*GormLedgerRepository)(nil)
)
