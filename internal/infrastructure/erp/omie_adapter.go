package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// OmieAdapter implements accounting.Adapter for the Omie ERP RPC API.
// Every call posts an OmieRequest envelope; business errors come back as a
// faultstring inside the response and are checked after each call.
type OmieAdapter struct {
	config *OmieConfig
	helper *RequestHelper
	logger *zap.Logger
}

var _ accounting.Adapter = (*OmieAdapter)(nil)

// NewOmieAdapter creates a new Omie adapter with the given configuration
func NewOmieAdapter(config *OmieConfig, httpClient *http.Client, logger *zap.Logger) (*OmieAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OmieAdapter{
		config: config,
		helper: NewRequestHelper(RequestHelperConfig{
			BaseURL:      config.APIBaseURL,
			Timeout:      time.Duration(config.TimeoutSeconds) * time.Second,
			RateLimitRPS: config.RateLimitRPS,
		}, httpClient),
		logger: logger.Named("omie_adapter"),
	}, nil
}

// ProviderType returns ProviderTypeOmie
func (a *OmieAdapter) ProviderType() accounting.ProviderType {
	return accounting.ProviderTypeOmie
}

// TestConnection lists companies; any fault counts as unreachable
func (a *OmieAdapter) TestConnection(ctx context.Context) bool {
	param := map[string]int{"pagina": 1, "registros_por_pagina": 1}
	if err := a.call(ctx, omieServiceCompanies, omieCallListCompanies, param, nil); err != nil {
		a.logger.Warn("Omie connection test failed", zap.Error(err))
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Sync Operations
// ---------------------------------------------------------------------------

// SyncPayment creates an account receivable
func (a *OmieAdapter) SyncPayment(ctx context.Context, payment *accounting.Payment) *accounting.SyncResult {
	entry, err := a.receivableEntry(ctx, payment)
	if err != nil {
		return failureResult(err)
	}

	var resp OmieAccountEntryResponse
	if err := a.call(ctx, omieServiceReceivables, omieCallCreateReceivable, entry, &resp); err != nil {
		return failureResult(err)
	}
	return externalIDResult(resp.CodigoLancamentoOmie)
}

// SyncInvoice creates an order at the invoiced stage
func (a *OmieAdapter) SyncInvoice(ctx context.Context, invoice *accounting.Invoice) *accounting.SyncResult {
	order, err := a.order(ctx, invoice)
	if err != nil {
		return failureResult(err)
	}

	var resp OmieOrderResponse
	if err := a.call(ctx, omieServiceOrders, omieCallCreateOrder, order, &resp); err != nil {
		return failureResult(err)
	}
	return externalIDResult(resp.CodigoPedido)
}

// SyncExpense creates an account payable
func (a *OmieAdapter) SyncExpense(ctx context.Context, expense *accounting.Expense) *accounting.SyncResult {
	entry, err := a.payableEntry(expense)
	if err != nil {
		return failureResult(err)
	}

	var resp OmieAccountEntryResponse
	if err := a.call(ctx, omieServicePayables, omieCallCreatePayable, entry, &resp); err != nil {
		return failureResult(err)
	}
	return externalIDResult(resp.CodigoLancamentoOmie)
}

// UpdateExternal rewrites the Omie record identified by externalID through
// the matching Alterar* call
func (a *OmieAdapter) UpdateExternal(ctx context.Context, entity accounting.Entity, externalID string) error {
	code, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", accounting.ErrExternalIDMalformed, externalID)
	}

	switch e := entity.(type) {
	case *accounting.Payment:
		entry, err := a.receivableEntry(ctx, e)
		if err != nil {
			return err
		}
		entry.CodigoLancamentoOmie = code
		return a.call(ctx, omieServiceReceivables, omieCallUpdateReceivable, entry, nil)
	case *accounting.Invoice:
		order, err := a.order(ctx, e)
		if err != nil {
			return err
		}
		order.Cabecalho.CodigoPedido = code
		return a.call(ctx, omieServiceOrders, omieCallUpdateOrder, order, nil)
	case *accounting.Expense:
		entry, err := a.payableEntry(e)
		if err != nil {
			return err
		}
		entry.CodigoLancamentoOmie = code
		return a.call(ctx, omieServicePayables, omieCallUpdatePayable, entry, nil)
	default:
		return fmt.Errorf("%w: %s", accounting.ErrUnsupportedEntity, entity.EntityType())
	}
}

func (a *OmieAdapter) receivableEntry(ctx context.Context, payment *accounting.Payment) (OmieAccountEntry, error) {
	if err := ValidateRequired(map[string]any{
		"amount":      payment.Amount,
		"description": payment.Description,
		"date":        payment.Date,
	}); err != nil {
		return OmieAccountEntry{}, err
	}

	category := payment.Category
	if category == "" {
		category = a.config.DefaultPaymentCategory
	}

	entry := OmieAccountEntry{
		CodigoLancamentoIntegracao: payment.ID,
		DataVencimento:             FormatDate(payment.Date, OmieDateLayout),
		ValorDocumento:             FormatCurrency(payment.Amount),
		CodigoCategoria:            category,
		Observacao:                 payment.Description,
		TipoDocumento:              omieDocumentTypeReceiving,
	}
	if payment.ClientID != "" {
		clientCode, err := a.resolveClient(ctx, payment.ClientID, payment.Client)
		if err != nil {
			return OmieAccountEntry{}, err
		}
		entry.CodigoClienteFornecedor = clientCode
	}
	return entry, nil
}

func (a *OmieAdapter) payableEntry(expense *accounting.Expense) (OmieAccountEntry, error) {
	if err := ValidateRequired(map[string]any{
		"amount":      expense.Amount,
		"description": expense.Description,
		"date":        expense.Date,
	}); err != nil {
		return OmieAccountEntry{}, err
	}

	category := expense.Category
	if category == "" {
		category = a.config.DefaultExpenseCategory
	}

	return OmieAccountEntry{
		CodigoLancamentoIntegracao: expense.ID,
		DataVencimento:             FormatDate(expense.Date, OmieDateLayout),
		ValorDocumento:             FormatCurrency(expense.Amount),
		CodigoCategoria:            category,
		Observacao:                 expense.Description,
		TipoDocumento:              omieDocumentTypePaying,
	}, nil
}

func (a *OmieAdapter) order(ctx context.Context, invoice *accounting.Invoice) (OmieOrder, error) {
	if err := ValidateRequired(map[string]any{
		"number":    invoice.Number,
		"amount":    invoice.Amount,
		"client_id": invoice.ClientID,
		"items":     invoice.Items,
	}); err != nil {
		return OmieOrder{}, err
	}

	clientCode, err := a.resolveClient(ctx, invoice.ClientID, invoice.Client)
	if err != nil {
		return OmieOrder{}, err
	}

	order := OmieOrder{
		Cabecalho: OmieOrderHeader{
			CodigoPedidoIntegracao: invoice.ID,
			NumeroPedido:           invoice.Number,
			CodigoCliente:          clientCode,
			DataPrevisao:           FormatDate(invoice.DueDate, OmieDateLayout),
			Etapa:                  omieOrderStageInvoiced,
			CodigoParcela:          omieInstallmentCashPlan,
		},
		Det: make([]OmieOrderItem, 0, len(invoice.Items)),
	}
	for i, item := range invoice.Items {
		code := item.Code
		if code == "" {
			code = fmt.Sprintf("SERV%d", i+1)
		}
		order.Det = append(order.Det, OmieOrderItem{
			Ide: OmieOrderItemIDs{
				CodigoItemIntegracao: item.ID,
				SimplesNacional:      "S",
			},
			Produto: OmieOrderProduct{
				Codigo:        code,
				Descricao:     item.Description,
				NCM:           "00000000",
				TipoItem:      "S",
				Unidade:       "UN",
				ValorUnitario: FormatCurrency(item.UnitPrice),
				Quantidade:    item.EffectiveQuantity().String(),
			},
		})
	}
	return order, nil
}

// resolveClient returns the Omie code of a local client, creating the client
// from local data when Omie does not know it yet
func (a *OmieAdapter) resolveClient(ctx context.Context, clientID string, client *accounting.Client) (int64, error) {
	var found OmieClientResponse
	err := a.call(ctx, omieServiceClients, omieCallGetClient, map[string]string{
		"codigo_cliente_integracao": clientID,
	}, &found)
	if err == nil && found.CodigoClienteOmie != 0 {
		return found.CodigoClienteOmie, nil
	}

	var fault *accounting.ProviderFault
	if err != nil && !errors.As(err, &fault) {
		return 0, err
	}

	if client == nil {
		return 0, accounting.NewValidationError("client")
	}
	if err := ValidateRequired(map[string]any{"client.name": client.Name}); err != nil {
		return 0, err
	}

	a.logger.Info("Creating client in Omie", zap.String("client_id", clientID))

	var created OmieClientResponse
	if err := a.call(ctx, omieServiceClients, omieCallCreateClient, OmieClient{
		CodigoClienteIntegracao: clientID,
		RazaoSocial:             client.Name,
		NomeFantasia:            client.Name,
		CNPJCPF:                 client.Document,
		Email:                   client.Email,
		Telefone1Numero:         client.Phone,
	}, &created); err != nil {
		return 0, err
	}
	if created.CodigoClienteOmie == 0 {
		return 0, fmt.Errorf("%w: client created without code", accounting.ErrInvalidResponse)
	}
	return created.CodigoClienteOmie, nil
}

// ---------------------------------------------------------------------------
// Conflicts
// ---------------------------------------------------------------------------

// HandleConflict applies the configured strategy; manual by default
func (a *OmieAdapter) HandleConflict(ctx context.Context, conflict *accounting.DataConflict) *accounting.Resolution {
	return resolveByStrategy(a.config.ConflictStrategy, conflict, "conflict requires manual resolution in Omie")
}

// GetExternalData fetches the Omie record and exposes amount, description
// and date alongside the raw fields
func (a *OmieAdapter) GetExternalData(ctx context.Context, entityType accounting.EntityType, externalID string) (map[string]any, error) {
	code, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", accounting.ErrExternalIDMalformed, externalID)
	}

	data := make(map[string]any)
	switch entityType {
	case accounting.EntityTypePayment:
		err = a.call(ctx, omieServiceReceivables, omieCallGetReceivable, map[string]int64{"codigo_lancamento_omie": code}, &data)
	case accounting.EntityTypeExpense:
		err = a.call(ctx, omieServicePayables, omieCallGetPayable, map[string]int64{"codigo_lancamento_omie": code}, &data)
	case accounting.EntityTypeInvoice:
		err = a.call(ctx, omieServiceOrders, omieCallGetOrder, map[string]int64{"codigo_pedido": code}, &data)
	default:
		return nil, fmt.Errorf("%w: %s", accounting.ErrUnsupportedEntity, entityType)
	}
	if err != nil {
		return nil, err
	}

	if entityType == accounting.EntityTypeInvoice {
		normalizeOmieOrder(data)
	} else {
		normalizeOmieAccountEntry(data)
	}
	return data, nil
}

func normalizeOmieAccountEntry(data map[string]any) {
	copyField(data, "valor_documento", "amount")
	copyField(data, "observacao", "description")
	copyField(data, "data_vencimento", "date")
}

func normalizeOmieOrder(data map[string]any) {
	if header, ok := data["cabecalho"].(map[string]any); ok {
		copyFieldFrom(header, data, "numero_pedido", "description")
		copyFieldFrom(header, data, "data_previsao", "date")
	}
	if totals, ok := data["total_pedido"].(map[string]any); ok {
		copyFieldFrom(totals, data, "valor_total_pedido", "amount")
	}
}

func copyField(data map[string]any, from, to string) {
	copyFieldFrom(data, data, from, to)
}

func copyFieldFrom(src, dst map[string]any, from, to string) {
	if v, ok := src[from]; ok && v != nil {
		dst[to] = v
	}
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// call posts one RPC to service and decodes the response into out. Faults in
// both error and success responses become *accounting.ProviderFault.
func (a *OmieAdapter) call(ctx context.Context, service, method string, param, out any) error {
	req := OmieRequest{
		Call:      method,
		AppKey:    a.config.AppKey,
		AppSecret: a.config.AppSecret,
		Param:     []any{param},
	}

	var raw json.RawMessage
	if err := a.helper.Do(ctx, http.MethodPost, service, req, &raw); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			if fault := parseOmieFault(httpErr.Body); fault != nil {
				return fault.toProviderFault()
			}
		}
		return err
	}

	if fault := parseOmieFault(raw); fault != nil {
		return fault.toProviderFault()
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: %v", accounting.ErrInvalidResponse, err)
		}
	}
	return nil
}

func parseOmieFault(body []byte) *OmieFault {
	var fault OmieFault
	if err := json.Unmarshal(body, &fault); err != nil || fault.FaultString == "" {
		return nil
	}
	return &fault
}

func externalIDResult(code int64) *accounting.SyncResult {
	if code == 0 {
		return accounting.NewFailureResult(fmt.Errorf("%w: response carries no code", accounting.ErrInvalidResponse))
	}
	return accounting.NewSuccessResult(strconv.FormatInt(code, 10))
}
