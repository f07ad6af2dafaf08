package erp

import (
	"strings"

	"github.com/erp/acctsync/internal/domain/accounting"
)

// Omie service paths and calls
const (
	omieServiceCompanies   = "geral/empresas/"
	omieServiceClients     = "geral/clientes/"
	omieServiceReceivables = "financas/contareceber/"
	omieServicePayables    = "financas/contapagar/"
	omieServiceOrders      = "produtos/pedido/"

	omieCallListCompanies     = "ListarEmpresas"
	omieCallGetClient         = "ConsultarCliente"
	omieCallCreateClient      = "IncluirCliente"
	omieCallCreateReceivable  = "IncluirContaReceber"
	omieCallGetReceivable     = "ConsultarContaReceber"
	omieCallCreatePayable     = "IncluirContaPagar"
	omieCallGetPayable        = "ConsultarContaPagar"
	omieCallCreateOrder       = "IncluirPedido"
	omieCallGetOrder          = "ConsultarPedido"
	omieCallUpdateReceivable  = "AlterarContaReceber"
	omieCallUpdatePayable     = "AlterarContaPagar"
	omieCallUpdateOrder       = "AlterarPedido"
	omieOrderStageInvoiced    = "50"
	omieInstallmentCashPlan   = "000"
	omieDocumentTypeReceiving = "REC"
	omieDocumentTypePaying    = "PAG"
)

// OmieRequest is the RPC envelope posted to every Omie service
type OmieRequest struct {
	Call      string `json:"call"`
	AppKey    string `json:"app_key"`
	AppSecret string `json:"app_secret"`
	Param     []any  `json:"param"`
}

// OmieFault is the business error shape Omie embeds in responses
type OmieFault struct {
	FaultString string `json:"faultstring"`
	FaultCode   string `json:"faultcode"`
}

// toProviderFault classifies the fault. Duplicates never go away on retry.
func (f *OmieFault) toProviderFault() *accounting.ProviderFault {
	msg := strings.ToLower(f.FaultString)
	duplicate := strings.Contains(msg, "já cadastrad") ||
		strings.Contains(msg, "ja cadastrad") ||
		strings.Contains(msg, "duplicad")
	return &accounting.ProviderFault{
		Code:      f.FaultCode,
		Message:   f.FaultString,
		Retryable: !duplicate,
	}
}

// OmieAccountEntry is a receivable (IncluirContaReceber) or payable
// (IncluirContaPagar) entry
type OmieAccountEntry struct {
	CodigoLancamentoOmie       int64  `json:"codigo_lancamento_omie,omitempty"`
	CodigoLancamentoIntegracao string `json:"codigo_lancamento_integracao"`
	DataVencimento             string `json:"data_vencimento"`
	ValorDocumento             string `json:"valor_documento"`
	CodigoCategoria            string `json:"codigo_categoria"`
	Observacao                 string `json:"observacao"`
	CodigoClienteFornecedor    int64  `json:"codigo_cliente_fornecedor,omitempty"`
	TipoDocumento              string `json:"tipo_documento"`
}

// OmieAccountEntryResponse is returned by the Incluir* account calls
type OmieAccountEntryResponse struct {
	CodigoLancamentoOmie       int64  `json:"codigo_lancamento_omie"`
	CodigoLancamentoIntegracao string `json:"codigo_lancamento_integracao"`
	CodigoStatus               string `json:"codigo_status"`
	DescricaoStatus            string `json:"descricao_status"`
}

// OmieOrderHeader is the cabecalho block of an order
type OmieOrderHeader struct {
	CodigoPedido           int64  `json:"codigo_pedido,omitempty"`
	CodigoPedidoIntegracao string `json:"codigo_pedido_integracao"`
	NumeroPedido           string `json:"numero_pedido"`
	CodigoCliente          int64  `json:"codigo_cliente"`
	DataPrevisao           string `json:"data_previsao"`
	Etapa                  string `json:"etapa"`
	CodigoParcela          string `json:"codigo_parcela"`
}

// OmieOrderItemIDs is the ide block of an order line
type OmieOrderItemIDs struct {
	CodigoItemIntegracao string `json:"codigo_item_integracao"`
	SimplesNacional      string `json:"simples_nacional"`
}

// OmieOrderProduct is the produto block of an order line
type OmieOrderProduct struct {
	Codigo        string `json:"codigo"`
	Descricao     string `json:"descricao"`
	NCM           string `json:"ncm"`
	TipoItem      string `json:"tipo_item"`
	Unidade       string `json:"unidade"`
	ValorUnitario string `json:"valor_unitario"`
	Quantidade    string `json:"quantidade"`
}

// OmieOrderItem is one det entry of an order
type OmieOrderItem struct {
	Ide     OmieOrderItemIDs `json:"ide"`
	Produto OmieOrderProduct `json:"produto"`
}

// OmieOrder is the IncluirPedido payload
type OmieOrder struct {
	Cabecalho OmieOrderHeader `json:"cabecalho"`
	Det       []OmieOrderItem `json:"det"`
}

// OmieOrderResponse is returned by IncluirPedido
type OmieOrderResponse struct {
	CodigoPedido           int64  `json:"codigo_pedido"`
	CodigoPedidoIntegracao string `json:"codigo_pedido_integracao"`
	NumeroPedido           string `json:"numero_pedido"`
	CodigoStatus           string `json:"codigo_status"`
}

// OmieClient is the IncluirCliente payload
type OmieClient struct {
	CodigoClienteIntegracao string `json:"codigo_cliente_integracao"`
	RazaoSocial             string `json:"razao_social"`
	NomeFantasia            string `json:"nome_fantasia"`
	CNPJCPF                 string `json:"cnpj_cpf,omitempty"`
	Email                   string `json:"email,omitempty"`
	Telefone1Numero         string `json:"telefone1_numero,omitempty"`
}

// OmieClientResponse is returned by ConsultarCliente and IncluirCliente
type OmieClientResponse struct {
	CodigoClienteOmie       int64  `json:"codigo_cliente_omie"`
	CodigoClienteIntegracao string `json:"codigo_cliente_integracao"`
}
