package erp

// genericMetadata tags records created by this service
type genericMetadata struct {
	Source     string `json:"source"`
	OriginalID string `json:"original_id"`
}

// genericPayment is the payload posted for payments and expenses. Amounts
// hold a decimal string or integer minor units depending on the config.
type genericPayment struct {
	ID          string          `json:"id"`
	Amount      any             `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	ClientID    string          `json:"client_id,omitempty"`
	Metadata    genericMetadata `json:"metadata"`
}

type genericInvoiceItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   any    `json:"unit_price"`
	Total       any    `json:"total"`
}

type genericInvoice struct {
	ID       string               `json:"id"`
	Number   string               `json:"number"`
	Amount   any                  `json:"amount"`
	ClientID string               `json:"client_id"`
	DueDate  string               `json:"due_date"`
	Status   string               `json:"status"`
	Items    []genericInvoiceItem `json:"items"`
	Metadata genericMetadata      `json:"metadata"`
}

// genericCreateResponse is the body returned on create (and on 409)
type genericCreateResponse struct {
	ID any `json:"id"`
}

// metadataSource identifies this service in external records
const metadataSource = "acctsync"
