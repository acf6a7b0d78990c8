package clients

import "context"

// InvoiceClient calls the invoicing collaborator.
type InvoiceClient struct {
	base *BaseClient
}

// NewInvoiceClient returns client instance.
func NewInvoiceClient(baseURL string, httpClient HTTPDoer) *InvoiceClient {
	return &InvoiceClient{base: NewBaseClient(baseURL, httpClient)}
}

type createInvoiceRequest struct {
	SessionID string  `json:"session_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// CreateInvoice requests one invoice for a completed, billed session.
func (c *InvoiceClient) CreateInvoice(ctx context.Context, sessionID string, amount float64, currency string) error {
	return c.base.PostJSON(ctx, "/invoices", createInvoiceRequest{
		SessionID: sessionID,
		Amount:    amount,
		Currency:  currency,
	})
}
