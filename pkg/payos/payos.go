package payos

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Gateway is the payment surface the settlement service depends on.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error)
	VerifyWebhook(payload []byte) (*WebhookEvent, error)
}

// PaymentLinkRequest describes a hosted checkout to create.
type PaymentLinkRequest struct {
	OrderCode   int64
	Amount      decimal.Decimal
	Description string
}

// PaymentLink is the hosted checkout handed back to the carrier.
type PaymentLink struct {
	PaymentLinkID string
	OrderCode     int64
	CheckoutURL   string
	QRCode        string
}

// WebhookEvent is the payment notification posted by the gateway.
type WebhookEvent struct {
	Code      string      `json:"code"`
	Desc      string      `json:"desc"`
	Success   bool        `json:"success"`
	Data      WebhookData `json:"data"`
	Signature string      `json:"signature"`

	raw json.RawMessage
}

// RawData returns the data object exactly as it arrived on the wire.
func (e *WebhookEvent) RawData() json.RawMessage {
	return e.raw
}

// WebhookData carries the transaction details of a webhook event.
type WebhookData struct {
	OrderCode        int64  `json:"orderCode"`
	Amount           int64  `json:"amount"`
	Reference        string `json:"reference"`
	PaymentLinkID    string `json:"paymentLinkId"`
	TransactionTime  string `json:"transactionDateTime"`
	Code             string `json:"code"`
	Desc             string `json:"desc"`
	CounterAccountID string `json:"counterAccountBankId"`
}
