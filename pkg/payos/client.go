package payos

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/config"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
)

const paymentRequestsPath = "/v2/payment-requests"

var (
	errClientIDRequired    = errors.New("payos client id is required")
	errAPIKeyRequired      = errors.New("payos api key is required")
	errChecksumKeyRequired = errors.New("payos checksum key is required")
	errLoggerRequired      = errors.New("payos logger is required")
)

// Client talks to the PayOS merchant API with centralized auth, signing, and
// error mapping.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	clientID    string
	apiKey      string
	checksumKey string
	returnURL   string
	cancelURL   string
	logger      *logger.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient initializes the PayOS wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PayOSConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errClientIDRequired
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errAPIKeyRequired
	}
	if strings.TrimSpace(cfg.ChecksumKey) == "" {
		return nil, errChecksumKeyRequired
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		clientID:    strings.TrimSpace(cfg.ClientID),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		checksumKey: strings.TrimSpace(cfg.ChecksumKey),
		returnURL:   cfg.ReturnURL,
		cancelURL:   cfg.CancelURL,
		logger:      logg,
	}

	logg.Info(ctx, "payos client initialized")
	return c, nil
}

type paymentRequestBody struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

type paymentRequestResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		PaymentLinkID string `json:"paymentLinkId"`
		OrderCode     int64  `json:"orderCode"`
		CheckoutURL   string `json:"checkoutUrl"`
		QRCode        string `json:"qrCode"`
	} `json:"data"`
}

// CreatePaymentLink registers a checkout with the gateway and returns the
// hosted payment link.
func (c *Client) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	if req.OrderCode <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code must be positive")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	// PayOS amounts are whole VND.
	amount := req.Amount.Round(0).IntPart()

	body := paymentRequestBody{
		OrderCode:   req.OrderCode,
		Amount:      amount,
		Description: req.Description,
		ReturnURL:   c.returnURL,
		CancelURL:   c.cancelURL,
	}
	body.Signature = c.signPaymentRequest(body)

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+paymentRequestsPath, bytes.NewReader(encoded))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build payment request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "call payment gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, fmt.Sprintf("payment gateway returned status %d", resp.StatusCode))
	}

	var decoded paymentRequestResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "decode gateway response")
	}
	if decoded.Code != "00" {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, fmt.Sprintf("payment gateway rejected request: %s %s", decoded.Code, decoded.Desc))
	}
	if decoded.Data.CheckoutURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "gateway response missing checkout url")
	}

	return &PaymentLink{
		PaymentLinkID: decoded.Data.PaymentLinkID,
		OrderCode:     decoded.Data.OrderCode,
		CheckoutURL:   decoded.Data.CheckoutURL,
		QRCode:        decoded.Data.QRCode,
	}, nil
}

// VerifyWebhook checks the payload signature and returns the parsed event.
// The signature covers the data object with keys sorted alphabetically.
func (c *Client) VerifyWebhook(payload []byte) (*WebhookEvent, error) {
	var envelope struct {
		Code      string          `json:"code"`
		Desc      string          `json:"desc"`
		Success   bool            `json:"success"`
		Data      json.RawMessage `json:"data"`
		Signature string          `json:"signature"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload")
	}
	if envelope.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "webhook signature missing")
	}
	if len(envelope.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook data missing")
	}

	expected := c.signWebhookData(envelope.Data)
	if !hmac.Equal([]byte(expected), []byte(envelope.Signature)) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "webhook signature mismatch")
	}

	event := &WebhookEvent{
		Code:      envelope.Code,
		Desc:      envelope.Desc,
		Success:   envelope.Success,
		Signature: envelope.Signature,
		raw:       envelope.Data,
	}
	if err := json.Unmarshal(envelope.Data, &event.Data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook data")
	}

	return event, nil
}

func (c *Client) signPaymentRequest(body paymentRequestBody) string {
	msg := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		body.Amount, body.CancelURL, body.Description, body.OrderCode, body.ReturnURL)
	return c.hmacHex(msg)
}

func (c *Client) signWebhookData(data json.RawMessage) string {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, canonicalValue(fields[k])))
	}
	return c.hmacHex(strings.Join(parts, "&"))
}

func canonicalValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		// json numbers decode as float64; integral values print without a
		// fraction, matching the wire form.
		return fmt.Sprintf("%v", typed)
	case bool:
		return fmt.Sprintf("%t", typed)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func (c *Client) hmacHex(msg string) string {
	mac := hmac.New(sha256.New, []byte(c.checksumKey))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
