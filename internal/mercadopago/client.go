// Package mercadopago is a minimal REST client for the Mercado Pago payments
// API covering the operations the subscription flow needs: direct PIX
// payments, checkout preferences for credit card, and payment status lookup.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the production Mercado Pago API endpoint.
const DefaultBaseURL = "https://api.mercadopago.com"

// ErrPaymentNotFound is returned when the provider does not know the payment.
var ErrPaymentNotFound = errors.New("mercadopago: payment not found")

// Client calls the Mercado Pago REST API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClientConfig contains options for creating a new Client.
type NewClientConfig struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// NewClient creates a new Client.
func NewClient(cfg NewClientConfig) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("mercadopago: access token is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// PaymentRequest is the payload for a direct PIX payment.
type PaymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	ExternalReference string  `json:"external_reference,omitempty"`
	Payer             Payer   `json:"payer"`
}

// Payer identifies who is paying.
type Payer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

// Payment is the provider's view of a payment.
type Payment struct {
	ID                 int64               `json:"id"`
	Status             string              `json:"status"`
	StatusDetail       string              `json:"status_detail"`
	ExternalReference  string              `json:"external_reference"`
	TransactionAmount  float64             `json:"transaction_amount"`
	PointOfInteraction *PointOfInteraction `json:"point_of_interaction,omitempty"`
}

// PointOfInteraction carries the PIX transaction data.
type PointOfInteraction struct {
	TransactionData *TransactionData `json:"transaction_data,omitempty"`
}

// TransactionData holds the copy-paste code, the rendered QR and the payment
// voucher URL for a PIX charge.
type TransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

// QRCodeData extracts the PIX QR fields, tolerating absent nesting.
func (p *Payment) QRCodeData() (qrCode, qrCodeBase64, ticketURL string) {
	if p.PointOfInteraction == nil || p.PointOfInteraction.TransactionData == nil {
		return "", "", ""
	}
	td := p.PointOfInteraction.TransactionData
	return td.QRCode, td.QRCodeBase64, td.TicketURL
}

// PreferenceRequest is the payload for a checkout preference (credit card).
type PreferenceRequest struct {
	Items             []PreferenceItem  `json:"items"`
	Payer             *Payer            `json:"payer,omitempty"`
	ExternalReference string            `json:"external_reference,omitempty"`
	BackURLs          *PreferenceURLs   `json:"back_urls,omitempty"`
	AutoReturn        string            `json:"auto_return,omitempty"`
	PaymentMethods    *PreferenceLimits `json:"payment_methods,omitempty"`
}

// PreferenceItem is a single line item on a checkout preference.
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id,omitempty"`
}

// PreferenceURLs are the post-checkout redirect targets.
type PreferenceURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

// PreferenceLimits restricts which payment methods checkout offers.
type PreferenceLimits struct {
	ExcludedPaymentTypes []PaymentTypeRef `json:"excluded_payment_types,omitempty"`
	Installments         int              `json:"installments,omitempty"`
}

// PaymentTypeRef names a payment type by ID.
type PaymentTypeRef struct {
	ID string `json:"id"`
}

// Preference is the provider's response to a preference creation.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// CreatePayment creates a direct payment. The idempotency key dedupes retries
// on the provider side; when empty a fresh one is generated.
func (c *Client) CreatePayment(ctx context.Context, req *PaymentRequest, idempotencyKey string) (*Payment, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	headers := map[string]string{"X-Idempotency-Key": idempotencyKey}

	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/v1/payments", headers, req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPayment fetches the current state of a payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, nil, &payment)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreatePreference creates a hosted checkout preference.
func (c *Client) CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error) {
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", nil, req, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("mercadopago: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("mercadopago: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago: request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("mercadopago: failed to read response from %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrPaymentNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("mercadopago: %s returned %d: %s", path, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("mercadopago: %s returned %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("mercadopago: failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}
