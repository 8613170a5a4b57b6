package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(NewClientConfig{AccessToken: "token", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestCreatePaymentSendsIdempotencyKey(t *testing.T) {
	var gotKey, gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     99,
			"status": "pending",
			"point_of_interaction": map[string]interface{}{
				"transaction_data": map[string]interface{}{
					"qr_code":        "code",
					"qr_code_base64": "Y29kZQ==",
					"ticket_url":     "https://example.test/t",
				},
			},
		})
	}))

	payment, err := client.CreatePayment(context.Background(), &PaymentRequest{
		TransactionAmount: 29.90,
		PaymentMethodID:   "pix",
		Payer:             Payer{Email: "dev@example.test"},
	}, "my-key")
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	if gotKey != "my-key" {
		t.Errorf("idempotency key = %q", gotKey)
	}
	if gotAuth != "Bearer token" {
		t.Errorf("authorization = %q", gotAuth)
	}
	qr, qrB64, ticket := payment.QRCodeData()
	if qr != "code" || qrB64 != "Y29kZQ==" || ticket != "https://example.test/t" {
		t.Errorf("qr data = %q %q %q", qr, qrB64, ticket)
	}
}

func TestCreatePaymentGeneratesKeyWhenEmpty(t *testing.T) {
	var gotKey string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Idempotency-Key")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 1, "status": "pending"})
	}))

	if _, err := client.CreatePayment(context.Background(), &PaymentRequest{}, ""); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if gotKey == "" {
		t.Error("expected a generated idempotency key")
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Payment not found"}`, http.StatusNotFound)
	}))

	_, err := client.GetPayment(context.Background(), "123")
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("err = %v, want ErrPaymentNotFound", err)
	}
}

func TestAPIErrorMessageSurfaced(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid access token","status":401}`, http.StatusUnauthorized)
	}))

	_, err := client.GetPayment(context.Background(), "123")
	if err == nil || !strings.Contains(err.Error(), "invalid access token") {
		t.Errorf("err = %v, want provider message surfaced", err)
	}
}

func TestCreatePreference(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/preferences" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "pref-1",
			"init_point": "https://example.test/init",
		})
	}))

	pref, err := client.CreatePreference(context.Background(), &PreferenceRequest{
		Items: []PreferenceItem{{Title: "Assinatura", Quantity: 1, UnitPrice: 29.90}},
	})
	if err != nil {
		t.Fatalf("CreatePreference: %v", err)
	}
	if pref.InitPoint != "https://example.test/init" {
		t.Errorf("init point = %q", pref.InitPoint)
	}
}
