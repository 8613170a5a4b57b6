package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/mercadopago"
	"cafezao-backend-go/internal/models"
)

// fakeProvider is an httptest-backed Mercado Pago stand-in. Payment status
// answers can be changed mid-test to drive the poller.
type fakeProvider struct {
	mu     sync.Mutex
	status string
	server *httptest.Server
	// last external reference seen on a create call
	lastRef string
}

func newFakeProvider(t *testing.T, initialStatus string) *fakeProvider {
	t.Helper()
	p := &fakeProvider{status: initialStatus}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Idempotency-Key") == "" {
			http.Error(w, `{"message":"missing idempotency key"}`, http.StatusBadRequest)
			return
		}
		var body struct {
			ExternalReference string `json:"external_reference"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		p.mu.Lock()
		p.lastRef = body.ExternalReference
		status := p.status
		p.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     12345,
			"status": status,
			"point_of_interaction": map[string]interface{}{
				"transaction_data": map[string]interface{}{
					"qr_code":        "pix-copy-paste-code",
					"qr_code_base64": "cGl4",
					"ticket_url":     "https://example.test/ticket",
				},
			},
		})
	})
	mux.HandleFunc("/v1/payments/", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		status := p.status
		ref := p.lastRef
		p.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                 12345,
			"status":             status,
			"status_detail":      "accredited",
			"external_reference": ref,
		})
	})
	mux.HandleFunc("/checkout/preferences", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         "pref-1",
			"init_point": "https://example.test/checkout",
		})
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) setStatus(status string) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
}

func (p *fakeProvider) client(t *testing.T) *mercadopago.Client {
	t.Helper()
	client, err := mercadopago.NewClient(mercadopago.NewClientConfig{
		AccessToken: "test-token",
		BaseURL:     p.server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

type paymentFixture struct {
	svc      PaymentService
	users    *fakeUserRepo
	payments *fakePaymentRepo
	notify   *nopNotify
	userID   string
}

func newPaymentFixture(t *testing.T, provider *fakeProvider, pollInterval time.Duration, maxAttempts int) *paymentFixture {
	t.Helper()
	users := newFakeUserRepo()
	payments := newFakePaymentRepo()
	notify := &nopNotify{}

	user := &models.User{
		ID:                 "user-1",
		Email:              "dev@example.test",
		UserName:           "Dev",
		SubscriptionStatus: models.SubscriptionInactive,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	svc := NewPaymentService(
		payments,
		users,
		newFixedSettings(),
		notify,
		provider.client(t),
		nil,
		"",
		pollInterval,
		maxAttempts,
		zap.NewNop(),
	)
	return &paymentFixture{svc: svc, users: users, payments: payments, notify: notify, userID: user.ID}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached before timeout")
}

func TestCreatePixPayment(t *testing.T) {
	provider := newFakeProvider(t, "pending")
	f := newPaymentFixture(t, provider, time.Hour, 0)
	defer f.svc.StopPolling(f.userID)

	payment, err := f.svc.CreatePixPayment(context.Background(), f.userID, models.CreatePaymentRequest{
		Amount: 29.90,
		Method: models.MethodPix,
	})
	if err != nil {
		t.Fatalf("CreatePixPayment: %v", err)
	}

	if payment.QRCode != "pix-copy-paste-code" {
		t.Errorf("QRCode = %q", payment.QRCode)
	}
	if payment.ProviderPaymentID != "12345" {
		t.Errorf("ProviderPaymentID = %q", payment.ProviderPaymentID)
	}
	if payment.Amount != 29.90 {
		t.Errorf("pix amount = %v, want base price with no surcharge", payment.Amount)
	}

	user, err := f.users.GetByID(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.SubscriptionStatus != models.SubscriptionEvaluating {
		t.Errorf("subscription = %q, want %q", user.SubscriptionStatus, models.SubscriptionEvaluating)
	}
	if user.LastPaymentID != payment.ID {
		t.Errorf("lastPaymentId = %q, want %q", user.LastPaymentID, payment.ID)
	}
}

func TestCreateCheckoutPaymentAppliesSurcharge(t *testing.T) {
	provider := newFakeProvider(t, "pending")
	f := newPaymentFixture(t, provider, time.Hour, 0)
	defer f.svc.StopPolling(f.userID)

	payment, err := f.svc.CreateCheckoutPayment(context.Background(), f.userID, models.CreatePaymentRequest{
		Amount: 30,
		Method: models.MethodCredit,
	})
	if err != nil {
		t.Fatalf("CreateCheckoutPayment: %v", err)
	}
	if payment.Amount != 33 {
		t.Errorf("credit amount = %v, want 33", payment.Amount)
	}
	if payment.InitPoint != "https://example.test/checkout" {
		t.Errorf("InitPoint = %q", payment.InitPoint)
	}
}

func TestPollerApprovesPayment(t *testing.T) {
	provider := newFakeProvider(t, "approved")
	f := newPaymentFixture(t, provider, 20*time.Millisecond, 0)

	payment, err := f.svc.CreatePixPayment(context.Background(), f.userID, models.CreatePaymentRequest{
		Amount: 29.90,
		Method: models.MethodPix,
	})
	if err != nil {
		t.Fatalf("CreatePixPayment: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		p, err := f.payments.GetByID(context.Background(), payment.ID)
		return err == nil && p.Status == models.PaymentApproved
	})

	user, err := f.users.GetByID(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.SubscriptionStatus != models.SubscriptionActive {
		t.Errorf("subscription = %q, want active", user.SubscriptionStatus)
	}
	if user.SubscriptionEndDate == nil {
		t.Fatal("subscription end date not set")
	}
	remaining := time.Until(*user.SubscriptionEndDate)
	if remaining < 29*24*time.Hour || remaining > 31*24*time.Hour {
		t.Errorf("subscription window = %v, want about 30 days", remaining)
	}

	// The approval push must go out before the watcher is stopped; stopping
	// first hands the FCM send an already-cancelled context.
	waitFor(t, 2*time.Second, func() bool {
		f.notify.mu.Lock()
		defer f.notify.mu.Unlock()
		return len(f.notify.titles) == 1
	})
	f.notify.mu.Lock()
	title := f.notify.titles[0]
	ctxErr := f.notify.ctxErrs[0]
	f.notify.mu.Unlock()
	if title != "Pagamento aprovado!" {
		t.Errorf("push title = %q", title)
	}
	if ctxErr != nil {
		t.Errorf("push sent with dead context: %v", ctxErr)
	}
}

func TestPollerExpiresPayment(t *testing.T) {
	provider := newFakeProvider(t, "pending")
	f := newPaymentFixture(t, provider, 20*time.Millisecond, 3)

	payment, err := f.svc.CreatePixPayment(context.Background(), f.userID, models.CreatePaymentRequest{
		Amount: 29.90,
		Method: models.MethodPix,
	})
	if err != nil {
		t.Fatalf("CreatePixPayment: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		p, err := f.payments.GetByID(context.Background(), payment.ID)
		return err == nil && p.Status == models.PaymentExpired
	})

	user, _ := f.users.GetByID(context.Background(), f.userID)
	if user.SubscriptionStatus != models.SubscriptionInactive {
		t.Errorf("subscription = %q, want inactive after expiry", user.SubscriptionStatus)
	}
}

func TestApplyProviderStatusIdempotent(t *testing.T) {
	provider := newFakeProvider(t, "pending")
	f := newPaymentFixture(t, provider, time.Hour, 0)
	defer f.svc.StopPolling(f.userID)

	payment, err := f.svc.CreatePixPayment(context.Background(), f.userID, models.CreatePaymentRequest{
		Amount: 29.90,
		Method: models.MethodPix,
	})
	if err != nil {
		t.Fatalf("CreatePixPayment: %v", err)
	}

	// Webhook delivers approval twice; the second application must not
	// touch the user again or emit a second push.
	provider.setStatus("approved")
	if err := f.svc.HandleWebhook(context.Background(), "12345"); err != nil {
		t.Fatalf("first webhook: %v", err)
	}
	if err := f.svc.HandleWebhook(context.Background(), "12345"); err != nil {
		t.Fatalf("second webhook: %v", err)
	}

	p, _ := f.payments.GetByID(context.Background(), payment.ID)
	if p.Status != models.PaymentApproved {
		t.Errorf("payment status = %q", p.Status)
	}
	f.notify.mu.Lock()
	pushes := len(f.notify.titles)
	f.notify.mu.Unlock()
	if pushes != 1 {
		t.Errorf("pushes = %d, want exactly 1", pushes)
	}
}

func TestClearPendingPaymentsIdempotent(t *testing.T) {
	provider := newFakeProvider(t, "pending")
	f := newPaymentFixture(t, provider, time.Hour, 0)

	if _, err := f.svc.CreatePixPayment(context.Background(), f.userID, models.CreatePaymentRequest{
		Amount: 29.90,
		Method: models.MethodPix,
	}); err != nil {
		t.Fatalf("CreatePixPayment: %v", err)
	}

	deleted, err := f.svc.ClearPendingPayments(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("ClearPendingPayments: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	// Second clear finds nothing but still resets the subscription.
	deleted, err = f.svc.ClearPendingPayments(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("second ClearPendingPayments: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}

	user, _ := f.users.GetByID(context.Background(), f.userID)
	if user.SubscriptionStatus != models.SubscriptionInactive {
		t.Errorf("subscription = %q, want inactive", user.SubscriptionStatus)
	}
	if user.LastPaymentID != "" {
		t.Errorf("lastPaymentId = %q, want cleared", user.LastPaymentID)
	}
}

func TestFinancialReport(t *testing.T) {
	provider := newFakeProvider(t, "pending")
	f := newPaymentFixture(t, provider, time.Hour, 0)
	defer f.svc.StopPolling(f.userID)

	payment, err := f.svc.CreatePixPayment(context.Background(), f.userID, models.CreatePaymentRequest{
		Amount: 29.90,
		Method: models.MethodPix,
	})
	if err != nil {
		t.Fatalf("CreatePixPayment: %v", err)
	}
	provider.setStatus("approved")
	if err := f.svc.HandleWebhook(context.Background(), "12345"); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	report, err := f.svc.FinancialReport(context.Background(), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("FinancialReport: %v", err)
	}
	if report.TotalPayments != 1 || report.ApprovedCount != 1 {
		t.Errorf("report = %+v", report)
	}
	if report.ApprovedTotal != payment.Amount {
		t.Errorf("approved total = %v, want %v", report.ApprovedTotal, payment.Amount)
	}
}

func TestCreatePaymentSupersedesStalePending(t *testing.T) {
	provider := newFakeProvider(t, "pending")
	f := newPaymentFixture(t, provider, time.Hour, 0)
	defer f.svc.StopPolling(f.userID)

	first, err := f.svc.CreatePixPayment(context.Background(), f.userID, models.CreatePaymentRequest{
		Amount: 29.90,
		Method: models.MethodPix,
	})
	if err != nil {
		t.Fatalf("first CreatePixPayment: %v", err)
	}

	second, err := f.svc.CreateCheckoutPayment(context.Background(), f.userID, models.CreatePaymentRequest{
		Amount: 30,
		Method: models.MethodCredit,
	})
	if err != nil {
		t.Fatalf("CreateCheckoutPayment: %v", err)
	}

	pending, err := f.payments.ListPendingByUser(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("ListPendingByUser: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("pending = %+v, want only the newest attempt %q", pending, second.ID)
	}
	if _, err := f.payments.GetByID(context.Background(), first.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("stale pending payment still exists (err = %v)", err)
	}
}
