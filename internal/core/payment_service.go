package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cafezao-backend-go/internal/cache"
	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/mercadopago"
	"cafezao-backend-go/internal/models"
)

// Custom errors for the PaymentService
var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrForbiddenAccess = errors.New("payment belongs to another user")
	ErrInvalidMethod   = errors.New("unknown payment method")
)

// SubscriptionPeriod is how long one approved payment keeps the
// subscription active.
const SubscriptionPeriod = 30 * 24 * time.Hour

// FinancialReport aggregates payment intents over a period.
type FinancialReport struct {
	From          time.Time      `json:"from"`
	To            time.Time      `json:"to"`
	TotalPayments int            `json:"totalPayments"`
	ApprovedCount int            `json:"approvedCount"`
	ApprovedTotal float64        `json:"approvedTotal"`
	PendingCount  int            `json:"pendingCount"`
	ByStatus      map[string]int `json:"byStatus"`
	ByMethod      map[string]int `json:"byMethod"`
}

// paymentService implements the PaymentService interface.
type paymentService struct {
	paymentRepo db.PaymentRepository
	userRepo    db.UserRepository
	settingsSvc SettingsService
	notifySvc   NotifyService
	mp          *mercadopago.Client
	cache       cache.Cache
	poller      *pollerRegistry
	clientURL   string
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService instance. pollInterval and
// pollMaxAttempts bound the provider status poller; a zero pollMaxAttempts
// polls until the payment reaches a terminal state.
func NewPaymentService(
	pr db.PaymentRepository,
	ur db.UserRepository,
	ss SettingsService,
	ns NotifyService,
	mp *mercadopago.Client,
	c cache.Cache,
	clientURL string,
	pollInterval time.Duration,
	pollMaxAttempts int,
	logger *zap.Logger,
) PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &paymentService{
		paymentRepo: pr,
		userRepo:    ur,
		settingsSvc: ss,
		notifySvc:   ns,
		mp:          mp,
		cache:       c,
		clientURL:   clientURL,
		logger:      logger,
	}
	s.poller = newPollerRegistry(s, pollInterval, pollMaxAttempts, logger)
	return s
}

// CreatePixPayment creates a pending payment document, asks the provider for
// a PIX charge and starts polling its status. The document ID is sent as the
// provider's external reference so webhook notifications can be matched back.
func (s *paymentService) CreatePixPayment(ctx context.Context, userID string, req models.CreatePaymentRequest) (*models.Payment, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", userID, err)
	}

	// Older pending attempts are superseded by the new one.
	if deleted, err := s.paymentRepo.DeletePendingByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to clear stale pending payments: %w", err)
	} else if deleted > 0 {
		s.logger.Info("stale pending payments cleared",
			zap.String("userId", userID), zap.Int("deleted", deleted))
	}

	amount := models.ChargeAmount(req.Amount, models.MethodPix)
	payment := &models.Payment{
		UserID:   userID,
		UserName: user.DisplayName(),
		Amount:   amount,
		Method:   models.MethodPix,
		Status:   models.PaymentPending,
	}
	paymentID, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	mpPayment, err := s.mp.CreatePayment(ctx, &mercadopago.PaymentRequest{
		TransactionAmount: amount,
		Description:       "Assinatura Cafézão da Computação",
		PaymentMethodID:   "pix",
		ExternalReference: paymentID,
		Payer: mercadopago.Payer{
			Email:     user.Email,
			FirstName: user.DisplayName(),
		},
	}, "")
	if err != nil {
		s.failProviderCall(ctx, paymentID, err)
		return nil, fmt.Errorf("provider rejected pix payment: %w", err)
	}

	payment.ProviderPaymentID = fmt.Sprintf("%d", mpPayment.ID)
	payment.ExternalReference = paymentID
	payment.QRCode, payment.QRCodeBase64, payment.TicketURL = mpPayment.QRCodeData()
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to store provider fields: %w", err)
	}

	if err := s.enterEvaluation(ctx, userID, paymentID); err != nil {
		return nil, err
	}
	s.poller.Start(userID, paymentID, payment.ProviderPaymentID)

	s.logger.Info("pix payment created",
		zap.String("userId", userID),
		zap.String("paymentId", paymentID),
		zap.String("providerPaymentId", payment.ProviderPaymentID))
	return payment, nil
}

// CreateCheckoutPayment creates a hosted checkout preference for the credit
// card method. The surcharge is applied on top of the requested amount.
func (s *paymentService) CreateCheckoutPayment(ctx context.Context, userID string, req models.CreatePaymentRequest) (*models.Payment, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", userID, err)
	}

	// Older pending attempts are superseded by the new one.
	if deleted, err := s.paymentRepo.DeletePendingByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to clear stale pending payments: %w", err)
	} else if deleted > 0 {
		s.logger.Info("stale pending payments cleared",
			zap.String("userId", userID), zap.Int("deleted", deleted))
	}

	amount := models.ChargeAmount(req.Amount, models.MethodCredit)
	payment := &models.Payment{
		UserID:   userID,
		UserName: user.DisplayName(),
		Amount:   amount,
		Method:   models.MethodCredit,
		Status:   models.PaymentPending,
	}
	paymentID, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	prefReq := &mercadopago.PreferenceRequest{
		Items: []mercadopago.PreferenceItem{{
			Title:      "Assinatura Cafézão da Computação",
			Quantity:   1,
			UnitPrice:  amount,
			CurrencyID: "BRL",
		}},
		Payer:             &mercadopago.Payer{Email: user.Email},
		ExternalReference: paymentID,
	}
	if s.clientURL != "" {
		prefReq.BackURLs = &mercadopago.PreferenceURLs{
			Success: s.clientURL + "/payment/success",
			Failure: s.clientURL + "/payment/failure",
			Pending: s.clientURL + "/payment/pending",
		}
		prefReq.AutoReturn = "approved"
	}
	pref, err := s.mp.CreatePreference(ctx, prefReq)
	if err != nil {
		s.failProviderCall(ctx, paymentID, err)
		return nil, fmt.Errorf("provider rejected checkout preference: %w", err)
	}

	payment.ExternalReference = paymentID
	payment.InitPoint = pref.InitPoint
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to store provider fields: %w", err)
	}

	if err := s.enterEvaluation(ctx, userID, paymentID); err != nil {
		return nil, err
	}
	s.poller.StartByReference(userID, paymentID)

	s.logger.Info("checkout payment created",
		zap.String("userId", userID),
		zap.String("paymentId", paymentID),
		zap.String("preferenceId", pref.ID))
	return payment, nil
}

// GetPayment fetches a payment the user owns.
func (s *paymentService) GetPayment(ctx context.Context, userID, paymentID string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment '%s': %w", paymentID, err)
	}
	if payment.UserID != userID {
		return nil, ErrForbiddenAccess
	}
	return payment, nil
}

// ClearPendingPayments deletes all pending payments of the user, resets the
// subscription to inactive and clears lastPaymentId. Idempotent: a user with
// nothing pending is still reset.
func (s *paymentService) ClearPendingPayments(ctx context.Context, userID string) (int, error) {
	s.poller.Stop(userID)

	deleted, err := s.paymentRepo.DeletePendingByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending payments: %w", err)
	}

	if err := s.userRepo.UpdateSubscription(ctx, userID, models.SubscriptionInactive, nil, ""); err != nil {
		return deleted, fmt.Errorf("failed to reset subscription: %w", err)
	}
	s.mirrorSubscription(ctx, userID, models.SubscriptionInactive, "")

	s.logger.Info("pending payments cleared",
		zap.String("userId", userID),
		zap.Int("deleted", deleted))
	return deleted, nil
}

// HandleWebhook reconciles one provider notification. Notifications for
// payments this backend never created are ignored.
func (s *paymentService) HandleWebhook(ctx context.Context, providerPaymentID string) error {
	mpPayment, err := s.mp.GetPayment(ctx, providerPaymentID)
	if err != nil {
		if errors.Is(err, mercadopago.ErrPaymentNotFound) {
			s.logger.Warn("webhook for unknown provider payment", zap.String("providerPaymentId", providerPaymentID))
			return nil
		}
		return fmt.Errorf("failed to fetch provider payment '%s': %w", providerPaymentID, err)
	}
	if mpPayment.ExternalReference == "" {
		s.logger.Warn("webhook payment has no external reference", zap.String("providerPaymentId", providerPaymentID))
		return nil
	}

	payment, err := s.paymentRepo.GetByID(ctx, mpPayment.ExternalReference)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.logger.Warn("webhook references unknown payment", zap.String("externalReference", mpPayment.ExternalReference))
			return nil
		}
		return fmt.Errorf("failed to load payment '%s': %w", mpPayment.ExternalReference, err)
	}

	if payment.ProviderPaymentID == "" {
		payment.ProviderPaymentID = fmt.Sprintf("%d", mpPayment.ID)
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			s.logger.Warn("failed to backfill providerPaymentId", zap.String("paymentId", payment.ID), zap.Error(err))
		}
	}

	return s.applyProviderStatus(ctx, payment, mpPayment.Status, mpPayment.StatusDetail)
}

// FinancialReport aggregates payments created in [from, to).
func (s *paymentService) FinancialReport(ctx context.Context, from, to time.Time) (*FinancialReport, error) {
	payments, err := s.paymentRepo.ListByPeriod(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for report: %w", err)
	}

	report := &FinancialReport{
		From:     from,
		To:       to,
		ByStatus: make(map[string]int),
		ByMethod: make(map[string]int),
	}
	for _, p := range payments {
		report.TotalPayments++
		report.ByStatus[p.Status]++
		report.ByMethod[p.Method]++
		switch p.Status {
		case models.PaymentApproved:
			report.ApprovedCount++
			report.ApprovedTotal += p.Amount
		case models.PaymentPending:
			report.PendingCount++
		}
	}
	return report, nil
}

// StopPolling cancels the user's in-flight status poller, if any.
func (s *paymentService) StopPolling(userID string) {
	s.poller.Stop(userID)
}

// applyProviderStatus converges a payment onto the provider's view of it.
// Both the poller and the webhook route through here; re-applying a state
// the payment already carries is a no-op, so racing channels are safe.
func (s *paymentService) applyProviderStatus(ctx context.Context, payment *models.Payment, providerStatus, statusDetail string) error {
	status := mapProviderStatus(providerStatus)
	if payment.Status == status {
		return nil
	}
	if models.TerminalPaymentStatus(payment.Status) {
		// The first terminal transition wins.
		return nil
	}

	if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, status, statusDetail); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	payment.Status = status
	payment.StatusDetail = statusDetail

	switch {
	case status == models.PaymentApproved:
		endDate := time.Now().Add(SubscriptionPeriod)
		if err := s.userRepo.UpdateSubscription(ctx, payment.UserID, models.SubscriptionActive, &endDate, payment.ID); err != nil {
			return fmt.Errorf("failed to activate subscription: %w", err)
		}
		s.mirrorSubscription(ctx, payment.UserID, models.SubscriptionActive, payment.ID)
		// Notify before stopping the watcher: when the poller itself observed
		// the approval, ctx is the watcher's context and Stop cancels it.
		if s.notifySvc != nil {
			s.notifySvc.NotifyUser(ctx, payment.UserID,
				"Pagamento aprovado!",
				"Sua assinatura do Cafézão está ativa. Bom café!")
		}
		s.poller.Stop(payment.UserID)
		s.logger.Info("payment approved",
			zap.String("paymentId", payment.ID),
			zap.String("userId", payment.UserID))

	case models.TerminalPaymentStatus(status):
		if err := s.userRepo.UpdateSubscription(ctx, payment.UserID, models.SubscriptionInactive, nil, ""); err != nil {
			return fmt.Errorf("failed to deactivate subscription: %w", err)
		}
		s.mirrorSubscription(ctx, payment.UserID, models.SubscriptionInactive, "")
		s.poller.Stop(payment.UserID)
		s.logger.Info("payment closed without approval",
			zap.String("paymentId", payment.ID),
			zap.String("userId", payment.UserID),
			zap.String("status", status))
	}
	return nil
}

// enterEvaluation moves the user into the waiting-for-payment state.
func (s *paymentService) enterEvaluation(ctx context.Context, userID, paymentID string) error {
	if err := s.userRepo.UpdateSubscription(ctx, userID, models.SubscriptionEvaluating, nil, paymentID); err != nil {
		return fmt.Errorf("failed to mark subscription under evaluation: %w", err)
	}
	s.mirrorSubscription(ctx, userID, models.SubscriptionEvaluating, paymentID)
	return nil
}

// failProviderCall marks a freshly created payment cancelled after the
// provider call failed, so no pending orphan lingers.
func (s *paymentService) failProviderCall(ctx context.Context, paymentID string, cause error) {
	if err := s.paymentRepo.UpdateStatus(ctx, paymentID, models.PaymentCancelled, "provider_error"); err != nil {
		s.logger.Warn("failed to cancel orphan payment",
			zap.String("paymentId", paymentID),
			zap.NamedError("cancelError", err),
			zap.NamedError("cause", cause))
	}
}

// mirrorSubscription keeps the cache copies of the subscription state fresh.
// Cache failures are logged and ignored; Firestore stays the source of truth.
func (s *paymentService) mirrorSubscription(ctx context.Context, userID, status, lastPaymentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.SubscriptionStatusKey(userID), status, time.Hour); err == nil {
		if lastPaymentID == "" {
			s.cache.Delete(ctx, cache.LastPaymentKey(userID))
		} else {
			s.cache.Set(ctx, cache.LastPaymentKey(userID), lastPaymentID, time.Hour)
		}
	}
}

// mapProviderStatus folds the provider's status vocabulary into the local
// payment lifecycle.
func mapProviderStatus(providerStatus string) string {
	switch providerStatus {
	case "approved":
		return models.PaymentApproved
	case "rejected":
		return models.PaymentRejected
	case "cancelled", "refunded", "charged_back":
		return models.PaymentCancelled
	case "expired":
		return models.PaymentExpired
	default:
		// pending, in_process, authorized and anything unknown stay open.
		return models.PaymentPending
	}
}
