package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"cafezao-backend-go/internal/models"
)

// pollerRegistry tracks at most one status watcher per user. Starting a new
// watch for a user cancels the previous one, so an abandoned payment attempt
// never keeps consuming provider quota.
type pollerRegistry struct {
	svc         *paymentService
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger

	mu       sync.Mutex
	watchers map[string]*watcher
}

type watcher struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newPollerRegistry(svc *paymentService, interval time.Duration, maxAttempts int, logger *zap.Logger) *pollerRegistry {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &pollerRegistry{
		svc:         svc,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
		watchers:    make(map[string]*watcher),
	}
}

// Start polls the provider directly for a payment whose provider ID is
// already known (direct PIX charges).
func (r *pollerRegistry) Start(userID, paymentID, providerPaymentID string) {
	ctx := r.register(userID)
	go r.pollProvider(ctx, userID, paymentID, providerPaymentID)
}

// StartByReference watches the local payment document for a payment whose
// provider ID is only learned later via webhook (hosted checkout).
func (r *pollerRegistry) StartByReference(userID, paymentID string) {
	ctx := r.register(userID)
	go r.watchDocument(ctx, userID, paymentID)
}

// Stop cancels the user's watcher, if any.
func (r *pollerRegistry) Stop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.watchers[userID]; ok {
		w.cancel()
		delete(r.watchers, userID)
	}
}

func (r *pollerRegistry) register(userID string) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.watchers[userID]; ok {
		w.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.watchers[userID] = &watcher{ctx: ctx, cancel: cancel}
	return ctx
}

// unregister removes the entry only if it still belongs to this watcher; a
// replacement registered in the meantime stays untouched.
func (r *pollerRegistry) unregister(userID string, ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.watchers[userID]; ok && w.ctx == ctx {
		w.cancel()
		delete(r.watchers, userID)
	}
}

func (r *pollerRegistry) pollProvider(ctx context.Context, userID, paymentID, providerPaymentID string) {
	defer r.unregister(userID, ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		attempts++

		payment, err := r.svc.paymentRepo.GetByID(ctx, paymentID)
		if err != nil {
			// Pending cleanup deletes the document out from under us.
			r.logger.Info("status poll stopped: payment gone",
				zap.String("paymentId", paymentID), zap.Error(err))
			return
		}
		if models.TerminalPaymentStatus(payment.Status) {
			return
		}

		mpPayment, err := r.svc.mp.GetPayment(ctx, providerPaymentID)
		if err != nil {
			r.logger.Warn("status poll failed",
				zap.String("paymentId", paymentID),
				zap.Int("attempt", attempts),
				zap.Error(err))
		} else {
			if err := r.svc.applyProviderStatus(ctx, payment, mpPayment.Status, mpPayment.StatusDetail); err != nil {
				r.logger.Warn("failed to apply polled status",
					zap.String("paymentId", paymentID), zap.Error(err))
			}
			if models.TerminalPaymentStatus(payment.Status) {
				return
			}
		}

		if r.maxAttempts > 0 && attempts >= r.maxAttempts {
			r.expire(ctx, userID, paymentID)
			return
		}
	}
}

func (r *pollerRegistry) watchDocument(ctx context.Context, userID, paymentID string) {
	defer r.unregister(userID, ctx)

	var deadline <-chan time.Time
	if r.maxAttempts > 0 {
		timer := time.NewTimer(time.Duration(r.maxAttempts) * r.interval)
		defer timer.Stop()
		deadline = timer.C
	}

	snaps, err := r.svc.paymentRepo.WatchPayment(ctx, paymentID)
	if err != nil {
		r.logger.Warn("failed to watch payment document",
			zap.String("paymentId", paymentID), zap.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			r.expire(ctx, userID, paymentID)
			return
		case payment, ok := <-snaps:
			if !ok {
				return
			}
			if models.TerminalPaymentStatus(payment.Status) {
				return
			}
		}
	}
}

// expire closes a payment that outlived the polling window.
func (r *pollerRegistry) expire(ctx context.Context, userID, paymentID string) {
	payment, err := r.svc.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return
	}
	if models.TerminalPaymentStatus(payment.Status) {
		return
	}
	if err := r.svc.applyProviderStatus(ctx, payment, "expired", "polling_window_elapsed"); err != nil {
		r.logger.Warn("failed to expire payment",
			zap.String("paymentId", paymentID), zap.Error(err))
		return
	}
	r.logger.Info("payment expired after polling window",
		zap.String("paymentId", paymentID),
		zap.String("userId", userID))
}
