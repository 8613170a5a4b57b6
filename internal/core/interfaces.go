package core

import (
	"context"
	"time"

	"cafezao-backend-go/internal/models"
)

// UserService handles account lifecycle and authentication.
type UserService interface {
	Register(ctx context.Context, email, userName, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	RegisterCoffee(ctx context.Context, userID, quantity string) (*models.CoffeeEvent, error)
}

// PaymentService orchestrates the subscription payment flow.
type PaymentService interface {
	// CreatePixPayment creates a direct PIX charge and starts status polling.
	CreatePixPayment(ctx context.Context, userID string, req models.CreatePaymentRequest) (*models.Payment, error)
	// CreateCheckoutPayment creates a hosted checkout preference and starts
	// status polling.
	CreateCheckoutPayment(ctx context.Context, userID string, req models.CreatePaymentRequest) (*models.Payment, error)
	GetPayment(ctx context.Context, userID, paymentID string) (*models.Payment, error)
	// ClearPendingPayments removes every pending payment the user owns and
	// resets them to inactive. Safe to call with nothing pending.
	ClearPendingPayments(ctx context.Context, userID string) (int, error)
	// HandleWebhook ingests a provider notification; unknown payments are
	// ignored without error.
	HandleWebhook(ctx context.Context, providerPaymentID string) error
	// FinancialReport aggregates payments created in [from, to).
	FinancialReport(ctx context.Context, from, to time.Time) (*FinancialReport, error)
	// StopPolling cancels any in-flight poller for the user's payment.
	StopPolling(userID string)
}

// StatsService computes consumption statistics from the coffee event log.
// window narrows the events considered: "today", "week", "month", "year" or
// "all"; unknown values fall back to "all".
type StatsService interface {
	UserStats(ctx context.Context, userID, window string) (*UserStats, error)
	GlobalStats(ctx context.Context, window string) (*GlobalStats, error)
	Achievements(ctx context.Context, userID string) ([]Achievement, error)
}

// AdminService is the super-admin back office.
type AdminService interface {
	RequireSuperAdmin(ctx context.Context, userID string) error
	ListUsers(ctx context.Context, actingID string) ([]*models.User, error)
	UpdateUser(ctx context.Context, actingID, targetID string, req models.UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, actingID, targetID string) error
	GetSettings(ctx context.Context) (*models.SystemSettings, error)
	UpdateSettings(ctx context.Context, actingID string, req models.UpdateSettingsRequest) (*models.SystemSettings, error)

	// Guarded password reset workflow: search picks a target, confirm
	// re-authenticates the acting admin, change applies the new password.
	ResetSearch(ctx context.Context, actingID string, query string) (*ResetWorkflow, error)
	ResetConfirm(ctx context.Context, actingID string, req models.AdminResetConfirmRequest) error
	ResetChange(ctx context.Context, actingID string, req models.AdminResetChangeRequest) error
}

// ResetService is the self-service forgot-password flow.
type ResetService interface {
	RequestReset(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	CompleteReset(ctx context.Context, email, code, newPassword string) error
}

// SettingsService serves the shared settings snapshot and derived checks.
type SettingsService interface {
	Get(ctx context.Context) (*models.SystemSettings, error)
	// VersionAllowed compares an app version against the configured minimum.
	VersionAllowed(ctx context.Context, version string) (bool, string, error)
	// Start launches the listener that keeps the cached snapshot fresh.
	Start(ctx context.Context)
}

// NotifyService sends push notifications, best effort.
type NotifyService interface {
	RegisterDevice(ctx context.Context, userID string, req models.RegisterDeviceRequest) error
	NotifyUser(ctx context.Context, userID, title, body string)
}
