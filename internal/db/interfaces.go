package db

import (
	"context"
	"time"

	"cafezao-backend-go/internal/models"
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context) ([]*models.User, error)
	// UpdateSubscription mutates only the subscription-related fields.
	// endDate and lastPaymentID may be nil/empty to clear them.
	UpdateSubscription(ctx context.Context, userID, status string, endDate *time.Time, lastPaymentID string) error
	// SetPassword persists a new credential (hash + salt) for the user.
	SetPassword(ctx context.Context, userID, hash, salt string) error
}

// PaymentRepository defines the interface for payment intent storage.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) (string, error)
	GetByID(ctx context.Context, paymentID string) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	// UpdateStatus mutates only the lifecycle fields of a payment document.
	UpdateStatus(ctx context.Context, paymentID, status, statusDetail string) error
	// ListPendingByUser returns the user's pending payments, newest first.
	ListPendingByUser(ctx context.Context, userID string) ([]*models.Payment, error)
	// DeletePendingByUser hard-deletes every pending payment owned by the
	// user and returns how many documents were removed.
	DeletePendingByUser(ctx context.Context, userID string) (int, error)
	// ListByPeriod returns payments created in [from, to) for reporting.
	ListByPeriod(ctx context.Context, from, to time.Time) ([]*models.Payment, error)
	// WatchPayment streams snapshots of a payment document until ctx is
	// cancelled.
	WatchPayment(ctx context.Context, paymentID string) (<-chan *models.Payment, error)
}

// CoffeeRepository defines the interface for coffee event storage.
type CoffeeRepository interface {
	Create(ctx context.Context, event *models.CoffeeEvent) (string, error)
	// ListSince returns events created at or after since, newest first.
	// userID scopes the query to one owner; empty means all users.
	ListSince(ctx context.Context, since time.Time, userID string) ([]*models.CoffeeEvent, error)
}

// SettingsRepository defines the interface for the shared settings document.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.SystemSettings, error)
	Update(ctx context.Context, settings *models.SystemSettings) error
	// WatchSettings streams settings snapshots until ctx is cancelled.
	WatchSettings(ctx context.Context) (<-chan *models.SystemSettings, error)
}

// PasswordResetRepository defines the interface for reset-code documents.
type PasswordResetRepository interface {
	Create(ctx context.Context, reset *models.PasswordReset) (string, error)
	// FindActive returns the newest unused reset matching email and code,
	// or ErrNotFound.
	FindActive(ctx context.Context, email, code string) (*models.PasswordReset, error)
	MarkUsed(ctx context.Context, resetID string, usedAt time.Time) error
}

// DeviceTokenRepository defines the interface for push-notification targets.
type DeviceTokenRepository interface {
	Upsert(ctx context.Context, token *models.DeviceToken) error
	ListByUser(ctx context.Context, userID string) ([]*models.DeviceToken, error)
}
