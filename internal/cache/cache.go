package cache

import (
	"context"
	"time"
)

// Cache defines the interface for caching services.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Key builders for the values the services mirror in the cache.

// SettingsKey is the cache slot for the serialized system settings snapshot.
const SettingsKey = "settings:snapshot"

// LastPaymentKey returns the cache slot mirroring a user's lastPaymentId.
func LastPaymentKey(userID string) string {
	return "lastPaymentId:" + userID
}

// SubscriptionStatusKey returns the cache slot mirroring a user's
// subscription status.
func SubscriptionStatusKey(userID string) string {
	return "subscriptionStatus:" + userID
}
