package models

import "time"

// SubscriptionPrices holds the configured plan prices.
type SubscriptionPrices struct {
	Monthly float64 `json:"monthly" firestore:"monthly"`
}

// SystemSettings is the single shared settings document. Every client reads
// it; only the admin console writes it. Super-admin membership is defined
// solely by presence in SuperAdmins.
type SystemSettings struct {
	ID                    string             `json:"id" firestore:"-"`
	DailyCoffeeLimit      int                `json:"dailyCoffeeLimit" firestore:"dailyCoffeeLimit"`
	MinTimeBetweenCoffees int                `json:"minTimeBetweenCoffees" firestore:"minTimeBetweenCoffees"` // minutes
	SubscriptionPrices    SubscriptionPrices `json:"subscriptionPrices" firestore:"subscriptionPrices"`
	MaintenanceMode       bool               `json:"maintenanceMode" firestore:"maintenanceMode"`
	WelcomeMessage        string             `json:"welcomeMessage" firestore:"welcomeMessage"`
	WebhookURL            string             `json:"webhookUrl" firestore:"webhook_url"`
	PixKey                string             `json:"pixKey" firestore:"pixKey"`
	SuperAdmins           []string           `json:"superAdmins" firestore:"superAdmins"`
	MinAppVersion         string             `json:"minAppVersion" firestore:"minAppVersion"`
	UpdatedAt             time.Time          `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// Defaults used when the settings document is missing or partially filled.
const (
	DefaultDailyCoffeeLimit      = 5
	DefaultMinTimeBetweenCoffees = 30
	DefaultMonthlyPrice          = 29.90
)

// ApplyDefaults fills zero-valued fields with the system defaults so callers
// never see an unusable settings snapshot.
func (s *SystemSettings) ApplyDefaults() {
	if s.DailyCoffeeLimit <= 0 {
		s.DailyCoffeeLimit = DefaultDailyCoffeeLimit
	}
	if s.MinTimeBetweenCoffees <= 0 {
		s.MinTimeBetweenCoffees = DefaultMinTimeBetweenCoffees
	}
	if s.SubscriptionPrices.Monthly <= 0 {
		s.SubscriptionPrices.Monthly = DefaultMonthlyPrice
	}
	if s.MinAppVersion == "" {
		s.MinAppVersion = "1.0.0"
	}
}

// IsSuperAdmin reports whether the user ID is on the allowlist.
func (s *SystemSettings) IsSuperAdmin(userID string) bool {
	for _, id := range s.SuperAdmins {
		if id == userID {
			return true
		}
	}
	return false
}
