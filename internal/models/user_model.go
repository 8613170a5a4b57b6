package models

import (
	"errors"
	"strings"
	"time"
)

// Subscription status values a user document may carry. Transitions are
// inactive -> avaliando -> active, or back to inactive on cleanup/expiry.
const (
	SubscriptionInactive   = "inactive"
	SubscriptionEvaluating = "avaliando"
	SubscriptionActive     = "active"
)

// User represents a user in the system. The document ID doubles as the
// session token the mobile client caches locally.
type User struct {
	ID                  string     `json:"id" firestore:"-"`
	Email               string     `json:"email" firestore:"email"`
	UserName            string     `json:"userName" firestore:"userName"`
	Password            string     `json:"-" firestore:"password"` // salted hash, never serialized to clients
	PasswordSalt        string     `json:"-" firestore:"passwordSalt"`
	IsAdmin             bool       `json:"isAdmin" firestore:"isAdmin"`
	UserCredit          float64    `json:"userCredit" firestore:"userCredit"`
	SubscriptionStatus  string     `json:"subscriptionStatus" firestore:"subscriptionStatus"`
	SubscriptionEndDate *time.Time `json:"subscriptionEndDate,omitempty" firestore:"subscriptionEndDate,omitempty"`
	LastPaymentID       string     `json:"lastPaymentId,omitempty" firestore:"lastPaymentId"`
	TotalCoffees        int        `json:"totalCoffees" firestore:"totalCoffees"`
	CreatedAt           time.Time  `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt           time.Time  `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// ValidSubscriptionStatus reports whether s is one of the allowed
// subscription states.
func ValidSubscriptionStatus(s string) bool {
	switch s {
	case SubscriptionInactive, SubscriptionEvaluating, SubscriptionActive:
		return true
	}
	return false
}

// Validate checks the fields read back from the document store. Documents are
// loosely typed at the source, so the read boundary enforces shape here.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("user document missing email")
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = SubscriptionInactive
	}
	if !ValidSubscriptionStatus(u.SubscriptionStatus) {
		return errors.New("user document carries unknown subscriptionStatus '" + u.SubscriptionStatus + "'")
	}
	return nil
}

// DisplayName returns the name shown in rankings and notifications.
func (u *User) DisplayName() string {
	if u.UserName != "" {
		return u.UserName
	}
	return "Usuário Desconhecido"
}
