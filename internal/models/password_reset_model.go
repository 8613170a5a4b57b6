package models

import "time"

// PasswordReset is a single-use reset code issued by the forgot-password
// flow. Created on request, consumed on verification.
type PasswordReset struct {
	ID        string     `json:"id" firestore:"-"`
	Email     string     `json:"email" firestore:"email"`
	Code      string     `json:"-" firestore:"code"`
	ExpiresAt time.Time  `json:"expiresAt" firestore:"expiresAt"`
	Used      bool       `json:"used" firestore:"used"`
	UsedAt    *time.Time `json:"usedAt,omitempty" firestore:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// Expired reports whether the code can no longer be redeemed at the given
// instant.
func (r *PasswordReset) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// DeviceToken is a registered push-notification target for a user.
type DeviceToken struct {
	ID        string    `json:"id" firestore:"-"`
	UserID    string    `json:"userId" firestore:"userId"`
	Token     string    `json:"token" firestore:"token"`
	Platform  string    `json:"platform,omitempty" firestore:"platform"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}
