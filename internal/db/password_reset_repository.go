package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"cafezao-backend-go/internal/models"
)

const passwordResetsCollection = "passwordResets"

type firestorePasswordResetRepository struct {
	client *firestore.Client
}

// NewFirestorePasswordResetRepository creates a new instance of firestorePasswordResetRepository.
func NewFirestorePasswordResetRepository(client *firestore.Client) PasswordResetRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for PasswordResetRepository.")
	}
	return &firestorePasswordResetRepository{client: client}
}

// Create stores a new reset code record and returns its document ID.
func (r *firestorePasswordResetRepository) Create(ctx context.Context, reset *models.PasswordReset) (string, error) {
	docRef, _, err := r.client.Collection(passwordResetsCollection).Add(ctx, reset)
	if err != nil {
		return "", fmt.Errorf("failed to create password reset: %w", err)
	}
	reset.ID = docRef.ID
	return docRef.ID, nil
}

// FindActive looks up an unused reset record matching email and code. The
// newest match wins when stale records linger; expiry is checked by the
// caller so the response can distinguish wrong code from expired code.
func (r *firestorePasswordResetRepository) FindActive(ctx context.Context, email, code string) (*models.PasswordReset, error) {
	iter := r.client.Collection(passwordResetsCollection).
		Where("email", "==", email).
		Where("code", "==", code).
		Where("used", "==", false).
		Documents(ctx)
	defer iter.Stop()

	var newest *models.PasswordReset
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query password resets: %w", err)
		}
		var reset models.PasswordReset
		if err := docSnap.DataTo(&reset); err != nil {
			log.Printf("FindActive: skipping malformed reset document '%s': %v", docSnap.Ref.ID, err)
			continue
		}
		reset.ID = docSnap.Ref.ID
		if newest == nil || reset.CreatedAt.After(newest.CreatedAt) {
			newest = &reset
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	return newest, nil
}

// MarkUsed flags a reset record as consumed.
func (r *firestorePasswordResetRepository) MarkUsed(ctx context.Context, resetID string, usedAt time.Time) error {
	_, err := r.client.Collection(passwordResetsCollection).Doc(resetID).Update(ctx, []firestore.Update{
		{Path: "used", Value: true},
		{Path: "usedAt", Value: usedAt},
	})
	if err != nil {
		return fmt.Errorf("failed to mark password reset '%s' used: %w", resetID, err)
	}
	return nil
}
