package db

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"cafezao-backend-go/internal/models"
)

const deviceTokensCollection = "deviceTokens"

type firestoreDeviceTokenRepository struct {
	client *firestore.Client
}

// NewFirestoreDeviceTokenRepository creates a new instance of firestoreDeviceTokenRepository.
func NewFirestoreDeviceTokenRepository(client *firestore.Client) DeviceTokenRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for DeviceTokenRepository.")
	}
	return &firestoreDeviceTokenRepository{client: client}
}

// Upsert registers a device token, replacing any prior registration of the
// same token. A token that moves between users follows the new user.
func (r *firestoreDeviceTokenRepository) Upsert(ctx context.Context, token *models.DeviceToken) error {
	iter := r.client.Collection(deviceTokensCollection).
		Where("token", "==", token.Token).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	docSnap, err := iter.Next()
	if err == iterator.Done {
		docRef, _, err := r.client.Collection(deviceTokensCollection).Add(ctx, token)
		if err != nil {
			return fmt.Errorf("failed to register device token: %w", err)
		}
		token.ID = docRef.ID
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to query device tokens: %w", err)
	}

	token.ID = docSnap.Ref.ID
	if _, err := docSnap.Ref.Set(ctx, token, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update device token '%s': %w", docSnap.Ref.ID, err)
	}
	return nil
}

// ListByUser returns all registered tokens for a user.
func (r *firestoreDeviceTokenRepository) ListByUser(ctx context.Context, userID string) ([]*models.DeviceToken, error) {
	iter := r.client.Collection(deviceTokensCollection).
		Where("userId", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	var tokens []*models.DeviceToken
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list device tokens for user '%s': %w", userID, err)
		}
		var dt models.DeviceToken
		if err := docSnap.DataTo(&dt); err != nil {
			log.Printf("ListByUser: skipping malformed token document '%s': %v", docSnap.Ref.ID, err)
			continue
		}
		dt.ID = docSnap.Ref.ID
		tokens = append(tokens, &dt)
	}
	return tokens, nil
}
