package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"cafezao-backend-go/internal/models"
)

const coffeesCollection = "coffees"

type firestoreCoffeeRepository struct {
	client *firestore.Client
}

// NewFirestoreCoffeeRepository creates a new instance of firestoreCoffeeRepository.
func NewFirestoreCoffeeRepository(client *firestore.Client) CoffeeRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for CoffeeRepository.")
	}
	return &firestoreCoffeeRepository{client: client}
}

// Create appends a coffee event and returns its generated ID.
func (r *firestoreCoffeeRepository) Create(ctx context.Context, event *models.CoffeeEvent) (string, error) {
	if event.UserID == "" {
		return "", errors.New("coffee event userID cannot be empty for Create operation")
	}
	docRef, _, err := r.client.Collection(coffeesCollection).Add(ctx, event)
	if err != nil {
		return "", fmt.Errorf("failed to create coffee event for user '%s': %w", event.UserID, err)
	}
	event.ID = docRef.ID
	return docRef.ID, nil
}

// ListSince returns events created at or after since, newest first. An empty
// userID returns events for all users (the general statistics view).
func (r *firestoreCoffeeRepository) ListSince(ctx context.Context, since time.Time, userID string) ([]*models.CoffeeEvent, error) {
	query := r.client.Collection(coffeesCollection).
		Where("createdAt", ">=", since).
		OrderBy("createdAt", firestore.Desc)
	if userID != "" {
		query = r.client.Collection(coffeesCollection).
			Where("createdAt", ">=", since).
			Where("userId", "==", userID).
			OrderBy("createdAt", firestore.Desc)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var events []*models.CoffeeEvent
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list coffee events: %w", err)
		}
		var event models.CoffeeEvent
		if err := docSnap.DataTo(&event); err != nil {
			log.Printf("Skipping malformed coffee document '%s': %v", docSnap.Ref.ID, err)
			continue
		}
		event.ID = docSnap.Ref.ID
		if err := event.Validate(); err != nil {
			log.Printf("Skipping invalid coffee document '%s': %v", docSnap.Ref.ID, err)
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}
