package db

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"cafezao-backend-go/internal/models"
)

const settingsCollection = "settings"

// The settings collection holds a single shared document; queries take the
// first one rather than assuming a fixed document ID.
type firestoreSettingsRepository struct {
	client *firestore.Client
}

// NewFirestoreSettingsRepository creates a new instance of firestoreSettingsRepository.
func NewFirestoreSettingsRepository(client *firestore.Client) SettingsRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for SettingsRepository.")
	}
	return &firestoreSettingsRepository{client: client}
}

// Get retrieves the shared settings document. A missing document yields the
// defaults rather than an error so callers always have a usable snapshot.
func (r *firestoreSettingsRepository) Get(ctx context.Context) (*models.SystemSettings, error) {
	iter := r.client.Collection(settingsCollection).Limit(1).Documents(ctx)
	defer iter.Stop()

	docSnap, err := iter.Next()
	if err == iterator.Done {
		settings := &models.SystemSettings{}
		settings.ApplyDefaults()
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get system settings: %w", err)
	}
	return decodeSettings(docSnap)
}

// Update writes the shared settings document, creating it if absent.
func (r *firestoreSettingsRepository) Update(ctx context.Context, settings *models.SystemSettings) error {
	docID := settings.ID
	if docID == "" {
		existing, err := r.Get(ctx)
		if err != nil {
			return err
		}
		docID = existing.ID
	}
	if docID == "" {
		docRef, _, err := r.client.Collection(settingsCollection).Add(ctx, settings)
		if err != nil {
			return fmt.Errorf("failed to create system settings: %w", err)
		}
		settings.ID = docRef.ID
		return nil
	}
	_, err := r.client.Collection(settingsCollection).Doc(docID).Set(ctx, settings, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update system settings: %w", err)
	}
	return nil
}

// WatchSettings streams settings snapshots until ctx is cancelled. This backs
// the listener-driven refresh of the in-process settings cache.
func (r *firestoreSettingsRepository) WatchSettings(ctx context.Context) (<-chan *models.SystemSettings, error) {
	out := make(chan *models.SystemSettings, 1)
	snaps := r.client.Collection(settingsCollection).Limit(1).Snapshots(ctx)

	go func() {
		defer close(out)
		defer snaps.Stop()
		for {
			qsnap, err := snaps.Next()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("WatchSettings: snapshot stream ended: %v", err)
				}
				return
			}
			for _, change := range qsnap.Changes {
				if change.Kind == firestore.DocumentRemoved {
					continue
				}
				settings, err := decodeSettings(change.Doc)
				if err != nil {
					log.Printf("WatchSettings: malformed snapshot: %v", err)
					continue
				}
				select {
				case out <- settings:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeSettings(docSnap *firestore.DocumentSnapshot) (*models.SystemSettings, error) {
	var settings models.SystemSettings
	if err := docSnap.DataTo(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings document '%s': %w", docSnap.Ref.ID, err)
	}
	settings.ID = docSnap.Ref.ID
	settings.ApplyDefaults()
	return &settings, nil
}
