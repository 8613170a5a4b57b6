package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cafezao-backend-go/internal/models"
)

const paymentsCollection = "payments"

// firestorePaymentRepository implements PaymentRepository using Firestore.
type firestorePaymentRepository struct {
	client *firestore.Client
}

// NewFirestorePaymentRepository creates a new instance of firestorePaymentRepository.
func NewFirestorePaymentRepository(client *firestore.Client) PaymentRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for PaymentRepository.")
	}
	return &firestorePaymentRepository{client: client}
}

// Create adds a new payment document and returns its generated ID.
func (r *firestorePaymentRepository) Create(ctx context.Context, payment *models.Payment) (string, error) {
	if payment.UserID == "" {
		return "", errors.New("payment userID cannot be empty for Create operation")
	}
	docRef, _, err := r.client.Collection(paymentsCollection).Add(ctx, payment)
	if err != nil {
		return "", fmt.Errorf("failed to create payment for user '%s': %w", payment.UserID, err)
	}
	payment.ID = docRef.ID
	return docRef.ID, nil
}

// GetByID retrieves a payment document by its ID.
func (r *firestorePaymentRepository) GetByID(ctx context.Context, paymentID string) (*models.Payment, error) {
	if paymentID == "" {
		return nil, errors.New("paymentID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(paymentsCollection).Doc(paymentID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("payment with ID '%s' not found: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment with ID '%s': %w", paymentID, err)
	}
	return decodePayment(docSnap)
}

// Update overwrites an existing payment document.
func (r *firestorePaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		return errors.New("payment ID cannot be empty for Update operation")
	}
	_, err := r.client.Collection(paymentsCollection).Doc(payment.ID).Set(ctx, payment, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update payment with ID '%s': %w", payment.ID, err)
	}
	return nil
}

// UpdateStatus mutates only the lifecycle fields of a payment document.
func (r *firestorePaymentRepository) UpdateStatus(ctx context.Context, paymentID, payStatus, statusDetail string) error {
	if paymentID == "" {
		return errors.New("paymentID cannot be empty for UpdateStatus operation")
	}
	if !models.ValidPaymentStatus(payStatus) {
		return fmt.Errorf("refusing to write unknown payment status '%s'", payStatus)
	}
	_, err := r.client.Collection(paymentsCollection).Doc(paymentID).Update(ctx, []firestore.Update{
		{Path: "status", Value: payStatus},
		{Path: "transaction_status_detail", Value: statusDetail},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("payment with ID '%s' not found: %w", paymentID, ErrNotFound)
		}
		return fmt.Errorf("failed to update status for payment '%s': %w", paymentID, err)
	}
	return nil
}

// ListPendingByUser returns the user's pending payments, newest first.
// Ownership is enforced by the equality filter on userId.
func (r *firestorePaymentRepository) ListPendingByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for ListPendingByUser operation")
	}
	iter := r.client.Collection(paymentsCollection).
		Where("status", "==", models.PaymentPending).
		Where("userId", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	payments, err := collectPayments(iter)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments for user '%s': %w", userID, err)
	}
	// Sorted in memory; a composite Firestore index on (status, userId,
	// createdAt) is not provisioned for this query.
	sortPaymentsNewestFirst(payments)
	return payments, nil
}

// DeletePendingByUser hard-deletes every pending payment owned by the user.
func (r *firestorePaymentRepository) DeletePendingByUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.New("userID cannot be empty for DeletePendingByUser operation")
	}
	iter := r.client.Collection(paymentsCollection).
		Where("status", "==", models.PaymentPending).
		Where("userId", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	deleted := 0
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("failed to query pending payments for user '%s': %w", userID, err)
		}
		if _, err := docSnap.Ref.Delete(ctx); err != nil {
			return deleted, fmt.Errorf("failed to delete payment '%s': %w", docSnap.Ref.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

// ListByPeriod returns payments created in [from, to) for reporting.
func (r *firestorePaymentRepository) ListByPeriod(ctx context.Context, from, to time.Time) ([]*models.Payment, error) {
	iter := r.client.Collection(paymentsCollection).
		Where("createdAt", ">=", from).
		Where("createdAt", "<", to).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	payments, err := collectPayments(iter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments in period: %w", err)
	}
	return payments, nil
}

// WatchPayment streams snapshots of a payment document until ctx is cancelled.
func (r *firestorePaymentRepository) WatchPayment(ctx context.Context, paymentID string) (<-chan *models.Payment, error) {
	if paymentID == "" {
		return nil, errors.New("paymentID cannot be empty for WatchPayment operation")
	}
	out := make(chan *models.Payment, 1)
	snaps := r.client.Collection(paymentsCollection).Doc(paymentID).Snapshots(ctx)

	go func() {
		defer close(out)
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("WatchPayment '%s': snapshot stream ended: %v", paymentID, err)
				}
				return
			}
			if !snap.Exists() {
				// Deleted by a pending-payment cleanup; the watcher's
				// consumer decides what that means.
				continue
			}
			payment, err := decodePayment(snap)
			if err != nil {
				log.Printf("WatchPayment '%s': malformed snapshot: %v", paymentID, err)
				continue
			}
			select {
			case out <- payment:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func collectPayments(iter *firestore.DocumentIterator) ([]*models.Payment, error) {
	var payments []*models.Payment
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		payment, err := decodePayment(docSnap)
		if err != nil {
			log.Printf("Skipping malformed payment document '%s': %v", docSnap.Ref.ID, err)
			continue
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

func sortPaymentsNewestFirst(payments []*models.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].CreatedAt.After(payments[j].CreatedAt)
	})
}

func decodePayment(docSnap *firestore.DocumentSnapshot) (*models.Payment, error) {
	var payment models.Payment
	if err := docSnap.DataTo(&payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	payment.ID = docSnap.Ref.ID
	if err := payment.Validate(); err != nil {
		return nil, fmt.Errorf("payment document '%s' failed validation: %w", docSnap.Ref.ID, err)
	}
	return &payment, nil
}
