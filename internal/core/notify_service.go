package core

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/models"
)

// notifyService implements the NotifyService interface. Delivery is best
// effort; a push that cannot be sent never fails the operation that
// triggered it.
type notifyService struct {
	tokenRepo db.DeviceTokenRepository
	fcm       *messaging.Client
	logger    *zap.Logger
}

// NewNotifyService creates a new NotifyService instance. fcm may be nil, in
// which case notifications are logged and dropped.
func NewNotifyService(tr db.DeviceTokenRepository, fcm *messaging.Client, logger *zap.Logger) NotifyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &notifyService{
		tokenRepo: tr,
		fcm:       fcm,
		logger:    logger,
	}
}

// RegisterDevice stores or refreshes a push token for the user.
func (s *notifyService) RegisterDevice(ctx context.Context, userID string, req models.RegisterDeviceRequest) error {
	token := &models.DeviceToken{
		UserID:   userID,
		Token:    req.Token,
		Platform: req.Platform,
	}
	if err := s.tokenRepo.Upsert(ctx, token); err != nil {
		return fmt.Errorf("failed to register device token: %w", err)
	}
	return nil
}

// NotifyUser pushes a notification to every registered device of the user.
func (s *notifyService) NotifyUser(ctx context.Context, userID, title, body string) {
	if s.fcm == nil {
		s.logger.Info("push skipped: messaging not configured",
			zap.String("userId", userID),
			zap.String("title", title))
		return
	}

	tokens, err := s.tokenRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to list device tokens",
			zap.String("userId", userID), zap.Error(err))
		return
	}
	for _, t := range tokens {
		msg := &messaging.Message{
			Token: t.Token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
		}
		if _, err := s.fcm.Send(ctx, msg); err != nil {
			s.logger.Warn("push delivery failed",
				zap.String("userId", userID),
				zap.String("tokenId", t.ID),
				zap.Error(err))
		}
	}
}
