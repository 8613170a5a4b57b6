package core

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/mailer"
	"cafezao-backend-go/internal/models"
)

// Custom errors for the ResetService
var (
	ErrResetCodeInvalid = errors.New("reset code invalid")
	ErrResetCodeExpired = errors.New("reset code expired")
)

// resetService implements the ResetService interface.
type resetService struct {
	userRepo  db.UserRepository
	resetRepo db.PasswordResetRepository
	mail      mailer.Mailer
	sender    string
	logger    *zap.Logger
	now       func() time.Time
}

// NewResetService creates a new ResetService instance.
func NewResetService(ur db.UserRepository, rr db.PasswordResetRepository, m mailer.Mailer, sender string, logger *zap.Logger) ResetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &resetService{
		userRepo:  ur,
		resetRepo: rr,
		mail:      m,
		sender:    sender,
		logger:    logger,
		now:       time.Now,
	}
}

// RequestReset issues a 6-digit code and mails it to the account's address.
// An unknown email succeeds silently so the endpoint cannot be used to probe
// which addresses exist.
func (s *resetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.logger.Info("reset requested for unknown email", zap.String("email", email))
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	code, err := newResetCode()
	if err != nil {
		return err
	}
	now := s.now()
	reset := &models.PasswordReset{
		Email:     user.Email,
		Code:      code,
		ExpiresAt: now.Add(mailer.ResetCodeTTLMinutes * time.Minute),
	}
	if _, err := s.resetRepo.Create(ctx, reset); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	msg := &mailer.Message{
		From:    s.sender,
		To:      user.Email,
		Subject: "Cafézão da Computação - Código de Recuperação",
		HTML:    mailer.RenderResetEmail(user.DisplayName(), code, now),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.logger.Info("reset code issued", zap.String("email", user.Email))
	return nil
}

// VerifyCode checks a code without consuming it.
func (s *resetService) VerifyCode(ctx context.Context, email, code string) error {
	_, err := s.findRedeemable(ctx, email, code)
	return err
}

// CompleteReset consumes a valid code and stores the new password.
func (s *resetService) CompleteReset(ctx context.Context, email, code, newPassword string) error {
	reset, err := s.findRedeemable(ctx, email, code)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrResetCodeInvalid
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	salt, err := NewSalt()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetPassword(ctx, user.ID, HashPassword(newPassword, salt), salt); err != nil {
		return fmt.Errorf("failed to set new password: %w", err)
	}
	if err := s.resetRepo.MarkUsed(ctx, reset.ID, s.now()); err != nil {
		s.logger.Warn("failed to mark reset code used",
			zap.String("resetId", reset.ID), zap.Error(err))
	}

	s.logger.Info("password reset completed", zap.String("email", email))
	return nil
}

func (s *resetService) findRedeemable(ctx context.Context, email, code string) (*models.PasswordReset, error) {
	reset, err := s.resetRepo.FindActive(ctx, email, code)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrResetCodeInvalid
		}
		return nil, fmt.Errorf("failed to look up reset code: %w", err)
	}
	if reset.Expired(s.now()) {
		return nil, ErrResetCodeExpired
	}
	return reset, nil
}

// newResetCode returns a random 6-digit code with leading zeros kept.
func newResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
