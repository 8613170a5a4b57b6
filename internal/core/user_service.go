package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/models"
)

// Custom errors for the UserService
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSubscriptionNeeded = errors.New("an active subscription is required")
	ErrDailyLimitReached  = errors.New("daily coffee limit reached")
	ErrCoffeeTooSoon      = errors.New("minimum time between coffees not elapsed")
	ErrMaintenanceMode    = errors.New("system is under maintenance")
)

// userService implements the UserService interface.
type userService struct {
	userRepo    db.UserRepository
	coffeeRepo  db.CoffeeRepository
	settingsSvc SettingsService
	logger      *zap.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(ur db.UserRepository, cr db.CoffeeRepository, ss SettingsService, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{
		userRepo:    ur,
		coffeeRepo:  cr,
		settingsSvc: ss,
		logger:      logger,
	}
}

// Register creates a new account with an inactive subscription.
func (s *userService) Register(ctx context.Context, email, userName, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:                 uuid.NewString(),
		Email:              email,
		UserName:           userName,
		Password:           HashPassword(password, salt),
		PasswordSalt:       salt,
		SubscriptionStatus: models.SubscriptionInactive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("userId", user.ID), zap.String("email", email))
	return user, nil
}

// Login authenticates by email and password.
func (s *userService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !VerifyPassword(password, user.PasswordSalt, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser fetches a user by ID.
func (s *userService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", userID, err)
	}
	return user, nil
}

// RegisterCoffee appends a dispensed-coffee event after checking the
// subscription and the configured consumption limits.
func (s *userService) RegisterCoffee(ctx context.Context, userID, quantity string) (*models.CoffeeEvent, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.MaintenanceMode {
		return nil, ErrMaintenanceMode
	}
	if user.SubscriptionStatus != models.SubscriptionActive {
		return nil, ErrSubscriptionNeeded
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todays, err := s.coffeeRepo.ListSince(ctx, startOfDay, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's coffees: %w", err)
	}
	if len(todays) >= settings.DailyCoffeeLimit {
		return nil, ErrDailyLimitReached
	}
	if len(todays) > 0 {
		minGap := time.Duration(settings.MinTimeBetweenCoffees) * time.Minute
		// ListSince returns newest first.
		if now.Sub(todays[0].CreatedAt) < minGap {
			return nil, ErrCoffeeTooSoon
		}
	}

	if quantity == "" {
		quantity = "4/4"
	}
	event := &models.CoffeeEvent{
		UserID:   userID,
		Quantity: quantity,
	}
	if _, err := s.coffeeRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record coffee: %w", err)
	}

	user.TotalCoffees++
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn("failed to bump totalCoffees", zap.String("userId", userID), zap.Error(err))
	}

	event.UserName = user.DisplayName()
	return event, nil
}
