package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/models"
)

// Custom errors for the AdminService
var (
	ErrNotSuperAdmin      = errors.New("user is not a super admin")
	ErrWorkflowNotFound   = errors.New("reset workflow not found or expired")
	ErrWorkflowStepOrder  = errors.New("reset workflow step out of order")
	ErrPasswordMismatch   = errors.New("password confirmation does not match")
	ErrWrongAdminPassword = errors.New("super admin password incorrect")
	ErrNoResetTarget      = errors.New("no user matches the reset query")
)

// resetWorkflowTTL is how long a guarded reset workflow stays redeemable
// between steps.
const resetWorkflowTTL = 5 * time.Minute

// Workflow steps of the guarded password reset.
const (
	stepSearched  = "searched"
	stepConfirmed = "confirmed"
)

// ResetWorkflow is the server-side state of a guarded password reset. The ID
// is handed to the console and must accompany the confirm and change steps.
type ResetWorkflow struct {
	ID          string    `json:"workflowId"`
	TargetID    string    `json:"targetId"`
	TargetEmail string    `json:"targetEmail"`
	TargetName  string    `json:"targetName"`
	actingID    string
	step        string
	expiresAt   time.Time
}

// adminService implements the AdminService interface.
type adminService struct {
	userRepo     db.UserRepository
	settingsRepo db.SettingsRepository
	settingsSvc  SettingsService
	paymentSvc   PaymentService
	logger       *zap.Logger

	mu        sync.Mutex
	workflows map[string]*ResetWorkflow
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(
	ur db.UserRepository,
	sr db.SettingsRepository,
	ss SettingsService,
	ps PaymentService,
	logger *zap.Logger,
) AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &adminService{
		userRepo:     ur,
		settingsRepo: sr,
		settingsSvc:  ss,
		paymentSvc:   ps,
		logger:       logger,
		workflows:    make(map[string]*ResetWorkflow),
	}
}

// RequireSuperAdmin rejects callers not on the settings allowlist.
func (s *adminService) RequireSuperAdmin(ctx context.Context, userID string) error {
	settings, err := s.settingsSvc.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if !settings.IsSuperAdmin(userID) {
		return ErrNotSuperAdmin
	}
	return nil
}

// ListUsers returns every user record.
func (s *adminService) ListUsers(ctx context.Context, actingID string) ([]*models.User, error) {
	if err := s.RequireSuperAdmin(ctx, actingID); err != nil {
		return nil, err
	}
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUser applies a partial update to a user record.
func (s *adminService) UpdateUser(ctx context.Context, actingID, targetID string, req models.UpdateUserRequest) (*models.User, error) {
	if err := s.RequireSuperAdmin(ctx, actingID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user '%s': %w", targetID, err)
	}

	if req.UserName != nil {
		user.UserName = *req.UserName
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}
	if req.UserCredit != nil {
		user.UserCredit = *req.UserCredit
	}
	if req.SubscriptionStatus != nil {
		if !models.ValidSubscriptionStatus(*req.SubscriptionStatus) {
			return nil, fmt.Errorf("invalid subscription status '%s'", *req.SubscriptionStatus)
		}
		user.SubscriptionStatus = *req.SubscriptionStatus
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user '%s': %w", targetID, err)
	}
	s.logger.Info("user updated by admin",
		zap.String("actingId", actingID),
		zap.String("targetId", targetID))
	return user, nil
}

// DeleteUser removes a user record, stopping any in-flight payment watcher.
func (s *adminService) DeleteUser(ctx context.Context, actingID, targetID string) error {
	if err := s.RequireSuperAdmin(ctx, actingID); err != nil {
		return err
	}
	if actingID == targetID {
		return errors.New("super admin cannot delete their own account")
	}
	if s.paymentSvc != nil {
		s.paymentSvc.StopPolling(targetID)
	}
	if err := s.userRepo.Delete(ctx, targetID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user '%s': %w", targetID, err)
	}
	s.logger.Info("user deleted by admin",
		zap.String("actingId", actingID),
		zap.String("targetId", targetID))
	return nil
}

// GetSettings returns the shared settings document.
func (s *adminService) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	return s.settingsRepo.Get(ctx)
}

// UpdateSettings applies a partial settings write.
func (s *adminService) UpdateSettings(ctx context.Context, actingID string, req models.UpdateSettingsRequest) (*models.SystemSettings, error) {
	if err := s.RequireSuperAdmin(ctx, actingID); err != nil {
		return nil, err
	}
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if req.DailyCoffeeLimit != nil {
		settings.DailyCoffeeLimit = *req.DailyCoffeeLimit
	}
	if req.MinTimeBetweenCoffees != nil {
		settings.MinTimeBetweenCoffees = *req.MinTimeBetweenCoffees
	}
	if req.MonthlyPrice != nil {
		settings.SubscriptionPrices.Monthly = *req.MonthlyPrice
	}
	if req.MaintenanceMode != nil {
		settings.MaintenanceMode = *req.MaintenanceMode
	}
	if req.WelcomeMessage != nil {
		settings.WelcomeMessage = *req.WelcomeMessage
	}
	if req.WebhookURL != nil {
		settings.WebhookURL = *req.WebhookURL
	}
	if req.PixKey != nil {
		settings.PixKey = *req.PixKey
	}
	if req.SuperAdmins != nil {
		settings.SuperAdmins = req.SuperAdmins
	}
	if req.MinAppVersion != nil {
		settings.MinAppVersion = *req.MinAppVersion
	}
	settings.ApplyDefaults()

	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	s.logger.Info("settings updated by admin", zap.String("actingId", actingID))
	return settings, nil
}

// ResetSearch starts a guarded reset workflow by locating the target user by
// email or name.
func (s *adminService) ResetSearch(ctx context.Context, actingID string, query string) (*ResetWorkflow, error) {
	if err := s.RequireSuperAdmin(ctx, actingID); err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, ErrNoResetTarget
	}

	target, err := s.findTarget(ctx, query)
	if err != nil {
		return nil, err
	}

	wf := &ResetWorkflow{
		ID:          uuid.NewString(),
		TargetID:    target.ID,
		TargetEmail: target.Email,
		TargetName:  target.DisplayName(),
		actingID:    actingID,
		step:        stepSearched,
		expiresAt:   time.Now().Add(resetWorkflowTTL),
	}

	s.mu.Lock()
	s.workflows[wf.ID] = wf
	s.mu.Unlock()

	s.logger.Info("guarded reset workflow opened",
		zap.String("actingId", actingID),
		zap.String("targetId", target.ID))
	return wf, nil
}

// ResetConfirm re-authenticates the acting super admin against their stored
// credential before the password may change.
func (s *adminService) ResetConfirm(ctx context.Context, actingID string, req models.AdminResetConfirmRequest) error {
	wf, err := s.takeWorkflow(req.WorkflowID, actingID, stepSearched)
	if err != nil {
		return err
	}

	admin, err := s.userRepo.GetByID(ctx, actingID)
	if err != nil {
		return fmt.Errorf("failed to load acting admin: %w", err)
	}
	if !VerifyPassword(req.Password, admin.PasswordSalt, admin.Password) {
		return ErrWrongAdminPassword
	}

	s.mu.Lock()
	wf.step = stepConfirmed
	wf.expiresAt = time.Now().Add(resetWorkflowTTL)
	s.mu.Unlock()
	return nil
}

// ResetChange sets the target user's new password and closes the workflow.
func (s *adminService) ResetChange(ctx context.Context, actingID string, req models.AdminResetChangeRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	wf, err := s.takeWorkflow(req.WorkflowID, actingID, stepConfirmed)
	if err != nil {
		return err
	}

	salt, err := NewSalt()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetPassword(ctx, wf.TargetID, HashPassword(req.NewPassword, salt), salt); err != nil {
		return fmt.Errorf("failed to set new password: %w", err)
	}

	s.mu.Lock()
	delete(s.workflows, wf.ID)
	s.mu.Unlock()

	s.logger.Info("guarded reset completed",
		zap.String("actingId", actingID),
		zap.String("targetId", wf.TargetID))
	return nil
}

// takeWorkflow validates a workflow reference for the expected step. Expired
// workflows are discarded so the console starts over at search.
func (s *adminService) takeWorkflow(workflowID, actingID, expectStep string) (*ResetWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[workflowID]
	if !ok {
		return nil, ErrWorkflowNotFound
	}
	if time.Now().After(wf.expiresAt) {
		delete(s.workflows, workflowID)
		return nil, ErrWorkflowNotFound
	}
	if wf.actingID != actingID {
		return nil, ErrWorkflowNotFound
	}
	if wf.step != expectStep {
		return nil, ErrWorkflowStepOrder
	}
	return wf, nil
}

func (s *adminService) findTarget(ctx context.Context, query string) (*models.User, error) {
	if user, err := s.userRepo.GetByEmail(ctx, query); err == nil {
		return user, nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up reset target: %w", err)
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for reset search: %w", err)
	}
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.UserName), query) {
			return u, nil
		}
	}
	return nil, ErrNoResetTarget
}
