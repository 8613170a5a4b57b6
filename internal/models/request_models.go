package models

// CreatePaymentRequest starts a new payment attempt for the authenticated user.
type CreatePaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Method string  `json:"method" binding:"required,oneof=pix credit"`
}

// RegisterDeviceRequest registers a push-notification token.
type RegisterDeviceRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

// UpdateUserRequest is the admin-console partial update for a user record.
// Pointer fields distinguish "leave unchanged" from explicit zero values.
type UpdateUserRequest struct {
	UserName           *string  `json:"userName"`
	IsAdmin            *bool    `json:"isAdmin"`
	UserCredit         *float64 `json:"userCredit"`
	SubscriptionStatus *string  `json:"subscriptionStatus"`
}

// UpdateSettingsRequest is the admin-console settings write. All fields are
// optional; only the present ones are applied.
type UpdateSettingsRequest struct {
	DailyCoffeeLimit      *int     `json:"dailyCoffeeLimit"`
	MinTimeBetweenCoffees *int     `json:"minTimeBetweenCoffees"`
	MonthlyPrice          *float64 `json:"monthlyPrice"`
	MaintenanceMode       *bool    `json:"maintenanceMode"`
	WelcomeMessage        *string  `json:"welcomeMessage"`
	WebhookURL            *string  `json:"webhookUrl"`
	PixKey                *string  `json:"pixKey"`
	SuperAdmins           []string `json:"superAdmins"`
	MinAppVersion         *string  `json:"minAppVersion"`
}

// ForgotPasswordRequest asks for a reset code to be mailed out.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyResetCodeRequest checks a mailed code without consuming it.
type VerifyResetCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

// CompletePasswordResetRequest consumes a reset code and sets a new password.
type CompletePasswordResetRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// AdminResetSearchRequest picks the target user of the guarded super-admin
// password reset workflow.
type AdminResetSearchRequest struct {
	Query string `json:"query" binding:"required"`
}

// AdminResetConfirmRequest re-authenticates the acting super-admin.
type AdminResetConfirmRequest struct {
	WorkflowID string `json:"workflowId" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// AdminResetChangeRequest sets the target user's new password.
type AdminResetChangeRequest struct {
	WorkflowID      string `json:"workflowId" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}
