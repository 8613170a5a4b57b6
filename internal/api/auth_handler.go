package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"cafezao-backend-go/internal/core"
	"cafezao-backend-go/internal/models"
)

// AuthHandler handles account and password-recovery endpoints.
type AuthHandler struct {
	userService  core.UserService
	resetService core.ResetService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(us core.UserService, rs core.ResetService) *AuthHandler {
	return &AuthHandler{userService: us, resetService: rs}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	UserName string `json:"userName" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// mapAuthErrorToStatus maps errors from the auth flows to HTTP status codes.
func mapAuthErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrEmailTaken):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrEmailTaken.Error()}
	case errors.Is(err, core.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errResponse = ErrorResponse{Error: core.ErrInvalidCredentials.Error()}
	case errors.Is(err, core.ErrResetCodeInvalid):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: core.ErrResetCodeInvalid.Error()}
	case errors.Is(err, core.ErrResetCodeExpired):
		statusCode = http.StatusGone
		errResponse = ErrorResponse{Error: core.ErrResetCodeExpired.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrUserNotFound.Error()}
	default:
		log.Printf("Internal Server Error: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Email, req.UserName, req.Password)
	if err != nil {
		mapAuthErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	user, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		mapAuthErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ForgotPassword handles POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	if err := h.resetService.RequestReset(c.Request.Context(), req.Email); err != nil {
		mapAuthErrorToStatus(c, err)
		return
	}
	// Always the same answer, whether or not the email exists.
	c.JSON(http.StatusOK, SuccessResponse{Message: "If the email is registered, a reset code has been sent."})
}

// VerifyResetCode handles POST /auth/verify-reset-code
func (h *AuthHandler) VerifyResetCode(c *gin.Context) {
	var req models.VerifyResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	if err := h.resetService.VerifyCode(c.Request.Context(), req.Email, req.Code); err != nil {
		mapAuthErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Reset code is valid."})
}

// CompletePasswordReset handles POST /auth/reset-password
func (h *AuthHandler) CompletePasswordReset(c *gin.Context) {
	var req models.CompletePasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	if err := h.resetService.CompleteReset(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		mapAuthErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Password updated."})
}
