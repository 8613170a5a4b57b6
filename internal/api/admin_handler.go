package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cafezao-backend-go/internal/core"
	"cafezao-backend-go/internal/models"
)

// AdminHandler handles the super-admin back office endpoints.
type AdminHandler struct {
	adminService   core.AdminService
	paymentService core.PaymentService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(as core.AdminService, ps core.PaymentService) *AdminHandler {
	return &AdminHandler{adminService: as, paymentService: ps}
}

// mapAdminErrorToStatus maps errors from the admin flows to HTTP status codes.
func mapAdminErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrNotSuperAdmin):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrNotSuperAdmin.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrUserNotFound.Error()}
	case errors.Is(err, core.ErrWorkflowNotFound):
		statusCode = http.StatusGone
		errResponse = ErrorResponse{Error: core.ErrWorkflowNotFound.Error()}
	case errors.Is(err, core.ErrWorkflowStepOrder):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrWorkflowStepOrder.Error()}
	case errors.Is(err, core.ErrWrongAdminPassword):
		statusCode = http.StatusUnauthorized
		errResponse = ErrorResponse{Error: core.ErrWrongAdminPassword.Error()}
	case errors.Is(err, core.ErrPasswordMismatch):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: core.ErrPasswordMismatch.Error()}
	case errors.Is(err, core.ErrNoResetTarget):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrNoResetTarget.Error()}
	default:
		log.Printf("Internal Server Error: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

func actingAdminID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return "", false
	}
	return userID.(string), true
}

// ListUsers handles GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	actingID, ok := actingAdminID(c)
	if !ok {
		return
	}
	users, err := h.adminService.ListUsers(c.Request.Context(), actingID)
	if err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateUser handles PATCH /admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	actingID, ok := actingAdminID(c)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	user, err := h.adminService.UpdateUser(c.Request.Context(), actingID, c.Param("id"), req)
	if err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actingID, ok := actingAdminID(c)
	if !ok {
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), actingID, c.Param("id")); err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "User deleted."})
}

// GetSettings handles GET /admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	actingID, ok := actingAdminID(c)
	if !ok {
		return
	}
	if err := h.adminService.RequireSuperAdmin(c.Request.Context(), actingID); err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}

	settings, err := h.adminService.GetSettings(c.Request.Context())
	if err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PATCH /admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	actingID, ok := actingAdminID(c)
	if !ok {
		return
	}

	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	settings, err := h.adminService.UpdateSettings(c.Request.Context(), actingID, req)
	if err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// FinancialReport handles GET /admin/reports/financial?from=...&to=...
// Dates are RFC 3339 or plain 2006-01-02; defaults cover the current month.
func (h *AdminHandler) FinancialReport(c *gin.Context) {
	actingID, ok := actingAdminID(c)
	if !ok {
		return
	}
	if err := h.adminService.RequireSuperAdmin(c.Request.Context(), actingID); err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)

	if raw := c.Query("from"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid 'from' date", Details: err.Error()})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid 'to' date", Details: err.Error()})
			return
		}
		to = parsed
	}

	report, err := h.paymentService.FinancialReport(c.Request.Context(), from, to)
	if err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ResetSearch handles POST /admin/reset/search
func (h *AdminHandler) ResetSearch(c *gin.Context) {
	actingID, ok := actingAdminID(c)
	if !ok {
		return
	}

	var req models.AdminResetSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	wf, err := h.adminService.ResetSearch(c.Request.Context(), actingID, req.Query)
	if err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

// ResetConfirm handles POST /admin/reset/confirm
func (h *AdminHandler) ResetConfirm(c *gin.Context) {
	actingID, ok := actingAdminID(c)
	if !ok {
		return
	}

	var req models.AdminResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	if err := h.adminService.ResetConfirm(c.Request.Context(), actingID, req); err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Identity confirmed."})
}

// ResetChange handles POST /admin/reset/change
func (h *AdminHandler) ResetChange(c *gin.Context) {
	actingID, ok := actingAdminID(c)
	if !ok {
		return
	}

	var req models.AdminResetChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	if err := h.adminService.ResetChange(c.Request.Context(), actingID, req); err != nil {
		mapAdminErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Password changed."})
}

func parseDateParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
