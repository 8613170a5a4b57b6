package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"cafezao-backend-go/internal/core"
	"cafezao-backend-go/internal/models"
)

// UserHandler handles the authenticated user's own endpoints.
type UserHandler struct {
	userService   core.UserService
	statsService  core.StatsService
	notifyService core.NotifyService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us core.UserService, ss core.StatsService, ns core.NotifyService) *UserHandler {
	return &UserHandler{userService: us, statsService: ss, notifyService: ns}
}

type registerCoffeeRequest struct {
	Quantity string `json:"quantity"`
}

// mapUserErrorToStatus maps errors from the user flows to HTTP status codes.
func mapUserErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrUserNotFound.Error()}
	case errors.Is(err, core.ErrSubscriptionNeeded):
		statusCode = http.StatusPaymentRequired
		errResponse = ErrorResponse{Error: core.ErrSubscriptionNeeded.Error()}
	case errors.Is(err, core.ErrDailyLimitReached):
		statusCode = http.StatusTooManyRequests
		errResponse = ErrorResponse{Error: core.ErrDailyLimitReached.Error()}
	case errors.Is(err, core.ErrCoffeeTooSoon):
		statusCode = http.StatusTooManyRequests
		errResponse = ErrorResponse{Error: core.ErrCoffeeTooSoon.Error()}
	case errors.Is(err, core.ErrMaintenanceMode):
		statusCode = http.StatusServiceUnavailable
		errResponse = ErrorResponse{Error: core.ErrMaintenanceMode.Error()}
	default:
		log.Printf("Internal Server Error: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// GetCurrentUser handles GET /users/me
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID.(string))
	if err != nil {
		mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterCoffee handles POST /coffees
func (h *UserHandler) RegisterCoffee(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	var req registerCoffeeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	event, err := h.userService.RegisterCoffee(c.Request.Context(), userID.(string), req.Quantity)
	if err != nil {
		mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// GetMyStats handles GET /stats/me
func (h *UserHandler) GetMyStats(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	stats, err := h.statsService.UserStats(c.Request.Context(), userID.(string), c.DefaultQuery("window", "all"))
	if err != nil {
		mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetGlobalStats handles GET /stats/global
func (h *UserHandler) GetGlobalStats(c *gin.Context) {
	stats, err := h.statsService.GlobalStats(c.Request.Context(), c.DefaultQuery("window", "all"))
	if err != nil {
		mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetMyAchievements handles GET /stats/achievements
func (h *UserHandler) GetMyAchievements(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	achievements, err := h.statsService.Achievements(c.Request.Context(), userID.(string))
	if err != nil {
		mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": achievements})
}

// RegisterDevice handles POST /devices
func (h *UserHandler) RegisterDevice(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	var req models.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	if err := h.notifyService.RegisterDevice(c.Request.Context(), userID.(string), req); err != nil {
		mapUserErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Device registered."})
}
