package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"cafezao-backend-go/internal/core"
)

// SettingsHandler serves the client-facing subset of the system settings.
type SettingsHandler struct {
	settingsService core.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(ss core.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: ss}
}

// publicSettings omits the admin-only fields (allowlist, webhook URL).
type publicSettings struct {
	DailyCoffeeLimit      int     `json:"dailyCoffeeLimit"`
	MinTimeBetweenCoffees int     `json:"minTimeBetweenCoffees"`
	MonthlyPrice          float64 `json:"monthlyPrice"`
	MaintenanceMode       bool    `json:"maintenanceMode"`
	WelcomeMessage        string  `json:"welcomeMessage"`
	PixKey                string  `json:"pixKey"`
	MinAppVersion         string  `json:"minAppVersion"`
}

// GetSettings handles GET /settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		log.Printf("Failed to load settings: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, publicSettings{
		DailyCoffeeLimit:      settings.DailyCoffeeLimit,
		MinTimeBetweenCoffees: settings.MinTimeBetweenCoffees,
		MonthlyPrice:          settings.SubscriptionPrices.Monthly,
		MaintenanceMode:       settings.MaintenanceMode,
		WelcomeMessage:        settings.WelcomeMessage,
		PixKey:                settings.PixKey,
		MinAppVersion:         settings.MinAppVersion,
	})
}
