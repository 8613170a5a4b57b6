package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cafezao-backend-go/internal/core"
	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/health"
	"cafezao-backend-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and
// route-level middleware. Global middleware (logging, recovery, CORS) are
// applied to the router before this function is called, in main.go.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	userService core.UserService,
	paymentService core.PaymentService,
	statsService core.StatsService,
	adminService core.AdminService,
	resetService core.ResetService,
	settingsService core.SettingsService,
	notifyService core.NotifyService,
	monitor *health.Monitor,
) {
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firebaseAuthClient == nil {
		logger.Warn("Firebase Auth client is not initialized; only session-token credentials will be accepted.")
	}
	authMW := middleware.NewAuthMiddleware(firebaseAuthClient, userService)
	versionGate := middleware.VersionGate(settingsService, logger)

	authHandler := NewAuthHandler(userService, resetService)
	userHandler := NewUserHandler(userService, statsService, notifyService)
	paymentHandler := NewPaymentHandler(paymentService)
	adminHandler := NewAdminHandler(adminService, paymentService)
	settingsHandler := NewSettingsHandler(settingsService)

	// Liveness first: no auth, no version gate.
	router.GET("/health", func(c *gin.Context) {
		status := monitor.Status()
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	// Provider notifications arrive without client headers of any kind.
	router.POST("/webhooks/mercadopago", paymentHandler.Webhook)

	apiV1 := router.Group("/api/v1")
	apiV1.Use(versionGate)
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/verify-reset-code", authHandler.VerifyResetCode)
			authGroup.POST("/reset-password", authHandler.CompletePasswordReset)
		}

		// Client-facing settings are public so the login screen can show
		// prices and the maintenance banner.
		apiV1.GET("/settings", settingsHandler.GetSettings)

		protected := apiV1.Group("")
		protected.Use(authMW.VerifyToken())
		{
			protected.GET("/users/me", userHandler.GetCurrentUser)
			protected.POST("/coffees", userHandler.RegisterCoffee)
			protected.POST("/devices", userHandler.RegisterDevice)

			protected.GET("/stats/me", userHandler.GetMyStats)
			protected.GET("/stats/global", userHandler.GetGlobalStats)
			protected.GET("/stats/achievements", userHandler.GetMyAchievements)

			protected.POST("/payments", paymentHandler.CreatePayment)
			protected.GET("/payments/:id", paymentHandler.GetPayment)
			protected.GET("/payments/:id/qr", paymentHandler.GetPaymentQR)
			protected.DELETE("/payments/pending", paymentHandler.ClearPendingPayments)

			adminGroup := protected.Group("/admin")
			{
				adminGroup.GET("/users", adminHandler.ListUsers)
				adminGroup.PATCH("/users/:id", adminHandler.UpdateUser)
				adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
				adminGroup.GET("/settings", adminHandler.GetSettings)
				adminGroup.PATCH("/settings", adminHandler.UpdateSettings)
				adminGroup.GET("/reports/financial", adminHandler.FinancialReport)
				adminGroup.POST("/reset/search", adminHandler.ResetSearch)
				adminGroup.POST("/reset/confirm", adminHandler.ResetConfirm)
				adminGroup.POST("/reset/change", adminHandler.ResetChange)
			}
		}
	}
}
