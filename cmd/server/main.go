package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cafezao-backend-go/internal/api"
	"cafezao-backend-go/internal/cache"
	"cafezao-backend-go/internal/config"
	"cafezao-backend-go/internal/core"
	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/health"
	"cafezao-backend-go/internal/mailer"
	"cafezao-backend-go/internal/mercadopago"
	"cafezao-backend-go/internal/middleware"
)

func main() {
	// A .env file is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env file.")
	}

	// --- 1. Initialize Logger (Zap) ---
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Zap logger initialized successfully.")

	// --- 2. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded successfully.")

	// --- 3. Initialize Firebase Admin SDK (Firestore, Auth, Messaging) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	if err := db.InitFirebase(initCtx, appConfig); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase Admin SDK", zap.Error(err))
	}
	zapLogger.Info("Firebase Admin SDK initialized successfully.")

	firestoreClient := db.GetFirestoreClient()
	firebaseAuthClient := db.GetFirebaseAuthClient()
	messagingClient := db.GetMessagingClient()
	if firestoreClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firestore client is nil after initialization. Application cannot start.")
	}
	if firebaseAuthClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firebase Auth client is nil after initialization. Application cannot start.")
	}

	// --- 4. Initialize Cache ---
	var appCache cache.Cache
	if appConfig.RedisAddress != "" {
		redisCache, err := cache.NewRedisCache(initCtx, cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddress,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		if err != nil {
			zapLogger.Warn("Redis unavailable, using in-process cache", zap.Error(err))
			appCache = cache.NewMemoryCache()
		} else {
			appCache = redisCache
			zapLogger.Info("Redis cache initialized", zap.String("address", appConfig.RedisAddress))
		}
	} else {
		appCache = cache.NewMemoryCache()
		zapLogger.Info("No Redis configured, using in-process cache.")
	}

	// --- 5. Initialize Repositories ---
	userRepo := db.NewFirestoreUserRepository(firestoreClient)
	paymentRepo := db.NewFirestorePaymentRepository(firestoreClient)
	coffeeRepo := db.NewFirestoreCoffeeRepository(firestoreClient)
	settingsRepo := db.NewFirestoreSettingsRepository(firestoreClient)
	resetRepo := db.NewFirestorePasswordResetRepository(firestoreClient)
	tokenRepo := db.NewFirestoreDeviceTokenRepository(firestoreClient)
	zapLogger.Info("Repositories initialized successfully.")

	// --- 6. Initialize External Clients ---
	mpClient, err := mercadopago.NewClient(mercadopago.NewClientConfig{
		AccessToken: appConfig.MercadoPagoAccessToken,
		BaseURL:     appConfig.MercadoPagoBaseURL,
	})
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Mercado Pago client", zap.Error(err))
	}

	mailChain, err := buildMailer(appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize mailer", zap.Error(err))
	}

	// --- 7. Initialize Core Services ---
	settingsService := core.NewSettingsService(settingsRepo, appCache, zapLogger)
	notifyService := core.NewNotifyService(tokenRepo, messagingClient, zapLogger)
	userService := core.NewUserService(userRepo, coffeeRepo, settingsService, zapLogger)
	paymentService := core.NewPaymentService(
		paymentRepo,
		userRepo,
		settingsService,
		notifyService,
		mpClient,
		appCache,
		appConfig.ClientURL,
		appConfig.PaymentPollInterval,
		appConfig.PaymentPollMaxAttempts,
		zapLogger,
	)
	statsService := core.NewStatsService(coffeeRepo, userRepo, zapLogger)
	adminService := core.NewAdminService(userRepo, settingsRepo, settingsService, paymentService, zapLogger)
	resetService := core.NewResetService(userRepo, resetRepo, mailChain, appConfig.EmailSender, zapLogger)
	zapLogger.Info("Core services initialized successfully.")

	// --- 8. Background Workers ---
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	settingsService.Start(workerCtx)

	monitor := health.NewMonitor(firestoreClient, appCache, zapLogger)
	monitor.Start(workerCtx)

	// --- 9. Setup Gin HTTP Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured. API might not be accessible from a web frontend.")
	}

	api.SetupRoutes(
		router,
		zapLogger,
		userService,
		paymentService,
		statsService,
		adminService,
		resetService,
		settingsService,
		notifyService,
		monitor,
	)

	// --- 10. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 11. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	cancelWorkers()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		zapLogger.Info("HTTP server shut down gracefully.")
	}
}

// buildMailer assembles the delivery chain: direct HTTP first, SendGrid when
// a key is configured, then the relay rotation, and finally the local
// simulation in development.
func buildMailer(appConfig *config.Config, logger *zap.Logger) (mailer.Mailer, error) {
	strategies := []mailer.Strategy{
		mailer.NewDirectStrategy(appConfig.EmailAPIURL, 0),
	}
	if appConfig.SendGridAPIKey != "" {
		sg, err := mailer.NewSendGridStrategy(appConfig.SendGridAPIKey)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, sg)
	}
	strategies = append(strategies, mailer.NewProxyStrategy(appConfig.EmailAPIURL, nil, 0))
	if appConfig.EmailDevSimulate {
		strategies = append(strategies, mailer.NewSimulateStrategy(logger))
	}

	return mailer.NewChain(mailer.NewChainConfig{
		Strategies: strategies,
		Logger:     logger,
	})
}
