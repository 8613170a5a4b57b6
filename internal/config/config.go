package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`

	// Mercado Pago
	MercadoPagoAccessToken string `mapstructure:"MERCADO_PAGO_ACCESS_TOKEN"`
	MercadoPagoBaseURL     string `mapstructure:"MERCADO_PAGO_BASE_URL"`

	// Payment status polling
	PaymentPollInterval    time.Duration `mapstructure:"PAYMENT_POLL_INTERVAL"`
	PaymentPollMaxAttempts int           `mapstructure:"PAYMENT_POLL_MAX_ATTEMPTS"` // 0 = unbounded

	// Email delivery
	EmailAPIURL      string `mapstructure:"EMAIL_API_URL"`
	EmailSender      string `mapstructure:"EMAIL_SENDER"`
	SendGridAPIKey   string `mapstructure:"SENDGRID_API_KEY"`
	EmailDevSimulate bool   `mapstructure:"EMAIL_DEV_SIMULATE"`

	// Redis cache
	RedisAddress  string `mapstructure:"REDIS_ADDRESS"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("MERCADO_PAGO_BASE_URL", "https://api.mercadopago.com")
	viper.SetDefault("PAYMENT_POLL_INTERVAL", 2*time.Second)
	viper.SetDefault("PAYMENT_POLL_MAX_ATTEMPTS", 450)
	viper.SetDefault("EMAIL_API_URL", "https://send-email.neurelix.com.br/send-email")
	viper.SetDefault("EMAIL_SENDER", "cafezaocomputacao@gmail.com")
	viper.SetDefault("REDIS_ADDRESS", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)

	viper.BindEnv("PORT")
	viper.BindEnv("GIN_MODE")
	viper.BindEnv("FIREBASE_PROJECT_ID")
	viper.BindEnv("GOOGLE_APPLICATION_CREDENTIALS")
	viper.BindEnv("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64")
	viper.BindEnv("CLIENT_URL")
	viper.BindEnv("MERCADO_PAGO_ACCESS_TOKEN")
	viper.BindEnv("MERCADO_PAGO_BASE_URL")
	viper.BindEnv("PAYMENT_POLL_INTERVAL")
	viper.BindEnv("PAYMENT_POLL_MAX_ATTEMPTS")
	viper.BindEnv("EMAIL_API_URL")
	viper.BindEnv("EMAIL_SENDER")
	viper.BindEnv("SENDGRID_API_KEY")
	viper.BindEnv("EMAIL_DEV_SIMULATE")
	viper.BindEnv("REDIS_ADDRESS")
	viper.BindEnv("REDIS_PASSWORD")
	viper.BindEnv("REDIS_DB")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	// In debug mode the email chain may fall back to local simulation.
	if strings.ToLower(cfg.GinMode) != "release" {
		cfg.EmailDevSimulate = true
	}

	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.GoogleApplicationCredentials == "" && cfg.FirebaseServiceAccountJSONBase64 == "" {
		return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
	}
	if cfg.MercadoPagoAccessToken == "" {
		return nil, errors.New("MERCADO_PAGO_ACCESS_TOKEN is required")
	}
	if cfg.PaymentPollInterval <= 0 {
		cfg.PaymentPollInterval = 2 * time.Second
	}
	if cfg.PaymentPollMaxAttempts < 0 {
		cfg.PaymentPollMaxAttempts = 0
	}

	return &cfg, nil
}
