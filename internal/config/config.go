/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the donation-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                     string `mapstructure:"SERVER_PORT"`
	DatabaseURL                    string `mapstructure:"DATABASE_URL"`
	RedisURL                       string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix           string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                    string `mapstructure:"RABBITMQ_URL"`
	BlobStoreBaseURL               string `mapstructure:"BLOB_STORE_BASE_URL"`
	BlobStoreAPIKey                string `mapstructure:"BLOB_STORE_API_KEY"`
	AuthJWKSURL                    string `mapstructure:"AUTH_JWKS_URL"`
	DefaultCurrency                string `mapstructure:"DEFAULT_CURRENCY"`
	SubmissionRateLimitPerMinute   int    `mapstructure:"SUBMISSION_RATE_LIMIT_PER_MINUTE"`
	ReconcileCronSchedule          string `mapstructure:"RECONCILE_CRON_SCHEDULE"`
	ReconcileLookbackMinutes       int    `mapstructure:"RECONCILE_LOOKBACK_MINUTES"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "givehub:rate_limit")
	viper.SetDefault("DEFAULT_CURRENCY", "PHP")
	viper.SetDefault("SUBMISSION_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("RECONCILE_CRON_SCHEDULE", "*/10 * * * *")
	viper.SetDefault("RECONCILE_LOOKBACK_MINUTES", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "DONATION_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("BLOB_STORE_BASE_URL")
	_ = viper.BindEnv("BLOB_STORE_API_KEY")
	_ = viper.BindEnv("AUTH_JWKS_URL")
	_ = viper.BindEnv("DEFAULT_CURRENCY")
	_ = viper.BindEnv("SUBMISSION_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RECONCILE_CRON_SCHEDULE")
	_ = viper.BindEnv("RECONCILE_LOOKBACK_MINUTES")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "givehub:rate_limit"
	}

	config.DefaultCurrency = strings.ToUpper(strings.TrimSpace(config.DefaultCurrency))
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "PHP"
	}

	if config.SubmissionRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative submission rate limit configured; coercing to zero\" per_minute=%d", config.SubmissionRateLimitPerMinute)
		config.SubmissionRateLimitPerMinute = 0
	}

	config.ReconcileCronSchedule = strings.TrimSpace(config.ReconcileCronSchedule)
	if config.ReconcileCronSchedule == "" {
		config.ReconcileCronSchedule = "*/10 * * * *"
	}
	if config.ReconcileLookbackMinutes <= 0 {
		config.ReconcileLookbackMinutes = 30
	}

	return
}
