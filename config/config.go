package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Auth.
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	AdminTokenHash string `mapstructure:"ADMIN_TOKEN_HASH"`

	// Storage: memory, mongo or postgres.
	StoreBackend  string `mapstructure:"STORE_BACKEND"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	PostgresDSN   string `mapstructure:"POSTGRES_DSN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Payments.
	StripeKey           string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	Currency            string `mapstructure:"CURRENCY"`

	// Push notifications.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	// Booking lifecycle.
	AcceptanceWindowSeconds int          `mapstructure:"ACCEPTANCE_WINDOW_SECONDS"`
	ServiceTiers            []TierConfig `mapstructure:"SERVICE_TIERS"`
}

// TierConfig is one service tier entry of the catalog as written in config.yaml.
type TierConfig struct {
	ID                  string  `mapstructure:"id"`
	Name                string  `mapstructure:"name"`
	BaseDurationMinutes int     `mapstructure:"base_duration_minutes"`
	BasePrice           float64 `mapstructure:"base_price"`
	IncrementMinutes    int     `mapstructure:"increment_minutes"`
	IncrementPrice      float64 `mapstructure:"increment_price"`
	MaxDurationMinutes  int     `mapstructure:"max_duration_minutes"`
}

var AppConfig Config

func LoadConfig() {
	// A local .env is optional; real deployments inject the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("ADMIN_TOKEN_HASH", "")
	viper.SetDefault("STORE_BACKEND", "memory")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "soothe")
	viper.SetDefault("POSTGRES_DSN", "host=localhost user=soothe password=soothe dbname=soothe port=5432 sslmode=disable")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("CURRENCY", "usd")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	viper.SetDefault("ACCEPTANCE_WINDOW_SECONDS", 120)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// AcceptanceWindow is how long a therapist has to answer a new request.
func (c Config) AcceptanceWindow() time.Duration {
	if c.AcceptanceWindowSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.AcceptanceWindowSeconds) * time.Second
}
