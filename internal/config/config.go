package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token strategies and one-time token stores accepted by Load
const (
	TokenStrategyJWT    = "jwt"
	TokenStrategyPaseto = "paseto"

	OneTimeStorePostgres = "postgres"
	OneTimeStoreRedis    = "redis"

	EmailTransportGoChannel = "gochannel"
	EmailTransportKafka     = "kafka"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	AutoMigrate    bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	// jwt (HS256) or paseto (v4.local)
	TokenStrategy string
	// HMAC secret for jwt, at least 32 bytes
	TokenSecret []byte
	// PASETO symmetric key (must be 32 bytes for v4.local)
	PasetoKey                  []byte
	AccessTokenDuration        time.Duration
	VerificationTokenDuration  time.Duration
	PasswordResetTokenDuration time.Duration
	// postgres or redis
	OneTimeTokenStore        string
	TokenCleanupInterval     time.Duration
	RequireEmailVerification bool
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FromAddress  string
	FrontendURL  string // Frontend URL for verification links
	Transport    string // gochannel or kafka
	KafkaBrokers []string
	Topic        string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "tutorhub"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			AutoMigrate:    getBoolEnv("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenStrategy:              strings.ToLower(getEnv("AUTH_TOKEN_STRATEGY", TokenStrategyJWT)),
			TokenSecret:                []byte(getEnv("AUTH_TOKEN_SECRET", "")),
			PasetoKey:                  []byte(getEnv("PASETO_KEY", "")),
			AccessTokenDuration:        getDurationEnv("ACCESS_TOKEN_DURATION", 24*time.Hour),
			VerificationTokenDuration:  getDurationEnv("VERIFICATION_TOKEN_DURATION", 24*time.Hour),
			PasswordResetTokenDuration: getDurationEnv("PASSWORD_RESET_TOKEN_DURATION", time.Hour),
			OneTimeTokenStore:          strings.ToLower(getEnv("ONE_TIME_TOKEN_STORE", OneTimeStorePostgres)),
			TokenCleanupInterval:       getDurationEnv("TOKEN_CLEANUP_INTERVAL", time.Hour),
			RequireEmailVerification:   getBoolEnv("REQUIRE_EMAIL_VERIFICATION", false),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			FromAddress:  getEnv("SMTP_FROM", ""),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
			Transport:    strings.ToLower(getEnv("EMAIL_TRANSPORT", EmailTransportGoChannel)),
			KafkaBrokers: getSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:        getEnv("EMAIL_TOPIC", "tutorhub.email.outbound"),
		},
	}

	if cfg.Email.FromAddress == "" {
		cfg.Email.FromAddress = cfg.Email.SMTPUser
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee
func (c *Config) Validate() error {
	var errs []error

	switch c.Auth.TokenStrategy {
	case TokenStrategyJWT:
		if len(c.Auth.TokenSecret) < 32 {
			errs = append(errs, fmt.Errorf("AUTH_TOKEN_SECRET must be at least 32 bytes, got %d", len(c.Auth.TokenSecret)))
		}
	case TokenStrategyPaseto:
		// Validate PASETO key length (must be 32 bytes for v4.local)
		if len(c.Auth.PasetoKey) != 32 {
			errs = append(errs, fmt.Errorf("PASETO_KEY must be exactly 32 bytes, got %d", len(c.Auth.PasetoKey)))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_TOKEN_STRATEGY %q", c.Auth.TokenStrategy))
	}

	switch c.Auth.OneTimeTokenStore {
	case OneTimeStorePostgres, OneTimeStoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unsupported ONE_TIME_TOKEN_STORE %q", c.Auth.OneTimeTokenStore))
	}

	switch c.Email.Transport {
	case EmailTransportGoChannel:
	case EmailTransportKafka:
		if len(c.Email.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka email transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported EMAIL_TRANSPORT %q", c.Email.Transport))
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"ACCESS_TOKEN_DURATION", c.Auth.AccessTokenDuration},
		{"VERIFICATION_TOKEN_DURATION", c.Auth.VerificationTokenDuration},
		{"PASSWORD_RESET_TOKEN_DURATION", c.Auth.PasswordResetTokenDuration},
		{"TOKEN_CLEANUP_INTERVAL", c.Auth.TokenCleanupInterval},
	}
	for _, d := range positive {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.value))
		}
	}

	return errors.Join(errs...)
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

// getDurationEnv accepts plain seconds ("3600") or a Go duration ("1h")
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}

	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
