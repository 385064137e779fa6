package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is built once at startup and passed to every component that needs
// it; nothing reads the environment mid-request.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type AuthConfig struct {
	Secret string

	// Bearer-credential lifetimes.
	SessionExpiryHours  int // ordinary session tokens
	LoginExpiryHours    int // tokens issued after OTP verification
	PaymentExpiryMins   int // payment/reset-flow tokens
	OtpExpiryMins       int
	ResetCodeExpiryMins int // identifier-based reset flow

	// The email-delivered flow historically used a shorter window than the
	// identifier flow; both stay configurable rather than unified.
	EmailResetCodeExpiryMins int

	// Brute-force defense.
	MaxLoginAttempts  int
	AttemptWindowMins int
	LoginBanHours     int
}

type MailConfig struct {
	SendGridKey string
	FromName    string
	FromAddress string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
	WriteRequests int // stricter limit on mutating endpoints
	WriteWindow   int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (a *AuthConfig) SessionExpiry() time.Duration {
	return time.Duration(a.SessionExpiryHours) * time.Hour
}

func (a *AuthConfig) LoginExpiry() time.Duration {
	return time.Duration(a.LoginExpiryHours) * time.Hour
}

func (a *AuthConfig) PaymentExpiry() time.Duration {
	return time.Duration(a.PaymentExpiryMins) * time.Minute
}

func (a *AuthConfig) OtpExpiry() time.Duration {
	return time.Duration(a.OtpExpiryMins) * time.Minute
}

func (a *AuthConfig) ResetCodeExpiry() time.Duration {
	return time.Duration(a.ResetCodeExpiryMins) * time.Minute
}

func (a *AuthConfig) EmailResetCodeExpiry() time.Duration {
	return time.Duration(a.EmailResetCodeExpiryMins) * time.Minute
}

func (a *AuthConfig) AttemptWindow() time.Duration {
	return time.Duration(a.AttemptWindowMins) * time.Minute
}

func (a *AuthConfig) LoginBan() time.Duration {
	return time.Duration(a.LoginBanHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "tagvault")
	v.SetDefault("DATABASE_PASSWORD", "tagvault_secret")
	v.SetDefault("DATABASE_NAME", "tagvault")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("AUTH_SECRET", "change-me-in-production")
	v.SetDefault("AUTH_SESSION_EXPIRY_HOURS", 4)
	v.SetDefault("AUTH_LOGIN_EXPIRY_HOURS", 24)
	v.SetDefault("AUTH_PAYMENT_EXPIRY_MINUTES", 10)
	v.SetDefault("AUTH_OTP_EXPIRY_MINUTES", 10)
	v.SetDefault("AUTH_RESET_CODE_EXPIRY_MINUTES", 10)
	v.SetDefault("AUTH_RESET_CODE_EMAIL_EXPIRY_MINUTES", 3)
	v.SetDefault("AUTH_MAX_LOGIN_ATTEMPTS", 10)
	v.SetDefault("AUTH_ATTEMPT_WINDOW_MINUTES", 30)
	v.SetDefault("AUTH_LOGIN_BAN_HOURS", 5)
	v.SetDefault("MAIL_FROM_NAME", "TagVault")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@tagvault.local")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_WRITE_REQUESTS", 5)
	v.SetDefault("RATE_LIMIT_WRITE_WINDOW_SECONDS", 60)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Auth: AuthConfig{
			Secret:                   v.GetString("AUTH_SECRET"),
			SessionExpiryHours:       v.GetInt("AUTH_SESSION_EXPIRY_HOURS"),
			LoginExpiryHours:         v.GetInt("AUTH_LOGIN_EXPIRY_HOURS"),
			PaymentExpiryMins:        v.GetInt("AUTH_PAYMENT_EXPIRY_MINUTES"),
			OtpExpiryMins:            v.GetInt("AUTH_OTP_EXPIRY_MINUTES"),
			ResetCodeExpiryMins:      v.GetInt("AUTH_RESET_CODE_EXPIRY_MINUTES"),
			EmailResetCodeExpiryMins: v.GetInt("AUTH_RESET_CODE_EMAIL_EXPIRY_MINUTES"),
			MaxLoginAttempts:         v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			AttemptWindowMins:        v.GetInt("AUTH_ATTEMPT_WINDOW_MINUTES"),
			LoginBanHours:            v.GetInt("AUTH_LOGIN_BAN_HOURS"),
		},
		Mail: MailConfig{
			SendGridKey: v.GetString("MAIL_SENDGRID_KEY"),
			FromName:    v.GetString("MAIL_FROM_NAME"),
			FromAddress: v.GetString("MAIL_FROM_ADDRESS"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			WriteRequests: v.GetInt("RATE_LIMIT_WRITE_REQUESTS"),
			WriteWindow:   v.GetInt("RATE_LIMIT_WRITE_WINDOW_SECONDS"),
		},
	}

	return cfg, nil
}
