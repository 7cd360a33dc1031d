package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvDevelopment enables console logging and the development JWT secret.
	EnvDevelopment = "development"

	// StorageMySQL and StorageMemory are the supported STORAGE_DRIVER values.
	StorageMySQL  = "mysql"
	StorageMemory = "memory"

	developmentJWTSecret = "change-me"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Metrics MetricsConfig
}

// AppConfig holds process level settings.
type AppConfig struct {
	Env         string
	Port        string
	LogLevel    string
	SwaggerHost string
}

// DBConfig holds the credential store settings.
type DBConfig struct {
	Driver       string
	DSN          string
	Timeout      time.Duration
	MaxOpenConns int
	MaxIdleConns int
	Reset        bool
}

// RedisConfig holds the role cache settings.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	RoleCacheTTL time.Duration
}

// AuthConfig holds token, hashing and role settings.
type AuthConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	BcryptCost  int
	AdminRole   string
	PhoneRegion string
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool
}

// Load builds Config from environment variables and an optional .env file in the working directory.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:         v.GetString("APP_ENV"),
			Port:        v.GetString("APP_PORT"),
			LogLevel:    v.GetString("LOG_LEVEL"),
			SwaggerHost: v.GetString("SWAGGER_HOST"),
		},
		DB: DBConfig{
			Driver:       v.GetString("STORAGE_DRIVER"),
			DSN:          v.GetString("MYSQL_DSN"),
			Timeout:      v.GetDuration("DB_TIMEOUT"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			Reset:        v.GetBool("RESET_DB"),
		},
		Redis: RedisConfig{
			Addr:         v.GetString("REDIS_ADDR"),
			Password:     v.GetString("REDIS_PASSWORD"),
			DB:           v.GetInt("REDIS_DB"),
			RoleCacheTTL: v.GetDuration("ROLE_CACHE_TTL"),
		},
		Auth: AuthConfig{
			JWTSecret:   v.GetString("JWT_SECRET"),
			TokenTTL:    v.GetDuration("TOKEN_TTL"),
			BcryptCost:  v.GetInt("BCRYPT_COST"),
			AdminRole:   v.GetString("ADMIN_ROLE"),
			PhoneRegion: v.GetString("PHONE_REGION"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}

	if cfg.Auth.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.Auth.JWTSecret = developmentJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("STORAGE_DRIVER", StorageMySQL)
	v.SetDefault("MYSQL_DSN", "user:password@tcp(localhost:3306)/userroles?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("DB_TIMEOUT", "5s")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("RESET_DB", false)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ROLE_CACHE_TTL", "10m")

	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("ADMIN_ROLE", "admin")
	v.SetDefault("PHONE_REGION", "IN")

	v.SetDefault("METRICS_ENABLED", true)
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required outside development")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.DB.Timeout <= 0 {
		return fmt.Errorf("config: DB_TIMEOUT must be positive, got %s", c.DB.Timeout)
	}
	if c.Auth.AdminRole == "" {
		return errors.New("config: ADMIN_ROLE must not be empty")
	}
	switch c.DB.Driver {
	case StorageMySQL, StorageMemory:
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.DB.Driver)
	}
	return nil
}

// IsDevelopment reports whether the process runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment
}

// UsesDevelopmentSecret reports whether tokens are signed with the built-in development secret.
func (c *Config) UsesDevelopmentSecret() bool {
	return c.IsDevelopment() && c.Auth.JWTSecret == developmentJWTSecret
}
