package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds the gRPC (Port) and REST (HTTPPort) listeners
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	HTTPPort        int    `yaml:"http_port"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Driver             string `yaml:"driver"` // "postgres" or "memory"
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Database           string `yaml:"database"`
	SSLMode            string `yaml:"ssl_mode"`
	StatementTimeoutMs int    `yaml:"statement_timeout_ms"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MigrateOnStart     *bool  `yaml:"migrate_on_start"`
}

// JWTConfig contains identity token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	Issuer            string `yaml:"issuer"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// LifecycleConfig tunes the transition pipeline and the maintenance scheduler
type LifecycleConfig struct {
	MaintenanceIntervalHours float64 `yaml:"maintenance_interval_hours"`
	HistoryPageSize          int32   `yaml:"history_page_size"`
}

// NotifierConfig selects where maintenance and contract alerts go
type NotifierConfig struct {
	Type     string         `yaml:"type"` // "log", "sendgrid", "firebase" or "all"
	SendGrid SendGridConfig `yaml:"sendgrid"`
	Firebase FirebaseConfig `yaml:"firebase"`
}

type SendGridConfig struct {
	APIKey    string   `yaml:"api_key"`
	FromName  string   `yaml:"from_name"`
	FromEmail string   `yaml:"from_email"`
	To        []string `yaml:"to"`
}

type FirebaseConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	Topic           string `yaml:"topic"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ScanMaintenanceDue         string `yaml:"scan_maintenance_due"`
	ScheduleExpiredCollections string `yaml:"schedule_expired_collections"`
}

// RateLimitConfig is a per-client-IP token bucket on the REST API
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	envString("DB_DRIVER", &c.Database.Driver)
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)

	// JWT
	envString("JWT_SECRET", &c.JWT.Secret)

	// Server
	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)
	envInt("HTTP_PORT", &c.Server.HTTPPort)

	// Log
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	// Lifecycle
	if val := os.Getenv("MAINTENANCE_INTERVAL_HOURS"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Lifecycle.MaintenanceIntervalHours = f
		}
	}

	// Notifier
	envString("NOTIFIER_TYPE", &c.Notifier.Type)
	envString("SENDGRID_API_KEY", &c.Notifier.SendGrid.APIKey)
	envString("FIREBASE_CREDENTIALS_FILE", &c.Notifier.Firebase.CredentialsFile)
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 || c.Server.HTTPPort == c.Server.Port {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
		if c.Database.StatementTimeoutMs == 0 {
			c.Database.StatementTimeoutMs = 5000
		}
		if c.Database.MaxOpenConns == 0 {
			c.Database.MaxOpenConns = 20
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Lifecycle defaults
	if c.Lifecycle.MaintenanceIntervalHours == 0 {
		c.Lifecycle.MaintenanceIntervalHours = 300
	}
	if c.Lifecycle.MaintenanceIntervalHours < 0 {
		return fmt.Errorf("maintenance interval must be positive")
	}
	if c.Lifecycle.HistoryPageSize <= 0 {
		c.Lifecycle.HistoryPageSize = 100
	}

	// Notifier validation
	if c.Notifier.Type == "" {
		c.Notifier.Type = "log"
	}
	switch c.Notifier.Type {
	case "log":
	case "sendgrid", "firebase", "all":
		if c.Notifier.Type != "firebase" && c.Notifier.SendGrid.APIKey == "" {
			return fmt.Errorf("sendgrid api key is required for notifier %q", c.Notifier.Type)
		}
		if c.Notifier.Type != "sendgrid" && c.Notifier.Firebase.CredentialsFile == "" {
			return fmt.Errorf("firebase credentials file is required for notifier %q", c.Notifier.Type)
		}
	default:
		return fmt.Errorf("unknown notifier type: %q", c.Notifier.Type)
	}
	if c.Notifier.SendGrid.FromEmail == "" {
		c.Notifier.SendGrid.FromEmail = "fleet-alerts@localhost"
	}
	if c.Notifier.SendGrid.FromName == "" {
		c.Notifier.SendGrid.FromName = "Fleet Alerts"
	}
	if c.Notifier.Firebase.Topic == "" {
		c.Notifier.Firebase.Topic = "fleet-maintenance"
	}

	// Scheduler defaults
	if c.Scheduler.ScanMaintenanceDue == "" {
		c.Scheduler.ScanMaintenanceDue = "0 0 * * * *" // hourly
	}
	if c.Scheduler.ScheduleExpiredCollections == "" {
		c.Scheduler.ScheduleExpiredCollections = "0 30 6 * * *" // 6:30 AM UTC
	}

	// Rate limit defaults
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}

	return nil
}

// ShouldMigrate reports whether schema migrations run at startup (default true).
func (c *Config) ShouldMigrate() bool {
	return c.Database.MigrateOnStart == nil || *c.Database.MigrateOnStart
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&statement_timeout=%d",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
		c.Database.StatementTimeoutMs,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the REST server address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}
