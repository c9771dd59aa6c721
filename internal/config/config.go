package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Classifier ClassifierConfig
	Session    SessionConfig
	History    HistoryConfig
	Database   DatabaseConfig
	Audit      AuditConfig
	Azure      AzureConfig
	Logging    LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	Version         string
	ShutdownTimeout time.Duration
}

// ClassifierConfig points at the remote classification service
type ClassifierConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig controls how long idle questionnaire sessions are kept
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// HistoryConfig limits what the history view shows
type HistoryConfig struct {
	MaxItems   int
	MaxReasons int
}

// DatabaseConfig holds database connection configuration.
// The audit trail is disabled when URL is empty.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	// EncryptionKey is a base64 encoded 32-byte key. When set, submitted
	// answers are stored sealed.
	EncryptionKey string
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	Storage StorageConfig
}

// StorageConfig holds Azure Blob Storage configuration.
// The result archive is disabled when no credentials are set.
type StorageConfig struct {
	AccountName     string
	AccountKey      string
	ResultContainer string
}

// Enabled reports whether storage credentials are configured
func (s StorageConfig) Enabled() bool {
	return s.AccountName != "" && s.AccountKey != ""
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.version", "local")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Classifier defaults
	v.SetDefault("classifier.timeout", 15*time.Second)

	// Session defaults
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.sweepinterval", time.Minute)

	// History defaults
	v.SetDefault("history.maxitems", 10)
	v.SetDefault("history.maxreasons", 2)

	// Database defaults
	v.SetDefault("database.maxopenconns", 10)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	// Azure Storage defaults
	v.SetDefault("azure.storage.resultcontainer", "triage-results")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")
	v.BindEnv("server.version", "APP_VERSION")
	v.BindEnv("server.shutdowntimeout", "SHUTDOWN_TIMEOUT")

	// Classifier
	v.BindEnv("classifier.baseurl", "CLASSIFIER_URL")
	v.BindEnv("classifier.timeout", "CLASSIFIER_TIMEOUT")

	// Session
	v.BindEnv("session.ttl", "SESSION_TTL")
	v.BindEnv("session.sweepinterval", "SESSION_SWEEP_INTERVAL")

	// History
	v.BindEnv("history.maxitems", "HISTORY_MAX_ITEMS")
	v.BindEnv("history.maxreasons", "HISTORY_MAX_REASONS")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.maxopenconns", "DATABASE_MAX_CONNS")

	// Audit
	v.BindEnv("audit.encryptionkey", "AUDIT_ENCRYPTION_KEY")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.resultcontainer", "AZURE_STORAGE_RESULT_CONTAINER")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Classifier.BaseURL == "" {
		return fmt.Errorf("classifier.baseurl is required")
	}

	u, err := url.Parse(c.Classifier.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("classifier.baseurl must be an absolute http(s) URL, got %q", c.Classifier.BaseURL)
	}

	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("classifier.timeout must be positive")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdowntimeout must be positive")
	}

	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}

	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweepinterval must be positive")
	}

	if c.History.MaxItems <= 0 || c.History.MaxReasons <= 0 {
		return fmt.Errorf("history limits must be positive")
	}

	if c.Audit.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.Audit.EncryptionKey)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("audit.encryptionkey must be a base64 encoded 32-byte key")
		}
	}

	if (c.Azure.Storage.AccountName == "") != (c.Azure.Storage.AccountKey == "") {
		return fmt.Errorf("azure storage credentials require both account name and key")
	}

	return nil
}
