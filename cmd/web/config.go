package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/perplexiplay/database"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Session  SessionConfig
	Database DatabaseConfig
	Log      LogConfig
	UI       UIConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BackendConfig holds the PerplexiPlay API connection settings.
type BackendConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	Debug      bool
}

// SessionConfig holds session management configuration.
type SessionConfig struct {
	CookieName      string
	FlashCookieName string
	HashKey         string
	BlockKey        string
	Duration        time.Duration
	Secure          bool
	Store           string // "memory" or "database"
	CleanupInterval time.Duration
	CSRFKey         string
	RefreshWindow   time.Duration
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver       string // "sqlite" or "mysql"
	Path         string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Title      string
	DateFormat string
	Timezone   string
}

// connection returns the database package view of the configuration.
func (c DatabaseConfig) connection() database.Config {
	return database.Config{
		Driver:       c.Driver,
		Path:         c.Path,
		Host:         c.Host,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		Database:     c.Database,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
	}
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "30s")
	v.SetDefault("backend.retry_count", 0)
	v.SetDefault("backend.debug", false)

	v.SetDefault("session.cookie_name", "perplexiplay_session")
	v.SetDefault("session.flash_cookie_name", "perplexiplay_flash")
	v.SetDefault("session.hash_key", "change-this-hash-key-in-production-32b")
	v.SetDefault("session.block_key", "")
	v.SetDefault("session.duration", "24h")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.cleanup_interval", "5m")
	v.SetDefault("session.csrf_key", "change-this-csrf-key-32-bytes!!!")
	v.SetDefault("session.refresh_window", "1m")

	v.SetDefault("database.driver", database.DriverSQLite)
	v.SetDefault("database.path", "perplexiplay-web.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "perplexiplay_web")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("ui.title", "PerplexiPlay")
	v.SetDefault("ui.date_format", "Jan 2, 2006")
	v.SetDefault("ui.timezone", "Local")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults
	}

	// Parse configuration
	var config Config

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")

	config.Backend.BaseURL = v.GetString("backend.base_url")
	config.Backend.Timeout = v.GetDuration("backend.timeout")
	config.Backend.RetryCount = v.GetInt("backend.retry_count")
	config.Backend.Debug = v.GetBool("backend.debug")

	config.Session.CookieName = v.GetString("session.cookie_name")
	config.Session.FlashCookieName = v.GetString("session.flash_cookie_name")
	config.Session.HashKey = v.GetString("session.hash_key")
	config.Session.BlockKey = v.GetString("session.block_key")
	config.Session.Duration = v.GetDuration("session.duration")
	config.Session.Secure = v.GetBool("session.secure")
	config.Session.Store = v.GetString("session.store")
	config.Session.CleanupInterval = v.GetDuration("session.cleanup_interval")
	config.Session.CSRFKey = v.GetString("session.csrf_key")
	config.Session.RefreshWindow = v.GetDuration("session.refresh_window")

	config.Database.Driver = v.GetString("database.driver")
	config.Database.Path = v.GetString("database.path")
	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Log.Level = v.GetString("log.level")
	config.Log.File = v.GetString("log.file")
	config.Log.MaxSizeMB = v.GetInt("log.max_size_mb")
	config.Log.MaxBackups = v.GetInt("log.max_backups")
	config.Log.MaxAgeDays = v.GetInt("log.max_age_days")

	config.UI.Title = v.GetString("ui.title")
	config.UI.DateFormat = v.GetString("ui.date_format")
	config.UI.Timezone = v.GetString("ui.timezone")

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	switch c.Session.Store {
	case "memory", "database":
	default:
		return fmt.Errorf("session.store must be \"memory\" or \"database\", got %q", c.Session.Store)
	}
	if len(c.Session.HashKey) < 32 {
		return fmt.Errorf("session.hash_key must be at least 32 bytes")
	}
	switch len(c.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("session.block_key must be empty or 16, 24 or 32 bytes")
	}
	if c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("session.cleanup_interval must be positive")
	}
	if len(c.Session.CSRFKey) != 32 {
		return fmt.Errorf("session.csrf_key must be exactly 32 bytes")
	}
	if c.Session.RefreshWindow < 0 {
		return fmt.Errorf("session.refresh_window must not be negative")
	}
	return nil
}
