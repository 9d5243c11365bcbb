package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/killallgit/transcript-sync/pkg/errors"
	"github.com/spf13/viper"
)

// DefaultConfigPath is read when no other file is given
const DefaultConfigPath = "./config/settings.yaml"

// EnvPrefix prefixes every environment override, e.g. TSYNC_SERVER_PORT
const EnvPrefix = "TSYNC"

var (
	once       sync.Once
	initErr    error
	configFile = DefaultConfigPath
)

// SetConfigFile overrides the config file location. Call before Init.
func SetConfigFile(path string) {
	if path != "" {
		configFile = path
	}
}

// Init initializes the configuration system once per process
func Init() error {
	once.Do(func() {
		initErr = Load()
	})
	return initErr
}

// Load reads defaults, the config file and environment overrides into viper
// and validates the result
func Load() error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	path := filepath.Clean(configFile)
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		// a missing file is fine: defaults and env vars apply
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfig returns the current configuration as a struct
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate checks the values in viper, correcting the ones that have a safe
// fallback
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return apperrors.ConfigError("server.port", fmt.Sprintf("invalid port %d", port))
	}

	switch viper.GetString("broker.type") {
	case "memory":
	case "redis":
		if viper.GetString("broker.redis_addr") == "" {
			return apperrors.ConfigError("broker.redis_addr", "required when broker.type is redis")
		}
	default:
		return apperrors.ConfigError("broker.type", fmt.Sprintf("unknown broker %q", viper.GetString("broker.type")))
	}

	if viper.GetDuration("sync.debounce") <= 0 {
		log.Printf("Config: sync.debounce must be positive, using 1.5s")
		viper.Set("sync.debounce", 1500*time.Millisecond)
	}
	if viper.GetDuration("sync.backoff") <= 0 {
		viper.Set("sync.backoff", 25*time.Millisecond)
	}
	if viper.GetDuration("database.tombstone_retention") > 0 && viper.GetDuration("database.cleanup_interval") <= 0 {
		viper.Set("database.cleanup_interval", time.Hour)
	}
	if viper.GetDuration("sync.poll_interval") <= 0 {
		viper.Set("sync.poll_interval", 5*time.Second)
	}

	env := viper.GetString("environment")
	if (env == "production" || env == "prod") && viper.GetString("auth.jwt_secret") == "" && viper.GetString("auth.jwks_url") == "" {
		return apperrors.ConfigError("auth.jwt_secret", "required in production unless auth.jwks_url is set")
	}
	return nil
}

// Validate validates a Config struct
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.ConfigError("server.port", fmt.Sprintf("invalid port %d", c.Server.Port))
	}
	if c.Broker.Type == "redis" && c.Broker.RedisAddr == "" {
		return apperrors.ConfigError("broker.redis_addr", "required when broker.type is redis")
	}
	if c.Sync.Debounce <= 0 {
		c.Sync.Debounce = 1500 * time.Millisecond
	}
	if c.Sync.Backoff <= 0 {
		c.Sync.Backoff = 25 * time.Millisecond
	}
	return nil
}

// ValidateClient checks the settings a sync session needs
func (c *Config) ValidateClient() error {
	if c.Sync.ServerURL == "" {
		return apperrors.ConfigError("sync.server_url", "is required")
	}
	if c.Sync.TranscriptID == "" {
		return apperrors.ConfigError("sync.transcript_id", "is required")
	}
	if c.Sync.UserID == "" && c.Sync.Token == "" {
		return apperrors.ConfigError("sync.user_id", "is required without sync.token")
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 0) // streams stay open
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.max_body_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/transcripts.db")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.max_idle_connections", 5)
	viper.SetDefault("database.connection_max_lifetime", time.Hour)
	viper.SetDefault("database.verbose", false)
	viper.SetDefault("database.tombstone_retention", 7*24*time.Hour)
	viper.SetDefault("database.cleanup_interval", time.Hour)

	// Sync session defaults
	viper.SetDefault("sync.server_url", "http://localhost:8080")
	viper.SetDefault("sync.transcript_id", "")
	viper.SetDefault("sync.user_id", "")
	viper.SetDefault("sync.display_name", "")
	viper.SetDefault("sync.token", "")
	viper.SetDefault("sync.debounce", 1500*time.Millisecond)
	viper.SetDefault("sync.backoff", 25*time.Millisecond)
	viper.SetDefault("sync.write_timeout", 10*time.Second)
	viper.SetDefault("sync.poll_interval", 5*time.Second)
	viper.SetDefault("sync.write_rate", 10.0)
	viper.SetDefault("sync.stream", true)

	// Broker defaults
	viper.SetDefault("broker.type", "memory")
	viper.SetDefault("broker.redis_addr", "")
	viper.SetDefault("broker.redis_password", "")
	viper.SetDefault("broker.redis_db", 0)
	viper.SetDefault("broker.channel_prefix", "tsync:snapshots:")

	// Auth defaults
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.token_ttl", 24*time.Hour)
	viper.SetDefault("auth.jwks_url", "")
	viper.SetDefault("auth.required_permission", "")

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.rps", 20)
	viper.SetDefault("rate_limiting.burst", 40)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}
