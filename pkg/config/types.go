package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Sync        SyncConfig      `mapstructure:"sync"`
	Broker      BrokerConfig    `mapstructure:"broker"`
	Auth        AuthConfig      `mapstructure:"auth"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limiting"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path                  string        `mapstructure:"path"`
	MaxConnections        int           `mapstructure:"max_connections"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
	Verbose               bool          `mapstructure:"verbose"`
	TombstoneRetention    time.Duration `mapstructure:"tombstone_retention"` // 0 keeps tombstones forever
	CleanupInterval       time.Duration `mapstructure:"cleanup_interval"`
}

// SyncConfig contains the client session settings
type SyncConfig struct {
	ServerURL    string        `mapstructure:"server_url"`
	TranscriptID string        `mapstructure:"transcript_id"`
	UserID       string        `mapstructure:"user_id"`
	DisplayName  string        `mapstructure:"display_name"`
	Token        string        `mapstructure:"token"` // bearer token, replaces the user id header
	Debounce     time.Duration `mapstructure:"debounce"`
	Backoff      time.Duration `mapstructure:"backoff"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	WriteRate    float64       `mapstructure:"write_rate"` // writes per second
	Stream       bool          `mapstructure:"stream"`
}

// BrokerConfig selects how snapshot events are fanned out
type BrokerConfig struct {
	Type          string `mapstructure:"type"` // memory or redis
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// AuthConfig contains writer identity settings
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
	JWKSURL            string        `mapstructure:"jwks_url"`            // external provider keys, overrides jwt_secret
	RequiredPermission string        `mapstructure:"required_permission"` // checked on provider tokens only
}

// RateLimitConfig contains per-client request limits
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	RPS     int  `mapstructure:"rps"`
	Burst   int  `mapstructure:"burst"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
