// Package config loads and validates the Lexxi backend configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the LXI_ prefix (e.g., LXI_DATABASE_HOST
// overrides database.host in the YAML). The same binary runs with a config.yaml
// in local development and with pure environment variables in containerized
// deployments.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Listing   ListingConfig   `mapstructure:"listing"`
	Editor    EditorConfig    `mapstructure:"editor"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// DirectoryConfig selects how a user identity resolves to its team and
// organization. Two deployed schema generations exist and are mutually
// exclusive: the older one links users→profiles→team_members→teams, the
// newer one records the owner directly on teams.user_id.
type DirectoryConfig struct {
	// Schema is "three_hop" or "direct"
	Schema string `mapstructure:"schema"`
}

// ListingConfig holds trial registry search configuration
type ListingConfig struct {
	// PageSize is the default and maximum number of trials per page
	PageSize int `mapstructure:"page_size"`
	// PublicationWindow is how many of the newest publications are visible per trial
	PublicationWindow int `mapstructure:"publication_window"`
	// PublicationPageSize is the per-page size of the publication pager
	PublicationPageSize int `mapstructure:"publication_page_size"`
}

// EditorConfig holds inline-editor write coalescing configuration
type EditorConfig struct {
	// Debounce is how long a field edit is held before its write fires;
	// re-editing the same field within the window replaces the pending write.
	Debounce time.Duration `mapstructure:"debounce"`
	// WriteTimeout bounds each coalesced UPDATE against the database
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig holds publication document storage configuration
type StorageConfig struct {
	DefaultBackend string             `mapstructure:"default_backend"`
	S3             S3StorageConfig    `mapstructure:"s3"`
	Local          LocalStorageConfig `mapstructure:"local"`
}

// S3StorageConfig holds S3-compatible storage configuration
type S3StorageConfig struct {
	// Endpoint is the S3-compatible endpoint URL (optional, for MinIO etc.)
	Endpoint string `mapstructure:"endpoint"`
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`

	// AuthMethod is "default" (AWS credential chain), "static", "oidc",
	// or "assume_role"
	AuthMethod      string `mapstructure:"auth_method"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// Role-based auth (oidc and assume_role)
	RoleARN              string `mapstructure:"role_arn"`
	RoleSessionName      string `mapstructure:"role_session_name"`
	WebIdentityTokenFile string `mapstructure:"web_identity_token_file"`
	ExternalID           string `mapstructure:"external_id"`
}

// LocalStorageConfig holds local filesystem storage configuration
type LocalStorageConfig struct {
	BasePath string `mapstructure:"base_path"`
	// ServeDirectly makes GetURL return an API-relative URL served by this
	// process instead of a file:// path
	ServeDirectly bool `mapstructure:"serve_directly"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// TokenTTL is the lifetime of issued session JWTs
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	TLS          TLSConfig          `mapstructure:"tls"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Backend is "memory" (per-instance token buckets) or "redis"
	// (shared limits across replicas via redis_rate)
	Backend           string `mapstructure:"backend"`
	RedisAddr         string `mapstructure:"redis_addr"`
	RedisPassword     string `mapstructure:"redis_password"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled     bool            `mapstructure:"enabled"`
	ServiceName string          `mapstructure:"service_name"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Profiling   ProfilingConfig `mapstructure:"profiling"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// ProfilingConfig holds profiling configuration
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// undefaulted lists keys that have no built-in default and so do not
// appear in the defaults map but must still be env-bindable. Mostly
// secrets and optional file paths.
var undefaulted = []string{
	"database.password",
	"storage.s3.endpoint",
	"storage.s3.region",
	"storage.s3.bucket",
	"storage.s3.auth_method",
	"storage.s3.access_key_id",
	"storage.s3.secret_access_key",
	"storage.s3.role_arn",
	"storage.s3.role_session_name",
	"storage.s3.web_identity_token_file",
	"storage.s3.external_id",
	"security.rate_limiting.redis_password",
	"security.tls.cert_file",
	"security.tls.key_file",
}

// bindEnvVars binds every known config key to its LXI_ environment
// variable. AutomaticEnv alone does not reach keys inside nested structs
// during Unmarshal, so each key is bound explicitly. BindEnv only errors
// when called with zero arguments, so a failure here is a programming bug.
func bindEnvVars(v *viper.Viper) error {
	bind := func(key string) error {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
		return nil
	}
	for key := range defaults {
		if err := bind(key); err != nil {
			return err
		}
	}
	for _, key := range undefaulted {
		if err := bind(key); err != nil {
			return err
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/lexxi")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("LXI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Database.Password = os.ExpandEnv(cfg.Database.Password)
	cfg.Storage.S3.SecretAccessKey = os.ExpandEnv(cfg.Storage.S3.SecretAccessKey)
	cfg.Security.RateLimiting.RedisPassword = os.ExpandEnv(cfg.Security.RateLimiting.RedisPassword)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// defaults are the built-in values applied below any config file or env
// override. Durations are strings so the same values work in YAML.
var defaults = map[string]any{
	"server.host":          "0.0.0.0",
	"server.port":          8080,
	"server.base_url":      "http://localhost:8080",
	"server.read_timeout":  "30s",
	"server.write_timeout": "30s",

	"database.host":                 "localhost",
	"database.port":                 5432,
	"database.name":                 "lexxi",
	"database.user":                 "lexxi",
	"database.ssl_mode":             "require",
	"database.max_connections":      25,
	"database.min_idle_connections": 5,

	"directory.schema": "three_hop",

	"listing.page_size":             10,
	"listing.publication_window":    5,
	"listing.publication_page_size": 3,

	"editor.debounce":      "500ms",
	"editor.write_timeout": "10s",

	"storage.default_backend":      "local",
	"storage.local.base_path":      "./storage",
	"storage.local.serve_directly": true,

	"auth.token_ttl": "24h",

	"security.cors.allowed_origins":              []string{"*"},
	"security.cors.allowed_methods":              []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	"security.rate_limiting.enabled":             true,
	"security.rate_limiting.backend":             "memory",
	"security.rate_limiting.redis_addr":          "localhost:6379",
	"security.rate_limiting.requests_per_minute": 120,
	"security.rate_limiting.burst":               30,
	"security.tls.enabled":                       false,

	"logging.level":  "info",
	"logging.format": "json",

	"telemetry.enabled":                 true,
	"telemetry.service_name":            "lexxi-backend",
	"telemetry.metrics.enabled":         true,
	"telemetry.metrics.prometheus_port": 9090,
	"telemetry.profiling.enabled":       false,
	"telemetry.profiling.port":          6060,
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	if c.Directory.Schema != "three_hop" && c.Directory.Schema != "direct" {
		return fmt.Errorf("invalid directory schema: %s (must be three_hop or direct)", c.Directory.Schema)
	}

	if c.Listing.PageSize < 1 || c.Listing.PageSize > 100 {
		return fmt.Errorf("invalid listing page size: %d", c.Listing.PageSize)
	}
	if c.Listing.PublicationPageSize < 1 || c.Listing.PublicationPageSize > c.Listing.PublicationWindow {
		return fmt.Errorf("invalid publication page size: %d (window is %d)",
			c.Listing.PublicationPageSize, c.Listing.PublicationWindow)
	}

	if c.Editor.Debounce <= 0 {
		return fmt.Errorf("editor.debounce must be positive")
	}

	validBackends := map[string]bool{"s3": true, "local": true}
	if !validBackends[c.Storage.DefaultBackend] {
		return fmt.Errorf("invalid storage backend: %s (must be s3 or local)", c.Storage.DefaultBackend)
	}
	if c.Storage.DefaultBackend == "s3" {
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when using S3 backend")
		}
		if c.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when using S3 backend")
		}
	}
	if c.Storage.DefaultBackend == "local" && c.Storage.Local.BasePath == "" {
		return fmt.Errorf("storage.local.base_path is required when using local backend")
	}

	if rl := c.Security.RateLimiting; rl.Enabled {
		if rl.Backend != "memory" && rl.Backend != "redis" {
			return fmt.Errorf("invalid rate limiting backend: %s (must be memory or redis)", rl.Backend)
		}
		if rl.Backend == "redis" && rl.RedisAddr == "" {
			return fmt.Errorf("security.rate_limiting.redis_addr is required when using the redis backend")
		}
	}

	if c.Security.TLS.Enabled {
		if c.Security.TLS.CertFile == "" {
			return fmt.Errorf("security.tls.cert_file is required when TLS is enabled")
		}
		if c.Security.TLS.KeyFile == "" {
			return fmt.Errorf("security.tls.key_file is required when TLS is enabled")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress returns the server address in host:port format
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
