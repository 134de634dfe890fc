package config

import (
	"os"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// DatabaseConfig.GetDSN
// ---------------------------------------------------------------------------

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard config",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "lexxi",
				Password: "secret",
				Name:     "lexxi",
				SSLMode:  "require",
			},
			want: "host=localhost port=5432 user=lexxi password=secret dbname=lexxi sslmode=require",
		},
		{
			name: "disable ssl mode",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				User:     "admin",
				Password: "pass",
				Name:     "trials",
				SSLMode:  "disable",
			},
			want: "host=db.example.com port=5433 user=admin password=pass dbname=trials sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetDSN()
			if got != tt.want {
				t.Errorf("GetDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ServerConfig.GetAddress
// ---------------------------------------------------------------------------

func TestGetAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{"default", ServerConfig{Host: "0.0.0.0", Port: 8080}, "0.0.0.0:8080"},
		{"localhost", ServerConfig{Host: "localhost", Port: 3000}, "localhost:3000"},
		{"empty host", ServerConfig{Host: "", Port: 8080}, ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetAddress()
			if got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Load: defaults and env overrides
// ---------------------------------------------------------------------------

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Directory.Schema != "three_hop" {
		t.Errorf("directory.schema = %q, want three_hop", cfg.Directory.Schema)
	}
	if cfg.Listing.PageSize != 10 {
		t.Errorf("listing.page_size = %d, want 10", cfg.Listing.PageSize)
	}
	if cfg.Listing.PublicationWindow != 5 || cfg.Listing.PublicationPageSize != 3 {
		t.Errorf("publication window/page = %d/%d, want 5/3",
			cfg.Listing.PublicationWindow, cfg.Listing.PublicationPageSize)
	}
	if cfg.Editor.Debounce.Milliseconds() != 500 {
		t.Errorf("editor.debounce = %v, want 500ms", cfg.Editor.Debounce)
	}
	if cfg.Storage.DefaultBackend != "local" {
		t.Errorf("storage.default_backend = %q, want local", cfg.Storage.DefaultBackend)
	}
	if cfg.Security.RateLimiting.Backend != "memory" {
		t.Errorf("rate limiting backend = %q, want memory", cfg.Security.RateLimiting.Backend)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("LXI_DATABASE_HOST", "db.internal")
	os.Setenv("LXI_DIRECTORY_SCHEMA", "direct")
	os.Setenv("LXI_LISTING_PAGE_SIZE", "8")
	t.Cleanup(func() {
		os.Unsetenv("LXI_DATABASE_HOST")
		os.Unsetenv("LXI_DIRECTORY_SCHEMA")
		os.Unsetenv("LXI_LISTING_PAGE_SIZE")
	})

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("database.host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Directory.Schema != "direct" {
		t.Errorf("directory.schema = %q, want direct", cfg.Directory.Schema)
	}
	if cfg.Listing.PageSize != 8 {
		t.Errorf("listing.page_size = %d, want 8", cfg.Listing.PageSize)
	}
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func validConfig() *Config {
	cfg, _ := Load("")
	return cfg
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server port"},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"bad directory schema", func(c *Config) { c.Directory.Schema = "two_hop" }, "directory schema"},
		{"bad page size", func(c *Config) { c.Listing.PageSize = 0 }, "page size"},
		{"publication page exceeds window", func(c *Config) { c.Listing.PublicationPageSize = 9 }, "publication page size"},
		{"zero debounce", func(c *Config) { c.Editor.Debounce = 0 }, "debounce"},
		{"unknown storage backend", func(c *Config) { c.Storage.DefaultBackend = "gcs" }, "storage backend"},
		{"s3 without bucket", func(c *Config) { c.Storage.DefaultBackend = "s3"; c.Storage.S3.Region = "us-east-1" }, "s3.bucket"},
		{"redis limiter without addr", func(c *Config) {
			c.Security.RateLimiting.Backend = "redis"
			c.Security.RateLimiting.RedisAddr = ""
		}, "redis_addr"},
		{"tls without cert", func(c *Config) { c.Security.TLS.Enabled = true }, "cert_file"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}
