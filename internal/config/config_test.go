package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"Production environment", "production", true},
		{"Development environment", "development", false},
		{"Empty environment", "", false},
		{"Other environment", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.env}
			if got := cfg.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
			if cfg.IsProd() != tt.want {
				t.Errorf("IsProd() disagrees with IsProduction()")
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"Development environment", "development", true},
		{"Production environment", "production", false},
		{"Empty environment", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.env}
			if got := cfg.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
			if cfg.IsDev() != tt.want {
				t.Errorf("IsDev() disagrees with IsDevelopment()")
			}
		})
	}
}

// validConfig returns a development config that passes Validate.
func validConfig() *Config {
	return &Config{
		Environment: "development",
		Server:      ServerConfig{Port: "8080"},
		Auth: AuthConfig{
			JWTSecret:            "development-secret-key",
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 24 * time.Hour,
		},
		RateLimiter: RateLimiterConfig{Enabled: true, RPS: 10, Burst: 20},
		Square:      SquareConfig{Environment: "sandbox"},
		Extension:   ExtensionConfig{TokenTTL: 90 * 24 * time.Hour, SyncTTL: time.Hour},
		Fees:        FeesConfig{PercentBps: 290, FixedCents: 30},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorContains string
	}{
		{"Valid development config", func(c *Config) {}, ""},
		{"Missing server port", func(c *Config) { c.Server.Port = "" }, "port"},
		{"Unknown database type", func(c *Config) { c.Database.Type = "oracle" }, "database.type"},
		{"Missing JWT secret", func(c *Config) { c.Auth.JWTSecret = "" }, "jwt_secret"},
		{"Production with weak JWT secret", func(c *Config) {
			c.Environment = "production"
			c.Database.DSN = "prod.db"
			c.Auth.CookieSecure = true
			c.Auth.JWTSecret = "short"
		}, "32 chars"},
		{"Production with default JWT secret", func(c *Config) {
			c.Environment = "production"
			c.Database.DSN = "prod.db"
			c.Auth.CookieSecure = true
			c.Auth.JWTSecret = "your-super-secret-key"
		}, "32 chars"},
		{"Production without secure cookies", func(c *Config) {
			c.Environment = "production"
			c.Database.DSN = "prod.db"
			c.Auth.JWTSecret = "very-long-production-secret-key-32-chars-minimum"
		}, "cookie_secure"},
		{"Production without database DSN", func(c *Config) {
			c.Environment = "production"
			c.Auth.CookieSecure = true
			c.Auth.JWTSecret = "very-long-production-secret-key-32-chars-minimum"
		}, "database.dsn"},
		{"Valid production config", func(c *Config) {
			c.Environment = "production"
			c.Database.DSN = "postgres://chuckbox@db/chuckbox"
			c.Auth.CookieSecure = true
			c.Auth.JWTSecret = "very-long-production-secret-key-32-chars-minimum"
		}, ""},
		{"Zero access token duration", func(c *Config) { c.Auth.AccessTokenDuration = 0 }, "access_token_duration"},
		{"Zero refresh token duration", func(c *Config) { c.Auth.RefreshTokenDuration = 0 }, "refresh_token_duration"},
		{"Rate limiter with zero RPS", func(c *Config) { c.RateLimiter.RPS = 0 }, "rps"},
		{"Rate limiter with zero burst", func(c *Config) { c.RateLimiter.Burst = 0 }, "burst"},
		{"Disabled rate limiter ignores values", func(c *Config) { c.RateLimiter = RateLimiterConfig{} }, ""},
		{"Square without token", func(c *Config) { c.Square.Enabled = true }, "square.access_token"},
		{"Square unknown environment", func(c *Config) {
			c.Square = SquareConfig{Enabled: true, AccessToken: "tok", Environment: "live"}
		}, "square.environment"},
		{"Cache without address", func(c *Config) { c.Cache.Enabled = true }, "cache.addr"},
		{"Fee percent too high", func(c *Config) { c.Fees.PercentBps = 10000 }, "fees.percent_bps"},
		{"Negative fixed fee", func(c *Config) { c.Fees.FixedCents = -1 }, "fees.fixed_cents"},
		{"Zero token TTL", func(c *Config) { c.Extension.TokenTTL = 0 }, "extension.token_ttl"},
		{"Zero sync TTL", func(c *Config) { c.Extension.SyncTTL = 0 }, "extension.sync_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errorContains == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Expected error containing '%s', got '%s'", tt.errorContains, err.Error())
			}
		})
	}
}

// chdirTemp runs the test from an empty directory so no config.yaml or .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config with defaults: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("Expected default environment 'development', got %s", cfg.Environment)
	}
	if cfg.Auth.AccessTokenDuration != 15*time.Minute {
		t.Errorf("Expected default access token duration 15m, got %v", cfg.Auth.AccessTokenDuration)
	}
	if cfg.Extension.SyncTTL != time.Hour {
		t.Errorf("Expected default sync TTL 1h, got %v", cfg.Extension.SyncTTL)
	}
	if cfg.Extension.TokenTTL != 90*24*time.Hour {
		t.Errorf("Expected default token TTL 90 days, got %v", cfg.Extension.TokenTTL)
	}
	if cfg.Contact.MaxMessageLength != 5000 {
		t.Errorf("Expected contact limit 5000, got %d", cfg.Contact.MaxMessageLength)
	}
}

func TestLoadConfig_WithEnvironmentVariables(t *testing.T) {
	chdirTemp(t)
	t.Setenv("APP_SERVER_PORT", "9000")
	t.Setenv("APP_ENVIRONMENT", "test")
	t.Setenv("SQUARE_ACCESS_TOKEN", "sq-token")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("Expected port from env 9000, got %s", cfg.Server.Port)
	}
	if cfg.Environment != "test" {
		t.Errorf("Expected environment from env 'test', got %s", cfg.Environment)
	}
	if cfg.Square.AccessToken != "sq-token" {
		t.Errorf("Expected square token from env, got %q", cfg.Square.AccessToken)
	}
}

func TestLoadConfig_DotEnvAndYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := "server:\n  port: \"7000\"\nfees:\n  percent_bps: 260\n  fixed_cents: 15\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("REDIS_PASSWORD=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("REDIS_PASSWORD") })

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != "7000" {
		t.Errorf("Expected port from yaml 7000, got %s", cfg.Server.Port)
	}
	if cfg.Fees.PercentBps != 260 || cfg.Fees.FixedCents != 15 {
		t.Errorf("Expected fees from yaml, got %+v", cfg.Fees)
	}
	if cfg.Cache.Password != "from-dotenv" {
		t.Errorf("Expected redis password from .env, got %q", cfg.Cache.Password)
	}
}
