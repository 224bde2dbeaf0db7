package config

import (
	"testing"
	"time"

	"github.com/gatehouse-io/gatehouse/pkg/observability"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       "8080",
			HealthPort: "9090",
		},
		Database: DatabaseConfig{
			URL:          "postgres://localhost/gatehouse",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Auth: AuthConfig{
			JWTSecret:      "0123456789abcdef0123456789abcdef",
			AccessTokenTTL: 8 * time.Hour,
			BcryptCost:     10,
		},
		Files: FilesConfig{Root: "./media"},
		Audit: AuditConfig{RetentionDays: 90},
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsSamePorts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.HealthPort = cfg.Server.Port
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for identical server and health ports")
	}
}

func TestValidateRejectsShortJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for short JWT secret")
	}
}

func TestValidateRequiresPostgresURL(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing postgres URL")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GATEHOUSE_POSTGRES_URL", "postgres://localhost/gatehouse_test")
	t.Setenv("GATEHOUSE_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Observability.LogLevel != observability.InfoLevel {
		t.Errorf("expected default info level")
	}
	if cfg.Audit.RetentionDays != 90 {
		t.Errorf("expected default retention of 90 days, got %d", cfg.Audit.RetentionDays)
	}
}

func TestParseLogLevel(t *testing.T) {
	if parseLogLevel("warning") != observability.WarnLevel {
		t.Error("expected warning to parse as warn level")
	}
	if parseLogLevel("bogus") != observability.InfoLevel {
		t.Error("expected unknown level to default to info")
	}
}
