package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boostcampwm2025/ios02-damago/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsPopulated(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
jwt:
  secret: s3cret
catalog:
  source: catalog.yaml
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Game.HungerDelay != 4*time.Hour || cfg.Game.HungerSlack != 5*time.Second {
		t.Fatalf("unexpected hunger defaults: %v / %v", cfg.Game.HungerDelay, cfg.Game.HungerSlack)
	}
	if cfg.Game.FeedExp != 10 || cfg.Game.StartingFood != 10 || cfg.Game.Cooldown != 12*time.Hour {
		t.Fatalf("unexpected game defaults: %+v", cfg.Game)
	}
	if cfg.Scheduler.Workers <= 0 || cfg.Scheduler.MaxAttempts != 5 {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
}

func TestLoad_YAMLDurations(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
jwt:
  secret: s3cret
catalog:
  source: catalog.yaml
game:
  hunger_delay: 30m
  cooldown: 1h
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.HungerDelay != 30*time.Minute || cfg.Game.Cooldown != time.Hour {
		t.Fatalf("durations not parsed: %+v", cfg.Game)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
jwt:
  secret: from-file
catalog:
  source: catalog.yaml
`)
	t.Setenv("DAMAGO_JWT_SECRET", "from-env")
	t.Setenv("DAMAGO_SERVER_PORT", "9090")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Fatalf("expected env secret, got %q", cfg.JWT.Secret)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected env port, got %d", cfg.Server.Port)
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
jwt:
  secret: s3cret
catalog:
  source: catalog.yaml
`)
	t.Setenv("DAMAGO_SERVER_PORT", "not-a-port")

	_, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse env") {
		t.Fatalf("expected env parse error, got %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected Validate to fail on empty config")
	}
	for _, want := range []string{"jwt.secret", "catalog.source", "database.dbname"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Driver: "mongo"},
		JWT:     config.JWTConfig{Secret: "x"},
		Catalog: config.CatalogConfig{Source: "c.yaml"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown driver to be rejected")
	}
}

func TestValidate_APNsRequiresCredentials(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		JWT:     config.JWTConfig{Secret: "x"},
		Catalog: config.CatalogConfig{Source: "c.yaml"},
		APNs:    config.APNsConfig{Enabled: true},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "apns") {
		t.Fatalf("expected apns validation error, got %v", err)
	}
}

func TestDSN(t *testing.T) {
	db := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "damago", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=damago sslmode=disable"
	if got := db.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}
