package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	AWS       AWSConfig       `yaml:"aws"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	APNs      APNsConfig      `yaml:"apns"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Game      GameConfig      `yaml:"game"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Tasks     TasksConfig     `yaml:"tasks"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"DAMAGO_SERVER_PORT"`
	Host            string        `yaml:"host" env:"DAMAGO_SERVER_HOST"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string `yaml:"host" env:"DAMAGO_DB_HOST"`
	Port          int    `yaml:"port" env:"DAMAGO_DB_PORT"`
	User          string `yaml:"user" env:"DAMAGO_DB_USER"`
	Password      string `yaml:"password" env:"DAMAGO_DB_PASSWORD"`
	DBName        string `yaml:"dbname" env:"DAMAGO_DB_NAME"`
	SSLMode       string `yaml:"sslmode" env:"DAMAGO_DB_SSLMODE"`
	MaxTxAttempts int    `yaml:"max_tx_attempts"`
}

// StorageConfig selects the document store implementation
type StorageConfig struct {
	Driver string `yaml:"driver" env:"DAMAGO_STORAGE_DRIVER"` // postgres or memory
}

// AWSConfig holds credentials for S3 compatible object storage
type AWSConfig struct {
	Region     string `yaml:"region" env:"DAMAGO_AWS_REGION"`
	AccessKey  string `yaml:"access_key" env:"DAMAGO_AWS_ACCESS_KEY"`
	SecretKey  string `yaml:"secret_key" env:"DAMAGO_AWS_SECRET_KEY"`
	Endpoint   string `yaml:"endpoint" env:"DAMAGO_AWS_ENDPOINT"`
	DisableSSL bool   `yaml:"disable_ssl"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret   string        `yaml:"secret" env:"DAMAGO_JWT_SECRET"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level" env:"DAMAGO_LOG_LEVEL"`
}

// APNsConfig holds Apple Push Notification service credentials
type APNsConfig struct {
	Enabled    bool   `yaml:"enabled" env:"DAMAGO_APNS_ENABLED"`
	KeyFile    string `yaml:"key_file" env:"DAMAGO_APNS_KEY_FILE"`
	KeyID      string `yaml:"key_id" env:"DAMAGO_APNS_KEY_ID"`
	TeamID     string `yaml:"team_id" env:"DAMAGO_APNS_TEAM_ID"`
	BundleID   string `yaml:"bundle_id" env:"DAMAGO_APNS_BUNDLE_ID"`
	Production bool   `yaml:"production" env:"DAMAGO_APNS_PRODUCTION"`
}

// CatalogConfig points at the content catalog, a file path or s3://bucket/key
type CatalogConfig struct {
	Source string `yaml:"source" env:"DAMAGO_CATALOG_SOURCE"`
}

// GameConfig holds the tunable rules of the pet and economy
type GameConfig struct {
	HungerDelay       time.Duration `yaml:"hunger_delay"`
	HungerSlack       time.Duration `yaml:"hunger_slack"`
	FeedExp           int           `yaml:"feed_exp"`
	StartingFood      int64         `yaml:"starting_food"`
	Cooldown          time.Duration `yaml:"cooldown"`
	DrawCost          int64         `yaml:"draw_cost"`
	DuplicateDrawFood int64         `yaml:"duplicate_draw_food"`
}

// SchedulerConfig holds the delayed task worker settings
type SchedulerConfig struct {
	Workers      int           `yaml:"workers"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Lease        time.Duration `yaml:"lease"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// TasksConfig protects the task endpoints used by an external scheduler
type TasksConfig struct {
	Secret string `yaml:"secret" env:"DAMAGO_TASKS_SECRET"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Load reads configuration from a YAML file, applies environment overrides
// and validates the result
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills defaults and rejects unusable settings
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverPostgres
	}
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Database.DBName == "" {
			errs = append(errs, errors.New("database.dbname is required for the postgres driver"))
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.TokenTTL <= 0 {
		c.JWT.TokenTTL = 24 * time.Hour
	}

	if c.Catalog.Source == "" {
		errs = append(errs, errors.New("catalog.source is required"))
	}
	if strings.HasPrefix(c.Catalog.Source, "s3://") && c.AWS.Region == "" {
		c.AWS.Region = "us-east-1"
	}

	if c.APNs.Enabled {
		if c.APNs.KeyFile == "" || c.APNs.KeyID == "" || c.APNs.TeamID == "" {
			errs = append(errs, errors.New("apns.key_file, apns.key_id and apns.team_id are required when apns is enabled"))
		}
		if c.APNs.BundleID == "" {
			errs = append(errs, errors.New("apns.bundle_id is required when apns is enabled"))
		}
	}

	c.Game.applyDefaults()
	c.Scheduler.applyDefaults()

	return errors.Join(errs...)
}

func (g *GameConfig) applyDefaults() {
	if g.HungerDelay <= 0 {
		g.HungerDelay = 4 * time.Hour
	}
	if g.HungerSlack <= 0 {
		g.HungerSlack = 5 * time.Second
	}
	if g.FeedExp <= 0 {
		g.FeedExp = 10
	}
	if g.StartingFood <= 0 {
		g.StartingFood = 10
	}
	if g.Cooldown <= 0 {
		g.Cooldown = 12 * time.Hour
	}
	if g.DrawCost <= 0 {
		g.DrawCost = 100
	}
	if g.DuplicateDrawFood <= 0 {
		g.DuplicateDrawFood = 5
	}
}

func (s *SchedulerConfig) applyDefaults() {
	if s.Workers <= 0 {
		s.Workers = 2
	}
	if s.PollInterval <= 0 {
		s.PollInterval = time.Second
	}
	if s.Lease <= 0 {
		s.Lease = time.Minute
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 5
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
