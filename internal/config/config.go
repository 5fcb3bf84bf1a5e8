package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers accepted in database.driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	AI        AIConfig        `yaml:"ai"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file for the sqlite driver.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// AIConfig configures the recommendation model. An empty APIKey disables chat.
type AIConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix SCANFLOW_ and underscore-separated paths:
//
//	SCANFLOW_SERVER_HOST, SCANFLOW_SERVER_PORT,
//	SCANFLOW_DB_DRIVER, SCANFLOW_DB_HOST, SCANFLOW_DB_PORT, SCANFLOW_DB_NAME,
//	SCANFLOW_DB_USER, SCANFLOW_DB_PASSWORD, SCANFLOW_DB_SSLMODE, SCANFLOW_DB_PATH,
//	SCANFLOW_AUTH_JWT_SECRET, SCANFLOW_AUTH_ISSUER, SCANFLOW_AUTH_TOKEN_TTL,
//	SCANFLOW_AI_API_KEY, SCANFLOW_AI_MODEL, SCANFLOW_AI_BASE_URL, SCANFLOW_AI_MAX_TOKENS,
//	SCANFLOW_TAILSCALE_ENABLED, SCANFLOW_TAILSCALE_HOSTNAME, SCANFLOW_TAILSCALE_STATE_DIR
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("SCANFLOW_SERVER_HOST", &cfg.Server.Host)
	num("SCANFLOW_SERVER_PORT", &cfg.Server.Port)

	str("SCANFLOW_DB_DRIVER", &cfg.Database.Driver)
	str("SCANFLOW_DB_HOST", &cfg.Database.Host)
	num("SCANFLOW_DB_PORT", &cfg.Database.Port)
	str("SCANFLOW_DB_NAME", &cfg.Database.Name)
	str("SCANFLOW_DB_USER", &cfg.Database.User)
	str("SCANFLOW_DB_PASSWORD", &cfg.Database.Password)
	str("SCANFLOW_DB_SSLMODE", &cfg.Database.SSLMode)
	str("SCANFLOW_DB_PATH", &cfg.Database.Path)

	str("SCANFLOW_AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("SCANFLOW_AUTH_ISSUER", &cfg.Auth.Issuer)
	if v := os.Getenv("SCANFLOW_AUTH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = d
		}
	}

	str("SCANFLOW_AI_API_KEY", &cfg.AI.APIKey)
	str("SCANFLOW_AI_MODEL", &cfg.AI.Model)
	str("SCANFLOW_AI_BASE_URL", &cfg.AI.BaseURL)
	num("SCANFLOW_AI_MAX_TOKENS", &cfg.AI.MaxTokens)

	if v := os.Getenv("SCANFLOW_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	str("SCANFLOW_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	str("SCANFLOW_TAILSCALE_STATE_DIR", &cfg.Tailscale.StateDir)
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 720 * time.Hour
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 800
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "scanflow"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver %q is not one of postgres, sqlite, memory", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.AI.MaxTokens < 0 {
		return fmt.Errorf("ai.max_tokens must not be negative")
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	return nil
}
