// Package config loads the service configuration from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	HTTP     HTTPConfig     `koanf:"http"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	Port         string        `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// AuthConfig holds token and password settings. BootstrapAdminEmail names a
// registered user promoted to super_admin at startup.
type AuthConfig struct {
	JWTSecret           string        `koanf:"jwt_secret"`
	TokenTTL            time.Duration `koanf:"token_ttl"`
	BcryptCost          int           `koanf:"bcrypt_cost"`
	BootstrapAdminEmail string        `koanf:"bootstrap_admin_email"`
}

// DatabaseConfig selects the Postgres store. An empty DSN selects the in-memory store.
type DatabaseConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type HTTPConfig struct {
	CORSOrigins     []string `koanf:"cors_origins"`
	RateLimitBurst  int      `koanf:"rate_limit_burst"`
	RateLimitPerSec float64  `koanf:"rate_limit_per_sec"`
	MaxBodyBytes    int64    `koanf:"max_body_bytes"`
	// TrustedProxies are the CIDRs whose X-Forwarded-For header is believed.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":5000",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:   time.Hour,
			BcryptCost: bcrypt.DefaultCost,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		HTTP: HTTPConfig{
			CORSOrigins:     []string{"*"},
			RateLimitBurst:  40,
			RateLimitPerSec: 20,
			MaxBodyBytes:    1 << 20,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file if one is found,
// then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyPort()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyPort lets a bare PORT stand in for the listen address unless SERVER_ADDR is set.
func (c *Config) applyPort() {
	port := strings.TrimSpace(c.Server.Port)
	if port == "" || os.Getenv("SERVER_ADDR") != "" {
		return
	}
	if strings.Contains(port, ":") {
		c.Server.Addr = port
		return
	}
	c.Server.Addr = ":" + port
}

// Validate rejects configurations the service cannot start with. An empty JWT
// secret is allowed here; protected routes report it at request time.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.HTTP.RateLimitPerSec < 0 || c.HTTP.RateLimitBurst < 0 {
		errs = append(errs, errors.New("http rate limit must not be negative"))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("http.max_body_bytes must be positive"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"http.cors_origins",
	"http.trusted_proxies",
}

// processSliceFields splits comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"port":               "server.port",
	"server_addr":        "server.addr",
	"jwt_secret":         "auth.jwt_secret",
	"token_ttl":          "auth.token_ttl",
	"bcrypt_cost":        "auth.bcrypt_cost",
	"bootstrap_admin":    "auth.bootstrap_admin_email",
	"database_url":       "database.dsn",
	"db_auto_migrate":    "database.auto_migrate",
	"log_level":          "log.level",
	"log_format":         "log.format",
	"cors_origins":       "http.cors_origins",
	"rate_limit_burst":   "http.rate_limit_burst",
	"rate_limit_per_sec": "http.rate_limit_per_sec",
	"trusted_proxies":    "http.trusted_proxies",
}

// envTransformFunc maps known environment variables onto config paths and drops
// everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
