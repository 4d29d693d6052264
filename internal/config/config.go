// Package config loads server configuration from an optional YAML file
// and the environment, the environment winning.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server runtime settings.
type Config struct {
	ListenAddr     string `yaml:"listen_addr"`
	DiagAddr       string `yaml:"diag_addr"`
	CORSOrigin     string `yaml:"cors_origin"`
	DataFile       string `yaml:"data_file"`
	UploadDir      string `yaml:"upload_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	JWT   JWTConfig   `yaml:"jwt"`
	Login LoginConfig `yaml:"login"`
	Seed  SeedConfig  `yaml:"seed"`
}

// JWTConfig defines token issuance parameters.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	Expiration time.Duration `yaml:"expiration"`
}

// LoginConfig caps login attempts per client address.
type LoginConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Window      time.Duration `yaml:"window"`
}

// SeedConfig describes the admin account created on first boot.
type SeedConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
}

// Load builds the configuration: defaults, then the YAML file at path
// (if any), then environment variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ListenAddr:     ":5000",
		DiagAddr:       ":9999",
		CORSOrigin:     "http://localhost:5173",
		DataFile:       "data.json",
		UploadDir:      "uploads",
		MaxUploadBytes: 50 << 20,
		JWT: JWTConfig{
			// Insecure fallback kept on purpose: the original ships the
			// same default and warns at boot.
			Secret:     "rtnews_secret_key_change_in_production",
			Issuer:     "rtnews",
			Expiration: 24 * time.Hour,
		},
		Login: LoginConfig{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		Seed: SeedConfig{
			Username: "admin",
			Password: "rtnews@123",
			Email:    "admin@rtnews.com",
		},
	}
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.ListenAddr = ":" + port
	}
	c.DiagAddr = envOrDefault("RTNEWS_DIAG_ADDR", c.DiagAddr)
	c.CORSOrigin = envOrDefault("CORS_ORIGIN", c.CORSOrigin)
	c.DataFile = envOrDefault("RTNEWS_DATA_FILE", c.DataFile)
	c.UploadDir = envOrDefault("RTNEWS_UPLOAD_DIR", c.UploadDir)
	c.MaxUploadBytes = envInt64("RTNEWS_MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.JWT.Secret = envOrDefault("JWT_SECRET", c.JWT.Secret)
	c.JWT.Issuer = envOrDefault("RTNEWS_JWT_ISSUER", c.JWT.Issuer)
	c.JWT.Expiration = envDuration("RTNEWS_JWT_EXPIRATION", c.JWT.Expiration)

	c.Login.MaxAttempts = envInt("RTNEWS_LOGIN_MAX_ATTEMPTS", c.Login.MaxAttempts)
	c.Login.Window = envDuration("RTNEWS_LOGIN_WINDOW", c.Login.Window)

	c.Seed.Username = envOrDefault("RTNEWS_ADMIN_USERNAME", c.Seed.Username)
	c.Seed.Password = envOrDefault("RTNEWS_ADMIN_PASSWORD", c.Seed.Password)
	c.Seed.Email = envOrDefault("RTNEWS_ADMIN_EMAIL", c.Seed.Email)
}

// InsecureSecret reports whether the signing secret is still the
// shipped default.
func (c *Config) InsecureSecret() bool {
	return c.JWT.Secret == defaults().JWT.Secret
}

func envOrDefault(key, value string) string {
	if env, ok := os.LookupEnv(key); ok {
		return env
	}

	return value
}

func envDuration(key string, def time.Duration) time.Duration {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(env); err == nil {
			return parsed
		}
	}

	return def
}

func envInt(key string, def int) int {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(env); err == nil {
			return parsed
		}
	}

	return def
}

func envInt64(key string, def int64) int64 {
	if env, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(env, 10, 64); err == nil {
			return parsed
		}
	}

	return def
}
