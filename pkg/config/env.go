package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnvOverrides and ConfigPathFromEnv
const (
	EnvLogLevel   = "NLOSCREEN_LOG_LEVEL"
	EnvLogFormat  = "NLOSCREEN_LOG_FORMAT"
	EnvConfigPath = "NLOSCREEN_CONFIG"
	EnvHTTPAddr   = "NLOSCREEN_HTTP_ADDR"
	EnvGRPCAddr   = "NLOSCREEN_GRPC_ADDR"
)

// LoadDotEnv loads variables from the given .env files (default ".env").
// Missing files are ignored; variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// ConfigPathFromEnv returns the config path set in the environment, if any
func ConfigPathFromEnv() string {
	return strings.TrimSpace(os.Getenv(EnvConfigPath))
}

// ApplyEnvOverrides replaces config values with those set in the environment
// and re-validates the result.
func ApplyEnvOverrides(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHTTPAddr)); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvGRPCAddr)); v != "" {
		cfg.Server.GRPCAddr = v
	}
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config after env overrides: %w", err)
	}
	return nil
}

// Load resolves the configuration: the explicit path, else NLOSCREEN_CONFIG,
// else defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPathFromEnv()
	}
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = DefaultConfig()
	} else if cfg, err = LoadConfig(path); err != nil {
		return nil, err
	}
	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
