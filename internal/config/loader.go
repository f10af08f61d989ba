package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goran-ethernal/MarketSync/internal/common"
	pkgconfig "github.com/goran-ethernal/MarketSync/pkg/config"
	"gopkg.in/yaml.v3"
)

// Environment variables understood on top of the config file.
const (
	EnvRPCURL          = "CONTRACT_RPC"
	EnvContractAddress = "CONTRACT_ADDRESS"
	EnvABIPath         = "CONTRACT_ABI_PATH"
	EnvStartBlock      = "START_BLOCK_NUMBER"
	EnvMaxWindow       = "MAX_SCAN_WINDOW"
	EnvDatabasePath    = "DATABASE_PATH"
	EnvLogLevel        = "LOG_LEVEL"
	EnvNodeEnv         = "NODE_ENV"
	EnvRedisURL        = "REDIS_URL"
)

// LookupFunc resolves an environment variable; os.LookupEnv in production.
type LookupFunc func(key string) (string, bool)

// Load reads the configuration file at path (if any), applies environment overrides,
// defaults and validation. An empty path builds the configuration from the environment alone.
func Load(path string) (*pkgconfig.Config, error) {
	if path == "" {
		return LoadFromEnv(os.LookupEnv)
	}
	return LoadFromFile(path)
}

// LoadFromEnv builds the configuration purely from environment variables.
func LoadFromEnv(lookup LookupFunc) (*pkgconfig.Config, error) {
	var cfg pkgconfig.Config
	if err := applyEnvOverrides(&cfg, lookup); err != nil {
		return nil, err
	}
	return processConfig(&cfg)
}

// LoadFromFile loads configuration from a file, auto-detecting the format by extension.
// Supported formats: .yaml, .yml, .json, .toml
func LoadFromFile(path string) (*pkgconfig.Config, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		cfg *pkgconfig.Config
		err error
	)
	switch ext {
	case ".yaml", ".yml":
		cfg, err = decodeYAML(path)
	case ".json":
		cfg, err = decodeJSON(path)
	case ".toml":
		cfg, err = decodeTOML(path)
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json, .toml)", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	return processConfig(cfg)
}

func decodeYAML(path string) (*pkgconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg pkgconfig.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return &cfg, nil
}

func decodeJSON(path string) (*pkgconfig.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg pkgconfig.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}

	return &cfg, nil
}

func decodeTOML(path string) (*pkgconfig.Config, error) {
	var cfg pkgconfig.Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides lets environment variables take precedence over file values.
func applyEnvOverrides(cfg *pkgconfig.Config, lookup LookupFunc) error {
	if v, ok := lookup(EnvRPCURL); ok && v != "" {
		cfg.Chain.RPCURL = v
	}
	if v, ok := lookup(EnvContractAddress); ok && v != "" {
		cfg.Chain.ContractAddress = v
	}
	if v, ok := lookup(EnvABIPath); ok && v != "" {
		cfg.Chain.ABIPath = v
	}
	if v, ok := lookup(EnvStartBlock); ok && v != "" {
		start, err := common.ParseUint64orHex(&v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvStartBlock, err)
		}
		cfg.Sync.StartBlock = start
	}
	if v, ok := lookup(EnvMaxWindow); ok && v != "" {
		window, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxWindow, err)
		}
		cfg.Sync.MaxWindow = window
	}
	if v, ok := lookup(EnvDatabasePath); ok && v != "" {
		cfg.DB.Path = v
	}
	if v, ok := lookup(EnvNodeEnv); ok && v != "" {
		if cfg.Logging == nil {
			cfg.Logging = &pkgconfig.LoggingConfig{}
		}
		if common.ToLowerWithTrim(v) != "production" {
			cfg.Logging.Development = true
			cfg.Logging.DefaultLevel = "debug"
		}
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		if cfg.Logging == nil {
			cfg.Logging = &pkgconfig.LoggingConfig{}
		}
		cfg.Logging.DefaultLevel = v
	}
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		if cfg.Lease == nil {
			cfg.Lease = &pkgconfig.LeaseConfig{}
		}
		cfg.Lease.RedisURL = v
	}

	return nil
}

// processConfig applies defaults and validates the configuration.
func processConfig(cfg *pkgconfig.Config) (*pkgconfig.Config, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
