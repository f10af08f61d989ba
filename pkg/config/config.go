package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/MarketSync/internal/common"
	"github.com/goran-ethernal/MarketSync/internal/logger"
	"github.com/goran-ethernal/MarketSync/internal/types"
)

const (
	// DefaultMaxWindow bounds how many blocks a single tick scans.
	DefaultMaxWindow = 2000

	// DefaultInterval is the wall-clock period between ticks.
	DefaultInterval = 5 * time.Second

	// DefaultConnectRetryDelay is the fixed delay between database connection attempts.
	DefaultConnectRetryDelay = 5 * time.Second

	// DefaultRequestTimeout bounds a single RPC call.
	DefaultRequestTimeout = 30 * time.Second
)

// Config represents the complete configuration for MarketSync.
type Config struct {
	// Chain contains the ledger connection and contract binding
	Chain ChainConfig `yaml:"chain" json:"chain" toml:"chain"`

	// Sync contains the scanning and scheduling configuration
	Sync SyncConfig `yaml:"sync" json:"sync" toml:"sync"`

	// DB contains the state store configuration
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`

	// API contains the read-only query API configuration
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`

	// Lease contains the optional cross-process tick lease configuration
	Lease *LeaseConfig `yaml:"lease,omitempty" json:"lease,omitempty" toml:"lease,omitempty"`
}

// ChainConfig describes the ledger endpoint and the marketplace contract.
type ChainConfig struct {
	// RPCURL is the Ethereum RPC endpoint URL
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// ContractAddress is the address of the marketplace contract
	ContractAddress string `yaml:"contract_address" json:"contract_address" toml:"contract_address"`

	// ABIPath optionally points at a JSON ABI file; the embedded marketplace ABI is used when empty
	ABIPath string `yaml:"abi_path,omitempty" json:"abi_path,omitempty" toml:"abi_path,omitempty"`

	// RequestTimeout bounds every RPC call; a timeout is treated as a transient failure
	RequestTimeout icommon.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

// ApplyDefaults sets default values for optional chain configuration fields.
func (c *ChainConfig) ApplyDefaults() {
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = icommon.NewDuration(DefaultRequestTimeout)
	}
	if c.Retry == nil {
		c.Retry = &RetryConfig{}
	}
	c.Retry.ApplyDefaults()
}

// Validate checks if the chain configuration is valid.
func (c *ChainConfig) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if c.ContractAddress == "" {
		return fmt.Errorf("chain.contract_address is required")
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("chain.contract_address is not a valid address: %s", c.ContractAddress)
	}
	if c.Retry != nil && c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("chain.retry.backoff_multiplier must be >= 1")
	}
	return nil
}

// Address returns the parsed contract address.
func (c *ChainConfig) Address() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// SyncConfig controls how the chain is scanned.
type SyncConfig struct {
	// StartBlock is the cursor seed used only when no cursor has been persisted yet
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	// MaxWindow is the maximum number of blocks scanned in one tick
	MaxWindow uint64 `yaml:"max_window" json:"max_window" toml:"max_window"`

	// Interval is the period between ticks (e.g., "5s")
	Interval icommon.Duration `yaml:"interval" json:"interval" toml:"interval"`

	// Finality selects which head the scan is bounded by: "latest", "safe" or "finalized"
	Finality string `yaml:"finality" json:"finality" toml:"finality"`
}

// ApplyDefaults sets default values for optional sync configuration fields.
func (s *SyncConfig) ApplyDefaults() {
	if s.MaxWindow == 0 {
		s.MaxWindow = DefaultMaxWindow
	}
	if s.Interval.Duration == 0 {
		s.Interval = icommon.NewDuration(DefaultInterval)
	}
	if s.Finality == "" {
		s.Finality = string(types.FinalityLatest)
	}
}

// Validate checks if the sync configuration is valid.
func (s *SyncConfig) Validate() error {
	if s.MaxWindow == 0 {
		return fmt.Errorf("sync.max_window must be greater than zero")
	}
	if s.Interval.Duration <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if _, err := types.ParseBlockFinality(s.Finality); err != nil {
		return fmt.Errorf("sync.finality: %w", err)
	}
	return nil
}

// RetryConfig represents RPC retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff icommon.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff icommon.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = icommon.NewDuration(500 * time.Millisecond) //nolint:mnd
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = icommon.NewDuration(5 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// DatabaseConfig represents the SQLite state store configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// ConnectRetryDelay is the fixed delay between connection attempts during bootstrap
	ConnectRetryDelay icommon.Duration `yaml:"connect_retry_delay" json:"connect_retry_delay" toml:"connect_retry_delay"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 8
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 2
	}
	if d.ConnectRetryDelay.Duration == 0 {
		d.ConnectRetryDelay = icommon.NewDuration(DefaultConnectRetryDelay)
	}
}

// Validate checks if the database configuration is valid.
func (d *DatabaseConfig) Validate() error {
	if d.Path == "" {
		return fmt.Errorf("db.path is required")
	}

	validJournal := []string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}
	if d.JournalMode != "" && !slices.Contains(validJournal, strings.ToUpper(d.JournalMode)) {
		return fmt.Errorf("db.journal_mode must be one of: %s", strings.Join(validJournal, ", "))
	}

	validSync := []string{"FULL", "NORMAL", "OFF"}
	if d.Synchronous != "" && !slices.Contains(validSync, strings.ToUpper(d.Synchronous)) {
		return fmt.Errorf("db.synchronous must be one of: %s", strings.Join(validSync, ", "))
	}

	return nil
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components:
	//   - syncer: Tick orchestration
	//   - event-source: Contract event fetching and decoding
	//   - cursor-store: Cursor persistence
	//   - entity-store: Request/Offer persistence
	//   - projector: Event projection
	//   - rpc: Ledger RPC client
	//   - api: Read API server
	//   - lease: Tick lease
	//   - db: Database bootstrap
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[icommon.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := icommon.AllComponents[icommon.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[icommon.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return icommon.ToLowerWithTrim(level)
	}
	return l.GetDefaultLevel()
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	if l.DefaultLevel == "" {
		return "info"
	}
	return icommon.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" || m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// APIConfig configures the read-only query API.
type APIConfig struct {
	// Enabled controls whether the API server is started
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the API server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	ReadTimeout  icommon.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`
	WriteTimeout icommon.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`
	IdleTimeout  icommon.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`

	// CORS contains cross-origin settings
	CORS CORSConfig `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig configures cross-origin requests for the API.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for optional API configuration fields.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = icommon.NewDuration(10 * time.Second) //nolint:mnd
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = icommon.NewDuration(10 * time.Second) //nolint:mnd
	}
	if a.IdleTimeout.Duration == 0 {
		a.IdleTimeout = icommon.NewDuration(60 * time.Second) //nolint:mnd
	}
	if a.CORS.Enabled && len(a.CORS.AllowedOrigins) == 0 {
		a.CORS.AllowedOrigins = []string{"*"}
	}
}

// LeaseConfig configures the Redis lease that keeps ticks of several replicas from overlapping.
type LeaseConfig struct {
	// RedisURL is a redis:// URL; the lease is disabled when empty
	RedisURL string `yaml:"redis_url" json:"redis_url" toml:"redis_url"`

	// Key is the Redis key holding the lease
	Key string `yaml:"key" json:"key" toml:"key"`

	// TTL bounds how long a crashed holder can block other replicas
	TTL icommon.Duration `yaml:"ttl" json:"ttl" toml:"ttl"`
}

// ApplyDefaults sets default values for optional lease configuration fields.
func (l *LeaseConfig) ApplyDefaults() {
	if l.Key == "" {
		l.Key = "marketsync:tick"
	}
	if l.TTL.Duration == 0 {
		l.TTL = icommon.NewDuration(time.Minute)
	}
}

// IsEnabled returns true if a Redis lease should guard ticks.
func (l *LeaseConfig) IsEnabled() bool {
	return l != nil && l.RedisURL != ""
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Chain.ApplyDefaults()
	c.Sync.ApplyDefaults()
	c.DB.ApplyDefaults()

	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}
	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
	if c.API != nil {
		c.API.ApplyDefaults()
	}
	if c.Lease != nil {
		c.Lease.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Chain.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.DB.Validate(); err != nil {
		return err
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	if c.Lease != nil && c.Lease.RedisURL != "" && c.Lease.TTL.Duration < c.Sync.Interval.Duration {
		return fmt.Errorf("lease.ttl must not be shorter than sync.interval")
	}

	return nil
}
