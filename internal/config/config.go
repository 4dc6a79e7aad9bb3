// Package config provides configuration management for the PawNetwork server.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Tenant   TenantConfig   `mapstructure:"tenant"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Lock     LockConfig     `mapstructure:"lock"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
	// MaxBodySize caps upload request bodies in bytes.
	MaxBodySize int64 `mapstructure:"max_body_size" validate:"min=1"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds database connection settings.
// Supports PostgreSQL, SQLite and an in-memory backend.
type DatabaseConfig struct {
	// Driver specifies the database driver: "sqlite", "postgres" or "memory".
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres memory"`

	// PostgreSQL settings (used when Driver is "postgres")
	Host            string        `mapstructure:"host" validate:"required_if=Driver postgres"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user" validate:"required_if=Driver postgres"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database" validate:"required_if=Driver postgres"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// SQLite settings (used when Driver is "sqlite")
	Path            string `mapstructure:"path" validate:"required_if=Driver sqlite"` // Path to SQLite database file
	JournalMode     string `mapstructure:"journal_mode"`                              // WAL, DELETE, TRUNCATE, etc.
	BusyTimeout     int    `mapstructure:"busy_timeout"`                              // Milliseconds to wait for locks
	CacheSize       int    `mapstructure:"cache_size"`                                // Page cache size (negative = KB)
	SynchronousMode string `mapstructure:"synchronous_mode"`                          // NORMAL, FULL, OFF
}

// DSN returns the PostgreSQL connection string.
// Only valid when Driver is "postgres".
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// IsEmbedded returns true if using an embedded database (SQLite).
func (c DatabaseConfig) IsEmbedded() bool {
	return c.Driver == "sqlite"
}

// RedisConfig holds Redis connection settings for the distributed lock backend.
type RedisConfig struct {
	Host        string        `mapstructure:"host" validate:"required_if=Enabled true"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db" validate:"min=0"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds site file storage settings.
type StorageConfig struct {
	// DataDir is the root under which each site gets a directory named by its site ID.
	DataDir string `mapstructure:"data_dir" validate:"required"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// BcryptCost is the work factor for new password hashes.
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"min=4,max=31"`
}

// TenantConfig describes the host names of the tenant namespace.
type TenantConfig struct {
	// Suffix marks a host as tenant space, including the leading dot.
	Suffix string `mapstructure:"suffix" validate:"required,startswith=."`

	// RegisterHost serves the registration portal.
	RegisterHost string `mapstructure:"register_host" validate:"required,hostname"`

	// DashboardHost serves the dashboard portal.
	DashboardHost string `mapstructure:"dashboard_host" validate:"required,hostname"`
}

// CacheConfig holds the site lookup cache settings.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	SiteTTL time.Duration `mapstructure:"site_ttl" validate:"min=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

// CORSConfig holds cross-origin settings for the JSON API.
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LockConfig holds settings for registry and per-site update locks.
type LockConfig struct {
	TTL        time.Duration `mapstructure:"ttl" validate:"min=0"`
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"min=0"`
	MaxRetries int           `mapstructure:"max_retries" validate:"min=0"`
}

// SweeperConfig holds settings for removing storage of sites that never
// finished registering.
type SweeperConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval" validate:"required_if=Enabled true"`
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"min=0"`
	BatchSize   int           `mapstructure:"batch_size" validate:"min=0"`
	DryRun      bool          `mapstructure:"dry_run"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with PAWNET_ and use _ as separator;
// PORT is honoured as an alias for server.port.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("PAWNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("server.port", "PAWNET_SERVER_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("error binding PORT: %w", err)
	}

	// Config file configuration
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/pawnet")
	}

	// Read config file (optional - environment variables can be used instead)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is acceptable - use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_size", 100*1024*1024) // 100MB

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pawnet")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "pawnet")
	v.SetDefault("database.ssl_mode", "prefer")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	// SQLite defaults
	v.SetDefault("database.path", "./data/pawnet.db")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.busy_timeout", 5000)
	v.SetDefault("database.cache_size", -2000)
	v.SetDefault("database.synchronous_mode", "FULL")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)

	// Storage defaults
	v.SetDefault("storage.data_dir", "./data/sites")

	// Auth defaults
	v.SetDefault("auth.bcrypt_cost", 10)

	// Tenant defaults
	v.SetDefault("tenant.suffix", ".cats")
	v.SetDefault("tenant.register_host", "register.cats")
	v.SetDefault("tenant.dashboard_host", "dashboard.cats")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.site_ttl", 30*time.Second)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// CORS defaults
	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	// Lock defaults
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.retry_delay", 50*time.Millisecond)
	v.SetDefault("lock.max_retries", 100)

	// Sweeper defaults
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", time.Hour)
	v.SetDefault("sweeper.grace_period", 24*time.Hour)
	v.SetDefault("sweeper.batch_size", 1000)
	v.SetDefault("sweeper.dry_run", false)
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Tenant.Suffix = strings.ToLower(c.Tenant.Suffix)
	c.Tenant.RegisterHost = strings.ToLower(c.Tenant.RegisterHost)
	c.Tenant.DashboardHost = strings.ToLower(c.Tenant.DashboardHost)

	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Tenant.RegisterHost == c.Tenant.DashboardHost {
		return fmt.Errorf("tenant.register_host and tenant.dashboard_host must differ")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
