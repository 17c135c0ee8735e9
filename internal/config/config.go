package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the entire application configuration
type Config struct {
	Storage     StorageConfig     `mapstructure:"storage"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
}

// StorageConfig contains the folder tree settings
type StorageConfig struct {
	RootDir            string `mapstructure:"root_dir"`
	TrashRetentionDays int    `mapstructure:"trash_retention_days"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	TokenTTL  string `mapstructure:"token_ttl"`
	OTPTTL    string `mapstructure:"otp_ttl"`
}

// MaintenanceConfig contains background sweep settings
type MaintenanceConfig struct {
	SweepInterval      string `mapstructure:"sweep_interval"`
	OTPCleanupInterval string `mapstructure:"otp_cleanup_interval"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	BindAddr     string `mapstructure:"bind_addr"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from the specified file path
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// Set defaults
	viper.SetDefault("storage.root_dir", "/var/lib/oocloud")
	viper.SetDefault("storage.trash_retention_days", 30)
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.otp_ttl", "120s")
	viper.SetDefault("maintenance.sweep_interval", "1h")
	viper.SetDefault("maintenance.otp_cleanup_interval", "15m")
	viper.SetDefault("http.bind_addr", "0.0.0.0:8080")
	viper.SetDefault("http.read_timeout", "30s")
	viper.SetDefault("http.write_timeout", "30s")
	viper.SetDefault("http.idle_timeout", "60s")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("database.path", "")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.RootDir == "" {
		return fmt.Errorf("storage.root_dir is required")
	}
	if c.Storage.TrashRetentionDays <= 0 {
		return fmt.Errorf("storage.trash_retention_days must be positive")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if _, err := time.ParseDuration(c.Auth.TokenTTL); err != nil {
		return fmt.Errorf("invalid auth.token_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Auth.OTPTTL); err != nil {
		return fmt.Errorf("invalid auth.otp_ttl: %w", err)
	}

	if _, err := time.ParseDuration(c.Maintenance.SweepInterval); err != nil {
		return fmt.Errorf("invalid maintenance.sweep_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Maintenance.OTPCleanupInterval); err != nil {
		return fmt.Errorf("invalid maintenance.otp_cleanup_interval: %w", err)
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetTrashRetention returns the trash retention as time.Duration
func (c *StorageConfig) GetTrashRetention() time.Duration {
	if c.TrashRetentionDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.TrashRetentionDays) * 24 * time.Hour
}

// GetTokenTTL returns the token lifetime as time.Duration
func (c *AuthConfig) GetTokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.TokenTTL)
	if d == 0 {
		return 24 * time.Hour
	}
	return d
}

// GetOTPTTL returns the one-time code lifetime as time.Duration
func (c *AuthConfig) GetOTPTTL() time.Duration {
	d, _ := time.ParseDuration(c.OTPTTL)
	if d == 0 {
		return 120 * time.Second
	}
	return d
}

// GetSweepInterval returns the sweep interval as time.Duration
func (c *MaintenanceConfig) GetSweepInterval() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	if d == 0 {
		return time.Hour
	}
	return d
}

// GetOTPCleanupInterval returns the otp cleanup interval as time.Duration
func (c *MaintenanceConfig) GetOTPCleanupInterval() time.Duration {
	d, _ := time.ParseDuration(c.OTPCleanupInterval)
	if d == 0 {
		return 15 * time.Minute
	}
	return d
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetWriteTimeout returns the write timeout as time.Duration
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *HTTPConfig) GetIdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	if d == 0 {
		return 60 * time.Second
	}
	return d
}
