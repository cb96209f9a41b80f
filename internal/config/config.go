package config

import (
	"fmt"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/spf13/viper"
)

// Defaults applied before the config file and environment are read.
const (
	DefaultBaseURL       = "http://localhost:3000/api/v1"
	DefaultTimeout       = 30 * time.Second
	DefaultStorePath     = "~/.config/balance/credentials.db"
	DefaultPollInterval  = 2 * time.Second
	DefaultMaxFileSize   = 10 * 1024 * 1024
	DefaultPageSize      = 100
	DefaultMinConfidence = 0.9
	DefaultCacheTTL      = 5 * time.Minute
)

// Config is the resolved client configuration.
type Config struct {
	BaseURL       string
	BusinessID    string
	StorePath     string
	LogLevel      string
	LogFormat     string
	Timeout       time.Duration
	PollInterval  time.Duration
	CacheTTL      time.Duration
	MaxFileSize   int64
	PageSize      int
	MinConfidence float64
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", DefaultTimeout)
	v.SetDefault("auth.store_path", DefaultStorePath)
	v.SetDefault("import.poll_interval", DefaultPollInterval)
	v.SetDefault("import.max_file_size", DefaultMaxFileSize)
	v.SetDefault("reconcile.page_size", DefaultPageSize)
	v.SetDefault("reconcile.min_confidence", DefaultMinConfidence)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	cfg := &Config{
		BaseURL:       v.GetString("api.base_url"),
		BusinessID:    v.GetString("api.business_id"),
		Timeout:       v.GetDuration("api.timeout"),
		StorePath:     ExpandPath(v.GetString("auth.store_path")),
		PollInterval:  v.GetDuration("import.poll_interval"),
		MaxFileSize:   v.GetInt64("import.max_file_size"),
		PageSize:      v.GetInt("reconcile.page_size"),
		MinConfidence: v.GetFloat64("reconcile.min_confidence"),
		CacheTTL:      v.GetDuration("cache.ttl"),
		LogLevel:      v.GetString("logging.level"),
		LogFormat:     v.GetString("logging.format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot work with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url", common.ErrMissingConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: api.timeout must be positive", common.ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: import.poll_interval must be positive", common.ErrInvalidConfig)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("%w: import.max_file_size must be positive", common.ErrInvalidConfig)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: reconcile.page_size must be positive", common.ErrInvalidConfig)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: reconcile.min_confidence must be within [0,1]", common.ErrInvalidConfig)
	}
	return nil
}
