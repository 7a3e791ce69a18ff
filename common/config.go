// Package common holds the run configuration shared by the report commands.
package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/odysee-scraper/client"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the configuration, e.g.
// ODYSEE_CHANNEL_ID or ODYSEE_ENDPOINTS_PROXY.
const EnvPrefix = "ODYSEE"

// DateLayouts are Go time layouts for the three date renderings of a run
type DateLayouts struct {
	Display string `mapstructure:"display"` // dates written in reports
	DB      string `mapstructure:"db"`      // log timestamps
	File    string `mapstructure:"file"`    // file name suffixes
}

// ReportConfig is the configuration of a single comments or videos run.
type ReportConfig struct {
	ChannelID         string           `mapstructure:"channel_id"`
	Timezone          string           `mapstructure:"timezone"`
	DateFormat        DateLayouts      `mapstructure:"date_format"`
	PageSize          int              `mapstructure:"page_size"`
	OutputDir         string           `mapstructure:"output_dir"`
	Thumbnails        bool             `mapstructure:"thumbnails"`
	Engagement        bool             `mapstructure:"engagement"`
	Comments          bool             `mapstructure:"comments"`
	RequestsPerSecond float64          `mapstructure:"requests_per_second"`
	ChannelCacheSize  int              `mapstructure:"channel_cache_size"`
	Timeout           time.Duration    `mapstructure:"timeout"`
	Endpoints         client.Endpoints `mapstructure:"endpoints"`
	LogLevel          string           `mapstructure:"log_level"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("channel_id", "")
	v.SetDefault("timezone", "Europe/Paris")
	v.SetDefault("date_format.display", "02/01/2006 15:04:05")
	v.SetDefault("date_format.db", "2006-01-02 15:04:05")
	v.SetDefault("date_format.file", "02012006150405")
	v.SetDefault("page_size", 999)
	v.SetDefault("output_dir", ".")
	v.SetDefault("thumbnails", false)
	v.SetDefault("engagement", true)
	v.SetDefault("comments", false)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("channel_cache_size", 0)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("endpoints.proxy", client.DefaultProxyURL)
	v.SetDefault("endpoints.comments", client.DefaultCommentsURL)
	v.SetDefault("endpoints.api", client.DefaultAPIURL)
	v.SetDefault("log_level", "info")
}

// NewViper returns a viper instance with defaults registered and ODYSEE_* environment
// variables bound. When configFile is set it is read as well.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return v, nil
}

// LoadReportConfig decodes v into a ReportConfig and validates it.
func LoadReportConfig(v *viper.Viper) (*ReportConfig, error) {
	var cfg ReportConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *ReportConfig) Validate() error {
	if strings.TrimSpace(c.ChannelID) == "" {
		return fmt.Errorf("channel_id must be specified")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}

	if c.DateFormat.Display == "" || c.DateFormat.DB == "" || c.DateFormat.File == "" {
		return fmt.Errorf("date_format.display, date_format.db and date_format.file cannot be empty")
	}

	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be at least 1")
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second cannot be negative")
	}

	if c.ChannelCacheSize < 0 {
		return fmt.Errorf("channel_cache_size cannot be negative")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// ClientConfig maps the transport settings onto the Odysee client configuration
func (c *ReportConfig) ClientConfig() *client.OdyseeConfig {
	return &client.OdyseeConfig{
		Endpoints:         c.Endpoints,
		Timeout:           c.Timeout,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// Formatter returns the date formatter for the configured timezone and layouts.
func (c *ReportConfig) Formatter() (*DateFormatter, error) {
	return NewDateFormatter(c.Timezone, c.DateFormat)
}
