package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Foxentry FoxentryConfig `mapstructure:"foxentry"`
	Client   ClientConfig   `mapstructure:"client"`
	Bulk     BulkConfig     `mapstructure:"bulk"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Test     TestConfig     `mapstructure:"test"`
}

// FoxentryConfig holds Foxentry API connection details
type FoxentryConfig struct {
	APIKey                string        `mapstructure:"api_key"`
	APIVersion            string        `mapstructure:"api_version"`
	BaseURL               string        `mapstructure:"base_url" validate:"required,url"`
	Timeout               time.Duration `mapstructure:"timeout" validate:"gt=0"`
	IncludeRequestDetails bool          `mapstructure:"include_request_details"`
	MaxResponseSize       int64         `mapstructure:"max_response_size" validate:"gte=0"`
	UserAgent             string        `mapstructure:"user_agent"`
}

// ClientConfig describes the end user attached to every request.
// Lat and Lon are only sent when both are set.
type ClientConfig struct {
	IP      string   `mapstructure:"ip" validate:"omitempty,ip"`
	Country string   `mapstructure:"country" validate:"omitempty,len=2"`
	Lat     *float64 `mapstructure:"lat"`
	Lon     *float64 `mapstructure:"lon"`
}

// BulkConfig controls bulk validation
type BulkConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=64"`
}

// FilterConfig contains filter definitions
type FilterConfig struct {
	Presets map[string]string `mapstructure:"presets"`
}

// OutputConfig controls how results are printed
type OutputConfig struct {
	Format      string `mapstructure:"format" validate:"oneof=console json"`
	ShowDetails bool   `mapstructure:"show_details"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	Color  bool   `mapstructure:"color"`
}

// TestConfig holds the settings of the connectivity test
type TestConfig struct {
	Email string `mapstructure:"email" validate:"required,email"`
}
