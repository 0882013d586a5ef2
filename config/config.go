package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FOXCHECK_FOXENTRY_API_KEY.
const EnvPrefix = "FOXCHECK"

var validate = validator.New()

// Load loads the configuration from file and environment.
// A missing config file is not an error when no explicit path is given;
// the API key may then come from the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are unknown to AutomaticEnv
	for _, key := range []string{"client.lat", "client.lon"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".foxcheck"))
		}

		v.AddConfigPath("/etc/foxcheck/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Foxentry defaults
	v.SetDefault("foxentry.api_key", "")
	v.SetDefault("foxentry.api_version", "2.0")
	v.SetDefault("foxentry.base_url", "https://api.foxentry.com")
	v.SetDefault("foxentry.timeout", 30*time.Second)
	v.SetDefault("foxentry.include_request_details", false)
	v.SetDefault("foxentry.max_response_size", 10<<20)
	v.SetDefault("foxentry.user_agent", "")

	// Client defaults, empty means not sent
	v.SetDefault("client.ip", "")
	v.SetDefault("client.country", "")

	v.SetDefault("bulk.concurrency", 4)

	v.SetDefault("output.format", "console")
	v.SetDefault("output.show_details", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)

	v.SetDefault("test.email", "info@foxentry.com")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Foxentry.APIKey == "" || c.Foxentry.APIKey == "your-api-key-here" {
		return fmt.Errorf("foxentry.api_key must be set to a valid API key (or %s_FOXENTRY_API_KEY)", EnvPrefix)
	}

	if (c.Client.Lat == nil) != (c.Client.Lon == nil) {
		return fmt.Errorf("client.lat and client.lon must be set together")
	}

	for name, expression := range c.Filter.Presets {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter preset %q has an empty expression", name)
		}
	}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return describeFieldError(fieldErrs[0])
		}
		return err
	}

	return nil
}

// describeFieldError turns a validator failure into a config-key message,
// e.g. "invalid logging.level: verbose".
func describeFieldError(fe validator.FieldError) error {
	key := configKey(fe.StructNamespace())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "oneof":
		return fmt.Errorf("invalid %s: %v (must be one of: %s)", key, fe.Value(), fe.Param())
	case "len":
		return fmt.Errorf("invalid %s: %v (must be %s characters)", key, fe.Value(), fe.Param())
	case "gt", "gte", "lte":
		return fmt.Errorf("invalid %s: %v (must be %s %s)", key, fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Errorf("invalid %s: %v", key, fe.Value())
	}
}

var keyNames = map[string]string{
	"Foxentry":              "foxentry",
	"APIKey":                "api_key",
	"APIVersion":            "api_version",
	"BaseURL":               "base_url",
	"Timeout":               "timeout",
	"MaxResponseSize":       "max_response_size",
	"IncludeRequestDetails": "include_request_details",
	"UserAgent":             "user_agent",
	"Client":                "client",
	"IP":                    "ip",
	"Country":               "country",
	"Bulk":                  "bulk",
	"Concurrency":           "concurrency",
	"Output":                "output",
	"Format":                "format",
	"ShowDetails":           "show_details",
	"Logging":               "logging",
	"Level":                 "level",
	"Test":                  "test",
	"Email":                 "email",
}

// configKey maps "Config.Logging.Level" to "logging.level".
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}
	for i, p := range parts {
		if name, ok := keyNames[p]; ok {
			parts[i] = name
		} else {
			parts[i] = strings.ToLower(p)
		}
	}
	return strings.Join(parts, ".")
}
