// Package config loads and validates the gateway configuration.
//
// Settings come from an optional config file (authproc.yaml in the working
// directory or /etc/authproc) overlaid with environment variables. The
// filter list is ordered; unknown or incomplete filter configurations are
// a startup-time failure, never a runtime one.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	Port     int    `mapstructure:"PORT"`

	// Issuer is the public base URL of this gateway, used when building
	// redirect targets (e.g. the warning page).
	Issuer string `mapstructure:"ISSUER"`

	// Upstream is the URL of the protocol endpoint the gateway fronts.
	// Requests that pass the pipeline are proxied there unchanged.
	Upstream string `mapstructure:"UPSTREAM"`

	// Gated endpoint families. Sub-paths of either are gated as well.
	AuthorizePath  string `mapstructure:"AUTHORIZE_PATH"`
	DeviceCodePath string `mapstructure:"DEVICE_CODE_PATH"`

	// WarningPath is where the test-service interstitial is served.
	WarningPath string `mapstructure:"WARNING_PATH"`

	DBType string `mapstructure:"DB_TYPE"` // sqlite, postgres, mysql
	DSN    string `mapstructure:"DSN"`

	// RedisAddr switches the session marker store to Redis when set.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`

	// UserIdentifierAttribute names the assertion attribute carrying the
	// stable end-user identifier.
	UserIdentifierAttribute string `mapstructure:"USER_IDENTIFIER_ATTRIBUTE"`

	// Federation adapter endpoint (facility and attribute lookups).
	AdapterURL   string `mapstructure:"ADAPTER_URL"`
	AdapterToken string `mapstructure:"ADAPTER_TOKEN"`

	Filters []FilterConfig `mapstructure:"FILTERS"`
}

// FilterConfig describes one filter instance in the pipeline: which kind
// to build, where it runs, and its kind-specific options. Built once at
// startup, immutable thereafter.
type FilterConfig struct {
	Name    string            `mapstructure:"name"`
	Kind    string            `mapstructure:"kind"`
	Order   int               `mapstructure:"order"`
	Enabled *bool             `mapstructure:"enabled"`
	Options map[string]string `mapstructure:"options"`
}

// IsEnabled treats an unset toggle as enabled.
func (f *FilterConfig) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// Option returns a named option value, or "" if unset.
func (f *FilterConfig) Option(key string) string {
	return f.Options[key]
}

// RequiredOption returns a named option or an error identifying the
// filter and the missing key.
func (f *FilterConfig) RequiredOption(key string) (string, error) {
	v, ok := f.Options[key]
	if !ok || v == "" {
		return "", fmt.Errorf("config: filter %q is missing required option %q", f.Name, key)
	}
	return v, nil
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("AUTHORIZE_PATH", "/authorize")
	viper.SetDefault("DEVICE_CODE_PATH", "/device/code")
	viper.SetDefault("WARNING_PATH", "/warning")
	viper.SetDefault("DB_TYPE", "sqlite")
	viper.SetDefault("DSN", "authproc.db")
	viper.SetDefault("SESSION_TTL", "12h")
	viper.SetDefault("USER_IDENTIFIER_ATTRIBUTE", "eduPersonUniqueId")

	viper.SetConfigName("authproc")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/authproc")
	if err := viper.ReadInConfig(); err != nil {
		// A config file is optional; env-only deployments are valid.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails fast on settings that would otherwise surface as nil
// collaborators or broken redirects at request time.
func (c *Config) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("config: ISSUER must be set")
	}
	if _, err := url.Parse(c.Issuer); err != nil {
		return fmt.Errorf("config: invalid ISSUER: %w", err)
	}
	if c.Upstream == "" {
		return fmt.Errorf("config: UPSTREAM must be set")
	}
	if u, err := url.Parse(c.Upstream); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: UPSTREAM must be an absolute URL")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("config: SESSION_SECRET must be set")
	}
	if !strings.HasPrefix(c.AuthorizePath, "/") || !strings.HasPrefix(c.DeviceCodePath, "/") {
		return fmt.Errorf("config: gated endpoint paths must be absolute")
	}
	seen := make(map[string]bool, len(c.Filters))
	for i := range c.Filters {
		f := &c.Filters[i]
		if f.Name == "" {
			return fmt.Errorf("config: filter at index %d has no name", i)
		}
		if f.Kind == "" {
			return fmt.Errorf("config: filter %q has no kind", f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("config: duplicate filter name %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}
