package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Issuer:         "http://localhost:8080",
		Upstream:       "http://oidc-server:8081",
		AuthorizePath:  "/authorize",
		DeviceCodePath: "/device/code",
		SessionSecret:  "secret",
		Filters: []FilterConfig{
			{Name: "is_test_sp", Kind: "test_service_warning", Order: 10},
			{Name: "proxy_statistics", Kind: "login_stats", Order: 20},
		},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing issuer", func(c *Config) { c.Issuer = "" }, "ISSUER"},
		{"missing upstream", func(c *Config) { c.Upstream = "" }, "UPSTREAM"},
		{"relative upstream", func(c *Config) { c.Upstream = "/oidc" }, "absolute URL"},
		{"missing secret", func(c *Config) { c.SessionSecret = "" }, "SESSION_SECRET"},
		{"relative gate path", func(c *Config) { c.AuthorizePath = "authorize" }, "absolute"},
		{"unnamed filter", func(c *Config) { c.Filters[0].Name = "" }, "no name"},
		{"kindless filter", func(c *Config) { c.Filters[0].Kind = "" }, "no kind"},
		{"duplicate filter", func(c *Config) { c.Filters[1].Name = c.Filters[0].Name }, "duplicate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestRequiredOption(t *testing.T) {
	fc := FilterConfig{Name: "is_test_sp", Options: map[string]string{"isTestSpAttr": "urn:isTestSp"}}

	v, err := fc.RequiredOption("isTestSpAttr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "urn:isTestSp" {
		t.Errorf("value = %q", v)
	}

	if _, err := fc.RequiredOption("missing"); err == nil {
		t.Error("expected error for a missing option")
	}
}

func TestIsEnabledDefault(t *testing.T) {
	fc := FilterConfig{Name: "f"}
	if !fc.IsEnabled() {
		t.Error("unset toggle must mean enabled")
	}
	off := false
	fc.Enabled = &off
	if fc.IsEnabled() {
		t.Error("explicit false must disable")
	}
}
