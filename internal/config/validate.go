package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate проверяет конфигурацию и возвращает все найденные ошибки сразу
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		add("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		add("unknown log level %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		add("log format must be text or json, got %q", c.Log.Format)
	}
	if c.Server.Addr == "" {
		add("server address is required")
	}
	if c.Database.Path == "" {
		add("database path is required")
	}

	validateSecrets := func(name string, secrets []string) {
		if len(secrets) == 0 {
			add("%s: at least one secret is required", name)
		}
		for i, s := range secrets {
			if strings.TrimSpace(s) == "" {
				add("%s: secret #%d is blank", name, i)
			}
		}
	}
	validateSecrets("session.secrets", c.Session.Secrets)
	validateSecrets("csrf.secrets", c.CSRF.Secrets)

	if c.Session.TTL <= 0 {
		add("session.ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		add("session.sweep_interval must be positive")
	}
	if c.Session.TouchInterval < 0 {
		add("session.touch_interval must not be negative")
	}
	if c.Session.CookieName == "" {
		add("session.cookie_name is required")
	}
	switch c.Session.Backend {
	case SessionBackendSQLite:
	case SessionBackendBolt:
		if c.Session.BoltPath == "" {
			add("session.bolt_path is required for bolt backend")
		}
	default:
		add("session.backend must be %q or %q, got %q", SessionBackendSQLite, SessionBackendBolt, c.Session.Backend)
	}

	if c.CSRF.CookieName == "" || c.CSRF.HeaderName == "" {
		add("csrf cookie and header names are required")
	}

	if err := c.Hash.PasswordOptions().Validate(); err != nil {
		add("hash: %w", err)
	}
	if c.Environment == EnvProduction && len(c.Hash.Peppers) == 0 {
		add("hash.peppers: at least one pepper is required in production")
	}
	if c.Hash.MinPasswordLength < 1 || c.Hash.MaxPasswordLength < c.Hash.MinPasswordLength {
		add("hash: invalid password length bounds [%d, %d]", c.Hash.MinPasswordLength, c.Hash.MaxPasswordLength)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		add("rate_limit: rps and burst must be positive")
	}
	if _, err := c.RateLimit.TrustedPrefixes(); err != nil {
		add("rate_limit.trusted_proxies: %w", err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
