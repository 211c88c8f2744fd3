package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "BINGO_"

// ErrHelp запрошена справка (-h), вызывающий код завершает работу без ошибки
var ErrHelp = flag.ErrHelp

// Options результат разбора служебных флагов
type Options struct {
	ConfigPath  string
	ShowVersion bool
	// Args позиционные аргументы после флагов (команда bingoctl)
	Args []string
}

// Load собирает конфигурацию: defaults -> YAML -> env -> flags -> Validate.
// args без имени программы (os.Args[1:]), getenv обычно os.Getenv
func Load(args []string, getenv func(string) string, output io.Writer) (*Config, Options, error) {
	cfg := Default()

	fs, opts, apply := newFlagSet(output)
	if err := fs.Parse(args); err != nil {
		return nil, Options{}, err
	}
	opts.Args = fs.Args()
	if opts.ShowVersion {
		return cfg, *opts, nil
	}

	path := opts.ConfigPath
	if path == "" {
		path = getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, *opts, err
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, *opts, err
	}

	// флаги имеют наивысший приоритет, применяются только явно заданные
	fs.Visit(func(f *flag.Flag) { apply(cfg, f.Name) })

	if err := cfg.Validate(); err != nil {
		return nil, *opts, err
	}

	return cfg, *opts, nil
}

// loadFile накладывает YAML файл поверх текущих значений
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read config file: %w", ErrConfiguration, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse config file %s: %w", ErrConfiguration, path, err)
	}

	return nil
}

// newFlagSet описывает флаги. apply переносит значение флага name в cfg
func newFlagSet(output io.Writer) (*flag.FlagSet, *Options, func(cfg *Config, name string)) {
	fs := flag.NewFlagSet("bingo", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}

	opts := &Options{}
	fs.StringVar(&opts.ConfigPath, "config", "", "path to YAML config file (env BINGO_CONFIG)")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Show version information")

	addr := fs.String("a", "", "address and port to run server")
	dbPath := fs.String("d", "", "path to SQLite database")
	env := fs.String("env", "", "environment: development|production")
	webRoot := fs.String("web", "", "directory with built SPA")
	logLevel := fs.String("log-level", "", "log level: debug|info|warn|error")
	logFormat := fs.String("log-format", "", "log format: text|json")
	sessionBackend := fs.String("session-backend", "", "session store: sqlite|bolt")

	apply := func(cfg *Config, name string) {
		switch name {
		case "a":
			cfg.Server.Addr = *addr
		case "d":
			cfg.Database.Path = *dbPath
		case "env":
			cfg.Environment = *env
		case "web":
			cfg.Web.Root = *webRoot
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		case "session-backend":
			cfg.Session.Backend = *sessionBackend
		}
	}

	return fs, opts, apply
}

// envBinding переменная окружения и приемник значения
type envBinding struct {
	set  func(cfg *Config, v string) error
	name string
}

func envString(dst func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*dst(cfg) = v
		return nil
	}
}

func envList(dst func(*Config) *[]string) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*dst(cfg) = splitList(v)
		return nil
	}
}

func envDuration(dst func(*Config) *time.Duration) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(cfg) = d
		return nil
	}
}

func envInt(dst func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(cfg) = n
		return nil
	}
}

func envUint32(dst func(*Config) *uint32) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return err
		}
		*dst(cfg) = uint32(n)
		return nil
	}
}

var envBindings = []envBinding{
	{name: "ENV", set: envString(func(c *Config) *string { return &c.Environment })},
	{name: "LOG_LEVEL", set: envString(func(c *Config) *string { return &c.Log.Level })},
	{name: "LOG_FORMAT", set: envString(func(c *Config) *string { return &c.Log.Format })},
	{name: "ADDR", set: envString(func(c *Config) *string { return &c.Server.Addr })},
	{name: "DB_PATH", set: envString(func(c *Config) *string { return &c.Database.Path })},
	{name: "WEB_ROOT", set: envString(func(c *Config) *string { return &c.Web.Root })},

	{name: "SESSION_SECRETS", set: envList(func(c *Config) *[]string { return &c.Session.Secrets })},
	{name: "SESSION_COOKIE_NAME", set: envString(func(c *Config) *string { return &c.Session.CookieName })},
	{name: "SESSION_BACKEND", set: envString(func(c *Config) *string { return &c.Session.Backend })},
	{name: "SESSION_BOLT_PATH", set: envString(func(c *Config) *string { return &c.Session.BoltPath })},
	{name: "SESSION_TTL", set: envDuration(func(c *Config) *time.Duration { return &c.Session.TTL })},
	{name: "SESSION_SWEEP_INTERVAL", set: envDuration(func(c *Config) *time.Duration { return &c.Session.SweepInterval })},
	{name: "SESSION_TOUCH_INTERVAL", set: envDuration(func(c *Config) *time.Duration { return &c.Session.TouchInterval })},

	{name: "CSRF_SECRETS", set: envList(func(c *Config) *[]string { return &c.CSRF.Secrets })},

	{name: "HASH_ALGORITHM", set: envString(func(c *Config) *string { return &c.Hash.Algorithm })},
	{name: "HASH_PEPPERS", set: envList(func(c *Config) *[]string { return &c.Hash.Peppers })},
	{name: "HASH_MEMORY_COST", set: envUint32(func(c *Config) *uint32 { return &c.Hash.MemoryCost })},
	{name: "HASH_TIME_COST", set: envUint32(func(c *Config) *uint32 { return &c.Hash.TimeCost })},
	{name: "HASH_SALT_LENGTH", set: envInt(func(c *Config) *int { return &c.Hash.SaltLength })},
	{name: "HASH_CONCURRENCY", set: envInt(func(c *Config) *int { return &c.Hash.Concurrency })},

	{name: "TRUSTED_PROXIES", set: envList(func(c *Config) *[]string { return &c.RateLimit.TrustedProxies })},
}

// applyEnv накладывает переменные BINGO_* (списки через запятую)
func applyEnv(cfg *Config, getenv func(string) string) error {
	var errs []error
	for _, b := range envBindings {
		raw := strings.TrimSpace(getenv(EnvPrefix + b.name))
		if raw == "" {
			continue
		}
		if err := b.set(cfg, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, b.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
