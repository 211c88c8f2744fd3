// Package config конфигурация сервера: значения по умолчанию, затем YAML файл,
// затем переменные окружения BINGO_*, затем флаги командной строки.
package config

import (
	"errors"
	"net/netip"
	"strings"
	"time"
)

// ErrConfiguration некорректная или неполная конфигурация, сервер не запускается
var ErrConfiguration = errors.New("configuration error")

// Окружения
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Бэкенды хранилища сессий
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendBolt   = "bolt"
)

// Config holds runtime settings for the bingo server
type Config struct {
	Environment string          `yaml:"environment"`
	Log         LogConfig       `yaml:"log"`
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Web         WebConfig       `yaml:"web"`
	Session     SessionConfig   `yaml:"session"`
	CSRF        CSRFConfig      `yaml:"csrf"`
	Hash        HashConfig      `yaml:"hash"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// LogConfig уровень и формат slog
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// ServerConfig HTTP сервер
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig путь к файлу SQLite
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WebConfig статика SPA
type WebConfig struct {
	Root string `yaml:"root"`
}

// SessionConfig сессии и cookie
type SessionConfig struct {
	// Secrets подписи cookie; [0] подписывает, все принимаются при проверке
	Secrets       []string      `yaml:"secrets"`
	CookieName    string        `yaml:"cookie_name"`
	Backend       string        `yaml:"backend"`   // sqlite|bolt
	BoltPath      string        `yaml:"bolt_path"` // для backend=bolt
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	TouchInterval time.Duration `yaml:"touch_interval"`
}

// CSRFConfig double-submit cookie
type CSRFConfig struct {
	Secrets     []string `yaml:"secrets"`
	SafeMethods []string `yaml:"safe_methods"`
	CookieName  string   `yaml:"cookie_name"`
	HeaderName  string   `yaml:"header_name"`
}

// HashConfig параметры хеширования паролей
type HashConfig struct {
	// Peppers [0] текущий, остальные только для проверки старых записей
	Peppers           []string `yaml:"peppers"`
	Algorithm         string   `yaml:"algorithm"`
	MemoryCost        uint32   `yaml:"memory_cost"` // KiB
	TimeCost          uint32   `yaml:"time_cost"`
	Threads           uint8    `yaml:"threads"`
	SaltLength        int      `yaml:"salt_length"` // hex символов
	Concurrency       int      `yaml:"concurrency"`
	MinPasswordLength int      `yaml:"min_password_length"`
	MaxPasswordLength int      `yaml:"max_password_length"`
}

// RateLimitConfig ограничение запросов к /api/login и /api/signup с одного IP
type RateLimitConfig struct {
	// TrustedProxies IP или CIDR reverse proxy; только им разрешено задавать X-Forwarded-For
	TrustedProxies []string `yaml:"trusted_proxies"`
	RPS            float64  `yaml:"rps"`
	Burst          int      `yaml:"burst"`
	Enabled        bool     `yaml:"enabled"`
}

// TrustedPrefixes разбирает TrustedProxies; одиночный IP становится префиксом /32 или /128
func (r RateLimitConfig) TrustedPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(r.TrustedProxies))
	for _, v := range r.TrustedProxies {
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// Development true для локального окружения (cookie без Secure)
func (c *Config) Development() bool {
	return c.Environment == EnvDevelopment
}
