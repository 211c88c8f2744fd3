package config

import (
	"net/http"
	"runtime"
	"time"

	"github.com/iudanet/bingo/internal/password"
	"github.com/iudanet/bingo/internal/server/storage"
)

// Default возвращает конфигурацию по умолчанию.
// Секреты не заполняются: без них Validate не пропустит запуск
func Default() *Config {
	return &Config{
		Environment: EnvProduction,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{Path: "bingo.db"},
		Web:      WebConfig{Root: "web/dist"},
		Session: SessionConfig{
			CookieName:    "bingo.sid",
			Backend:       SessionBackendSQLite,
			BoltPath:      "sessions.bolt",
			TTL:           storage.DefaultSessionTTL,
			SweepInterval: 15 * time.Minute,
			TouchInterval: time.Minute,
		},
		CSRF: CSRFConfig{
			CookieName:  "csrf",
			HeaderName:  "x-csrf-token",
			SafeMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		},
		Hash: HashConfig{
			Algorithm:         string(password.AlgorithmArgon2id),
			MemoryCost:        password.DefaultMemoryCost,
			TimeCost:          password.DefaultTimeCost,
			Threads:           password.DefaultThreads,
			SaltLength:        password.DefaultSaltLength,
			Concurrency:       runtime.NumCPU(),
			MinPasswordLength: 8,
			MaxPasswordLength: 128,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     1,
			Burst:   10,
		},
	}
}

// PasswordOptions параметры для password.NewHasher
func (h HashConfig) PasswordOptions() password.Options {
	return password.Options{
		Peppers:     h.Peppers,
		Algorithm:   password.Algorithm(h.Algorithm),
		MemoryCost:  h.MemoryCost,
		TimeCost:    h.TimeCost,
		Threads:     h.Threads,
		SaltLength:  h.SaltLength,
		Concurrency: h.Concurrency,
	}
}
