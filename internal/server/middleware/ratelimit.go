package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter ограничитель запросов по ключу (IP) на основе token bucket из x/time/rate
type RateLimiter struct {
	visitors map[string]*visitor
	// trusted прокси, чьим X-Forwarded-For/X-Real-IP можно верить
	trusted  []netip.Prefix
	logger   *slog.Logger
	cleanupC chan struct{}
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	mu       sync.Mutex
	stopOnce sync.Once
}

// visitor limiter конкретного IP/ключа
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter создает новый rate limiter
// rps - средняя скорость пополнения, burst - размер bucket
// ttl - через сколько неактивный ключ удаляется из памяти
func NewRateLimiter(rps float64, burst int, ttl time.Duration, logger *slog.Logger) *RateLimiter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		logger:   logger,
		cleanupC: make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// cleanup периодически удаляет неактивных visitors для экономии памяти
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupOldVisitors(time.Now())
		case <-rl.cleanupC:
			return
		}
	}
}

// cleanupOldVisitors удаляет ключи, не встречавшиеся дольше ttl
func (rl *RateLimiter) cleanupOldVisitors(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, key)
		}
	}
}

// Stop останавливает cleanup goroutine. Повторный вызов безопасен
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.cleanupC)
	})
}

// TrustProxies задает адреса reverse proxy. Заголовки X-Forwarded-For и X-Real-IP
// учитываются только для соединений от них; без прокси ключом служит RemoteAddr.
// Вызывается до начала обслуживания запросов
func (rl *RateLimiter) TrustProxies(prefixes []netip.Prefix) {
	rl.trusted = prefixes
}

// Allow проверяет, разрешен ли запрос для данного ключа (обычно IP адрес)
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

// RateLimitMiddleware отклоняет запросы сверх лимита с 429
func RateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.clientIP(r)

			if !limiter.Allow(key) {
				logger.WarnContext(r.Context(), "Rate limit exceeded",
					"ip", key,
					"method", r.Method,
					"path", sanitizePath(r.URL.Path),
				)

				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP извлекает IP адрес клиента из запроса.
// От доверенного прокси X-Forwarded-For разбирается справа налево до первого
// недоверенного адреса: левые элементы списка подставляет сам клиент
func (rl *RateLimiter) clientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if !rl.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !rl.isTrusted(hop) || i == 0 {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return peer
}

func (rl *RateLimiter) isTrusted(ip string) bool {
	if len(rl.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rl.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// remoteHost RemoteAddr без порта, иначе каждое соединение получает свой bucket
func remoteHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
