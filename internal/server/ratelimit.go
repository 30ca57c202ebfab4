package server

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"careerpath/internal/config"
	"careerpath/internal/errors"
	"careerpath/internal/observability"
)

// LimiterManager keeps one token bucket per client key (IP or API key).
type LimiterManager struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	done     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

// RateLimiter is the limiter type the server holds
type RateLimiter = LimiterManager

// NewRateLimiter creates a manager allowing cfg.RequestsPerMin requests per
// minute per key with bursts of cfg.BurstCapacity. Keys idle for longer than
// cfg.IdleTTL are dropped every cfg.CleanupEvery.
func NewRateLimiter(cfg config.RateLimitConfig, logger *errors.Logger) *LimiterManager {
	cleanupEvery := cfg.CleanupEvery
	if cleanupEvery <= 0 {
		cleanupEvery = 5 * time.Minute
	}
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}

	m := &LimiterManager{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(cfg.RequestsPerMin) / 60.0),
		burst:    cfg.BurstCapacity,
		idleTTL:  idleTTL,
		done:     make(chan struct{}),
		logger:   logger,
	}

	go m.cleanupRoutine(cleanupEvery)
	return m
}

// GetLimiter retrieves or creates a limiter for a given key.
func (m *LimiterManager) GetLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = time.Now()

	return limiter
}

// Allow checks if a request should be allowed for the given key
func (m *LimiterManager) Allow(key string) bool {
	return m.GetLimiter(key).Allow()
}

// GetStats returns current rate limiter statistics
func (m *LimiterManager) GetStats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]any{
		"active_limiters": len(m.limiters),
		"rate_per_second": float64(m.rate),
		"rate_per_minute": float64(m.rate) * 60.0,
		"burst_capacity":  m.burst,
		"idle_ttl":        m.idleTTL.String(),
	}
}

func (m *LimiterManager) cleanupRoutine(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.cleanup(now)
		case <-m.done:
			return
		}
	}
}

// cleanup drops limiters not used within idleTTL of now
func (m *LimiterManager) cleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, lastSeen := range m.lastSeen {
		if now.Sub(lastSeen) > m.idleTTL {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
		}
	}

	if m.logger != nil {
		m.logger.Debug("Rate limiter cleanup completed",
			"remaining_limiters", len(m.limiters))
	}
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (m *LimiterManager) Close() {
	m.stopOnce.Do(func() { close(m.done) })
}

// rateLimitMiddleware rejects requests over the per-key budget with 429.
func (s *Server) rateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rateLimitKey := s.rateLimitKey(r)
			if rateLimitKey == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(rateLimitKey) {
				s.Logger.Info("Rate limit exceeded",
					"endpoint", r.URL.Path,
					"client_ip", s.clientIP(r),
					"request_id", requestIDFrom(r.Context()))
				om.GetMetrics().RecordRateLimitHit(r.Context(),
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
				w.Header().Set("Retry-After", "60")
				writeErrorResponse(w, "Rate limit exceeded", "", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// rateLimitKey picks the bucket for a request. With byAPIKey a request
// carrying a key the store accepts gets that key's bucket. Every other
// request is limited per client IP, so unknown keys cannot mint fresh buckets.
func (s *Server) rateLimitKey(r *http.Request) string {
	if s.RateLimit.ByAPIKey && s.APIKeys.Len() > 0 {
		if apiKey := extractAPIKey(r); apiKey != "" && s.APIKeys.Contains(apiKey) {
			return "api:" + apiKey
		}
		return "ip:" + s.clientIP(r)
	}

	if s.RateLimit.ByIP {
		return "ip:" + s.clientIP(r)
	}

	return ""
}

func (s *Server) clientIP(r *http.Request) string {
	return clientIP(r, s.trustedProxies)
}

// clientIP returns the address of the connected peer. Only when the peer is a
// trusted proxy are X-Forwarded-For (walked right to left, skipping further
// trusted hops) and then X-Real-IP consulted.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteHost(r.RemoteAddr)
	if !isTrustedProxy(peer, trusted) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		if ip := forwardedClient(strings.Join(xff, ","), trusted); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap().String()
		}
	}

	return peer
}

// forwardedClient returns the rightmost address of an X-Forwarded-For list
// that is not a trusted proxy. Entries left of it were written by the client
// and are ignored. If every hop is trusted the leftmost valid one is used.
func forwardedClient(list string, trusted []netip.Prefix) string {
	hops := strings.Split(list, ",")
	leftmost := ""
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			// an unparsable hop was not written by a proxy we trust
			return ""
		}
		ip := addr.Unmap().String()
		if !isTrustedProxy(ip, trusted) {
			return ip
		}
		leftmost = ip
	}
	return leftmost
}

func isTrustedProxy(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.Unmap().String()
	}
	return host
}
