package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"golang.org/x/time/rate"

	"github.com/deshgyan/deshgyan/internal/metrics"
)

const limiterIdleTTL = 10 * time.Minute

// ClientRateLimiter throttles requests per client IP with a token bucket.
type ClientRateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	clients  map[string]*clientLimiter
	lastScan time.Time
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientRateLimiter returns a limiter allowing rps sustained requests per
// client with the given burst. A non-positive rps disables limiting.
func NewClientRateLimiter(rps float64, burst int) *ClientRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ClientRateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// Enabled reports whether the limiter throttles anything.
func (l *ClientRateLimiter) Enabled() bool {
	return l != nil && l.rps > 0
}

// Allow reports whether the client may proceed and, if not, how long it
// should wait.
func (l *ClientRateLimiter) Allow(client string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	l.evictIdle(now)
	entry, ok := l.clients[client]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[client] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	reservation := entry.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Second
	}
	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	return false, delay
}

// evictIdle drops limiters unused for a while. Callers hold l.mu.
func (l *ClientRateLimiter) evictIdle(now time.Time) {
	if now.Sub(l.lastScan) < time.Minute {
		return
	}
	l.lastScan = now
	for client, entry := range l.clients {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.clients, client)
		}
	}
}

// Middleware rejects over-limit requests with 429 and a Retry-After hint.
func (l *ClientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, wait := l.Allow(clientKey(r))
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		seconds := int(wait.Seconds())
		if time.Duration(seconds)*time.Second < wait {
			seconds++
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))

		envelope := errors.NewErrorEnvelope("RATE_LIMITED", "অনেক বেশি অনুরোধ। অনুগ্রহ করে কিছুক্ষণ পর চেষ্টা করুন।").
			WithCorrelationID(GetRequestID(r.Context()))
		envelope, _ = envelope.WithContext(map[string]interface{}{
			"retry_after_seconds": seconds,
			"retryable":           true,
		})
		metrics.RecordError(envelope.Code, http.StatusTooManyRequests)
		writeErrorResponse(w, envelope, http.StatusTooManyRequests)
	})
}

// clientKey identifies the caller. RealIP middleware has already resolved
// forwarded addresses into RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
