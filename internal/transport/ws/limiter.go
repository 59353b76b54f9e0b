package ws

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Buckets untouched for idleTTL are dropped on the next sweep, once they have refilled.
const (
	idleTTL       = 10 * time.Minute
	sweepInterval = time.Minute
)

// IPLimiter keeps one token bucket per remote IP.
type IPLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*ipBucket
	lastSweep time.Time
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewIPLimiter(perSecond float64, burst int) *IPLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IPLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
		limiters: map[string]*ipBucket{},
	}
}

func (l *IPLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
		l.lastSweep = now
	}
	b, ok := l.limiters[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// sweep drops idle buckets. A bucket that has not refilled yet is kept, so eviction
// never hands a caller fresh tokens.
func (l *IPLimiter) sweep(now time.Time) {
	for ip, b := range l.limiters {
		if now.Sub(b.seen) >= idleTTL && b.lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, ip)
		}
	}
}

func (l *IPLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Allow spends one token for the host part of remoteAddr. A nil limiter allows everything.
func (l *IPLimiter) Allow(remoteAddr string) bool {
	if l == nil {
		return true
	}
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		ip = remoteAddr
	}
	return l.allow(ip)
}

// Middleware answers 429 once the caller's bucket is empty.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !l.Allow(r.RemoteAddr) {
			http.Error(rw, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(rw, r)
	})
}
