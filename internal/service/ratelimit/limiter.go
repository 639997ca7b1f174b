package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	xhttp "EconDash/pkg/http"
)

// Limiter holds one token bucket per key. Every key starts full.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	limit rate.Limit
	burst int
	now   func() time.Time
}

// New creates a limiter allowing burst requests per key, refilled at
// perMinute.
func New(burst int, perMinute float64) *Limiter {
	return &Limiter{
		m:     make(map[string]*rate.Limiter),
		limit: rate.Limit(perMinute / 60),
		burst: burst,
		now:   time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.m[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.m[key] = b
	}
	l.mu.Unlock()
	return b.AllowN(l.now(), 1)
}

// PerClient throttles requests by client IP with 429 Too Many Requests.
func PerClient(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.NewAppError(
					"ERR_RATE_LIMITED", "", "too many attempts, try again later", http.StatusTooManyRequests))
			}
			return next(c)
		}
	}
}
