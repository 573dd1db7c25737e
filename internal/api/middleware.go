package api

import (
	"alcyxob/bmi-tracker/internal/auth"
	"alcyxob/bmi-tracker/internal/domain"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Constants for context keys
const (
	ContextPrincipalKey = "principal"
	ContextRequestIDKey = "requestID"

	RequestIDHeader = "X-Request-ID"
)

// RequestID propagates X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(ContextRequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(ContextRequestIDKey),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	}
}

// Recovery turns panics into a 500 and reports them to Sentry.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				sentry.CurrentHub().Recover(r)
				logger.Error("panic recovered",
					"error", fmt.Sprint(r),
					"path", c.Request.URL.Path,
					"request_id", c.GetString(ContextRequestIDKey),
					"stack", string(debug.Stack()),
				)
				abortWithError(c, http.StatusInternalServerError, msgServerError)
			}
		}()
		c.Next()
	}
}

// SessionMiddleware resolves the session token once per request. A missing,
// invalid or expired token yields the anonymous principal; route groups
// decide with RequireCapability whether that is acceptable.
func SessionMiddleware(sessions *auth.Sessions, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := domain.Anonymous
		if token := sessionToken(c, cookieName); token != "" {
			p, err := sessions.Resolve(token)
			if err != nil {
				slog.Debug("ignoring session token", "error", err, "request_id", c.GetString(ContextRequestIDKey))
			} else {
				principal = p
			}
		}
		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// sessionToken prefers the Authorization header over the cookie.
func sessionToken(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	token, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return token
}

// RequireCapability rejects requests whose principal lacks c with 401.
// Must run AFTER SessionMiddleware.
func RequireCapability(capability domain.Capability) gin.HandlerFunc {
	msg := msgLoginRequired
	if capability == domain.CapabilityInstructor {
		msg = msgInstructorRequired
	}
	return func(c *gin.Context) {
		if !principalFromContext(c).Has(capability) {
			abortWithError(c, http.StatusUnauthorized, msg)
			return
		}
		c.Next()
	}
}

// principalFromContext returns the resolved principal, or Anonymous when
// SessionMiddleware did not run.
func principalFromContext(c *gin.Context) domain.Principal {
	raw, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return domain.Anonymous
	}
	p, ok := raw.(domain.Principal)
	if !ok {
		return domain.Anonymous
	}
	return p
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Cleanup drops buckets that are full again, i.e. idle clients.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, limiter := range rl.limiters {
		if limiter.Tokens() >= float64(rl.burst) {
			delete(rl.limiters, key)
		}
	}
}

// Run calls Cleanup every interval until stop is closed.
func (rl *RateLimiter) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-stop:
			return
		}
	}
}

// Middleware limits requests per client IP; a non-positive rate disables it.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}
		if !rl.getLimiter(c.ClientIP()).Allow() {
			abortWithError(c, http.StatusTooManyRequests, msgTooManyRequests)
			return
		}
		c.Next()
	}
}
