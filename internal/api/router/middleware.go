package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/jobmarket-be/internal/api/handler"
	"github.com/cuongbtq/jobmarket-be/internal/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	defaultOrigin   = "http://localhost:5173"
)

// Allower decides whether a client may proceed
type Allower interface {
	Allow(ctx context.Context, id string) (bool, error)
}

// LoggerMiddleware logs HTTP requests with slog and tags each with a request id
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		// Process request
		c.Next()

		// Calculate latency
		latency := time.Since(start)

		// Log request details
		logger.Info("HTTP Request",
			slog.String("request_id", requestID),
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
			slog.Duration("latency", latency),
			slog.Int("body_size", c.Writer.Size()),
		)

		// Log errors if any
		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				logger.Error("Request error",
					slog.String("request_id", requestID),
					slog.String("error", e.Error()),
					slog.Uint64("type", uint64(e.Type)),
				)
			}
		}
	}
}

// CORSMiddleware allows credentialed requests from the configured frontends
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{defaultOrigin}
	}

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowCredentials = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestIDHeader}
	config.ExposeHeaders = []string{requestIDHeader}
	return cors.New(config)
}

// RequireSession verifies the session cookie and aborts with 401 on any failure
func RequireSession(tokens *auth.TokenService, cookieName string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			handler.Unauthorized(c)
			return
		}

		identity, err := tokens.Verify(token)
		if err != nil {
			logger.Warn("Rejected session token",
				slog.String("path", c.Request.URL.Path),
				slog.String("error", err.Error()),
			)
			handler.Unauthorized(c)
			return
		}

		handler.SetIdentity(c, identity)
		c.Next()
	}
}

// RateLimitMiddleware rejects clients over their per-minute budget with 429.
// Limiter errors let the request through.
func RateLimitMiddleware(limiter Allower, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Error("Rate limiter unavailable", slog.String("error", err.Error()))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}
		c.Next()
	}
}
