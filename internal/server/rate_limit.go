package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/dealflow/internal/observability/logger"
	"github.com/smallbiznis/dealflow/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	rateLimitReasonLogin   = "login_attempts"
	rateLimitReasonWebhook = "webhook_source"
)

type loginRateLimitKey struct {
	Email string `json:"email"`
}

// LoginRateLimit throttles login attempts per email and client IP.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		email, err := readLoginEmail(c)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		res, err := s.limiter.AllowLogin(c.Request.Context(), email, c.ClientIP())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !res.Allowed {
			s.denyRateLimit(c, rateLimitReasonLogin, res)
			return
		}
		c.Next()
	}
}

// WebhookRateLimit throttles lead intake per source IP.
func (s *Server) WebhookRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		res, err := s.limiter.AllowWebhook(c.Request.Context(), c.ClientIP())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !res.Allowed {
			s.denyRateLimit(c, rateLimitReasonWebhook, res)
			return
		}
		c.Next()
	}
}

func (s *Server) denyRateLimit(c *gin.Context, reason string, res *ratelimit.Result) {
	ctx := c.Request.Context()
	endpoint := normalizeRateLimitEndpoint(c)
	logger.FromContext(ctx).Warn("rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, reason)

	c.Header("Retry-After", retryAfterSeconds(res))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(res *ratelimit.Result) string {
	if res == nil || res.RetryAfter <= 0 {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds())))
}

// readLoginEmail peeks at the login body and restores it for the handler.
func readLoginEmail(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload loginRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}
	return strings.TrimSpace(payload.Email), nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
