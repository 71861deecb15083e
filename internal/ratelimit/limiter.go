package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/dealflow/internal/config"
	"go.uber.org/zap"
)

const (
	keyLogin   = "dealflow:ratelimit:login:%s:%s"
	keyWebhook = "dealflow:ratelimit:webhook:%s"
)

type bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*Result, error)
}

// Limiter throttles login attempts and webhook intake. A nil Limiter admits
// everything.
type Limiter struct {
	bucket bucket
	log    *zap.Logger

	loginRate    float64
	loginBurst   int
	webhookRate  float64
	webhookBurst int
}

// NewRedisClient returns nil when rate limiting is off or no redis address
// is configured.
func NewRedisClient(cfg config.Config) *redis.Client {
	limitCfg := cfg.RateLimit
	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if !limitCfg.Enabled || addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: limitCfg.RedisPassword,
		DB:       limitCfg.RedisDB,
	})
}

func NewLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) (*Limiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if limitCfg.LoginRate <= 0 || limitCfg.LoginBurst <= 0 {
		return nil, errors.New("login rate limit must be positive")
	}
	if limitCfg.WebhookRate <= 0 || limitCfg.WebhookBurst <= 0 {
		return nil, errors.New("webhook rate limit must be positive")
	}

	log = log.Named("ratelimit")
	var b bucket
	if client != nil {
		b = NewTokenBucket(client)
	} else {
		log.Warn("redis not configured, rate limits are enforced per process")
		b = NewMemoryBucket()
	}

	return &Limiter{
		bucket:       b,
		log:          log,
		loginRate:    limitCfg.LoginRate,
		loginBurst:   limitCfg.LoginBurst,
		webhookRate:  limitCfg.WebhookRate,
		webhookBurst: limitCfg.WebhookBurst,
	}, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowLogin keys attempts by normalized email and client IP.
func (l *Limiter) AllowLogin(ctx context.Context, email, ip string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyLogin, strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(ip))
	return l.allow(ctx, key, l.loginRate, l.loginBurst)
}

func (l *Limiter) AllowWebhook(ctx context.Context, ip string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.allow(ctx, fmt.Sprintf(keyWebhook, strings.TrimSpace(ip)), l.webhookRate, l.webhookBurst)
}

// allow fails open when the backend errors.
func (l *Limiter) allow(ctx context.Context, key string, rate float64, burst int) (*Result, error) {
	res, err := l.bucket.Allow(ctx, key, rate, burst)
	if err != nil {
		l.log.Warn("rate limit check failed", zap.Error(err))
		return &Result{Allowed: true, Limit: burst}, nil
	}
	return res, nil
}
