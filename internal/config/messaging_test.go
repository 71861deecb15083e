package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateMessagingConfig(t *testing.T) {
	assert.NoError(t, validateMessagingConfig(DefaultMessagingConfig()))

	cfg := DefaultMessagingConfig()
	cfg.FeedLimit = 0
	assert.Error(t, validateMessagingConfig(cfg))

	cfg = DefaultMessagingConfig()
	cfg.MentionMatch = "fuzzy"
	assert.Error(t, validateMessagingConfig(cfg))

	cfg = DefaultMessagingConfig()
	cfg.LeadLinkFormat = "/leads"
	assert.Error(t, validateMessagingConfig(cfg))

	cfg = DefaultMessagingConfig()
	cfg.BroadcastWriteTimeout = -time.Second
	assert.Error(t, validateMessagingConfig(cfg))
}

func TestLeadLinkFallsBackToDefaultFormat(t *testing.T) {
	cfg := MessagingConfig{LeadLinkFormat: "broken"}
	assert.Equal(t, "/leads/42", cfg.LeadLink("42"))
	assert.Equal(t, "/app/leads/42/chat", MessagingConfig{LeadLinkFormat: "/app/leads/%s/chat"}.LeadLink("42"))
}

func TestNilHolderReturnsDefaults(t *testing.T) {
	var holder *MessagingConfigHolder
	assert.Equal(t, DefaultMessagingConfig(), holder.Get())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("REALTIME_ALLOWED_ORIGINS", "example.com, app.example.com ,")

	cfg := Load()
	assert.Equal(t, defaultJWTSecret, cfg.AuthJWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.AuthTokenTTL)
	assert.True(t, cfg.Webhook.AllowDefaultDealership)
	assert.Equal(t, []string{"example.com", "app.example.com"}, cfg.Realtime.AllowedOrigins)
}
