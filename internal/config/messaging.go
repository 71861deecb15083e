package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	MentionMatchSubstring = "substring"
	MentionMatchWord      = "word"
)

// MessagingConfig holds messaging tunables that can change without a restart.
type MessagingConfig struct {
	FeedLimit             int           `mapstructure:"feedLimit"`
	MentionMatch          string        `mapstructure:"mentionMatch"`
	LeadLinkFormat        string        `mapstructure:"leadLinkFormat"`
	BroadcastWriteTimeout time.Duration `mapstructure:"broadcastWriteTimeout"`
}

func DefaultMessagingConfig() MessagingConfig {
	return MessagingConfig{
		FeedLimit:             50,
		MentionMatch:          MentionMatchSubstring,
		LeadLinkFormat:        "/leads/%s",
		BroadcastWriteTimeout: 5 * time.Second,
	}
}

// LeadLink renders the deep link for a lead conversation.
func (c MessagingConfig) LeadLink(leadID string) string {
	format := c.LeadLinkFormat
	if !strings.Contains(format, "%s") {
		format = DefaultMessagingConfig().LeadLinkFormat
	}
	return fmt.Sprintf(format, leadID)
}

type MessagingConfigHolder struct {
	current atomic.Value // holds MessagingConfig
}

// NewStaticMessagingConfig returns a holder that never reloads.
func NewStaticMessagingConfig(cfg MessagingConfig) *MessagingConfigHolder {
	holder := &MessagingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewMessagingConfigHolder() (*MessagingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("messaging")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/dealflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DEALFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultMessagingConfig()
	v.SetDefault("messaging.feedLimit", defaults.FeedLimit)
	v.SetDefault("messaging.mentionMatch", defaults.MentionMatch)
	v.SetDefault("messaging.leadLinkFormat", defaults.LeadLinkFormat)
	v.SetDefault("messaging.broadcastWriteTimeout", defaults.BroadcastWriteTimeout)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg MessagingConfig
	if err := v.UnmarshalKey("messaging", &cfg); err != nil {
		return nil, err
	}
	if err := validateMessagingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticMessagingConfig(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated MessagingConfig
		if err := v.UnmarshalKey("messaging", &updated); err != nil {
			log.Printf("[messaging-config] reload failed: %v", err)
			return
		}
		if err := validateMessagingConfig(updated); err != nil {
			log.Printf("[messaging-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[messaging-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *MessagingConfigHolder) Get() MessagingConfig {
	if h == nil {
		return DefaultMessagingConfig()
	}
	cfg, ok := h.current.Load().(MessagingConfig)
	if !ok {
		return DefaultMessagingConfig()
	}
	return cfg
}

func validateMessagingConfig(cfg MessagingConfig) error {
	if cfg.FeedLimit <= 0 || cfg.FeedLimit > 500 {
		return errors.New("messaging.feedLimit must be between 1 and 500")
	}
	switch cfg.MentionMatch {
	case MentionMatchSubstring, MentionMatchWord:
	default:
		return fmt.Errorf("messaging.mentionMatch %q is not supported", cfg.MentionMatch)
	}
	if !strings.Contains(cfg.LeadLinkFormat, "%s") {
		return errors.New("messaging.leadLinkFormat must contain %s")
	}
	if cfg.BroadcastWriteTimeout <= 0 {
		return errors.New("messaging.broadcastWriteTimeout must be positive")
	}
	return nil
}
