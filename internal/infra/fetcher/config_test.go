package fetcher_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"channel-digest/internal/infra/fetcher"
	"channel-digest/internal/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := fetcher.DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 500, cfg.Threshold)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.True(t, cfg.DenyPrivateIPs)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fetcher.Config)
	}{
		{name: "negative threshold", mutate: func(c *fetcher.Config) { c.Threshold = -1 }},
		{name: "zero timeout", mutate: func(c *fetcher.Config) { c.Timeout = 0 }},
		{name: "tiny body", mutate: func(c *fetcher.Config) { c.MaxBodySize = 10 }},
		{name: "huge body", mutate: func(c *fetcher.Config) { c.MaxBodySize = 1 << 40 }},
		{name: "too many redirects", mutate: func(c *fetcher.Config) { c.MaxRedirects = 11 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fetcher.DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CONTENT_FETCH_ENABLED", "true")
	t.Setenv("CONTENT_FETCH_THRESHOLD", "800")
	t.Setenv("CONTENT_FETCH_TIMEOUT", "5s")
	t.Setenv("CONTENT_FETCH_MAX_REDIRECTS", "99")

	c := config.NewCollector(nil)
	cfg := fetcher.LoadConfigFromEnv(c)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 800, cfg.Threshold)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.MaxRedirects)
	assert.Equal(t, []string{"content_fetch_max_redirects"}, c.FallbackFields())
}
