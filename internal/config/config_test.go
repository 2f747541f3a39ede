package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "WEB_ADDR", "IMAGE_BACKEND", "IMAGE_WIDTH", "SESSION_TTL_MINUTES", "MAX_CONCURRENT", "TELEGRAM_BOT_TOKEN", "GEMINI_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, BackendPollinations, cfg.ImageBackend)
	assert.Equal(t, "https://image.pollinations.ai", cfg.ImageBaseURL)
	assert.Equal(t, 1024, cfg.ImageWidth)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Error(t, cfg.RequireTelegram())
}

func TestLoad_ClampsAndParses(t *testing.T) {
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("MAX_CONCURRENT", "0")
	t.Setenv("IMAGE_WIDTH", "-5")
	t.Setenv("IMAGE_HEIGHT", "768")
	t.Setenv("PREFER_IPV4", "false")
	t.Setenv("SESSION_TTL_MINUTES", "abc")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1, cfg.MaxConcurrent)
	assert.Equal(t, 1024, cfg.ImageWidth)
	assert.Equal(t, 768, cfg.ImageHeight)
	assert.False(t, cfg.PreferIPv4)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.NoError(t, cfg.RequireTelegram())
}

func TestLoad_Backend(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("IMAGE_BACKEND", "gemini")
	_, err := Load()
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	t.Setenv("GEMINI_API_KEY", "key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendGemini, cfg.ImageBackend)

	t.Setenv("IMAGE_BACKEND", "dalle")
	_, err = Load()
	assert.Error(t, err)
}
